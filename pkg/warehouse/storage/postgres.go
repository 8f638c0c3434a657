// Package storage implements the warehouse.Storage interface on PostgreSQL.
// The database mirrors the in-memory model: it is loaded at session start
// and written back after each mutation.
// warehouse.StorageインターフェースのPostgreSQL実装。データベースはメモリ上の
// モデルを写像し、セッション開始時に読み込まれ、変更のたびに書き戻される
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/hotelZaiGo/pkg/warehouse"
)

// PostgreSQLStorage implements the Storage interface using PostgreSQL
// PostgreSQLを使用したStorageインターフェースの実装
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ warehouse.Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}, nil
}

// LoadWarehouses loads every warehouse with its materials, in insertion order
// 全倉庫を資材ごと挿入順で読み込む
func (s *PostgreSQLStorage) LoadWarehouses(ctx context.Context) ([]*warehouse.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, section, floor
		FROM warehouses
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("倉庫読み込みに失敗しました: %w", err)
	}
	defer rows.Close()

	var warehouses []*warehouse.Warehouse
	byID := make(map[string]*warehouse.Warehouse)
	for rows.Next() {
		w := &warehouse.Warehouse{Materials: make([]*warehouse.Material, 0)}
		if err := rows.Scan(&w.ID, &w.Name, &w.Type, &w.Section, &w.Floor); err != nil {
			return nil, fmt.Errorf("倉庫スキャンに失敗しました: %w", err)
		}
		warehouses = append(warehouses, w)
		byID[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("倉庫読み込みに失敗しました: %w", err)
	}

	mrows, err := s.db.QueryContext(ctx, `
		SELECT warehouse_id, id, name, category, quantity, unit, min_quantity, packaging_unit, units_per_package
		FROM materials
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("資材読み込みに失敗しました: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var warehouseID string
		m := &warehouse.Material{}
		if err := mrows.Scan(&warehouseID, &m.ID, &m.Name, &m.Category, &m.Quantity, &m.Unit, &m.MinQuantity, &m.PackagingUnit, &m.UnitsPerPackage); err != nil {
			return nil, fmt.Errorf("資材スキャンに失敗しました: %w", err)
		}
		w, ok := byID[warehouseID]
		if !ok {
			s.logger.Warn("所属倉庫のない資材をスキップします",
				zap.String("warehouse_id", warehouseID),
				zap.String("material_id", m.ID),
			)
			continue
		}
		w.Materials = append(w.Materials, m)
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("資材読み込みに失敗しました: %w", err)
	}

	return warehouses, nil
}

// LoadProducts loads the product catalog in insertion order
// 商品カタログを挿入順で読み込む
func (s *PostgreSQLStorage) LoadProducts(ctx context.Context) ([]*warehouse.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, section, price, available, recipe
		FROM products
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("商品読み込みに失敗しました: %w", err)
	}
	defer rows.Close()

	var products []*warehouse.Product
	for rows.Next() {
		p := &warehouse.Product{}
		var recipeJSON []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Section, &p.Price, &p.Available, &recipeJSON); err != nil {
			return nil, fmt.Errorf("商品スキャンに失敗しました: %w", err)
		}
		if err := json.Unmarshal(recipeJSON, &p.Materials); err != nil {
			return nil, fmt.Errorf("レシピのJSON解析に失敗しました: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商品読み込みに失敗しました: %w", err)
	}

	return products, nil
}

// LoadLogs loads the audit log in insertion order
// 監査ログを挿入順で読み込む
func (s *PostgreSQLStorage) LoadLogs(ctx context.Context) ([]*warehouse.ConsumptionLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, warehouse_id, from_warehouse, to_warehouse, product_id, quantity, materials_used, section, floor, notes, timestamp
		FROM consumption_logs
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("監査ログ読み込みに失敗しました: %w", err)
	}
	defer rows.Close()

	var logs []*warehouse.ConsumptionLog
	for rows.Next() {
		l := &warehouse.ConsumptionLog{}
		var usagesJSON []byte
		if err := rows.Scan(&l.ID, &l.Type, &l.WarehouseID, &l.FromWarehouse, &l.ToWarehouse, &l.ProductID, &l.Quantity, &usagesJSON, &l.Section, &l.Floor, &l.Notes, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("監査ログスキャンに失敗しました: %w", err)
		}
		if err := json.Unmarshal(usagesJSON, &l.MaterialsUsed); err != nil {
			return nil, fmt.Errorf("控除リストのJSON解析に失敗しました: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("監査ログ読み込みに失敗しました: %w", err)
	}

	return logs, nil
}

// LoadTransferRequests loads transfer requests in insertion order
// 移動申請を挿入順で読み込む
func (s *PostgreSQLStorage) LoadTransferRequests(ctx context.Context) ([]*warehouse.TransferRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_warehouse, to_warehouse, items, status, requested_by, approved_by, notes, requested_at, decided_at
		FROM transfer_requests
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("移動申請読み込みに失敗しました: %w", err)
	}
	defer rows.Close()

	var requests []*warehouse.TransferRequest
	for rows.Next() {
		r := &warehouse.TransferRequest{}
		var itemsJSON []byte
		var decidedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.FromWarehouse, &r.ToWarehouse, &itemsJSON, &r.Status, &r.RequestedBy, &r.ApprovedBy, &r.Notes, &r.RequestedAt, &decidedAt); err != nil {
			return nil, fmt.Errorf("移動申請スキャンに失敗しました: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &r.Items); err != nil {
			return nil, fmt.Errorf("移動対象のJSON解析に失敗しました: %w", err)
		}
		if decidedAt.Valid {
			t := decidedAt.Time
			r.DecidedAt = &t
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("移動申請読み込みに失敗しました: %w", err)
	}

	return requests, nil
}

// SaveWarehouse upserts a warehouse record (materials are saved separately)
// 倉庫記録をupsertする（資材は別途保存）
func (s *PostgreSQLStorage) SaveWarehouse(ctx context.Context, w *warehouse.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, name, type, section, floor)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, type = EXCLUDED.type, section = EXCLUDED.section, floor = EXCLUDED.floor`

	if _, err := s.db.ExecContext(ctx, query, w.ID, w.Name, w.Type, w.Section, w.Floor); err != nil {
		return fmt.Errorf("倉庫保存に失敗しました: %w", err)
	}
	return nil
}

// SaveMaterial upserts one material record within its warehouse
// 所属倉庫内の資材記録をupsertする
func (s *PostgreSQLStorage) SaveMaterial(ctx context.Context, warehouseID string, m *warehouse.Material) error {
	query := `
		INSERT INTO materials (warehouse_id, id, name, category, quantity, unit, min_quantity, packaging_unit, units_per_package)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (warehouse_id, id) DO UPDATE
		SET quantity = EXCLUDED.quantity, min_quantity = EXCLUDED.min_quantity,
		    packaging_unit = EXCLUDED.packaging_unit, units_per_package = EXCLUDED.units_per_package`

	if _, err := s.db.ExecContext(ctx, query,
		warehouseID, m.ID, m.Name, m.Category, m.Quantity, m.Unit, m.MinQuantity, m.PackagingUnit, m.UnitsPerPackage,
	); err != nil {
		return fmt.Errorf("資材保存に失敗しました: %w", err)
	}
	return nil
}

// SaveProduct upserts a product record with its recipe as JSON
// レシピをJSONとして含む商品記録をupsertする
func (s *PostgreSQLStorage) SaveProduct(ctx context.Context, p *warehouse.Product) error {
	recipeJSON, err := json.Marshal(p.Materials)
	if err != nil {
		return fmt.Errorf("レシピのJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO products (id, name, category, section, price, available, recipe)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category, section = EXCLUDED.section,
		    price = EXCLUDED.price, available = EXCLUDED.available, recipe = EXCLUDED.recipe`

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Category, p.Section, p.Price, p.Available, recipeJSON); err != nil {
		return fmt.Errorf("商品保存に失敗しました: %w", err)
	}
	return nil
}

// AppendLog inserts one audit record. The log is append-only: an id
// collision is a duplicate, never an update.
// 監査記録を1件挿入する。ログは追記専用であり、ID衝突は重複でありupdateには
// ならない
func (s *PostgreSQLStorage) AppendLog(ctx context.Context, l *warehouse.ConsumptionLog) error {
	usagesJSON, err := json.Marshal(l.MaterialsUsed)
	if err != nil {
		return fmt.Errorf("控除リストのJSON変換に失敗しました: %w", err)
	}

	query := `
		INSERT INTO consumption_logs (id, type, warehouse_id, from_warehouse, to_warehouse, product_id, quantity, materials_used, section, floor, notes, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := s.db.ExecContext(ctx, query,
		l.ID, l.Type, l.WarehouseID, l.FromWarehouse, l.ToWarehouse, l.ProductID, l.Quantity, usagesJSON, l.Section, l.Floor, l.Notes, l.Timestamp,
	); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return warehouse.ErrDuplicateID
		}
		return fmt.Errorf("監査記録挿入に失敗しました: %w", err)
	}
	return nil
}

// SaveTransferRequest upserts a transfer request
// 移動申請をupsertする
func (s *PostgreSQLStorage) SaveTransferRequest(ctx context.Context, r *warehouse.TransferRequest) error {
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("移動対象のJSON変換に失敗しました: %w", err)
	}

	var decidedAt interface{}
	if r.DecidedAt != nil {
		decidedAt = *r.DecidedAt
	}

	query := `
		INSERT INTO transfer_requests (id, from_warehouse, to_warehouse, items, status, requested_by, approved_by, notes, requested_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, approved_by = EXCLUDED.approved_by, decided_at = EXCLUDED.decided_at`

	if _, err := s.db.ExecContext(ctx, query,
		r.ID, r.FromWarehouse, r.ToWarehouse, itemsJSON, r.Status, r.RequestedBy, r.ApprovedBy, r.Notes, r.RequestedAt, decidedAt,
	); err != nil {
		return fmt.Errorf("移動申請保存に失敗しました: %w", err)
	}
	return nil
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
