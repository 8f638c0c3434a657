package warehouse

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry is the in-memory inventory model: warehouses with their
// materials, the product catalog, the audit log and the transfer request
// list. All mutations are serialized through one exclusive lock; reads take
// consistent snapshots under the shared lock and return deep copies.
// メモリ上の在庫モデル：資材を持つ倉庫群、商品カタログ、監査ログ、移動申請
// リスト。すべての変更は単一の排他ロックで直列化され、読み取りは共有ロック下で
// 一貫したスナップショットをディープコピーとして返す
type Registry struct {
	mu sync.RWMutex

	warehouses []*Warehouse
	products   []*Product
	logs       []*ConsumptionLog
	requests   []*TransferRequest

	whIndex   map[string]int
	prodIndex map[string]int
	reqIndex  map[string]int

	storage   Storage        // 永続化コラボレータ（任意）
	publisher EventPublisher // イベント発行者（任意）
	logger    *zap.Logger    // ログ
	config    *Config        // 設定
}

// すべてのインターフェースを実装することを明示
var _ InventoryEngine = (*Registry)(nil)

// Config holds engine behavior settings
// エンジンの動作設定を保持
type Config struct {
	AllowNegativeStock bool `yaml:"allow_negative_stock"` // 負の在庫を許可
	AuditEnabled       bool `yaml:"audit_enabled"`        // 監査ログ有効
	AlertsEnabled      bool `yaml:"alerts_enabled"`       // 低在庫アラート有効
}

// NewRegistry creates a new inventory registry. Storage and publisher are
// optional; nil disables persistence and event publishing respectively.
// 新しい在庫レジストリを作成。storageとpublisherは任意で、nilの場合は
// それぞれ永続化とイベント発行が無効になる
func NewRegistry(storage Storage, publisher EventPublisher, logger *zap.Logger, config *Config) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = &Config{
			AllowNegativeStock: false,
			AuditEnabled:       true,
			AlertsEnabled:      true,
		}
	}

	return &Registry{
		whIndex:   make(map[string]int),
		prodIndex: make(map[string]int),
		reqIndex:  make(map[string]int),
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

// LoadState loads the persisted state into memory at session start. It
// replaces whatever the registry currently holds.
// セッション開始時に永続化済み状態をメモリへ読み込む。現在の状態は置き換えられる
func (r *Registry) LoadState(ctx context.Context) error {
	if r.storage == nil {
		return nil
	}

	warehouses, err := r.storage.LoadWarehouses(ctx)
	if err != nil {
		return NewStorageError("load_warehouses", "倉庫の読み込みに失敗しました", err)
	}
	products, err := r.storage.LoadProducts(ctx)
	if err != nil {
		return NewStorageError("load_products", "商品の読み込みに失敗しました", err)
	}
	logs, err := r.storage.LoadLogs(ctx)
	if err != nil {
		return NewStorageError("load_logs", "監査ログの読み込みに失敗しました", err)
	}
	requests, err := r.storage.LoadTransferRequests(ctx)
	if err != nil {
		return NewStorageError("load_transfer_requests", "移動申請の読み込みに失敗しました", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.warehouses = warehouses
	r.products = products
	r.logs = logs
	r.requests = requests

	r.whIndex = make(map[string]int, len(warehouses))
	for i, w := range warehouses {
		w.rebuildIndex()
		r.whIndex[w.ID] = i
	}
	r.prodIndex = make(map[string]int, len(products))
	for i, p := range products {
		r.prodIndex[p.ID] = i
	}
	r.reqIndex = make(map[string]int, len(requests))
	for i, req := range requests {
		r.reqIndex[req.ID] = i
	}

	r.logger.Info("状態読み込み完了",
		zap.Int("warehouses", len(warehouses)),
		zap.Int("products", len(products)),
		zap.Int("logs", len(logs)),
		zap.Int("transfer_requests", len(requests)),
	)

	return nil
}

// AddWarehouse appends a new warehouse with an empty material set
// 空の資材集合を持つ新しい倉庫を追加
func (r *Registry) AddWarehouse(ctx context.Context, w *Warehouse) error {
	if err := ValidateWarehouse(w); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.whIndex[w.ID]; exists {
		return ErrDuplicateID
	}

	stored := w.Clone()
	stored.Materials = make([]*Material, 0)
	stored.rebuildIndex()

	r.warehouses = append(r.warehouses, stored)
	r.whIndex[stored.ID] = len(r.warehouses) - 1

	r.persistWarehouse(ctx, stored)

	r.logger.Info("倉庫追加完了",
		zap.String("warehouse_id", stored.ID),
		zap.String("name", stored.Name),
		zap.String("type", string(stored.Type)),
	)

	return nil
}

// AddMaterial appends a material to the named warehouse. The material id
// must be unique within that warehouse; the same id may exist in other
// warehouses independently.
// 指定倉庫に資材を追加。資材IDは倉庫内で一意でなければならないが、他の倉庫には
// 同じIDが独立して存在してよい
func (r *Registry) AddMaterial(ctx context.Context, warehouseID string, m *Material) error {
	if err := ValidateID("warehouse_id", warehouseID); err != nil {
		return err
	}
	if err := ValidateMaterial(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wh, err := r.warehouse(warehouseID)
	if err != nil {
		return err
	}
	if wh.material(m.ID) != nil {
		return ErrDuplicateID
	}

	stored := m.Clone()
	wh.Materials = append(wh.Materials, stored)
	wh.index[stored.ID] = len(wh.Materials) - 1

	r.persistMaterial(ctx, warehouseID, stored)
	r.checkLowStock(ctx, warehouseID, stored)

	r.logger.Info("資材追加完了",
		zap.String("warehouse_id", warehouseID),
		zap.String("material_id", stored.ID),
		zap.Float64("quantity", stored.Quantity),
		zap.String("unit", stored.Unit),
	)

	return nil
}

// AddProduct appends a product to the catalog. Recipes may reference
// materials not yet stocked in any warehouse; resolution happens lazily at
// consumption time.
// カタログに商品を追加。レシピはどの倉庫にもまだ在庫のない資材を参照してよく、
// 解決は消費時に遅延して行われる
func (r *Registry) AddProduct(ctx context.Context, p *Product) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prodIndex[p.ID]; exists {
		return ErrDuplicateID
	}

	stored := p.Clone()
	r.products = append(r.products, stored)
	r.prodIndex[stored.ID] = len(r.products) - 1

	r.persistProduct(ctx, stored)

	r.logger.Info("商品追加完了",
		zap.String("product_id", stored.ID),
		zap.String("name", stored.Name),
		zap.String("section", string(stored.Section)),
		zap.Int("recipe_lines", len(stored.Materials)),
	)

	return nil
}

// Warehouses returns a snapshot of all warehouses in insertion order
// すべての倉庫のスナップショットを挿入順で返す
func (r *Registry) Warehouses() []*Warehouse {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Warehouse, len(r.warehouses))
	for i, w := range r.warehouses {
		out[i] = w.Clone()
	}
	return out
}

// Warehouse returns a snapshot of one warehouse
// 倉庫1件のスナップショットを返す
func (r *Registry) Warehouse(id string) (*Warehouse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wh, err := r.warehouse(id)
	if err != nil {
		return nil, err
	}
	return wh.Clone(), nil
}

// Products returns a snapshot of the product catalog in insertion order
// 商品カタログのスナップショットを挿入順で返す
func (r *Registry) Products() []*Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Product, len(r.products))
	for i, p := range r.products {
		out[i] = p.Clone()
	}
	return out
}

// Product returns a snapshot of one product
// 商品1件のスナップショットを返す
func (r *Registry) Product(id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, err := r.product(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// LowStockMaterials scans every warehouse and reports materials at or below
// their reorder threshold. Order is warehouse iteration order, then material
// order within each warehouse; the same material id in two warehouses yields
// two entries.
// 全倉庫を走査し再発注閾値以下の資材を報告。順序は倉庫の反復順、その中では
// 資材の順。同じ資材IDが2つの倉庫にあれば2件になる
func (r *Registry) LowStockMaterials() []LowStockEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]LowStockEntry, 0)
	for _, wh := range r.warehouses {
		for _, m := range wh.Materials {
			if m.IsLowStock() {
				entries = append(entries, LowStockEntry{
					WarehouseID: wh.ID,
					Material:    *m,
				})
			}
		}
	}
	return entries
}

// 内部ヘルパー（呼び出し側でロック保持が前提）

// warehouse returns the live warehouse record for an id
// IDに対応する内部の倉庫レコードを返す
func (r *Registry) warehouse(id string) (*Warehouse, error) {
	i, ok := r.whIndex[id]
	if !ok {
		return nil, ErrWarehouseNotFound
	}
	return r.warehouses[i], nil
}

// product returns the live product record for an id
// IDに対応する内部の商品レコードを返す
func (r *Registry) product(id string) (*Product, error) {
	i, ok := r.prodIndex[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return r.products[i], nil
}

// appendLog appends an audit record and persists it best-effort
// 監査記録を追加しベストエフォートで永続化
func (r *Registry) appendLog(ctx context.Context, l *ConsumptionLog) {
	if !r.config.AuditEnabled {
		return
	}
	r.logs = append(r.logs, l)

	if r.storage != nil {
		if err := r.storage.AppendLog(ctx, l); err != nil {
			r.logger.Error("監査ログ永続化に失敗しました", zap.String("log_id", l.ID), zap.Error(err))
		}
	}
}

// checkLowStock publishes a low-stock alert when the material sits at or
// below its threshold
// 資材が閾値以下の場合に低在庫アラートを発行
func (r *Registry) checkLowStock(ctx context.Context, warehouseID string, m *Material) {
	if !r.config.AlertsEnabled || !m.IsLowStock() {
		return
	}

	r.logger.Warn("低在庫を検出しました",
		zap.String("warehouse_id", warehouseID),
		zap.String("material_id", m.ID),
		zap.Float64("quantity", m.Quantity),
		zap.Float64("min_quantity", m.MinQuantity),
	)

	if r.publisher == nil {
		return
	}
	event := LowStockAlertEvent{
		WarehouseID: warehouseID,
		MaterialID:  m.ID,
		CurrentQty:  m.Quantity,
		Threshold:   m.MinQuantity,
		Timestamp:   time.Now(),
	}
	if err := r.publisher.PublishLowStockAlert(ctx, event); err != nil {
		r.logger.Error("低在庫アラート発行に失敗しました", zap.Error(err))
	}
}

// persistWarehouse writes a warehouse back to storage, best-effort
// 倉庫をストレージへ書き戻す（ベストエフォート）
func (r *Registry) persistWarehouse(ctx context.Context, w *Warehouse) {
	if r.storage == nil {
		return
	}
	if err := r.storage.SaveWarehouse(ctx, w); err != nil {
		r.logger.Error("倉庫永続化に失敗しました", zap.String("warehouse_id", w.ID), zap.Error(err))
	}
}

// persistMaterial writes a material back to storage, best-effort
// 資材をストレージへ書き戻す（ベストエフォート）
func (r *Registry) persistMaterial(ctx context.Context, warehouseID string, m *Material) {
	if r.storage == nil {
		return
	}
	if err := r.storage.SaveMaterial(ctx, warehouseID, m); err != nil {
		r.logger.Error("資材永続化に失敗しました",
			zap.String("warehouse_id", warehouseID),
			zap.String("material_id", m.ID),
			zap.Error(err),
		)
	}
}

// persistProduct writes a product back to storage, best-effort
// 商品をストレージへ書き戻す（ベストエフォート）
func (r *Registry) persistProduct(ctx context.Context, p *Product) {
	if r.storage == nil {
		return
	}
	if err := r.storage.SaveProduct(ctx, p); err != nil {
		r.logger.Error("商品永続化に失敗しました", zap.String("product_id", p.ID), zap.Error(err))
	}
}
