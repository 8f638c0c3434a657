package warehouse

import (
	"context"
	"time"
)

// InventoryEngine defines the core interface of the warehouse engine
// 倉庫エンジンのコアインターフェースを定義
type InventoryEngine interface {
	// 登録操作 - Registry mutations
	AddWarehouse(ctx context.Context, w *Warehouse) error
	AddMaterial(ctx context.Context, warehouseID string, m *Material) error
	AddProduct(ctx context.Context, p *Product) error

	// 在庫操作 - Stock operations
	ConsumeProduct(ctx context.Context, productID, warehouseID string, section Section, quantity int64, floor string) (*ConsumptionLog, error)
	TransferMaterials(ctx context.Context, fromWarehouseID, toWarehouseID string, items []TransferItem, notes string) (*ConsumptionLog, error)

	// 照会 - Inquiry
	Warehouses() []*Warehouse
	Warehouse(id string) (*Warehouse, error)
	Products() []*Product
	Product(id string) (*Product, error)
	LowStockMaterials() []LowStockEntry

	// 監査ログ - Audit log
	Logs() []*ConsumptionLog
	LogsByWarehouse(warehouseID string) []*ConsumptionLog
	LogsByType(t LogType) []*ConsumptionLog
	AuditReport(from, to time.Time) *AuditReport

	// 移動承認（予約済み拡張） - Transfer approval, reserved extension
	RequestTransfer(ctx context.Context, req *TransferRequest) error
	ApproveTransfer(ctx context.Context, requestID, approvedBy string) error
	RejectTransfer(ctx context.Context, requestID, approvedBy string) error
	TransferRequests() []*TransferRequest
}

// Storage defines the interface of the persistence collaborator. State is
// loaded into memory at session start and written back after mutation;
// the engine itself holds the authoritative in-memory model.
// 永続化コラボレータのインターフェースを定義。セッション開始時に状態をメモリへ
// 読み込み、変更後に書き戻す。権威ある状態はエンジンのメモリ上にある
type Storage interface {
	// State loading
	LoadWarehouses(ctx context.Context) ([]*Warehouse, error)
	LoadProducts(ctx context.Context) ([]*Product, error)
	LoadLogs(ctx context.Context) ([]*ConsumptionLog, error)
	LoadTransferRequests(ctx context.Context) ([]*TransferRequest, error)

	// Write-behind persistence
	SaveWarehouse(ctx context.Context, w *Warehouse) error
	SaveMaterial(ctx context.Context, warehouseID string, m *Material) error
	SaveProduct(ctx context.Context, p *Product) error
	AppendLog(ctx context.Context, l *ConsumptionLog) error
	SaveTransferRequest(ctx context.Context, r *TransferRequest) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher defines the interface for publishing engine events to the
// notification collaborator
// 通知コラボレータへエンジンイベントを発行するインターフェースを定義
type EventPublisher interface {
	PublishStockDeducted(ctx context.Context, event StockDeductedEvent) error
	PublishMaterialTransferred(ctx context.Context, event MaterialTransferredEvent) error
	PublishLowStockAlert(ctx context.Context, event LowStockAlertEvent) error
}

// LowStockEntry pairs a low-stock material with its owning warehouse
// 再発注閾値を下回った資材と所属倉庫の組
type LowStockEntry struct {
	WarehouseID string   `json:"warehouse_id"` // 倉庫ID
	Material    Material `json:"material"`     // 資材のスナップショット
}

// Events for engine operations
// エンジン操作のイベント定義

// StockDeductedEvent represents deductions caused by one consumption
// 1回の消費による控除を表現
type StockDeductedEvent struct {
	WarehouseID string          `json:"warehouse_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	Materials   []MaterialUsage `json:"materials"`
	Section     Section         `json:"section"`
	LogID       string          `json:"log_id"`
	Timestamp   time.Time       `json:"timestamp"`
}

// MaterialTransferredEvent represents one committed transfer
// 確定した移動1件を表現
type MaterialTransferredEvent struct {
	FromWarehouseID string          `json:"from_warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	Materials       []MaterialUsage `json:"materials"`
	LogID           string          `json:"log_id"`
	Timestamp       time.Time       `json:"timestamp"`
}

// LowStockAlertEvent represents a material falling to or below its threshold
// 資材が再発注閾値以下に達したことを表現
type LowStockAlertEvent struct {
	WarehouseID string    `json:"warehouse_id"`
	MaterialID  string    `json:"material_id"`
	CurrentQty  float64   `json:"current_qty"`
	Threshold   float64   `json:"threshold"`
	Timestamp   time.Time `json:"timestamp"`
}
