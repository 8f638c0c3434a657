// Package warehouse provides the hotel inventory engine: warehouses holding
// materials, products consuming materials in fixed ratios, transfers between
// warehouses and an append-only audit log.
// ホテルの倉庫・在庫エンジンを提供：資材を保持する倉庫、固定比率で資材を消費する
// 商品、倉庫間の移動、および追記専用の監査ログ
package warehouse

import (
	"time"

	"github.com/google/uuid"
)

// Material represents a stock-keeping unit inside one warehouse. Quantity is
// always expressed in the base unit, never in packaging units.
// 単一倉庫内の在庫管理単位を表現。数量は常に基本単位で表現し、梱包単位では保持しない
type Material struct {
	ID              string  `json:"id" db:"id"`                                 // 資材ID
	Name            string  `json:"name" db:"name"`                             // 資材名
	Category        string  `json:"category" db:"category"`                     // カテゴリ（自由記述）
	Quantity        float64 `json:"quantity" db:"quantity"`                     // 現在庫（基本単位）
	Unit            string  `json:"unit" db:"unit"`                             // 基本単位の表示名（例：bottle、kg）
	MinQuantity     float64 `json:"min_quantity" db:"min_quantity"`             // 再発注閾値
	PackagingUnit   string  `json:"packaging_unit,omitempty" db:"packaging_unit"`       // 梱包単位（例：carton、任意）
	UnitsPerPackage float64 `json:"units_per_package,omitempty" db:"units_per_package"` // 梱包あたりの基本単位数（任意）
}

// WarehouseType defines the kind of warehouse
// 倉庫の種別を定義
type WarehouseType string

const (
	WarehouseTypeMain   WarehouseType = "main"   // 中央倉庫
	WarehouseTypeBranch WarehouseType = "branch" // 部門倉庫
)

// Warehouse is an inventory container owning an ordered set of materials,
// one entry per distinct material id. The same material id may exist
// independently in other warehouses with its own quantity.
// 資材の順序付き集合を保有する在庫コンテナ。資材IDは倉庫内で一意だが、
// 他の倉庫には同じIDの資材が独立した数量で存在しうる
type Warehouse struct {
	ID        string        `json:"id" db:"id"`                       // 倉庫ID
	Name      string        `json:"name" db:"name"`                   // 倉庫名
	Type      WarehouseType `json:"type" db:"type"`                   // 種別（main / branch）
	Section   string        `json:"section,omitempty" db:"section"`   // 担当セクション（任意）
	Floor     string        `json:"floor,omitempty" db:"floor"`       // 階（ルームサービス用サブ倉庫、任意）
	Materials []*Material   `json:"materials"`                        // 保有資材（挿入順）

	// index maps material id to its position in Materials, keeping ids
	// unique per warehouse while preserving iteration order.
	index map[string]int
}

// Section defines the closed set of hotel service sections
// ホテルのサービスセクションの閉集合を定義
type Section string

const (
	SectionCoffee     Section = "coffee"     // カフェ
	SectionRestaurant Section = "restaurant" // レストラン
	SectionLaundry    Section = "laundry"    // ランドリー
	SectionRooms      Section = "rooms"      // 客室
)

// RecipeLine declares the base-unit amount of one material consumed per one
// unit of product
// 商品1単位あたりに消費する資材の基本単位量を宣言
type RecipeLine struct {
	MaterialID   string  `json:"material_id" db:"material_id"`     // 資材ID
	QuantityUsed float64 `json:"quantity_used" db:"quantity_used"` // 1単位あたりの消費量
}

// Product is a sellable or consumable item with a fixed material recipe.
// The recipe is immutable once the product is registered.
// 固定の資材レシピを持つ販売・消費可能な商品。レシピは登録後に変更されない
type Product struct {
	ID        string       `json:"id" db:"id"`               // 商品ID
	Name      string       `json:"name" db:"name"`           // 商品名
	Category  string       `json:"category" db:"category"`   // カテゴリ
	Section   Section      `json:"section" db:"section"`     // セクション
	Price     float64      `json:"price" db:"price"`         // 価格
	Available bool         `json:"available" db:"available"` // 提供可能フラグ
	Materials []RecipeLine `json:"materials"`                // レシピ（順序付き）
}

// LogType defines the kind of audit log entry
// 監査ログエントリの種別を定義
type LogType string

const (
	LogTypeConsumption LogType = "consumption" // 消費
	LogTypeTransfer    LogType = "transfer"    // 移動
)

// TransferProductID is the sentinel product id recorded on transfer logs.
// 移動ログに記録されるセンチネル商品ID
const TransferProductID = "transfer"

// MaterialUsage records one per-material deduction or movement with its unit
// 資材ごとの控除・移動量を単位付きで記録
type MaterialUsage struct {
	MaterialID string  `json:"material_id" db:"material_id"` // 資材ID
	Quantity   float64 `json:"quantity" db:"quantity"`       // 量（基本単位）
	Unit       string  `json:"unit" db:"unit"`               // 単位
}

// ConsumptionLog is an immutable audit record of one consumption or transfer
// operation. Ordering in the log is insertion order, which equals
// chronological order.
// 消費または移動1回分の不変監査記録。ログの順序は挿入順＝時系列順
type ConsumptionLog struct {
	ID            string          `json:"id" db:"id"`                             // ログID
	Type          LogType         `json:"type" db:"type"`                         // 種別
	WarehouseID   string          `json:"warehouse_id,omitempty" db:"warehouse_id"`     // 対象倉庫（消費時）
	FromWarehouse string          `json:"from_warehouse,omitempty" db:"from_warehouse"` // 移動元（移動時）
	ToWarehouse   string          `json:"to_warehouse,omitempty" db:"to_warehouse"`     // 移動先（移動時）
	ProductID     string          `json:"product_id" db:"product_id"`             // 商品ID（移動時はセンチネル）
	Quantity      int64           `json:"quantity" db:"quantity"`                 // 消費単位数（移動時は常に1）
	MaterialsUsed []MaterialUsage `json:"materials_used"`                         // 資材ごとの控除・移動量
	Section       Section         `json:"section,omitempty" db:"section"`         // セクション（消費時）
	Floor         string          `json:"floor,omitempty" db:"floor"`             // 階（任意）
	Notes         string          `json:"notes,omitempty" db:"notes"`             // 備考（移動時）
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`               // 記録時刻
}

// TransferStatus defines the state of a transfer request
// 移動申請の状態を定義
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "pending"  // 承認待ち
	TransferStatusApproved TransferStatus = "approved" // 承認済み
	TransferStatusRejected TransferStatus = "rejected" // 却下
)

// TransferItem names one material and the base-unit quantity to move
// 移動対象の資材と基本単位量を指定
type TransferItem struct {
	MaterialID string  `json:"material_id" db:"material_id"` // 資材ID
	Quantity   float64 `json:"quantity" db:"quantity"`       // 移動量（基本単位）
}

// TransferRequest is the approval envelope for a future transfer workflow.
// Approval and rejection only change the status; stock movement stays with
// TransferMaterials.
// 将来の移動承認ワークフロー用の申請エンベロープ。承認・却下は状態のみを変更し、
// 在庫の移動はTransferMaterialsが担う
type TransferRequest struct {
	ID            string         `json:"id" db:"id"`                         // 申請ID
	FromWarehouse string         `json:"from_warehouse" db:"from_warehouse"` // 移動元倉庫
	ToWarehouse   string         `json:"to_warehouse" db:"to_warehouse"`     // 移動先倉庫
	Items         []TransferItem `json:"items"`                              // 移動対象
	Status        TransferStatus `json:"status" db:"status"`                 // 状態
	RequestedBy   string         `json:"requested_by" db:"requested_by"`     // 申請者
	ApprovedBy    string         `json:"approved_by,omitempty" db:"approved_by"` // 承認者
	Notes         string         `json:"notes,omitempty" db:"notes"`         // 備考
	RequestedAt   time.Time      `json:"requested_at" db:"requested_at"`     // 申請日時
	DecidedAt     *time.Time     `json:"decided_at,omitempty" db:"decided_at"`   // 決裁日時
}

// NewLogID generates a new audit log entry ID
// 新しい監査ログIDを生成
func NewLogID() string {
	return uuid.New().String()
}

// NewRequestID generates a new transfer request ID
// 新しい移動申請IDを生成
func NewRequestID() string {
	return uuid.New().String()
}

// IsLowStock reports whether the material is at or below its reorder
// threshold
// 資材が再発注閾値以下かどうかを返す
func (m *Material) IsLowStock() bool {
	return m.Quantity <= m.MinQuantity
}

// Clone returns a deep copy of the material
// 資材のディープコピーを返す
func (m *Material) Clone() *Material {
	c := *m
	return &c
}

// Clone returns a deep copy of the warehouse and its materials
// 倉庫とその資材のディープコピーを返す
func (w *Warehouse) Clone() *Warehouse {
	c := *w
	c.Materials = make([]*Material, len(w.Materials))
	c.index = make(map[string]int, len(w.Materials))
	for i, m := range w.Materials {
		c.Materials[i] = m.Clone()
		c.index[m.ID] = i
	}
	return &c
}

// Clone returns a deep copy of the product and its recipe
// 商品とそのレシピのディープコピーを返す
func (p *Product) Clone() *Product {
	c := *p
	c.Materials = make([]RecipeLine, len(p.Materials))
	copy(c.Materials, p.Materials)
	return &c
}

// Clone returns a deep copy of the log entry
// ログエントリのディープコピーを返す
func (l *ConsumptionLog) Clone() *ConsumptionLog {
	c := *l
	c.MaterialsUsed = make([]MaterialUsage, len(l.MaterialsUsed))
	copy(c.MaterialsUsed, l.MaterialsUsed)
	return &c
}

// Clone returns a deep copy of the transfer request
// 移動申請のディープコピーを返す
func (r *TransferRequest) Clone() *TransferRequest {
	c := *r
	c.Items = make([]TransferItem, len(r.Items))
	copy(c.Items, r.Items)
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// material returns the warehouse's material with the given id, or nil.
// Lookup goes through the id index, so ids stay unambiguous even though the
// collection itself is ordered.
// 指定IDの資材を返す（存在しなければnil）。検索はIDインデックス経由のため、
// コレクション自体は順序付きでもIDの曖昧さは生じない
func (w *Warehouse) material(id string) *Material {
	if w.index == nil {
		return nil
	}
	i, ok := w.index[id]
	if !ok {
		return nil
	}
	return w.Materials[i]
}

// rebuildIndex rebuilds the material id index from the ordered collection
// 順序付きコレクションから資材IDインデックスを再構築
func (w *Warehouse) rebuildIndex() {
	w.index = make(map[string]int, len(w.Materials))
	for i, m := range w.Materials {
		w.index[m.ID] = i
	}
}
