package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuditLog_Ordering はログが操作順に追記されることのテスト
func TestAuditLog_Ordering(t *testing.T) {
	r := newBakeryRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "b1", Name: "部門倉庫", Type: WarehouseTypeBranch}))

	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 2, "")
	require.NoError(t, err)
	_, err = r.TransferMaterials(ctx, "main", "b1", []TransferItem{{MaterialID: "flour", Quantity: 5}}, "")
	require.NoError(t, err)
	_, err = r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 1, "")
	require.NoError(t, err)

	logs := r.Logs()
	require.Len(t, logs, 3)
	assert.Equal(t, LogTypeConsumption, logs[0].Type)
	assert.Equal(t, LogTypeTransfer, logs[1].Type)
	assert.Equal(t, LogTypeConsumption, logs[2].Type)

	// 各エントリは一意なIDを持つ
	assert.NotEqual(t, logs[0].ID, logs[1].ID)
	assert.NotEqual(t, logs[1].ID, logs[2].ID)
}

// TestAuditLog_Filters は倉庫・種別によるログ絞り込みのテスト
func TestAuditLog_Filters(t *testing.T) {
	r := newBakeryRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "b1", Name: "部門倉庫", Type: WarehouseTypeBranch}))

	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 2, "")
	require.NoError(t, err)
	_, err = r.TransferMaterials(ctx, "main", "b1", []TransferItem{{MaterialID: "flour", Quantity: 5}}, "")
	require.NoError(t, err)

	// 移動は両端の倉庫のどちらでもヒットする
	assert.Len(t, r.LogsByWarehouse("main"), 2)
	assert.Len(t, r.LogsByWarehouse("b1"), 1)
	assert.Empty(t, r.LogsByWarehouse("ghost"))

	assert.Len(t, r.LogsByType(LogTypeConsumption), 1)
	assert.Len(t, r.LogsByType(LogTypeTransfer), 1)
}

// TestAuditLog_SnapshotIsolation はログスナップショットの独立性のテスト
func TestAuditLog_SnapshotIsolation(t *testing.T) {
	r := newBakeryRegistry(t)
	ctx := context.Background()

	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 1, "")
	require.NoError(t, err)

	logs := r.Logs()
	logs[0].MaterialsUsed[0].Quantity = 999

	again := r.Logs()
	assert.Equal(t, 5.0, again[0].MaterialsUsed[0].Quantity)
}

// TestAuditReport は期間指定レポートのテスト
func TestAuditReport(t *testing.T) {
	r := newBakeryRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "b1", Name: "部門倉庫", Type: WarehouseTypeBranch}))

	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 2, "")
	require.NoError(t, err)
	_, err = r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 1, "")
	require.NoError(t, err)
	_, err = r.TransferMaterials(ctx, "main", "b1", []TransferItem{{MaterialID: "flour", Quantity: 5}}, "")
	require.NoError(t, err)

	now := time.Now()
	report := r.AuditReport(now.Add(-time.Hour), now.Add(time.Hour))

	assert.Len(t, report.Entries, 3)
	assert.Equal(t, 2, report.Consumptions)
	assert.Equal(t, 1, report.Transfers)

	// 消費のみ合計に算入：2個+1個 = 小麦粉15kg。移動の5kgは含まれない
	assert.Equal(t, 15.0, report.TotalsByID["flour"])
}

// TestAuditReport_DateRange は期間外エントリの除外のテスト
func TestAuditReport_DateRange(t *testing.T) {
	r := newBakeryRegistry(t)
	ctx := context.Background()

	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 1, "")
	require.NoError(t, err)

	// 過去の期間には何もヒットしない
	report := r.AuditReport(time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
	assert.Empty(t, report.Entries)
	assert.Empty(t, report.TotalsByID)
	assert.Equal(t, 0, report.Consumptions)
}

// TestHotelScenario は消費・移動・低在庫を通した一連の運用シナリオのテスト
func TestHotelScenario(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	// メイン倉庫に小麦粉100kg、パンは1個あたり小麦粉5kg
	require.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	require.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "b1", Name: "1階厨房倉庫", Type: WarehouseTypeBranch, Floor: "1"}))
	require.NoError(t, r.AddMaterial(ctx, "main", &Material{
		ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg", MinQuantity: 10,
	}))
	require.NoError(t, r.AddProduct(ctx, &Product{
		ID: "bread", Name: "パン", Section: SectionRestaurant, Price: 300, Available: true,
		Materials: []RecipeLine{{MaterialID: "flour", QuantityUsed: 5}},
	}))

	// パン2個消費：100 - 10 = 90
	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 2, "1")
	require.NoError(t, err)

	// 5kgを部門倉庫へ移動：main=85、b1=5
	_, err = r.TransferMaterials(ctx, "main", "b1", []TransferItem{{MaterialID: "flour", Quantity: 5}}, "")
	require.NoError(t, err)

	main, _ := r.Warehouse("main")
	b1, _ := r.Warehouse("b1")
	assert.Equal(t, 85.0, main.Materials[0].Quantity)
	assert.Equal(t, 5.0, b1.Materials[0].Quantity)

	// 85 > 10 のためメイン倉庫は低在庫ではない。b1は 5 <= 10 で低在庫
	low := r.LowStockMaterials()
	require.Len(t, low, 1)
	assert.Equal(t, "b1", low[0].WarehouseID)

	// メイン倉庫を8kgまで減らすと低在庫に入り、b1は82kgで閾値を超える
	_, err = r.TransferMaterials(ctx, "main", "b1", []TransferItem{{MaterialID: "flour", Quantity: 77}}, "")
	require.NoError(t, err)

	low = r.LowStockMaterials()
	require.Len(t, low, 1)
	assert.Equal(t, "main", low[0].WarehouseID)
	assert.Equal(t, 8.0, low[0].Material.Quantity)

	// 監査ログには3操作が順に残る
	logs := r.Logs()
	require.Len(t, logs, 3)
	assert.Equal(t, LogTypeConsumption, logs[0].Type)
	assert.Equal(t, LogTypeTransfer, logs[1].Type)
	assert.Equal(t, LogTypeTransfer, logs[2].Type)
}
