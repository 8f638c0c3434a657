package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockStorage はテスト用のStorageモック
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) LoadWarehouses(ctx context.Context) ([]*Warehouse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Warehouse), args.Error(1)
}

func (m *MockStorage) LoadProducts(ctx context.Context) ([]*Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Product), args.Error(1)
}

func (m *MockStorage) LoadLogs(ctx context.Context) ([]*ConsumptionLog, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*ConsumptionLog), args.Error(1)
}

func (m *MockStorage) LoadTransferRequests(ctx context.Context) ([]*TransferRequest, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*TransferRequest), args.Error(1)
}

func (m *MockStorage) SaveWarehouse(ctx context.Context, w *Warehouse) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockStorage) SaveMaterial(ctx context.Context, warehouseID string, mat *Material) error {
	args := m.Called(ctx, warehouseID, mat)
	return args.Error(0)
}

func (m *MockStorage) SaveProduct(ctx context.Context, p *Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStorage) AppendLog(ctx context.Context, l *ConsumptionLog) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockStorage) SaveTransferRequest(ctx context.Context, r *TransferRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher はテスト用のEventPublisherモック
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishStockDeducted(ctx context.Context, event StockDeductedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishMaterialTransferred(ctx context.Context, event MaterialTransferredEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishLowStockAlert(ctx context.Context, event LowStockAlertEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// newTestRegistry はストレージなしのテスト用レジストリを作成
func newTestRegistry() *Registry {
	return NewRegistry(nil, nil, zap.NewNop(), &Config{
		AllowNegativeStock: false,
		AuditEnabled:       true,
		AlertsEnabled:      true,
	})
}

// TestRegistry_AddWarehouse は倉庫追加のテスト
func TestRegistry_AddWarehouse(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	err := r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain})
	assert.NoError(t, err)

	wh, err := r.Warehouse("main")
	assert.NoError(t, err)
	assert.Equal(t, "main", wh.ID)
	assert.Empty(t, wh.Materials)
}

// TestRegistry_AddWarehouse_Duplicate は倉庫ID重複のテスト
func TestRegistry_AddWarehouse_Duplicate(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))

	err := r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "別のメイン倉庫", Type: WarehouseTypeBranch})
	assert.ErrorIs(t, err, ErrDuplicateID)

	// 元の倉庫は変わらない
	wh, _ := r.Warehouse("main")
	assert.Equal(t, "メイン倉庫", wh.Name)
}

// TestRegistry_AddWarehouse_Invalid はバリデーションエラーのテスト
func TestRegistry_AddWarehouse_Invalid(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	var vErr *ValidationError

	err := r.AddWarehouse(ctx, &Warehouse{ID: "", Name: "無名倉庫", Type: WarehouseTypeMain})
	assert.ErrorAs(t, err, &vErr)

	err = r.AddWarehouse(ctx, &Warehouse{ID: "x", Name: "倉庫", Type: WarehouseType("depot")})
	assert.ErrorAs(t, err, &vErr)
}

// TestRegistry_AddMaterial は資材追加のテスト
func TestRegistry_AddMaterial(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))

	m := &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg", MinQuantity: 10}
	assert.NoError(t, r.AddMaterial(ctx, "main", m))

	wh, _ := r.Warehouse("main")
	assert.Len(t, wh.Materials, 1)
	assert.Equal(t, 100.0, wh.Materials[0].Quantity)
}

// TestRegistry_AddMaterial_WarehouseNotFound は存在しない倉庫への追加のテスト
func TestRegistry_AddMaterial_WarehouseNotFound(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	m := &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg"}
	err := r.AddMaterial(ctx, "ghost", m)
	assert.ErrorIs(t, err, ErrWarehouseNotFound)
}

// TestRegistry_AddMaterial_DuplicateInWarehouse は同一倉庫内の資材ID重複のテスト
func TestRegistry_AddMaterial_DuplicateInWarehouse(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg"}))

	err := r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "強力粉", Quantity: 50, Unit: "kg"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	// 数量は元のまま
	wh, _ := r.Warehouse("main")
	assert.Len(t, wh.Materials, 1)
	assert.Equal(t, 100.0, wh.Materials[0].Quantity)
}

// TestRegistry_AddMaterial_SameIDAcrossWarehouses は複数倉庫での同一資材IDのテスト
func TestRegistry_AddMaterial_SameIDAcrossWarehouses(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "b1", Name: "部門倉庫", Type: WarehouseTypeBranch}))

	// 同じ資材IDは倉庫ごとに独立して存在できる
	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg"}))
	assert.NoError(t, r.AddMaterial(ctx, "b1", &Material{ID: "flour", Name: "小麦粉", Quantity: 30, Unit: "kg"}))

	main, _ := r.Warehouse("main")
	b1, _ := r.Warehouse("b1")
	assert.Equal(t, 100.0, main.Materials[0].Quantity)
	assert.Equal(t, 30.0, b1.Materials[0].Quantity)
}

// TestRegistry_AddProduct は商品追加のテスト
func TestRegistry_AddProduct(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	p := &Product{
		ID:        "bread",
		Name:      "パン",
		Section:   SectionRestaurant,
		Price:     300,
		Available: true,
		Materials: []RecipeLine{{MaterialID: "flour", QuantityUsed: 5}},
	}
	assert.NoError(t, r.AddProduct(ctx, p))

	got, err := r.Product("bread")
	assert.NoError(t, err)
	assert.Len(t, got.Materials, 1)

	// ID重複は拒否
	assert.ErrorIs(t, r.AddProduct(ctx, p.Clone()), ErrDuplicateID)
}

// TestRegistry_AddProduct_InvalidRecipe は無効なレシピのテスト
func TestRegistry_AddProduct_InvalidRecipe(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	var vErr *ValidationError

	// 空レシピ
	err := r.AddProduct(ctx, &Product{ID: "empty", Name: "空", Section: SectionCoffee, Materials: nil})
	assert.ErrorAs(t, err, &vErr)

	// レシピ内の資材ID重複
	err = r.AddProduct(ctx, &Product{
		ID:      "dup",
		Name:    "重複",
		Section: SectionCoffee,
		Materials: []RecipeLine{
			{MaterialID: "beans", QuantityUsed: 1},
			{MaterialID: "beans", QuantityUsed: 2},
		},
	})
	assert.ErrorAs(t, err, &vErr)

	// 消費量ゼロ
	err = r.AddProduct(ctx, &Product{
		ID:        "zero",
		Name:      "ゼロ",
		Section:   SectionCoffee,
		Materials: []RecipeLine{{MaterialID: "beans", QuantityUsed: 0}},
	})
	assert.ErrorAs(t, err, &vErr)
}

// TestRegistry_SnapshotIsolation はスナップショットの独立性のテスト
func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg"}))

	// スナップショットへの変更は内部状態に影響しない
	wh, _ := r.Warehouse("main")
	wh.Materials[0].Quantity = 0

	again, _ := r.Warehouse("main")
	assert.Equal(t, 100.0, again.Materials[0].Quantity)
}

// TestRegistry_LowStockMaterials は低在庫走査のテスト
func TestRegistry_LowStockMaterials(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "b1", Name: "部門倉庫", Type: WarehouseTypeBranch}))

	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg", MinQuantity: 10}))
	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "soap", Name: "石鹸", Quantity: 5, Unit: "bottle", MinQuantity: 5}))
	assert.NoError(t, r.AddMaterial(ctx, "b1", &Material{ID: "soap", Name: "石鹸", Quantity: 2, Unit: "bottle", MinQuantity: 5}))

	// 閾値ちょうどは低在庫。同じ資材IDでも倉庫ごとに1件ずつ報告される
	low := r.LowStockMaterials()
	assert.Len(t, low, 2)
	assert.Equal(t, "main", low[0].WarehouseID)
	assert.Equal(t, "soap", low[0].Material.ID)
	assert.Equal(t, "b1", low[1].WarehouseID)
	assert.Equal(t, "soap", low[1].Material.ID)

	// 走査は状態を変更しない：繰り返しても同じ結果
	again := r.LowStockMaterials()
	assert.Equal(t, low, again)
}

// TestRegistry_PersistsThroughStorage はストレージへの書き戻しのテスト
func TestRegistry_PersistsThroughStorage(t *testing.T) {
	mockStorage := new(MockStorage)
	r := NewRegistry(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("SaveWarehouse", ctx, mock.AnythingOfType("*warehouse.Warehouse")).Return(nil)
	mockStorage.On("SaveMaterial", ctx, "main", mock.AnythingOfType("*warehouse.Material")).Return(nil)
	mockStorage.On("SaveProduct", ctx, mock.AnythingOfType("*warehouse.Product")).Return(nil)

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg"}))
	assert.NoError(t, r.AddProduct(ctx, &Product{
		ID: "bread", Name: "パン", Section: SectionRestaurant, Available: true,
		Materials: []RecipeLine{{MaterialID: "flour", QuantityUsed: 5}},
	}))

	mockStorage.AssertExpectations(t)
}

// TestRegistry_StorageFailureIsBestEffort はストレージ障害時も操作が成功することのテスト
func TestRegistry_StorageFailureIsBestEffort(t *testing.T) {
	mockStorage := new(MockStorage)
	r := NewRegistry(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	mockStorage.On("SaveWarehouse", ctx, mock.AnythingOfType("*warehouse.Warehouse")).Return(errors.New("接続エラー"))

	// 書き戻しはベストエフォート：失敗しても操作自体は成功する
	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))

	wh, err := r.Warehouse("main")
	assert.NoError(t, err)
	assert.Equal(t, "main", wh.ID)
	mockStorage.AssertExpectations(t)
}

// TestRegistry_LoadState は状態読み込みのテスト
func TestRegistry_LoadState(t *testing.T) {
	mockStorage := new(MockStorage)
	r := NewRegistry(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()

	warehouses := []*Warehouse{
		{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain, Materials: []*Material{
			{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg", MinQuantity: 10},
		}},
	}
	products := []*Product{
		{ID: "bread", Name: "パン", Section: SectionRestaurant, Available: true,
			Materials: []RecipeLine{{MaterialID: "flour", QuantityUsed: 5}}},
	}

	mockStorage.On("LoadWarehouses", ctx).Return(warehouses, nil)
	mockStorage.On("LoadProducts", ctx).Return(products, nil)
	mockStorage.On("LoadLogs", ctx).Return([]*ConsumptionLog{}, nil)
	mockStorage.On("LoadTransferRequests", ctx).Return([]*TransferRequest{}, nil)
	mockStorage.On("SaveMaterial", ctx, "main", mock.AnythingOfType("*warehouse.Material")).Return(nil)
	mockStorage.On("AppendLog", ctx, mock.AnythingOfType("*warehouse.ConsumptionLog")).Return(nil)

	assert.NoError(t, r.LoadState(ctx))

	// 読み込んだ資材インデックスが再構築されており、消費が通る
	entry, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 2, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), entry.Quantity)

	wh, _ := r.Warehouse("main")
	assert.Equal(t, 90.0, wh.Materials[0].Quantity)
	mockStorage.AssertExpectations(t)
}

// TestRegistry_AuditDisabled は監査ログ無効時のテスト
func TestRegistry_AuditDisabled(t *testing.T) {
	r := NewRegistry(nil, nil, zap.NewNop(), &Config{AuditEnabled: false})
	ctx := context.Background()

	assert.NoError(t, r.AddWarehouse(ctx, &Warehouse{ID: "main", Name: "メイン倉庫", Type: WarehouseTypeMain}))
	assert.NoError(t, r.AddMaterial(ctx, "main", &Material{ID: "flour", Name: "小麦粉", Quantity: 100, Unit: "kg"}))
	assert.NoError(t, r.AddProduct(ctx, &Product{
		ID: "bread", Name: "パン", Section: SectionRestaurant, Available: true,
		Materials: []RecipeLine{{MaterialID: "flour", QuantityUsed: 5}},
	}))

	_, err := r.ConsumeProduct(ctx, "bread", "main", SectionRestaurant, 1, "")
	assert.NoError(t, err)

	// 在庫は動くがログは残らない
	wh, _ := r.Warehouse("main")
	assert.Equal(t, 95.0, wh.Materials[0].Quantity)
	assert.Empty(t, r.Logs())
}
