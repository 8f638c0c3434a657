package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/hotelZaiGo/pkg/warehouse"
)

// Handlers holds HTTP handlers for the warehouse API
// 倉庫API用のHTTPハンドラーを保持
type Handlers struct {
	engine warehouse.InventoryEngine
	logger *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(engine warehouse.InventoryEngine, logger *zap.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		logger: logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AddWarehouseRequest represents request to create a warehouse
// 倉庫作成リクエストを表現
type AddWarehouseRequest struct {
	ID      string                  `json:"id"`
	Name    string                  `json:"name"`
	Type    warehouse.WarehouseType `json:"type"`
	Section string                  `json:"section"`
	Floor   string                  `json:"floor"`
}

// AddMaterialRequest represents request to add a material to a warehouse.
// Quantity is taken as-is in base units unless Packages is set, in which
// case the initial stock is packages × units_per_package.
// 倉庫への資材追加リクエストを表現。Packagesが指定された場合、初期在庫は
// 梱包数×梱包あたり単位数として計算される
type AddMaterialRequest struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Quantity        float64  `json:"quantity"`
	Unit            string   `json:"unit"`
	MinQuantity     float64  `json:"min_quantity"`
	PackagingUnit   string   `json:"packaging_unit"`
	UnitsPerPackage float64  `json:"units_per_package"`
	Packages        *float64 `json:"packages,omitempty"`
}

// AddProductRequest represents request to register a product
// 商品登録リクエストを表現
type AddProductRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Category  string                 `json:"category"`
	Section   warehouse.Section      `json:"section"`
	Price     float64                `json:"price"`
	Available bool                   `json:"available"`
	Materials []warehouse.RecipeLine `json:"materials"`
}

// ConsumeRequest represents request to consume a product
// 消費リクエストを表現
type ConsumeRequest struct {
	ProductID   string            `json:"product_id"`
	WarehouseID string            `json:"warehouse_id"`
	Section     warehouse.Section `json:"section"`
	Quantity    int64             `json:"quantity"`
	Floor       string            `json:"floor"`
}

// TransferRequestBody represents request to transfer materials
// 移動リクエストを表現
type TransferRequestBody struct {
	FromWarehouse string                   `json:"from_warehouse"`
	ToWarehouse   string                   `json:"to_warehouse"`
	Items         []warehouse.TransferItem `json:"items"`
	Notes         string                   `json:"notes"`
}

// RequestTransferBody represents request to file a transfer request
// 移動申請リクエストを表現
type RequestTransferBody struct {
	FromWarehouse string                   `json:"from_warehouse"`
	ToWarehouse   string                   `json:"to_warehouse"`
	Items         []warehouse.TransferItem `json:"items"`
	RequestedBy   string                   `json:"requested_by"`
	Notes         string                   `json:"notes"`
}

// DecideTransferBody represents an approval decision
// 承認決裁リクエストを表現
type DecideTransferBody struct {
	ApprovedBy string `json:"approved_by"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "hotelZaiGo",
	})
}

// AddWarehouse handles warehouse creation requests
// 倉庫作成リクエストを処理
func (h *Handlers) AddWarehouse(w http.ResponseWriter, r *http.Request) {
	var req AddWarehouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	// 実体IDは呼び出し側が生成する契約。API層がその呼び出し側となる
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	wh := &warehouse.Warehouse{
		ID:      req.ID,
		Name:    req.Name,
		Type:    req.Type,
		Section: req.Section,
		Floor:   req.Floor,
	}
	if err := h.engine.AddWarehouse(r.Context(), wh); err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{"id": req.ID})
}

// ListWarehouses handles warehouse list requests
// 倉庫一覧リクエストを処理
func (h *Handlers) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, h.engine.Warehouses())
}

// GetWarehouse handles single warehouse requests
// 倉庫取得リクエストを処理
func (h *Handlers) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wh, err := h.engine.Warehouse(vars["warehouseId"])
	if err != nil {
		h.sendEngineError(w, err)
		return
	}
	h.sendSuccess(w, wh)
}

// AddMaterial handles material creation requests
// 資材追加リクエストを処理
func (h *Handlers) AddMaterial(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	warehouseID := vars["warehouseId"]

	var req AddMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	m := &warehouse.Material{
		ID:              req.ID,
		Name:            req.Name,
		Category:        req.Category,
		Quantity:        req.Quantity,
		Unit:            req.Unit,
		MinQuantity:     req.MinQuantity,
		PackagingUnit:   req.PackagingUnit,
		UnitsPerPackage: req.UnitsPerPackage,
	}
	// 梱包数指定時は梱包単位から基本単位へ換算
	if req.Packages != nil {
		if err := m.SetPackagedQuantity(*req.Packages); err != nil {
			h.sendEngineError(w, err)
			return
		}
	}

	if err := h.engine.AddMaterial(r.Context(), warehouseID, m); err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"id":       req.ID,
		"quantity": m.Quantity,
	})
}

// AddProduct handles product registration requests
// 商品登録リクエストを処理
func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	p := &warehouse.Product{
		ID:        req.ID,
		Name:      req.Name,
		Category:  req.Category,
		Section:   req.Section,
		Price:     req.Price,
		Available: req.Available,
		Materials: req.Materials,
	}
	if err := h.engine.AddProduct(r.Context(), p); err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{"id": req.ID})
}

// ListProducts handles product list requests
// 商品一覧リクエストを処理
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, h.engine.Products())
}

// GetProduct handles single product requests
// 商品取得リクエストを処理
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, err := h.engine.Product(vars["productId"])
	if err != nil {
		h.sendEngineError(w, err)
		return
	}
	h.sendSuccess(w, p)
}

// Consume handles consumption requests
// 消費リクエストを処理
func (h *Handlers) Consume(w http.ResponseWriter, r *http.Request) {
	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	entry, err := h.engine.ConsumeProduct(r.Context(), req.ProductID, req.WarehouseID, req.Section, req.Quantity, req.Floor)
	if err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, entry)
}

// Transfer handles transfer requests
// 移動リクエストを処理
func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	entry, err := h.engine.TransferMaterials(r.Context(), req.FromWarehouse, req.ToWarehouse, req.Items, req.Notes)
	if err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, entry)
}

// LowStock handles low-stock scan requests
// 低在庫走査リクエストを処理
func (h *Handlers) LowStock(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, h.engine.LowStockMaterials())
}

// Logs handles audit log requests, optionally filtered by warehouse or type
// 監査ログリクエストを処理（倉庫または種別で任意にフィルタ）
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	if warehouseID := r.URL.Query().Get("warehouse"); warehouseID != "" {
		h.sendSuccess(w, h.engine.LogsByWarehouse(warehouseID))
		return
	}
	if logType := r.URL.Query().Get("type"); logType != "" {
		h.sendSuccess(w, h.engine.LogsByType(warehouse.LogType(logType)))
		return
	}
	h.sendSuccess(w, h.engine.Logs())
}

// AuditReport handles audit report requests over a date range
// 期間指定の監査レポートリクエストを処理
func (h *Handlers) AuditReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sendSuccess(w, h.engine.AuditReport(from, to))
}

// RequestTransfer handles transfer request filings
// 移動申請の登録リクエストを処理
func (h *Handlers) RequestTransfer(w http.ResponseWriter, r *http.Request) {
	var req RequestTransferBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	tr := &warehouse.TransferRequest{
		ID:            warehouse.NewRequestID(),
		FromWarehouse: req.FromWarehouse,
		ToWarehouse:   req.ToWarehouse,
		Items:         req.Items,
		RequestedBy:   req.RequestedBy,
		Notes:         req.Notes,
	}
	if err := h.engine.RequestTransfer(r.Context(), tr); err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{"id": tr.ID})
}

// ListTransferRequests handles transfer request list requests
// 移動申請一覧リクエストを処理
func (h *Handlers) ListTransferRequests(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, h.engine.TransferRequests())
}

// ApproveTransfer handles transfer approval requests
// 移動承認リクエストを処理
func (h *Handlers) ApproveTransfer(w http.ResponseWriter, r *http.Request) {
	h.decideTransfer(w, r, h.engine.ApproveTransfer)
}

// RejectTransfer handles transfer rejection requests
// 移動却下リクエストを処理
func (h *Handlers) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	h.decideTransfer(w, r, h.engine.RejectTransfer)
}

func (h *Handlers) decideTransfer(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, requestID, approvedBy string) error) {
	vars := mux.Vars(r)

	var req DecideTransferBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := decide(r.Context(), vars["requestId"], req.ApprovedBy); err != nil {
		h.sendEngineError(w, err)
		return
	}

	h.sendSuccess(w, map[string]string{"id": vars["requestId"]})
}

// parseDateRange reads from/to query parameters as RFC 3339 or date-only
// from/toクエリパラメータをRFC 3339または日付のみとして読む
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	parse := func(value string, fallback time.Time) (time.Time, error) {
		if value == "" {
			return fallback, nil
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", value)
	}

	from, err := parse(r.URL.Query().Get("from"), time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("無効なfromパラメータです")
	}
	to, err := parse(r.URL.Query().Get("to"), time.Now())
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("無効なtoパラメータです")
	}
	return from, to, nil
}

// ヘルパーメソッド

// sendEngineError maps engine errors to HTTP status codes
// エンジンのエラーをHTTPステータスコードへ対応付け
func (h *Handlers) sendEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, warehouse.ErrWarehouseNotFound),
		errors.Is(err, warehouse.ErrMaterialNotFound),
		errors.Is(err, warehouse.ErrProductNotFound),
		errors.Is(err, warehouse.ErrTransferRequestNotFound):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, warehouse.ErrInsufficientStock),
		errors.Is(err, warehouse.ErrDuplicateID),
		errors.Is(err, warehouse.ErrProductUnavailable):
		h.sendError(w, http.StatusConflict, err.Error())
	default:
		var validationErr *warehouse.ValidationError
		var ruleErr *warehouse.BusinessRuleError
		if errors.As(err, &validationErr) || errors.Is(err, warehouse.ErrPackagingNotConfigured) {
			h.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.As(err, &ruleErr) {
			h.sendError(w, http.StatusConflict, err.Error())
			return
		}
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}
