package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ConsumeProduct deducts a product's recipe from the target warehouse and
// appends one consumption log entry. The whole recipe is resolved and
// checked before anything is mutated, so the call is all-or-nothing: a
// missing material or a shortfall rejects the operation and leaves every
// quantity untouched.
// 商品のレシピ分を対象倉庫から控除し、消費ログを1件追加する。変更前にレシピ
// 全体を解決・検査するため、呼び出しは全か無か：資材の欠落や在庫不足は操作を
// 拒否し、どの数量も変更されない
func (r *Registry) ConsumeProduct(ctx context.Context, productID, warehouseID string, section Section, quantity int64, floor string) (*ConsumptionLog, error) {
	if quantity <= 0 {
		return nil, NewValidationError("quantity", "数量は正の値である必要があります", fmt.Sprintf("%d", quantity))
	}
	if err := ValidateSection(section); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, err := r.product(productID)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, ErrProductUnavailable
	}
	wh, err := r.warehouse(warehouseID)
	if err != nil {
		return nil, err
	}

	// 計画フェーズ：レシピ全行を解決し、控除量を確定
	type plannedDeduction struct {
		material *Material
		amount   float64
	}
	planned := make([]plannedDeduction, 0, len(product.Materials))
	for _, line := range product.Materials {
		m := wh.material(line.MaterialID)
		if m == nil {
			return nil, fmt.Errorf("資材 %s が倉庫 %s にありません: %w", line.MaterialID, warehouseID, ErrMaterialNotFound)
		}
		amount := line.QuantityUsed * float64(quantity)
		if !r.config.AllowNegativeStock && m.Quantity < amount {
			return nil, fmt.Errorf("資材 %s (残 %s%s, 要 %s%s): %w",
				m.ID, formatFloat(m.Quantity), m.Unit, formatFloat(amount), m.Unit, ErrInsufficientStock)
		}
		planned = append(planned, plannedDeduction{material: m, amount: amount})
	}

	// 確定フェーズ：全行の控除を適用
	usages := make([]MaterialUsage, 0, len(planned))
	for _, p := range planned {
		p.material.Quantity -= p.amount
		usages = append(usages, MaterialUsage{
			MaterialID: p.material.ID,
			Quantity:   p.amount,
			Unit:       p.material.Unit,
		})
		r.persistMaterial(ctx, warehouseID, p.material)
		r.checkLowStock(ctx, warehouseID, p.material)
	}

	entry := &ConsumptionLog{
		ID:            NewLogID(),
		Type:          LogTypeConsumption,
		WarehouseID:   warehouseID,
		ProductID:     productID,
		Quantity:      quantity,
		MaterialsUsed: usages,
		Section:       section,
		Floor:         floor,
		Timestamp:     time.Now(),
	}
	r.appendLog(ctx, entry)

	if r.publisher != nil {
		event := StockDeductedEvent{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Quantity:    quantity,
			Materials:   usages,
			Section:     section,
			LogID:       entry.ID,
			Timestamp:   entry.Timestamp,
		}
		if err := r.publisher.PublishStockDeducted(ctx, event); err != nil {
			r.logger.Error("消費イベント発行に失敗しました", zap.Error(err))
		}
	}

	r.logger.Info("消費完了",
		zap.String("product_id", productID),
		zap.String("warehouse_id", warehouseID),
		zap.String("section", string(section)),
		zap.Int64("quantity", quantity),
		zap.Int("materials", len(usages)),
	)

	return entry.Clone(), nil
}
