package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TransferMaterials moves the given quantities from one warehouse to
// another and appends one transfer log entry. The request is planned as a
// whole before any mutation: every item must exist at the source with
// sufficient stock, otherwise the entire transfer is rejected and neither
// side changes. Materials absent at the destination are created there by
// cloning the source definition with quantity equal to the moved amount.
// 指定量を倉庫間で移動し、移動ログを1件追加する。変更前にリクエスト全体を
// 計画する：全対象が移動元に十分な在庫で存在しなければ移動全体を拒否し、
// 両倉庫とも変化しない。移動先にない資材は、移動元の定義を複製し数量を
// 移動量としてそこに作成される
func (r *Registry) TransferMaterials(ctx context.Context, fromWarehouseID, toWarehouseID string, items []TransferItem, notes string) (*ConsumptionLog, error) {
	if fromWarehouseID == toWarehouseID {
		return nil, NewValidationError("to_warehouse", "移動元と移動先が同じです", toWarehouseID)
	}
	if err := ValidateTransferItems(items); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	from, err := r.warehouse(fromWarehouseID)
	if err != nil {
		return nil, fmt.Errorf("移動元倉庫 %s: %w", fromWarehouseID, err)
	}
	to, err := r.warehouse(toWarehouseID)
	if err != nil {
		return nil, fmt.Errorf("移動先倉庫 %s: %w", toWarehouseID, err)
	}

	// 計画フェーズ：全対象を移動元で解決し、控除可能か検査
	sources := make([]*Material, 0, len(items))
	for _, item := range items {
		m := from.material(item.MaterialID)
		if m == nil {
			return nil, fmt.Errorf("資材 %s が倉庫 %s にありません: %w", item.MaterialID, fromWarehouseID, ErrMaterialNotFound)
		}
		if !r.config.AllowNegativeStock && m.Quantity < item.Quantity {
			return nil, fmt.Errorf("資材 %s (残 %s%s, 要 %s%s): %w",
				m.ID, formatFloat(m.Quantity), m.Unit, formatFloat(item.Quantity), m.Unit, ErrInsufficientStock)
		}
		sources = append(sources, m)
	}

	// 確定フェーズ：控除と加算を一括で適用
	usages := make([]MaterialUsage, 0, len(items))
	for i, item := range items {
		src := sources[i]
		src.Quantity -= item.Quantity

		dst := to.material(item.MaterialID)
		if dst == nil {
			// 移動元の定義を複製し、数量は移動量のみ
			dst = src.Clone()
			dst.Quantity = item.Quantity
			to.Materials = append(to.Materials, dst)
			to.index[dst.ID] = len(to.Materials) - 1
		} else {
			dst.Quantity += item.Quantity
		}

		usages = append(usages, MaterialUsage{
			MaterialID: item.MaterialID,
			Quantity:   item.Quantity,
			Unit:       src.Unit,
		})

		r.persistMaterial(ctx, fromWarehouseID, src)
		r.persistMaterial(ctx, toWarehouseID, dst)
		r.checkLowStock(ctx, fromWarehouseID, src)
	}

	// 移動は1イベント＝ログ1件。ProductIDはセンチネル、Quantityは常に1
	entry := &ConsumptionLog{
		ID:            NewLogID(),
		Type:          LogTypeTransfer,
		FromWarehouse: fromWarehouseID,
		ToWarehouse:   toWarehouseID,
		ProductID:     TransferProductID,
		Quantity:      1,
		MaterialsUsed: usages,
		Notes:         notes,
		Timestamp:     time.Now(),
	}
	r.appendLog(ctx, entry)

	if r.publisher != nil {
		event := MaterialTransferredEvent{
			FromWarehouseID: fromWarehouseID,
			ToWarehouseID:   toWarehouseID,
			Materials:       usages,
			LogID:           entry.ID,
			Timestamp:       entry.Timestamp,
		}
		if err := r.publisher.PublishMaterialTransferred(ctx, event); err != nil {
			r.logger.Error("移動イベント発行に失敗しました", zap.Error(err))
		}
	}

	r.logger.Info("移動完了",
		zap.String("from_warehouse", fromWarehouseID),
		zap.String("to_warehouse", toWarehouseID),
		zap.Int("items", len(usages)),
	)

	return entry.Clone(), nil
}

// 移動承認ワークフロー（予約済み拡張）。承認・却下は申請の状態のみを変更し、
// 在庫は動かさない。

// RequestTransfer records a pending transfer request
// 承認待ちの移動申請を記録
func (r *Registry) RequestTransfer(ctx context.Context, req *TransferRequest) error {
	if err := ValidateTransferRequest(req); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reqIndex[req.ID]; exists {
		return ErrDuplicateID
	}
	if _, err := r.warehouse(req.FromWarehouse); err != nil {
		return fmt.Errorf("移動元倉庫 %s: %w", req.FromWarehouse, err)
	}
	if _, err := r.warehouse(req.ToWarehouse); err != nil {
		return fmt.Errorf("移動先倉庫 %s: %w", req.ToWarehouse, err)
	}

	stored := req.Clone()
	stored.Status = TransferStatusPending
	stored.ApprovedBy = ""
	stored.DecidedAt = nil
	if stored.RequestedAt.IsZero() {
		stored.RequestedAt = time.Now()
	}

	r.requests = append(r.requests, stored)
	r.reqIndex[stored.ID] = len(r.requests) - 1

	r.persistRequest(ctx, stored)

	r.logger.Info("移動申請登録完了",
		zap.String("request_id", stored.ID),
		zap.String("from_warehouse", stored.FromWarehouse),
		zap.String("to_warehouse", stored.ToWarehouse),
		zap.String("requested_by", stored.RequestedBy),
	)

	return nil
}

// ApproveTransfer marks a pending request as approved
// 承認待ちの申請を承認済みにする
func (r *Registry) ApproveTransfer(ctx context.Context, requestID, approvedBy string) error {
	return r.decideTransfer(ctx, requestID, approvedBy, TransferStatusApproved)
}

// RejectTransfer marks a pending request as rejected
// 承認待ちの申請を却下にする
func (r *Registry) RejectTransfer(ctx context.Context, requestID, approvedBy string) error {
	return r.decideTransfer(ctx, requestID, approvedBy, TransferStatusRejected)
}

// TransferRequests returns a snapshot of all transfer requests
// すべての移動申請のスナップショットを返す
func (r *Registry) TransferRequests() []*TransferRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TransferRequest, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.Clone()
	}
	return out
}

// decideTransfer applies an approval decision to a pending request
// 承認待ちの申請に決裁を適用
func (r *Registry) decideTransfer(ctx context.Context, requestID, approvedBy string, status TransferStatus) error {
	if err := ValidateID("request_id", requestID); err != nil {
		return err
	}
	if approvedBy == "" {
		return NewValidationError("approved_by", "承認者が空です", approvedBy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.reqIndex[requestID]
	if !ok {
		return ErrTransferRequestNotFound
	}
	req := r.requests[i]
	if req.Status != TransferStatusPending {
		return NewBusinessRuleError("transfer_already_decided", "申請は既に決裁されています",
			fmt.Sprintf("申請ID: %s, 状態: %s", requestID, req.Status))
	}

	now := time.Now()
	req.Status = status
	req.ApprovedBy = approvedBy
	req.DecidedAt = &now

	r.persistRequest(ctx, req)

	r.logger.Info("移動申請決裁完了",
		zap.String("request_id", requestID),
		zap.String("status", string(status)),
		zap.String("approved_by", approvedBy),
	)

	return nil
}

// persistRequest writes a transfer request back to storage, best-effort
// 移動申請をストレージへ書き戻す（ベストエフォート）
func (r *Registry) persistRequest(ctx context.Context, req *TransferRequest) {
	if r.storage == nil {
		return
	}
	if err := r.storage.SaveTransferRequest(ctx, req); err != nil {
		r.logger.Error("移動申請永続化に失敗しました", zap.String("request_id", req.ID), zap.Error(err))
	}
}
