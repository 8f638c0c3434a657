package warehouse

import (
	"time"
)

// Audit log access. The log is append-only; insertion order equals
// chronological order and entries are never mutated or deleted.
// 監査ログへのアクセス。ログは追記専用で、挿入順＝時系列順。エントリが
// 変更・削除されることはない

// Logs returns a snapshot of the full audit log in call order
// 監査ログ全体のスナップショットを呼び出し順で返す
func (r *Registry) Logs() []*ConsumptionLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ConsumptionLog, len(r.logs))
	for i, l := range r.logs {
		out[i] = l.Clone()
	}
	return out
}

// LogsByWarehouse returns entries that touched the given warehouse, either
// as consumption target or as transfer endpoint
// 指定倉庫に関わるエントリを返す（消費対象または移動の両端）
func (r *Registry) LogsByWarehouse(warehouseID string) []*ConsumptionLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ConsumptionLog, 0)
	for _, l := range r.logs {
		if l.WarehouseID == warehouseID || l.FromWarehouse == warehouseID || l.ToWarehouse == warehouseID {
			out = append(out, l.Clone())
		}
	}
	return out
}

// LogsByType returns entries of one log type in call order
// 指定種別のエントリを呼び出し順で返す
func (r *Registry) LogsByType(t LogType) []*ConsumptionLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ConsumptionLog, 0)
	for _, l := range r.logs {
		if l.Type == t {
			out = append(out, l.Clone())
		}
	}
	return out
}

// AuditReport represents a replay of the audit log over a date range:
// the matching entries plus per-material consumption totals
// 期間指定の監査ログ再生結果：該当エントリと資材ごとの消費合計
type AuditReport struct {
	FromDate     time.Time          `json:"from_date"`
	ToDate       time.Time          `json:"to_date"`
	Entries      []*ConsumptionLog  `json:"entries"`
	Consumptions int                `json:"consumptions"`
	Transfers    int                `json:"transfers"`
	TotalsByID   map[string]float64 `json:"totals_by_material"` // 資材IDごとの消費量合計（基本単位）
	GeneratedAt  time.Time          `json:"generated_at"`
}

// AuditReport replays the log for the given date range (inclusive bounds)
// 指定期間（両端を含む）の監査ログを再生する
func (r *Registry) AuditReport(from, to time.Time) *AuditReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := &AuditReport{
		FromDate:    from,
		ToDate:      to,
		Entries:     make([]*ConsumptionLog, 0),
		TotalsByID:  make(map[string]float64),
		GeneratedAt: time.Now(),
	}

	for _, l := range r.logs {
		if l.Timestamp.Before(from) || l.Timestamp.After(to) {
			continue
		}
		report.Entries = append(report.Entries, l.Clone())
		switch l.Type {
		case LogTypeConsumption:
			report.Consumptions++
			// 消費のみ合計に算入。移動は在庫の所在を変えるだけで総量は不変
			for _, u := range l.MaterialsUsed {
				report.TotalsByID[u.MaterialID] += u.Quantity
			}
		case LogTypeTransfer:
			report.Transfers++
		}
	}

	return report
}
