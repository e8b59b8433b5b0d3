// Package worker processes ledger events outside the request path.
package worker

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/sheets"
)

// ThresholdChecker evaluates budget notification thresholds for an owner.
type ThresholdChecker interface {
	ThresholdAlerts(ctx context.Context, ownerID string, now time.Time) ([]services.ThresholdAlert, error)
}

// maxTrackedAlerts bounds the memory of alerts already reported.
const maxTrackedAlerts = 10000

// LedgerWorker exports ledger events to a journal sheet and reports budgets
// that crossed their notification threshold, once per budget period. Both
// sinks are optional.
type LedgerWorker struct {
	journal  sheets.JournalWriter
	alerts   ThresholdChecker
	reported *cache.LRUCache[struct{}]
	logger   *applog.Logger
	now      func() time.Time
}

func NewLedgerWorker(journal sheets.JournalWriter, alerts ThresholdChecker, logger *applog.Logger, loc *time.Location) *LedgerWorker {
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerWorker{
		journal:  journal,
		alerts:   alerts,
		reported: cache.NewLRUCache[struct{}](maxTrackedAlerts, 24*time.Hour),
		logger:   logger,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

// HandleLedgerEvent is the consumer callback. An export failure is returned so
// the delivery is requeued; alert evaluation failures are only logged.
func (w *LedgerWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventKind, e.Kind,
		applog.FieldOwnerID, e.OwnerID,
		applog.FieldTransactionID, e.Transaction.ID)

	if err := w.export(ctx, e); err != nil {
		return err
	}
	if e.Transaction.Type == core.Expense {
		w.checkThresholds(ctx, e.OwnerID)
	}
	return nil
}

// RowFromEvent maps an event to its journal line.
func RowFromEvent(e *amqp.LedgerEvent) sheets.JournalRow {
	t := e.Transaction
	return sheets.JournalRow{
		RecordedAt:        e.Timestamp,
		Event:             string(e.Kind),
		TransactionID:     t.ID,
		Date:              t.Date,
		Type:              t.Type,
		Amount:            t.Amount,
		AccountID:         t.AccountID,
		TransferAccountID: t.TransferAccountID,
		CategoryID:        t.CategoryID,
		Description:       t.Description,
	}
}

func (w *LedgerWorker) export(ctx context.Context, e *amqp.LedgerEvent) error {
	if w.journal == nil {
		return nil
	}
	ref, err := w.journal.Append(ctx, RowFromEvent(e))
	if err != nil {
		return fmt.Errorf("export ledger event: %w", err)
	}
	w.logger.InfoContext(ctx, "Exported ledger event",
		applog.FieldOperation, applog.OpAppend,
		applog.FieldTransactionID, e.Transaction.ID,
		"row_ref", ref)
	return nil
}

// checkThresholds logs every budget of the owner that reached its threshold
// and was not yet reported for the current period. It returns how many it logged.
func (w *LedgerWorker) checkThresholds(ctx context.Context, ownerID string) int {
	if w.alerts == nil {
		return 0
	}
	alerts, err := w.alerts.ThresholdAlerts(ctx, ownerID, w.now())
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to evaluate budget thresholds",
			applog.NewFields().WithOwner(ownerID).WithError(err, applog.ErrorTypeDatabase).ToSlice()...)
		return 0
	}

	logged := 0
	for _, a := range alerts {
		key := a.Budget.ID + "|" + a.Progress.PeriodStart.UTC().Format(time.RFC3339)
		if !w.reported.AddUntil(key, struct{}{}, a.Progress.PeriodEnd) {
			continue
		}
		pct, _ := a.Progress.Percentage.Float64()
		w.logger.WarnContext(ctx, "Budget threshold reached",
			applog.NewFields().WithOwner(ownerID).WithBudget(a.Budget.ID, pct).ToSlice()...)
		logged++
	}
	return logged
}

// CleanExpired forgets alerts whose budget period has ended.
func (w *LedgerWorker) CleanExpired() int {
	return w.reported.CleanExpired()
}
