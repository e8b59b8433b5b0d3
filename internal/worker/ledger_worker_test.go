package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/services"
	"finboard/internal/sheets"
	"finboard/internal/sheets/memory"
)

type failingJournal struct{}

func (failingJournal) Append(context.Context, sheets.JournalRow) (string, error) {
	return "", errors.New("quota exceeded")
}

type stubChecker struct {
	calls  []string
	alerts []services.ThresholdAlert
	err    error
}

func (s *stubChecker) ThresholdAlerts(_ context.Context, ownerID string, _ time.Time) ([]services.ThresholdAlert, error) {
	s.calls = append(s.calls, ownerID)
	return s.alerts, s.err
}

func event(kind amqp.EventKind, typ core.TransactionType) *amqp.LedgerEvent {
	t := core.Transaction{
		ID: "t1", OwnerID: "u1", AccountID: "acc", Type: typ,
		Amount: core.Money{Cents: 990}, Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Description: "Cinema",
	}
	return amqp.NewLedgerEvent(kind, t, core.ComputeDeltas(nil, &t))
}

func TestHandleLedgerEvent_ExportsEveryKind(t *testing.T) {
	journal := memory.New()
	w := NewLedgerWorker(journal, nil, nil, nil)

	for _, kind := range []amqp.EventKind{amqp.TransactionCreated, amqp.TransactionUpdated, amqp.TransactionDeleted} {
		if err := w.HandleLedgerEvent(context.Background(), event(kind, core.Income)); err != nil {
			t.Fatalf("HandleLedgerEvent(%s): %v", kind, err)
		}
	}

	rows := journal.Rows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[2].Event != "transaction.deleted" || rows[0].Amount.Cents != 990 || rows[0].Description != "Cinema" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestHandleLedgerEvent_ExportFailureIsReturned(t *testing.T) {
	checker := &stubChecker{}
	w := NewLedgerWorker(failingJournal{}, checker, nil, nil)

	if err := w.HandleLedgerEvent(context.Background(), event(amqp.TransactionCreated, core.Expense)); err == nil {
		t.Fatal("expected export error")
	}
	if len(checker.calls) != 0 {
		t.Error("thresholds must not be evaluated when export fails")
	}
}

func TestHandleLedgerEvent_ThresholdsOnlyForExpenses(t *testing.T) {
	checker := &stubChecker{alerts: []services.ThresholdAlert{{Budget: core.Budget{ID: "b1"}}}}
	w := NewLedgerWorker(nil, checker, nil, time.UTC)

	if err := w.HandleLedgerEvent(context.Background(), event(amqp.TransactionCreated, core.Income)); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleLedgerEvent(context.Background(), event(amqp.TransactionUpdated, core.Expense)); err != nil {
		t.Fatal(err)
	}
	if len(checker.calls) != 1 || checker.calls[0] != "u1" {
		t.Errorf("checker calls = %v, want one call for u1", checker.calls)
	}
}

func TestHandleLedgerEvent_AlertErrorIsNotFatal(t *testing.T) {
	checker := &stubChecker{err: errors.New("db locked")}
	w := NewLedgerWorker(memory.New(), checker, nil, nil)
	if err := w.HandleLedgerEvent(context.Background(), event(amqp.TransactionCreated, core.Expense)); err != nil {
		t.Fatalf("alert failure should not fail the event: %v", err)
	}
}

func TestRowFromEvent(t *testing.T) {
	e := event(amqp.TransactionCreated, core.Transfer)
	e.Transaction.TransferAccountID = "savings"
	r := RowFromEvent(e)
	if r.TransferAccountID != "savings" || r.TransactionID != "t1" || !r.RecordedAt.Equal(e.Timestamp) {
		t.Errorf("unexpected row %+v", r)
	}
	if v := r.Values(); len(v) != len(sheets.Columns) {
		t.Errorf("row has %d cells, header has %d", len(v), len(sheets.Columns))
	}
}

func TestCheckThresholds_ReportsOncePerPeriod(t *testing.T) {
	// The alert memory expires on the wall clock, so periods end in the future.
	periodEnd := time.Now().Add(time.Hour)
	january := core.BudgetProgress{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   periodEnd,
	}
	checker := &stubChecker{alerts: []services.ThresholdAlert{
		{Budget: core.Budget{ID: "b1"}, Progress: january},
		{Budget: core.Budget{ID: "b2"}, Progress: january},
	}}
	w := NewLedgerWorker(nil, checker, nil, time.UTC)
	w.now = func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if got := w.checkThresholds(ctx, "u1"); got != 2 {
		t.Fatalf("first evaluation logged %d alerts, want 2", got)
	}
	if got := w.checkThresholds(ctx, "u1"); got != 0 {
		t.Fatalf("repeat evaluation logged %d alerts, want 0", got)
	}

	february := core.BudgetProgress{
		PeriodStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   periodEnd,
	}
	checker.alerts = []services.ThresholdAlert{{Budget: core.Budget{ID: "b1"}, Progress: february}}
	if got := w.checkThresholds(ctx, "u1"); got != 1 {
		t.Fatalf("new period logged %d alerts, want 1", got)
	}
}
