package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/storage/memory"
)

func seedExpense(t *testing.T, s *memory.Store, id, owner, category string, amount int64, date time.Time) {
	t.Helper()
	err := s.InsertTransaction(context.Background(), core.Transaction{
		ID: id, OwnerID: owner, AccountID: "acc", CategoryID: category,
		Amount: cents(amount), Type: core.Expense, Date: date,
	})
	if err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
}

func monthlyInput(name string, amount int64, threshold int) BudgetInput {
	return BudgetInput{
		Name:                  name,
		Amount:                cents(amount),
		Period:                core.Monthly,
		StartDate:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:                true,
		NotificationThreshold: threshold,
	}
}

func TestBudgetProgressMidMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, nil)

	b, err := svc.Create(ctx, "u1", monthlyInput("Everything", 30000, 80))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	seedExpense(t, store, "t1", "u1", "", 5000, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC))
	seedExpense(t, store, "t2", "u1", "", 10000, time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC))
	// Outside the window or owner.
	seedExpense(t, store, "t3", "u1", "", 9900, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC))
	seedExpense(t, store, "t4", "u2", "", 9900, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	p, err := svc.Progress(ctx, "u1", b.ID, now)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}

	if p.Spent.Cents != 15000 || p.Remaining.Cents != 15000 || p.TransactionCount != 2 {
		t.Errorf("spent=%v remaining=%v count=%d", p.Spent, p.Remaining, p.TransactionCount)
	}
	if p.DailyBudget.String() != "9.68" || p.ExpectedSpending.String() != "145.16" {
		t.Errorf("daily=%s expected=%s", p.DailyBudget, p.ExpectedSpending)
	}
	if p.Status != core.StatusOver {
		t.Errorf("status = %s, want over", p.Status)
	}
	if !p.PeriodStart.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("period start = %v", p.PeriodStart)
	}
}

func TestBudgetProgressCategoryScope(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.CreateCategory(ctx, core.Category{ID: "food", OwnerID: "u1", Name: "Food", Kind: core.Expense})
	svc := NewBudgetService(store, nil)

	in := monthlyInput("Food", 20000, 50)
	in.CategoryID = "food"
	b, err := svc.Create(ctx, "u1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	seedExpense(t, store, "t1", "u1", "food", 4000, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	seedExpense(t, store, "t2", "u1", "fun", 7000, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	p, err := svc.Progress(ctx, "u1", b.ID, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.Spent.Cents != 4000 || p.TransactionCount != 1 {
		t.Errorf("spent=%d count=%d, want 4000/1", p.Spent.Cents, p.TransactionCount)
	}
}

func TestBudgetCreateValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.CreateCategory(ctx, core.Category{ID: "salary", OwnerID: "u1", Name: "Salary", Kind: core.Income})
	svc := NewBudgetService(store, nil)

	tests := []struct {
		name    string
		mutate  func(*BudgetInput)
		wantErr error
	}{
		{"empty name", func(in *BudgetInput) { in.Name = " " }, core.ErrEmptyName},
		{"zero amount", func(in *BudgetInput) { in.Amount = cents(0) }, core.ErrInvalidAmount},
		{"custom without end", func(in *BudgetInput) { in.Period = core.Custom }, core.ErrMissingEndDate},
		{"threshold out of range", func(in *BudgetInput) { in.NotificationThreshold = 101 }, core.ErrInvalidThreshold},
		{"income category", func(in *BudgetInput) { in.CategoryID = "salary" }, core.ErrCategoryKindMismatch},
		{"foreign category", func(in *BudgetInput) { in.CategoryID = "ghost" }, core.ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := monthlyInput("Budget", 1000, 80)
			tt.mutate(&in)
			if _, err := svc.Create(ctx, "u1", in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudgetUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewBudgetService(memory.New(), nil)

	b, err := svc.Create(ctx, "u1", monthlyInput("Rent", 100000, 90))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	in := monthlyInput("Rent and bills", 120000, 95)
	in.Active = false
	updated, err := svc.Update(ctx, "u1", b.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Rent and bills" || updated.Active || !updated.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("unexpected update: %+v", updated)
	}

	if _, err := svc.Update(ctx, "u2", b.ID, in); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Errorf("foreign update: %v", err)
	}
	if err := svc.Delete(ctx, "u1", b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", b.ID); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Errorf("expected budget gone, got %v", err)
	}
}

func TestProgressAllAndThresholdAlerts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, nil)

	var ids []string
	for _, in := range []BudgetInput{
		monthlyInput("Small", 10000, 50),
		monthlyInput("Large", 100000, 50),
		monthlyInput("Tight", 12000, 100),
	} {
		b, err := svc.Create(ctx, "u1", in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, b.ID)
	}
	inactive := monthlyInput("Paused", 100, 1)
	inactive.Active = false
	if _, err := svc.Create(ctx, "u1", inactive); err != nil {
		t.Fatalf("Create: %v", err)
	}

	seedExpense(t, store, "t1", "u1", "", 12000, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	all, err := svc.ProgressAll(ctx, "u1", now)
	if err != nil {
		t.Fatalf("ProgressAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d progress entries, want 3 active budgets", len(all))
	}
	for i, p := range all {
		if p.BudgetID != ids[i] {
			t.Errorf("entry %d is budget %s, want %s", i, p.BudgetID, ids[i])
		}
		if p.Spent.Cents != 12000 {
			t.Errorf("entry %d spent %d", i, p.Spent.Cents)
		}
	}

	alerts, err := svc.ThresholdAlerts(ctx, "u1", now)
	if err != nil {
		t.Fatalf("ThresholdAlerts: %v", err)
	}
	got := map[string]bool{}
	for _, a := range alerts {
		got[a.Budget.Name] = true
	}
	if len(alerts) != 2 || !got["Small"] || !got["Tight"] {
		t.Errorf("alerts for %v, want Small and Tight", got)
	}
}
