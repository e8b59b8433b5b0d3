package services

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// progressConcurrency bounds the SumExpenses queries run by ProgressAll.
const progressConcurrency = 4

type BudgetRepository interface {
	storage.BudgetStore
	storage.ExpenseSummer
	storage.CategoryReader
}

// BudgetInput holds the user-editable fields of a budget.
type BudgetInput struct {
	Name                  string
	Amount                core.Money
	Period                core.Period
	StartDate             time.Time
	EndDate               time.Time
	CategoryID            string
	Active                bool
	NotificationThreshold int
}

func (in BudgetInput) applyTo(b *core.Budget) {
	b.Name = in.Name
	b.Amount = in.Amount
	b.Period = in.Period
	b.StartDate = in.StartDate
	b.EndDate = in.EndDate
	b.CategoryID = in.CategoryID
	b.Active = in.Active
	b.NotificationThreshold = in.NotificationThreshold
}

type BudgetService struct {
	store  BudgetRepository
	logger *applog.Logger
}

func NewBudgetService(store BudgetRepository, logger *applog.Logger) *BudgetService {
	if logger == nil {
		logger = applog.Default(applog.ComponentBudget)
	}
	return &BudgetService{store: store, logger: logger}
}

func (s *BudgetService) Create(ctx context.Context, ownerID string, in BudgetInput) (core.Budget, error) {
	b := core.Budget{ID: uuid.NewString(), OwnerID: ownerID, CreatedAt: time.Now()}
	in.applyTo(&b)
	if err := s.validate(ctx, b); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, ownerID, id string) (core.Budget, error) {
	return s.store.GetBudget(ctx, id, ownerID)
}

func (s *BudgetService) List(ctx context.Context, ownerID string, activeOnly bool) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, ownerID, activeOnly)
}

func (s *BudgetService) Update(ctx context.Context, ownerID, id string, in BudgetInput) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, id, ownerID)
	if err != nil {
		return core.Budget{}, err
	}
	in.applyTo(&b)
	if err := s.validate(ctx, b); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteBudget(ctx, id, ownerID)
}

// validate checks the budget fields and that a scoped category is an expense
// category of the same owner.
func (s *BudgetService) validate(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.CategoryID == "" {
		return nil
	}
	c, err := s.store.GetCategory(ctx, b.CategoryID, b.OwnerID)
	if err != nil {
		return err
	}
	if c.Kind != core.Expense {
		return core.ErrCategoryKindMismatch
	}
	return nil
}

// Progress computes the budget's progress in the period containing now.
func (s *BudgetService) Progress(ctx context.Context, ownerID, id string, now time.Time) (core.BudgetProgress, error) {
	b, err := s.store.GetBudget(ctx, id, ownerID)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return s.progress(ctx, b, now)
}

func (s *BudgetService) progress(ctx context.Context, b core.Budget, now time.Time) (core.BudgetProgress, error) {
	window := ResolvePeriod(b, now)
	sum, err := s.store.SumExpenses(ctx, b.OwnerID, b.CategoryID, window)
	if err != nil {
		return core.BudgetProgress{}, fmt.Errorf("sum expenses for budget %s: %w", b.ID, err)
	}
	return core.ComputeProgress(b, window, sum, now), nil
}

// ProgressAll computes progress for every active budget of the owner,
// preserving the listing order.
func (s *BudgetService) ProgressAll(ctx context.Context, ownerID string, now time.Time) ([]core.BudgetProgress, error) {
	budgets, err := s.store.ListBudgets(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return s.progressOf(ctx, budgets, now)
}

func (s *BudgetService) progressOf(ctx context.Context, budgets []core.Budget, now time.Time) ([]core.BudgetProgress, error) {
	out := make([]core.BudgetProgress, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(progressConcurrency)
	for i, b := range budgets {
		g.Go(func() error {
			p, err := s.progress(gctx, b, now)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ThresholdAlert reports a budget whose consumption reached its notification threshold.
type ThresholdAlert struct {
	Budget   core.Budget         `json:"budget"`
	Progress core.BudgetProgress `json:"progress"`
}

func (s *BudgetService) ThresholdAlerts(ctx context.Context, ownerID string, now time.Time) ([]ThresholdAlert, error) {
	budgets, err := s.store.ListBudgets(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	progress, err := s.progressOf(ctx, budgets, now)
	if err != nil {
		return nil, err
	}

	var alerts []ThresholdAlert
	for i, p := range progress {
		b := budgets[i]
		if !p.ReachedThreshold(b.NotificationThreshold) {
			continue
		}
		pct, _ := p.Percentage.Float64()
		s.logger.DebugContext(ctx, "Budget threshold reached",
			applog.NewFields().WithOwner(ownerID).WithBudget(b.ID, pct).ToSlice()...)
		alerts = append(alerts, ThresholdAlert{Budget: b, Progress: p})
	}
	return alerts, nil
}
