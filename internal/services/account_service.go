package services

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/storage"

	"github.com/google/uuid"
)

type AccountRepository interface {
	storage.AccountCatalog
	storage.CategoryCatalog
	GetAccount(ctx context.Context, id, ownerID string) (core.Account, error)
}

type AccountInput struct {
	Name              string
	Type              core.AccountType
	Currency          string
	InitialBalance    core.Money
	IncludeInNetWorth bool
}

// AccountService manages accounts and categories. The opening balance written
// by Create is the only wholesale balance write; afterwards balances move only
// through transaction deltas.
type AccountService struct {
	store  AccountRepository
	logger *applog.Logger
}

func NewAccountService(store AccountRepository, logger *applog.Logger) *AccountService {
	if logger == nil {
		logger = applog.Default(applog.ComponentAccount)
	}
	return &AccountService{store: store, logger: logger}
}

func (s *AccountService) Create(ctx context.Context, ownerID string, in AccountInput) (core.Account, error) {
	a := core.Account{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Name:              in.Name,
		Type:              in.Type,
		Balance:           in.InitialBalance,
		Currency:          in.Currency,
		IncludeInNetWorth: in.IncludeInNetWorth,
		CreatedAt:         time.Now(),
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.InfoContext(ctx, "Account created",
		applog.FieldOwnerID, ownerID,
		applog.FieldAccountID, a.ID,
		applog.FieldAmountCents, a.Balance.Cents)
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, ownerID, id string) (core.Account, error) {
	return s.store.GetAccount(ctx, id, ownerID)
}

func (s *AccountService) List(ctx context.Context, ownerID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, ownerID)
}

// Delete removes an account no transaction references.
func (s *AccountService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteAccount(ctx, id, ownerID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *AccountService) NetWorth(ctx context.Context, ownerID string) ([]core.NetWorth, error) {
	return s.store.NetWorth(ctx, ownerID)
}

func (s *AccountService) CreateCategory(ctx context.Context, ownerID, name string, kind core.TransactionType) (core.Category, error) {
	c := core.Category{ID: uuid.NewString(), OwnerID: ownerID, Name: name, Kind: kind}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *AccountService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	return s.store.ListCategories(ctx, ownerID)
}
