package storage

import (
	"context"

	"finboard/internal/core"
)

// Ports implemented by every ledger backend (sqlite, memory, mongo).
// Lookups scoped by owner return the matching core.Err*NotFound when the record
// is missing or belongs to someone else.
type (
	AccountStore interface {
		GetAccount(ctx context.Context, id, ownerID string) (core.Account, error)
		// ApplyAccountDelta atomically adds delta to the stored balance.
		// It never reads then writes the balance.
		ApplyAccountDelta(ctx context.Context, id, ownerID string, delta core.Money) error
	}

	TransactionStore interface {
		GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error)
		InsertTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id, ownerID string) error
	}

	CategoryReader interface {
		GetCategory(ctx context.Context, id, ownerID string) (core.Category, error)
	}

	// Ledger is the set of operations available inside a unit of work.
	Ledger interface {
		AccountStore
		TransactionStore
		CategoryReader
	}

	// ExpenseSummer sums expense transactions of an owner dated within r.
	// An empty categoryID matches every category.
	ExpenseSummer interface {
		SumExpenses(ctx context.Context, ownerID, categoryID string, r core.DateRange) (core.ExpenseSum, error)
	}

	// Transactor runs fn as one unit of work: either every write made through
	// the Ledger commits or none does.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(Ledger) error) error
	}

	AccountCatalog interface {
		CreateAccount(ctx context.Context, a core.Account) error
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		// DeleteAccount fails with core.ErrAccountInUse while transactions reference the account.
		DeleteAccount(ctx context.Context, id, ownerID string) error
		NetWorth(ctx context.Context, ownerID string) ([]core.NetWorth, error)
	}

	CategoryCatalog interface {
		CategoryReader
		CreateCategory(ctx context.Context, c core.Category) error
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) error
		GetBudget(ctx context.Context, id, ownerID string) (core.Budget, error)
		ListBudgets(ctx context.Context, ownerID string, activeOnly bool) ([]core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id, ownerID string) error
	}

	TransactionLister interface {
		ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error)
	}

	// Store is the full backend surface wired by the backend factory.
	Store interface {
		Ledger
		Transactor
		ExpenseSummer
		AccountCatalog
		CategoryCatalog
		BudgetStore
		TransactionLister
		Ping(ctx context.Context) error
		Close() error
	}
)
