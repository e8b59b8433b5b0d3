// Package memory is an in-process ledger backend used by tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"finboard/internal/core"
	"finboard/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	accounts     map[string]core.Account
	categories   map[string]core.Category
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:     map[string]core.Account{},
		categories:   map[string]core.Category{},
		transactions: map[string]core.Transaction{},
		budgets:      map[string]core.Budget{},
	}
}

// WithinTx holds the store lock for the whole unit of work and restores the
// account and transaction maps if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := maps.Clone(s.accounts)
	transactions := maps.Clone(s.transactions)
	if err := fn(ledger{s}); err != nil {
		s.accounts = accounts
		s.transactions = transactions
		return err
	}
	return nil
}

// ledger runs Ledger operations on a Store whose lock is already held.
type ledger struct{ s *Store }

func (l ledger) GetAccount(_ context.Context, id, ownerID string) (core.Account, error) {
	a, ok := l.s.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, core.ErrAccountNotFound
	}
	return a, nil
}

func (l ledger) ApplyAccountDelta(_ context.Context, id, ownerID string, delta core.Money) error {
	a, ok := l.s.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	l.s.accounts[id] = a
	return nil
}

func (l ledger) GetCategory(_ context.Context, id, ownerID string) (core.Category, error) {
	c, ok := l.s.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (l ledger) GetTransaction(_ context.Context, id, ownerID string) (core.Transaction, error) {
	t, ok := l.s.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return t, nil
}

func (l ledger) InsertTransaction(_ context.Context, t core.Transaction) error {
	l.s.transactions[t.ID] = t
	return nil
}

func (l ledger) UpdateTransaction(_ context.Context, t core.Transaction) error {
	cur, ok := l.s.transactions[t.ID]
	if !ok || cur.OwnerID != t.OwnerID {
		return core.ErrTransactionNotFound
	}
	l.s.transactions[t.ID] = t
	return nil
}

func (l ledger) DeleteTransaction(_ context.Context, id, ownerID string) error {
	cur, ok := l.s.transactions[id]
	if !ok || cur.OwnerID != ownerID {
		return core.ErrTransactionNotFound
	}
	delete(l.s.transactions, id)
	return nil
}

// Ledger operations outside a unit of work take the lock per call.

func (s *Store) GetAccount(ctx context.Context, id, ownerID string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.GetAccount(ctx, id, ownerID)
}

func (s *Store) ApplyAccountDelta(ctx context.Context, id, ownerID string, delta core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.ApplyAccountDelta(ctx, id, ownerID, delta)
}

func (s *Store) GetCategory(ctx context.Context, id, ownerID string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.GetCategory(ctx, id, ownerID)
}

func (s *Store) GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.GetTransaction(ctx, id, ownerID)
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.InsertTransaction(ctx, t)
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.UpdateTransaction(ctx, t)
}

func (s *Store) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger{s}.DeleteTransaction(ctx, id, ownerID)
}

func (s *Store) SumExpenses(_ context.Context, ownerID, categoryID string, r core.DateRange) (core.ExpenseSum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum core.ExpenseSum
	for _, t := range s.transactions {
		if t.OwnerID != ownerID || t.Type != core.Expense {
			continue
		}
		if categoryID != "" && t.CategoryID != categoryID {
			continue
		}
		if t.Date.Before(r.Start) || t.Date.After(r.End) {
			continue
		}
		sum.Total = sum.Total.Add(t.Amount)
		sum.Count++
	}
	return sum, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteAccount(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.ErrAccountNotFound
	}
	for _, t := range s.transactions {
		if t.AccountID == id || t.TransferAccountID == id {
			return core.ErrAccountInUse
		}
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) NetWorth(_ context.Context, ownerID string) ([]core.NetWorth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCurrency := map[string]*core.NetWorth{}
	for _, a := range s.accounts {
		if a.OwnerID != ownerID || !a.IncludeInNetWorth {
			continue
		}
		nw, ok := byCurrency[a.Currency]
		if !ok {
			nw = &core.NetWorth{Currency: a.Currency}
			byCurrency[a.Currency] = nw
		}
		nw.Total = nw.Total.Add(a.Balance)
		nw.Accounts++
	}
	out := make([]core.NetWorth, 0, len(byCurrency))
	for _, nw := range byCurrency {
		out = append(out, *nw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.OwnerID != ownerID {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID && t.TransferAccountID != f.AccountID {
			continue
		}
		if f.CategoryID != "" && t.CategoryID != f.CategoryID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && t.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Date.After(f.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) GetBudget(_ context.Context, id, ownerID string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string, activeOnly bool) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID != ownerID || (activeOnly && !b.Active) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.budgets[b.ID]
	if !ok || cur.OwnerID != b.OwnerID {
		return core.ErrBudgetNotFound
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.ErrBudgetNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
