package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"finboard/internal/core"

	_ "modernc.org/sqlite"
)

// sqlitePragmas makes concurrent writers wait instead of failing with SQLITE_BUSY,
// enforces foreign keys and takes the write lock when a transaction begins.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

type SQLiteRepository struct {
	sqliteLedger
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		sqliteLedger: sqliteLedger{q: New(db)},
		db:           db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx implements Transactor with a single SQL transaction.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(Ledger) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&sqliteLedger{q: r.q.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqliteLedger serves Ledger reads and writes on either the pool or a transaction.
type sqliteLedger struct {
	q *Queries
}

func (l *sqliteLedger) GetAccount(ctx context.Context, id, ownerID string) (core.Account, error) {
	row, err := l.q.GetAccount(ctx, GetAccountParams{ID: id, OwnerID: ownerID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return toCoreAccount(row), nil
}

func (l *sqliteLedger) ApplyAccountDelta(ctx context.Context, id, ownerID string, delta core.Money) error {
	n, err := l.q.AddAccountBalance(ctx, AddAccountBalanceParams{Delta: delta.Cents, ID: id, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("apply account delta: %w", err)
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	slog.DebugContext(ctx, "Account balance adjusted", "account_id", id, "delta_cents", delta.Cents)
	return nil
}

func (l *sqliteLedger) GetCategory(ctx context.Context, id, ownerID string) (core.Category, error) {
	row, err := l.q.GetCategory(ctx, GetCategoryParams{ID: id, OwnerID: ownerID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return core.Category{ID: row.ID, OwnerID: row.OwnerID, Name: row.Name, Kind: core.TransactionType(row.Kind)}, nil
}

func (l *sqliteLedger) GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	row, err := l.q.GetTransaction(ctx, GetTransactionParams{ID: id, OwnerID: ownerID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toCoreTransaction(row), nil
}

func (l *sqliteLedger) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := l.q.CreateTransaction(ctx, fromCoreTransaction(t)); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (l *sqliteLedger) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := l.q.UpdateTransaction(ctx, fromCoreTransaction(t))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (l *sqliteLedger) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	n, err := l.q.DeleteTransaction(ctx, DeleteTransactionParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, ownerID, categoryID string, dr core.DateRange) (core.ExpenseSum, error) {
	row, err := r.q.SumExpenses(ctx, SumExpensesParams{
		OwnerID:    ownerID,
		FromMs:     dr.Start.UnixMilli(),
		ToMs:       dr.End.UnixMilli(),
		CategoryID: categoryID,
	})
	if err != nil {
		return core.ExpenseSum{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.ExpenseSum{Total: core.Money{Cents: row.TotalCents}, Count: int(row.Count)}, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	err := r.q.CreateAccount(ctx, Account{
		ID:                a.ID,
		OwnerID:           a.OwnerID,
		Name:              a.Name,
		Type:              string(a.Type),
		BalanceCents:      a.Balance.Cents,
		Currency:          a.Currency,
		IncludeInNetWorth: a.IncludeInNetWorth,
		CreatedAt:         a.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved to SQLite", "account_id", a.ID, "type", a.Type)
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.q.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, row := range rows {
		out[i] = toCoreAccount(row)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.q.WithTx(tx)

	refs, err := q.CountAccountTransactions(ctx, id)
	if err != nil {
		return fmt.Errorf("count account transactions: %w", err)
	}
	if refs > 0 {
		return core.ErrAccountInUse
	}
	n, err := q.DeleteAccount(ctx, DeleteAccountParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	return tx.Commit()
}

func (r *SQLiteRepository) NetWorth(ctx context.Context, ownerID string) ([]core.NetWorth, error) {
	rows, err := r.q.NetWorthByCurrency(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("net worth: %w", err)
	}
	out := make([]core.NetWorth, len(rows))
	for i, row := range rows {
		out[i] = core.NetWorth{Currency: row.Currency, Total: core.Money{Cents: row.TotalCents}, Accounts: int(row.Accounts)}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	if err := r.q.CreateCategory(ctx, Category{ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, Kind: string(c.Kind)}); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.q.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = core.Category{ID: row.ID, OwnerID: row.OwnerID, Name: row.Name, Kind: core.TransactionType(row.Kind)}
	}
	return out, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error) {
	params := ListTransactionsParams{
		OwnerID:    ownerID,
		AccountID:  f.AccountID,
		CategoryID: f.CategoryID,
		Type:       string(f.Type),
		FromMs:     math.MinInt64,
		ToMs:       math.MaxInt64,
		Limit:      -1,
	}
	if !f.From.IsZero() {
		params.FromMs = f.From.UnixMilli()
	}
	if !f.To.IsZero() {
		params.ToMs = f.To.UnixMilli()
	}
	if f.Limit > 0 {
		params.Limit = int64(f.Limit)
	}

	rows, err := r.q.ListTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = toCoreTransaction(row)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	if err := r.q.CreateBudget(ctx, fromCoreBudget(b)); err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id, ownerID string) (core.Budget, error) {
	row, err := r.q.GetBudget(ctx, GetBudgetParams{ID: id, OwnerID: ownerID})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return toCoreBudget(row), nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string, activeOnly bool) ([]core.Budget, error) {
	rows, err := r.q.ListBudgets(ctx, ListBudgetsParams{OwnerID: ownerID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, row := range rows {
		out[i] = toCoreBudget(row)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	n, err := r.q.UpdateBudget(ctx, fromCoreBudget(b))
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id, ownerID string) error {
	n, err := r.q.DeleteBudget(ctx, DeleteBudgetParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toCoreAccount(a Account) core.Account {
	return core.Account{
		ID:                a.ID,
		OwnerID:           a.OwnerID,
		Name:              a.Name,
		Type:              core.AccountType(a.Type),
		Balance:           core.Money{Cents: a.BalanceCents},
		Currency:          a.Currency,
		IncludeInNetWorth: a.IncludeInNetWorth,
		CreatedAt:         fromMillis(a.CreatedAt),
	}
}

func toCoreTransaction(t Transaction) core.Transaction {
	return core.Transaction{
		ID:                t.ID,
		OwnerID:           t.OwnerID,
		AccountID:         t.AccountID,
		CategoryID:        t.CategoryID.String,
		TransferAccountID: t.TransferAccountID.String,
		Amount:            core.Money{Cents: t.AmountCents},
		Type:              core.TransactionType(t.Type),
		Date:              fromMillis(t.DateMs),
		Description:       t.Description,
		CreatedAt:         fromMillis(t.CreatedAt),
		UpdatedAt:         fromMillis(t.UpdatedAt),
	}
}

func fromCoreTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:                t.ID,
		OwnerID:           t.OwnerID,
		AccountID:         t.AccountID,
		CategoryID:        nullString(t.CategoryID),
		TransferAccountID: nullString(t.TransferAccountID),
		AmountCents:       t.Amount.Cents,
		Type:              string(t.Type),
		DateMs:            t.Date.UnixMilli(),
		Description:       t.Description,
		CreatedAt:         t.CreatedAt.UnixMilli(),
		UpdatedAt:         t.UpdatedAt.UnixMilli(),
	}
}

func toCoreBudget(b Budget) core.Budget {
	out := core.Budget{
		ID:                    b.ID,
		OwnerID:               b.OwnerID,
		Name:                  b.Name,
		Amount:                core.Money{Cents: b.AmountCents},
		Period:                core.Period(b.Period),
		StartDate:             fromMillis(b.StartMs),
		CategoryID:            b.CategoryID.String,
		Active:                b.Active,
		NotificationThreshold: int(b.NotificationThreshold),
		CreatedAt:             fromMillis(b.CreatedAt),
	}
	if b.EndMs.Valid {
		out.EndDate = fromMillis(b.EndMs.Int64)
	}
	return out
}

func fromCoreBudget(b core.Budget) Budget {
	out := Budget{
		ID:                    b.ID,
		OwnerID:               b.OwnerID,
		Name:                  b.Name,
		AmountCents:           b.Amount.Cents,
		Period:                string(b.Period),
		StartMs:               b.StartDate.UnixMilli(),
		CategoryID:            nullString(b.CategoryID),
		Active:                b.Active,
		NotificationThreshold: int64(b.NotificationThreshold),
		CreatedAt:             b.CreatedAt.UnixMilli(),
	}
	if !b.EndDate.IsZero() {
		out.EndMs = sql.NullInt64{Int64: b.EndDate.UnixMilli(), Valid: true}
	}
	return out
}
