package storage

import (
	"context"
	"database/sql"
)

const accountColumns = `id, owner_id, name, type, balance_cents, currency, include_in_net_worth, created_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.BalanceCents, &a.Currency, &a.IncludeInNetWorth, &a.CreatedAt)
	return a, err
}

const createAccount = `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a Account) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.OwnerID, a.Name, a.Type, a.BalanceCents, a.Currency, a.IncludeInNetWorth, a.CreatedAt)
	return err
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ? AND owner_id = ?`

type GetAccountParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) GetAccount(ctx context.Context, arg GetAccountParams) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, arg.ID, arg.OwnerID))
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = ? ORDER BY created_at, id`

func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const addAccountBalance = `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? AND owner_id = ?`

type AddAccountBalanceParams struct {
	Delta   int64
	ID      string
	OwnerID string
}

// AddAccountBalance increments the balance in place and returns the rows matched.
func (q *Queries) AddAccountBalance(ctx context.Context, arg AddAccountBalanceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, addAccountBalance, arg.Delta, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countAccountTransactions = `SELECT COUNT(*) FROM transactions WHERE account_id = ? OR transfer_account_id = ?`

func (q *Queries) CountAccountTransactions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccountTransactions, accountID, accountID).Scan(&n)
	return n, err
}

const deleteAccount = `DELETE FROM accounts WHERE id = ? AND owner_id = ?`

type DeleteAccountParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) DeleteAccount(ctx context.Context, arg DeleteAccountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAccount, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const netWorthByCurrency = `SELECT currency, COALESCE(SUM(balance_cents), 0), COUNT(*)
FROM accounts
WHERE owner_id = ? AND include_in_net_worth = 1
GROUP BY currency
ORDER BY currency`

func (q *Queries) NetWorthByCurrency(ctx context.Context, ownerID string) ([]NetWorthRow, error) {
	rows, err := q.db.QueryContext(ctx, netWorthByCurrency, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NetWorthRow
	for rows.Next() {
		var i NetWorthRow
		if err := rows.Scan(&i.Currency, &i.TotalCents, &i.Accounts); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (id, owner_id, name, kind) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, c.ID, c.OwnerID, c.Name, c.Kind)
	return err
}

const getCategory = `SELECT id, owner_id, name, kind FROM categories WHERE id = ? AND owner_id = ?`

type GetCategoryParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) GetCategory(ctx context.Context, arg GetCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategory, arg.ID, arg.OwnerID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind)
	return c, err
}

const listCategories = `SELECT id, owner_id, name, kind FROM categories WHERE owner_id = ? ORDER BY kind, name`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const transactionColumns = `id, owner_id, account_id, category_id, transfer_account_id, amount_cents, type, date_ms, description, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.AccountID, &t.CategoryID, &t.TransferAccountID,
		&t.AmountCents, &t.Type, &t.DateMs, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const createTransaction = `INSERT INTO transactions (` + transactionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.OwnerID, t.AccountID, t.CategoryID, t.TransferAccountID,
		t.AmountCents, t.Type, t.DateMs, t.Description, t.CreatedAt, t.UpdatedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND owner_id = ?`

type GetTransactionParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) GetTransaction(ctx context.Context, arg GetTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, arg.ID, arg.OwnerID))
}

const updateTransaction = `UPDATE transactions
SET account_id = ?, category_id = ?, transfer_account_id = ?, amount_cents = ?, type = ?,
    date_ms = ?, description = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t Transaction) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		t.AccountID, t.CategoryID, t.TransferAccountID, t.AmountCents, t.Type,
		t.DateMs, t.Description, t.UpdatedAt, t.ID, t.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND owner_id = ?`

type DeleteTransactionParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) DeleteTransaction(ctx context.Context, arg DeleteTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// An empty string parameter disables the matching filter; limit -1 is unbounded.
const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE owner_id = ?
  AND (? = '' OR account_id = ? OR transfer_account_id = ?)
  AND (? = '' OR category_id = ?)
  AND (? = '' OR type = ?)
  AND date_ms BETWEEN ? AND ?
ORDER BY date_ms DESC, created_at DESC
LIMIT ?`

type ListTransactionsParams struct {
	OwnerID    string
	AccountID  string
	CategoryID string
	Type       string
	FromMs     int64
	ToMs       int64
	Limit      int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.OwnerID,
		arg.AccountID, arg.AccountID, arg.AccountID,
		arg.CategoryID, arg.CategoryID,
		arg.Type, arg.Type,
		arg.FromMs, arg.ToMs,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const sumExpenses = `SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions
WHERE owner_id = ?
  AND type = 'expense'
  AND date_ms BETWEEN ? AND ?
  AND (? = '' OR category_id = ?)`

type SumExpensesParams struct {
	OwnerID    string
	FromMs     int64
	ToMs       int64
	CategoryID string
}

type SumExpensesRow struct {
	TotalCents int64
	Count      int64
}

func (q *Queries) SumExpenses(ctx context.Context, arg SumExpensesParams) (SumExpensesRow, error) {
	var i SumExpensesRow
	err := q.db.QueryRowContext(ctx, sumExpenses,
		arg.OwnerID, arg.FromMs, arg.ToMs, arg.CategoryID, arg.CategoryID,
	).Scan(&i.TotalCents, &i.Count)
	return i, err
}

const budgetColumns = `id, owner_id, name, amount_cents, period, start_ms, end_ms, category_id, active, notification_threshold, created_at`

func scanBudget(row interface{ Scan(...interface{}) error }) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.AmountCents, &b.Period, &b.StartMs, &b.EndMs,
		&b.CategoryID, &b.Active, &b.NotificationThreshold, &b.CreatedAt)
	return b, err
}

const createBudget = `INSERT INTO budgets (` + budgetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, b Budget) error {
	_, err := q.db.ExecContext(ctx, createBudget,
		b.ID, b.OwnerID, b.Name, b.AmountCents, b.Period, b.StartMs, b.EndMs,
		b.CategoryID, b.Active, b.NotificationThreshold, b.CreatedAt)
	return err
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ? AND owner_id = ?`

type GetBudgetParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) GetBudget(ctx context.Context, arg GetBudgetParams) (Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, arg.ID, arg.OwnerID))
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets
WHERE owner_id = ? AND (? = 0 OR active = 1)
ORDER BY created_at, id`

type ListBudgetsParams struct {
	OwnerID    string
	ActiveOnly bool
}

func (q *Queries) ListBudgets(ctx context.Context, arg ListBudgetsParams) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, arg.OwnerID, arg.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updateBudget = `UPDATE budgets
SET name = ?, amount_cents = ?, period = ?, start_ms = ?, end_ms = ?, category_id = ?,
    active = ?, notification_threshold = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, b Budget) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBudget,
		b.Name, b.AmountCents, b.Period, b.StartMs, b.EndMs, b.CategoryID,
		b.Active, b.NotificationThreshold, b.ID, b.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ? AND owner_id = ?`

type DeleteBudgetParams struct {
	ID      string
	OwnerID string
}

func (q *Queries) DeleteBudget(ctx context.Context, arg DeleteBudgetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudget, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
