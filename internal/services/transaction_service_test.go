package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func cents(c int64) core.Money { return core.Money{Cents: c} }

type fixture struct {
	ctx   context.Context
	store *memory.Store
	svc   *TransactionService
	pub   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return &fixture{
		ctx:   context.Background(),
		store: store,
		svc:   NewTransactionService(store, pub, nil),
		pub:   pub,
	}
}

func (f *fixture) account(t *testing.T, id, owner, currency string, balance int64) {
	t.Helper()
	err := f.store.CreateAccount(f.ctx, core.Account{
		ID: id, OwnerID: owner, Name: id, Type: core.Checking,
		Balance: cents(balance), Currency: currency, IncludeInNetWorth: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", id, err)
	}
}

func (f *fixture) balance(t *testing.T, id, owner string) int64 {
	t.Helper()
	a, err := f.store.GetAccount(f.ctx, id, owner)
	if err != nil {
		t.Fatalf("GetAccount(%s): %v", id, err)
	}
	return a.Balance.Cents
}

var txDate = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestExpenseCreateThenDeleteRestoresBalance(t *testing.T) {
	f := newFixture(t)
	f.account(t, "checking", "u1", "EUR", 100000)

	tx, err := f.svc.Create(f.ctx, "u1", TransactionInput{
		AccountID: "checking", Amount: cents(20000), Type: core.Expense, Date: txDate,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := f.balance(t, "checking", "u1"); got != 80000 {
		t.Fatalf("balance after create = %d, want 80000", got)
	}

	if err := f.svc.Delete(f.ctx, "u1", tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := f.balance(t, "checking", "u1"); got != 100000 {
		t.Fatalf("balance after delete = %d, want 100000", got)
	}
	if _, err := f.svc.Get(f.ctx, "u1", tx.ID); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("expected transaction gone, got %v", err)
	}

	if len(f.pub.events) != 2 ||
		f.pub.events[0].Kind != amqp.TransactionCreated ||
		f.pub.events[1].Kind != amqp.TransactionDeleted {
		t.Fatalf("unexpected events: %+v", f.pub.events)
	}
}

func TestTransferAmountUpdate(t *testing.T) {
	f := newFixture(t)
	f.account(t, "A", "u1", "EUR", 50000)
	f.account(t, "B", "u1", "EUR", 10000)

	in := TransactionInput{
		AccountID: "A", TransferAccountID: "B", Amount: cents(5000), Type: core.Transfer, Date: txDate,
	}
	tx, err := f.svc.Create(f.ctx, "u1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a, b := f.balance(t, "A", "u1"), f.balance(t, "B", "u1"); a != 45000 || b != 15000 {
		t.Fatalf("after create A=%d B=%d, want 45000/15000", a, b)
	}

	in.Amount = cents(8000)
	if _, err := f.svc.Update(f.ctx, "u1", tx.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a, b := f.balance(t, "A", "u1"), f.balance(t, "B", "u1"); a != 42000 || b != 18000 {
		t.Fatalf("after update A=%d B=%d, want 42000/18000", a, b)
	}
}

func TestDescriptionOnlyUpdateKeepsBalance(t *testing.T) {
	f := newFixture(t)
	f.account(t, "X", "u1", "EUR", 20000)

	in := TransactionInput{AccountID: "X", Amount: cents(4000), Type: core.Expense, Date: txDate, Description: "groceries"}
	tx, err := f.svc.Create(f.ctx, "u1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in.Description = "weekly groceries"
	updated, err := f.svc.Update(f.ctx, "u1", tx.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := f.balance(t, "X", "u1"); got != 16000 {
		t.Fatalf("balance = %d, want 16000", got)
	}
	if updated.Description != "weekly groceries" || !updated.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if last := f.pub.events[len(f.pub.events)-1]; len(last.Deltas) != 0 {
		t.Fatalf("expected no deltas for a descriptive update, got %+v", last.Deltas)
	}
}

func TestAccountOnlyChangeMovesEffect(t *testing.T) {
	f := newFixture(t)
	f.account(t, "A", "u1", "EUR", 10000)
	f.account(t, "B", "u1", "EUR", 10000)

	in := TransactionInput{AccountID: "A", Amount: cents(2500), Type: core.Expense, Date: txDate}
	tx, err := f.svc.Create(f.ctx, "u1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	in.AccountID = "B"
	if _, err := f.svc.Update(f.ctx, "u1", tx.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a, b := f.balance(t, "A", "u1"), f.balance(t, "B", "u1"); a != 10000 || b != 7500 {
		t.Fatalf("A=%d B=%d, want 10000/7500", a, b)
	}
}

func TestUpdateMatchesDeleteAndRecreate(t *testing.T) {
	before := TransactionInput{AccountID: "A", Amount: cents(3000), Type: core.Expense, Date: txDate}
	after := TransactionInput{AccountID: "B", TransferAccountID: "C", Amount: cents(1234), Type: core.Transfer, Date: txDate}

	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.account(t, "A", "u1", "EUR", 10000)
		f.account(t, "B", "u1", "EUR", 20000)
		f.account(t, "C", "u1", "EUR", 30000)
		return f
	}

	updated := setup(t)
	tx, err := updated.svc.Create(updated.ctx, "u1", before)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := updated.svc.Update(updated.ctx, "u1", tx.ID, after); err != nil {
		t.Fatalf("Update: %v", err)
	}

	recreated := setup(t)
	tx, err = recreated.svc.Create(recreated.ctx, "u1", before)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := recreated.svc.Delete(recreated.ctx, "u1", tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := recreated.svc.Create(recreated.ctx, "u1", after); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, id := range []string{"A", "B", "C"} {
		if u, r := updated.balance(t, id, "u1"), recreated.balance(t, id, "u1"); u != r {
			t.Errorf("account %s: update gives %d, delete+create gives %d", id, u, r)
		}
	}
}

func TestFailedMutationsLeaveBalancesUntouched(t *testing.T) {
	f := newFixture(t)
	f.account(t, "A", "u1", "EUR", 10000)
	f.account(t, "USD", "u1", "USD", 10000)
	f.account(t, "other", "u2", "EUR", 10000)
	if err := f.store.CreateCategory(f.ctx, core.Category{ID: "salary", OwnerID: "u1", Name: "Salary", Kind: core.Income}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	tests := []struct {
		name    string
		in      TransactionInput
		wantErr error
	}{
		{
			name:    "destination owned by someone else",
			in:      TransactionInput{AccountID: "A", TransferAccountID: "other", Amount: cents(100), Type: core.Transfer, Date: txDate},
			wantErr: core.ErrAccountNotFound,
		},
		{
			name:    "missing source",
			in:      TransactionInput{AccountID: "nope", Amount: cents(100), Type: core.Expense, Date: txDate},
			wantErr: core.ErrAccountNotFound,
		},
		{
			name:    "currency mismatch",
			in:      TransactionInput{AccountID: "A", TransferAccountID: "USD", Amount: cents(100), Type: core.Transfer, Date: txDate},
			wantErr: core.ErrCurrencyMismatch,
		},
		{
			name:    "transfer without destination",
			in:      TransactionInput{AccountID: "A", Amount: cents(100), Type: core.Transfer, Date: txDate},
			wantErr: core.ErrInvalidTransition,
		},
		{
			name:    "income category on expense",
			in:      TransactionInput{AccountID: "A", CategoryID: "salary", Amount: cents(100), Type: core.Expense, Date: txDate},
			wantErr: core.ErrCategoryKindMismatch,
		},
		{
			name:    "zero amount",
			in:      TransactionInput{AccountID: "A", Amount: cents(0), Type: core.Expense, Date: txDate},
			wantErr: core.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, "u1", tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			for _, id := range []string{"A", "USD"} {
				if got := f.balance(t, id, "u1"); got != 10000 {
					t.Errorf("account %s balance = %d, want 10000", id, got)
				}
			}
			if got := f.balance(t, "other", "u2"); got != 10000 {
				t.Errorf("foreign account balance = %d, want 10000", got)
			}
		})
	}

	txs, err := f.svc.List(f.ctx, "u1", core.TransactionFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no stored transactions, got %d", len(txs))
	}
	if len(f.pub.events) != 0 {
		t.Fatalf("expected no events, got %d", len(f.pub.events))
	}
}

func TestUpdateFailureRollsBackReversal(t *testing.T) {
	f := newFixture(t)
	f.account(t, "A", "u1", "EUR", 10000)

	in := TransactionInput{AccountID: "A", Amount: cents(1000), Type: core.Expense, Date: txDate}
	tx, err := f.svc.Create(f.ctx, "u1", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in.AccountID = "missing"
	if _, err := f.svc.Update(f.ctx, "u1", tx.ID, in); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	if got := f.balance(t, "A", "u1"); got != 9000 {
		t.Fatalf("balance = %d, want 9000", got)
	}
	stored, err := f.svc.Get(f.ctx, "u1", tx.ID)
	if err != nil || stored.AccountID != "A" {
		t.Fatalf("stored transaction changed: %+v, %v", stored, err)
	}
}

func TestOtherOwnerCannotTouchTransaction(t *testing.T) {
	f := newFixture(t)
	f.account(t, "A", "u1", "EUR", 10000)
	tx, err := f.svc.Create(f.ctx, "u1", TransactionInput{AccountID: "A", Amount: cents(500), Type: core.Income, Date: txDate})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.svc.Delete(f.ctx, "u2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Delete by other owner: %v", err)
	}
	if _, err := f.svc.Update(f.ctx, "u2", tx.ID, TransactionInput{AccountID: "A", Amount: cents(1), Type: core.Income, Date: txDate}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update by other owner: %v", err)
	}
	if got := f.balance(t, "A", "u1"); got != 10500 {
		t.Fatalf("balance = %d, want 10500", got)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	f.account(t, "A", "u1", "EUR", 0)

	if _, err := f.svc.Create(f.ctx, "u1", TransactionInput{AccountID: "A", Amount: cents(700), Type: core.Income, Date: txDate}); err != nil {
		t.Fatalf("Create should succeed when publishing fails: %v", err)
	}
	if got := f.balance(t, "A", "u1"); got != 700 {
		t.Fatalf("balance = %d, want 700", got)
	}
}

func TestBalanceMatchesLedgerAfterMixedOperations(t *testing.T) {
	f := newFixture(t)
	f.account(t, "A", "u1", "EUR", 5000)
	f.account(t, "B", "u1", "EUR", 0)

	ops := []TransactionInput{
		{AccountID: "A", Amount: cents(1250), Type: core.Income, Date: txDate},
		{AccountID: "A", Amount: cents(333), Type: core.Expense, Date: txDate},
		{AccountID: "A", TransferAccountID: "B", Amount: cents(999), Type: core.Transfer, Date: txDate},
		{AccountID: "B", Amount: cents(1), Type: core.Expense, Date: txDate},
	}
	var ids []string
	for _, in := range ops {
		tx, err := f.svc.Create(f.ctx, "u1", in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, tx.ID)
	}
	if err := f.svc.Delete(f.ctx, "u1", ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ops[3].Amount = cents(50)
	if _, err := f.svc.Update(f.ctx, "u1", ids[3], ops[3]); err != nil {
		t.Fatalf("Update: %v", err)
	}

	txs, err := f.svc.List(f.ctx, "u1", core.TransactionFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := map[string]int64{"A": 5000, "B": 0}
	for i := range txs {
		for _, d := range core.ComputeDeltas(nil, &txs[i]) {
			want[d.AccountID] += d.Delta.Cents
		}
	}
	for id, w := range want {
		if got := f.balance(t, id, "u1"); got != w {
			t.Errorf("account %s balance = %d, ledger says %d", id, got, w)
		}
	}
}
