package services

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/storage"

	"github.com/google/uuid"
)

// EventPublisher delivers ledger events after a mutation commits.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

type TransactionRepository interface {
	storage.Transactor
	storage.TransactionLister
	GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error)
}

// TransactionInput holds the user-editable fields of a transaction.
type TransactionInput struct {
	AccountID         string
	CategoryID        string
	TransferAccountID string
	Amount            core.Money
	Type              core.TransactionType
	Date              time.Time
	Description       string
}

func (in TransactionInput) applyTo(t *core.Transaction) {
	t.AccountID = in.AccountID
	t.CategoryID = in.CategoryID
	t.TransferAccountID = in.TransferAccountID
	t.Amount = in.Amount
	t.Type = in.Type
	t.Date = in.Date
	t.Description = in.Description
}

// TransactionService keeps account balances reconciled with the ledger.
// Every mutation applies its balance deltas and the transaction write in one
// unit of work, so a failed request leaves balances untouched.
type TransactionService struct {
	store     TransactionRepository
	publisher EventPublisher
	logger    *applog.Logger
	now       func() time.Time
}

// NewTransactionService wires the service. publisher may be nil.
func NewTransactionService(store TransactionRepository, publisher EventPublisher, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.Default(applog.ComponentLedger)
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *TransactionService) Create(ctx context.Context, ownerID string, in TransactionInput) (core.Transaction, error) {
	now := s.now()
	t := core.Transaction{ID: uuid.NewString(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	in.applyTo(&t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var deltas []core.AccountDelta
	err := s.store.WithinTx(ctx, func(l storage.Ledger) error {
		if err := checkReferences(ctx, l, t); err != nil {
			return err
		}
		deltas = core.ComputeDeltas(nil, &t)
		if err := applyDeltas(ctx, l, ownerID, deltas); err != nil {
			return err
		}
		return l.InsertTransaction(ctx, t)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logMutation(ctx, applog.OpCreate, t, deltas)
	s.publish(ctx, amqp.TransactionCreated, t, deltas)
	return t, nil
}

// Update replaces the editable fields of a stored transaction. The previous
// effect is always reversed and the new one applied; when only descriptive
// fields change the merged deltas are empty and balances stay as they are.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in TransactionInput) (core.Transaction, error) {
	var (
		next   core.Transaction
		deltas []core.AccountDelta
	)
	err := s.store.WithinTx(ctx, func(l storage.Ledger) error {
		prev, err := l.GetTransaction(ctx, id, ownerID)
		if err != nil {
			return err
		}
		next = prev
		in.applyTo(&next)
		next.UpdatedAt = s.now()
		if err := next.Validate(); err != nil {
			return err
		}
		if err := checkReferences(ctx, l, next); err != nil {
			return err
		}
		deltas = core.ComputeDeltas(&prev, &next)
		if err := applyDeltas(ctx, l, ownerID, deltas); err != nil {
			return err
		}
		return l.UpdateTransaction(ctx, next)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.logMutation(ctx, applog.OpUpdate, next, deltas)
	s.publish(ctx, amqp.TransactionUpdated, next, deltas)
	return next, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	var (
		prev   core.Transaction
		deltas []core.AccountDelta
	)
	err := s.store.WithinTx(ctx, func(l storage.Ledger) error {
		var err error
		prev, err = l.GetTransaction(ctx, id, ownerID)
		if err != nil {
			return err
		}
		deltas = core.ComputeDeltas(&prev, nil)
		if err := applyDeltas(ctx, l, ownerID, deltas); err != nil {
			return err
		}
		return l.DeleteTransaction(ctx, id, ownerID)
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logMutation(ctx, applog.OpDelete, prev, deltas)
	s.publish(ctx, amqp.TransactionDeleted, prev, deltas)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, ownerID)
}

func (s *TransactionService) List(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, ownerID, f)
}

// checkReferences verifies that every account and the category of t belong to
// its owner, that transfers stay within one currency and that the category
// kind matches the transaction type.
func checkReferences(ctx context.Context, l storage.Ledger, t core.Transaction) error {
	src, err := l.GetAccount(ctx, t.AccountID, t.OwnerID)
	if err != nil {
		return err
	}
	if t.Type == core.Transfer {
		dst, err := l.GetAccount(ctx, t.TransferAccountID, t.OwnerID)
		if err != nil {
			return err
		}
		if src.Currency != dst.Currency {
			return core.ErrCurrencyMismatch
		}
	}
	if t.CategoryID != "" {
		c, err := l.GetCategory(ctx, t.CategoryID, t.OwnerID)
		if err != nil {
			return err
		}
		if c.Kind != t.Type {
			return core.ErrCategoryKindMismatch
		}
	}
	return nil
}

// applyDeltas applies merged deltas in order; each one is an atomic increment.
func applyDeltas(ctx context.Context, l storage.Ledger, ownerID string, deltas []core.AccountDelta) error {
	for _, d := range deltas {
		if err := l.ApplyAccountDelta(ctx, d.AccountID, ownerID, d.Delta); err != nil {
			return fmt.Errorf("account %s: %w", d.AccountID, err)
		}
	}
	return nil
}

func (s *TransactionService) logMutation(ctx context.Context, op string, t core.Transaction, deltas []core.AccountDelta) {
	s.logger.InfoContext(ctx, "Ledger mutation committed",
		applog.NewFields().
			WithOperation(op).
			WithTransaction(t.ID, string(t.Type), t.Amount.Cents).
			WithDeltas(len(deltas)).
			ToSlice()...)
}

func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, t core.Transaction, deltas []core.AccountDelta) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(kind, t, deltas)); err != nil {
		// The mutation is committed; a missed event only delays export and alerts.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEventKind, kind, applog.FieldTransactionID, t.ID, applog.FieldError, err)
	}
}
