package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finboard/internal/core"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
)

// LedgerEvent is published after a transaction mutation commits.
// Transaction holds the stored state after the change, or the removed state
// for deletions. Deltas are the balance changes that were applied.
type LedgerEvent struct {
	Kind        EventKind           `json:"kind"`
	OwnerID     string              `json:"ownerId"`
	Transaction core.Transaction    `json:"transaction"`
	Deltas      []core.AccountDelta `json:"deltas"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(kind EventKind, t core.Transaction, deltas []core.AccountDelta) *LedgerEvent {
	if deltas == nil {
		deltas = []core.AccountDelta{}
	}
	return &LedgerEvent{
		Kind:        kind,
		OwnerID:     t.OwnerID,
		Transaction: t,
		Deltas:      deltas,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event. The transaction owner is not part of
// its JSON form and is restored from OwnerID.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.OwnerID == "" {
		return nil, fmt.Errorf("event has no owner")
	}
	e.Transaction.OwnerID = e.OwnerID
	return &e, nil
}
