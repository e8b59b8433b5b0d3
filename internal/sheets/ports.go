// Package sheets exports the ledger journal to spreadsheets.
package sheets

import (
	"context"
	"time"

	"finboard/internal/core"
)

// JournalRow is one line of the exported ledger journal.
type JournalRow struct {
	RecordedAt        time.Time
	Event             string
	TransactionID     string
	Date              time.Time
	Type              core.TransactionType
	Amount            core.Money
	AccountID         string
	TransferAccountID string
	CategoryID        string
	Description       string
}

// JournalWriter appends journal rows to an external sheet.
type JournalWriter interface {
	Append(ctx context.Context, r JournalRow) (rowRef string, err error)
}

// Columns lists the journal header in column order.
var Columns = []string{
	"Recorded at", "Event", "Transaction", "Date", "Type", "Amount",
	"Account", "Transfer account", "Category", "Description",
}

// Values renders r in Columns order. Dates use YYYY-MM-DD and amounts a
// two-decimal string, both readable by USER_ENTERED input.
func (r JournalRow) Values() []any {
	return []any{
		r.RecordedAt.UTC().Format(time.RFC3339),
		r.Event,
		r.TransactionID,
		r.Date.Format(time.DateOnly),
		string(r.Type),
		r.Amount.String(),
		r.AccountID,
		r.TransferAccountID,
		r.CategoryID,
		r.Description,
	}
}
