package storage

import (
	"database/sql"
)

type Account struct {
	ID                string
	OwnerID           string
	Name              string
	Type              string
	BalanceCents      int64
	Currency          string
	IncludeInNetWorth bool
	CreatedAt         int64
}

type Category struct {
	ID      string
	OwnerID string
	Name    string
	Kind    string
}

type Transaction struct {
	ID                string
	OwnerID           string
	AccountID         string
	CategoryID        sql.NullString
	TransferAccountID sql.NullString
	AmountCents       int64
	Type              string
	DateMs            int64
	Description       string
	CreatedAt         int64
	UpdatedAt         int64
}

type Budget struct {
	ID                    string
	OwnerID               string
	Name                  string
	AmountCents           int64
	Period                string
	StartMs               int64
	EndMs                 sql.NullInt64
	CategoryID            sql.NullString
	Active                bool
	NotificationThreshold int64
	CreatedAt             int64
}

type NetWorthRow struct {
	Currency   string
	TotalCents int64
	Accounts   int64
}
