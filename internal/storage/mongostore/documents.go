package mongostore

import (
	"time"

	"finboard/internal/core"
)

type accountDoc struct {
	ID                string    `bson:"_id"`
	OwnerID           string    `bson:"ownerId"`
	Name              string    `bson:"name"`
	Type              string    `bson:"type"`
	BalanceCents      int64     `bson:"balanceCents"`
	Currency          string    `bson:"currency"`
	IncludeInNetWorth bool      `bson:"includeInNetWorth"`
	CreatedAt         time.Time `bson:"createdAt"`
}

type categoryDoc struct {
	ID      string `bson:"_id"`
	OwnerID string `bson:"ownerId"`
	Name    string `bson:"name"`
	Kind    string `bson:"kind"`
}

type transactionDoc struct {
	ID                string    `bson:"_id"`
	OwnerID           string    `bson:"ownerId"`
	AccountID         string    `bson:"accountId"`
	CategoryID        string    `bson:"categoryId,omitempty"`
	TransferAccountID string    `bson:"transferAccountId,omitempty"`
	AmountCents       int64     `bson:"amountCents"`
	Type              string    `bson:"type"`
	Date              time.Time `bson:"date"`
	Description       string    `bson:"description"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}

type budgetDoc struct {
	ID                    string     `bson:"_id"`
	OwnerID               string     `bson:"ownerId"`
	Name                  string     `bson:"name"`
	AmountCents           int64      `bson:"amountCents"`
	Period                string     `bson:"period"`
	StartDate             time.Time  `bson:"startDate"`
	EndDate               *time.Time `bson:"endDate,omitempty"`
	CategoryID            string     `bson:"categoryId,omitempty"`
	Active                bool       `bson:"active"`
	NotificationThreshold int        `bson:"notificationThreshold"`
	CreatedAt             time.Time  `bson:"createdAt"`
}

func fromCoreAccount(a core.Account) accountDoc {
	return accountDoc{
		ID:                a.ID,
		OwnerID:           a.OwnerID,
		Name:              a.Name,
		Type:              string(a.Type),
		BalanceCents:      a.Balance.Cents,
		Currency:          a.Currency,
		IncludeInNetWorth: a.IncludeInNetWorth,
		CreatedAt:         a.CreatedAt,
	}
}

func (d accountDoc) toCore() core.Account {
	return core.Account{
		ID:                d.ID,
		OwnerID:           d.OwnerID,
		Name:              d.Name,
		Type:              core.AccountType(d.Type),
		Balance:           core.Money{Cents: d.BalanceCents},
		Currency:          d.Currency,
		IncludeInNetWorth: d.IncludeInNetWorth,
		CreatedAt:         d.CreatedAt.UTC(),
	}
}

func fromCoreCategory(c core.Category) categoryDoc {
	return categoryDoc{ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, Kind: string(c.Kind)}
}

func (d categoryDoc) toCore() core.Category {
	return core.Category{ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, Kind: core.TransactionType(d.Kind)}
}

func fromCoreTransaction(t core.Transaction) transactionDoc {
	return transactionDoc{
		ID:                t.ID,
		OwnerID:           t.OwnerID,
		AccountID:         t.AccountID,
		CategoryID:        t.CategoryID,
		TransferAccountID: t.TransferAccountID,
		AmountCents:       t.Amount.Cents,
		Type:              string(t.Type),
		Date:              t.Date,
		Description:       t.Description,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func (d transactionDoc) toCore() core.Transaction {
	return core.Transaction{
		ID:                d.ID,
		OwnerID:           d.OwnerID,
		AccountID:         d.AccountID,
		CategoryID:        d.CategoryID,
		TransferAccountID: d.TransferAccountID,
		Amount:            core.Money{Cents: d.AmountCents},
		Type:              core.TransactionType(d.Type),
		Date:              d.Date.UTC(),
		Description:       d.Description,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
}

func fromCoreBudget(b core.Budget) budgetDoc {
	d := budgetDoc{
		ID:                    b.ID,
		OwnerID:               b.OwnerID,
		Name:                  b.Name,
		AmountCents:           b.Amount.Cents,
		Period:                string(b.Period),
		StartDate:             b.StartDate,
		CategoryID:            b.CategoryID,
		Active:                b.Active,
		NotificationThreshold: b.NotificationThreshold,
		CreatedAt:             b.CreatedAt,
	}
	if !b.EndDate.IsZero() {
		end := b.EndDate
		d.EndDate = &end
	}
	return d
}

func (d budgetDoc) toCore() core.Budget {
	b := core.Budget{
		ID:                    d.ID,
		OwnerID:               d.OwnerID,
		Name:                  d.Name,
		Amount:                core.Money{Cents: d.AmountCents},
		Period:                core.Period(d.Period),
		StartDate:             d.StartDate.UTC(),
		CategoryID:            d.CategoryID,
		Active:                d.Active,
		NotificationThreshold: d.NotificationThreshold,
		CreatedAt:             d.CreatedAt.UTC(),
	}
	if d.EndDate != nil {
		b.EndDate = d.EndDate.UTC()
	}
	return b
}
