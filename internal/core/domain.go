package core

import (
	"regexp"
	"strings"
	"time"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
	Loan       AccountType = "loan"
	Cash       AccountType = "cash"
	Other      AccountType = "other"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
	Custom  Period = "custom"
)

const (
	StatusUnder BudgetStatus = "under"
	StatusOver  BudgetStatus = "over"
)

const maxDescriptionLen = 200

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type (
	AccountType     string
	TransactionType string
	Period          string
	BudgetStatus    string

	Account struct {
		ID                string      `json:"id"`
		OwnerID           string      `json:"-"`
		Name              string      `json:"name"`
		Type              AccountType `json:"type"`
		Balance           Money       `json:"balance"`
		Currency          string      `json:"currency"`
		IncludeInNetWorth bool        `json:"includeInNetWorth"`
		CreatedAt         time.Time   `json:"createdAt"`
	}

	// Category groups transactions; Kind is income or expense.
	Category struct {
		ID      string          `json:"id"`
		OwnerID string          `json:"-"`
		Name    string          `json:"name"`
		Kind    TransactionType `json:"kind"`
	}

	Transaction struct {
		ID                string          `json:"id"`
		OwnerID           string          `json:"-"`
		AccountID         string          `json:"accountId"`
		CategoryID        string          `json:"categoryId,omitempty"`
		TransferAccountID string          `json:"transferAccountId,omitempty"`
		Amount            Money           `json:"amount"`
		Type              TransactionType `json:"type"`
		Date              time.Time       `json:"date"`
		Description       string          `json:"description"`
		CreatedAt         time.Time       `json:"createdAt"`
		UpdatedAt         time.Time       `json:"updatedAt"`
	}

	// Budget is a spending limit over a recurring period. An empty CategoryID
	// applies the limit to every expense of the owner.
	Budget struct {
		ID                    string    `json:"id"`
		OwnerID               string    `json:"-"`
		Name                  string    `json:"name"`
		Amount                Money     `json:"amount"`
		Period                Period    `json:"period"`
		StartDate             time.Time `json:"startDate"`
		EndDate               time.Time `json:"endDate,omitzero"`
		CategoryID            string    `json:"categoryId,omitempty"`
		Active                bool      `json:"active"`
		NotificationThreshold int       `json:"notificationThreshold"`
		CreatedAt             time.Time `json:"createdAt"`
	}

	// DateRange is inclusive on both ends.
	DateRange struct {
		Start time.Time
		End   time.Time
	}

	ExpenseSum struct {
		Total Money
		Count int
	}

	// TransactionFilter narrows transaction listings. Zero values match everything.
	TransactionFilter struct {
		AccountID  string
		CategoryID string
		Type       TransactionType
		From       time.Time
		To         time.Time
		Limit      int
	}

	// NetWorth is the sum of balances of accounts included in net worth, per currency.
	NetWorth struct {
		Currency string `json:"currency"`
		Total    Money  `json:"total"`
		Accounts int    `json:"accounts"`
	}
)

func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Credit, Investment, Loan, Cash, Other:
		return true
	}
	return false
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (p Period) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAccountType
	}
	if !currencyCode.MatchString(a.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Kind != Income && c.Kind != Expense {
		return ErrInvalidType
	}
	return nil
}

// Validate checks field ranges and the transfer shape rules: a destination
// account exists if and only if the type is transfer, and transfers never carry
// a category.
func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}

	if t.Type == Transfer {
		if t.TransferAccountID == "" {
			return ErrTransferWithoutDestination
		}
		if t.TransferAccountID == t.AccountID {
			return ErrTransferToSameAccount
		}
		if t.CategoryID != "" {
			return ErrCategoryOnTransfer
		}
		return nil
	}
	if t.TransferAccountID != "" {
		return ErrDestinationOnNonTransfer
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.IsValid() {
		return ErrInvalidPeriod
	}
	if b.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if b.Period == Custom && b.EndDate.IsZero() {
		return ErrMissingEndDate
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		return ErrEndBeforeStart
	}
	if b.NotificationThreshold < 1 || b.NotificationThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}
