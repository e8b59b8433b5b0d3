package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing records and records owned by another user.
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound      = fmt.Errorf("budget %w", ErrNotFound)

	// ErrAccountInUse is returned when deleting an account still referenced by transactions.
	ErrAccountInUse = errors.New("account is referenced by transactions")

	ErrInvalidTransition          = errors.New("invalid transaction shape")
	ErrTransferWithoutDestination = fmt.Errorf("%w: transfer requires a destination account", ErrInvalidTransition)
	ErrDestinationOnNonTransfer   = fmt.Errorf("%w: only transfers may carry a destination account", ErrInvalidTransition)
	ErrCategoryOnTransfer         = fmt.Errorf("%w: transfers cannot have a category", ErrInvalidTransition)
	ErrTransferToSameAccount      = fmt.Errorf("%w: transfer source and destination must differ", ErrInvalidTransition)
	ErrCurrencyMismatch           = fmt.Errorf("%w: transfer accounts use different currencies", ErrInvalidTransition)

	ErrInvalid              = errors.New("invalid input")
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrInvalid)
	ErrInvalidDate          = fmt.Errorf("%w: date cannot be zero", ErrInvalid)
	ErrInvalidType          = fmt.Errorf("%w: unknown transaction type", ErrInvalid)
	ErrInvalidAccountType   = fmt.Errorf("%w: unknown account type", ErrInvalid)
	ErrInvalidPeriod        = fmt.Errorf("%w: unknown budget period", ErrInvalid)
	ErrInvalidThreshold     = fmt.Errorf("%w: notification threshold must be between 1 and 100", ErrInvalid)
	ErrInvalidCurrency      = fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalid)
	ErrMissingAccount       = fmt.Errorf("%w: account is required", ErrInvalid)
	ErrMissingEndDate       = fmt.Errorf("%w: custom budgets require an end date", ErrInvalid)
	ErrEndBeforeStart       = fmt.Errorf("%w: end date must not be before start date", ErrInvalid)
	ErrEmptyName            = fmt.Errorf("%w: empty name", ErrInvalid)
	ErrDescriptionTooLong   = fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalid)
	ErrCategoryKindMismatch = fmt.Errorf("%w: category kind does not match transaction type", ErrInvalid)
)
