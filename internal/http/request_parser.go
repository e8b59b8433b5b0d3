package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

const (
	// OwnerHeader carries the authenticated user id set by the upstream gateway.
	OwnerHeader = "X-User-ID"

	maxBodyBytes = 64 << 10

	defaultNotificationThreshold = 80
	maxListLimit                 = 1000
)

func ownerFrom(r *http.Request) (string, error) {
	owner := sanitizeInput(r.Header.Get(OwnerHeader))
	if owner == "" {
		return "", errMissingOwner
	}
	return owner, nil
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

// decodeJSON reads a single JSON object from the body into dst, rejecting
// unknown fields and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case errors.Is(err, core.ErrInvalid):
			return err
		default:
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD, read in loc, or a full RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", core.ErrInvalid, s)
	}
	return t, nil
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

type accountRequest struct {
	Name              string           `json:"name"`
	Type              core.AccountType `json:"type"`
	Currency          string           `json:"currency"`
	InitialBalance    core.Money       `json:"initialBalance"`
	IncludeInNetWorth *bool            `json:"includeInNetWorth"`
}

func (req accountRequest) input() services.AccountInput {
	include := true
	if req.IncludeInNetWorth != nil {
		include = *req.IncludeInNetWorth
	}
	return services.AccountInput{
		Name:              sanitizeInput(req.Name),
		Type:              core.AccountType(strings.ToLower(strings.TrimSpace(string(req.Type)))),
		Currency:          strings.ToUpper(strings.TrimSpace(req.Currency)),
		InitialBalance:    req.InitialBalance,
		IncludeInNetWorth: include,
	}
}

type categoryRequest struct {
	Name string               `json:"name"`
	Kind core.TransactionType `json:"kind"`
}

type transactionRequest struct {
	AccountID         string               `json:"accountId"`
	CategoryID        string               `json:"categoryId"`
	TransferAccountID string               `json:"transferAccountId"`
	Amount            core.Money           `json:"amount"`
	Type              core.TransactionType `json:"type"`
	Date              string               `json:"date"`
	Description       string               `json:"description"`
}

func (req transactionRequest) input(loc *time.Location) (services.TransactionInput, error) {
	date, err := parseDate(req.Date, loc)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		AccountID:         strings.TrimSpace(req.AccountID),
		CategoryID:        strings.TrimSpace(req.CategoryID),
		TransferAccountID: strings.TrimSpace(req.TransferAccountID),
		Amount:            req.Amount,
		Type:              core.TransactionType(strings.ToLower(strings.TrimSpace(string(req.Type)))),
		Date:              date,
		Description:       sanitizeInput(req.Description),
	}, nil
}

type budgetRequest struct {
	Name                  string      `json:"name"`
	Amount                core.Money  `json:"amount"`
	Period                core.Period `json:"period"`
	StartDate             string      `json:"startDate"`
	EndDate               string      `json:"endDate"`
	CategoryID            string      `json:"categoryId"`
	Active                *bool       `json:"active"`
	NotificationThreshold *int        `json:"notificationThreshold"`
}

func (req budgetRequest) input(loc *time.Location) (services.BudgetInput, error) {
	start, err := parseDate(req.StartDate, loc)
	if err != nil {
		return services.BudgetInput{}, err
	}
	end, err := parseDate(req.EndDate, loc)
	if err != nil {
		return services.BudgetInput{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	threshold := defaultNotificationThreshold
	if req.NotificationThreshold != nil {
		threshold = *req.NotificationThreshold
	}
	return services.BudgetInput{
		Name:                  sanitizeInput(req.Name),
		Amount:                req.Amount,
		Period:                core.Period(strings.ToLower(strings.TrimSpace(string(req.Period)))),
		StartDate:             start,
		EndDate:               end,
		CategoryID:            strings.TrimSpace(req.CategoryID),
		Active:                active,
		NotificationThreshold: threshold,
	}, nil
}

// parseTransactionFilter reads from, to, account, category, type and limit.
// "to" is inclusive of the whole day when given as a date.
func parseTransactionFilter(q url.Values, loc *time.Location) (core.TransactionFilter, error) {
	f := core.TransactionFilter{
		AccountID:  strings.TrimSpace(q.Get("account")),
		CategoryID: strings.TrimSpace(q.Get("category")),
		Type:       core.TransactionType(strings.ToLower(strings.TrimSpace(q.Get("type")))),
		Limit:      maxListLimit,
	}
	if f.Type != "" && !f.Type.IsValid() {
		return core.TransactionFilter{}, core.ErrInvalidType
	}

	var err error
	if f.From, err = parseDate(q.Get("from"), loc); err != nil {
		return core.TransactionFilter{}, err
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if f.To, err = parseDate(v, loc); err != nil {
			return core.TransactionFilter{}, err
		}
		if len(v) == len(time.DateOnly) {
			f.To = f.To.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return core.TransactionFilter{}, core.ErrEndBeforeStart
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return core.TransactionFilter{}, fmt.Errorf("%w: limit must be a positive integer", core.ErrInvalid)
		}
		f.Limit = min(n, maxListLimit)
	}
	return f, nil
}

// parseBool reads an optional boolean query parameter.
func parseBool(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", core.ErrInvalid, key)
	}
	return b, nil
}
