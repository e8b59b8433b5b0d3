package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finboard/internal/core"
)

func TestParseDate(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"empty is zero", "  ", time.Time{}, false},
		{"date only in location", "2024-03-31", time.Date(2024, 3, 31, 0, 0, 0, 0, rome), false},
		{"rfc3339 keeps its offset", "2024-03-31T10:00:00Z", time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC), false},
		{"day first", "31/03/2024", time.Time{}, true},
		{"impossible day", "2024-02-30", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.in, rome)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalid) {
					t.Fatalf("parseDate(%q) error = %v, want ErrInvalid", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDate(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTransactionFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, f core.TransactionFilter)
		wantErr error
	}{
		{
			name:  "empty matches everything up to the list cap",
			query: "",
			check: func(t *testing.T, f core.TransactionFilter) {
				if f != (core.TransactionFilter{Limit: maxListLimit}) {
					t.Errorf("filter = %+v, want only the default limit", f)
				}
			},
		},
		{
			name:  "date only upper bound covers the whole day",
			query: "from=2024-01-01&to=2024-01-31&account=a1&category=c1&type=Expense&limit=10",
			check: func(t *testing.T, f core.TransactionFilter) {
				wantTo := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
				if !f.To.Equal(wantTo) || !f.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("range = %v..%v", f.From, f.To)
				}
				if f.AccountID != "a1" || f.CategoryID != "c1" || f.Type != core.Expense || f.Limit != 10 {
					t.Errorf("filter = %+v", f)
				}
			},
		},
		{
			name:  "limit is capped",
			query: "limit=50000",
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Limit != maxListLimit {
					t.Errorf("limit = %d", f.Limit)
				}
			},
		},
		{name: "unknown type", query: "type=refund", wantErr: core.ErrInvalidType},
		{name: "inverted range", query: "from=2024-02-01&to=2024-01-01", wantErr: core.ErrEndBeforeStart},
		{name: "negative limit", query: "limit=-1", wantErr: core.ErrInvalid},
		{name: "bad date", query: "from=yesterday", wantErr: core.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			f, err := parseTransactionFilter(q, time.UTC)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTransactionFilter: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"name":"Food","kind":"expense"}`, nil},
		{"unknown field", `{"name":"Food","colour":"red"}`, errBadRequest},
		{"trailing object", `{"name":"a"}{"name":"b"}`, errBadRequest},
		{"empty", ``, errBadRequest},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, errBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst categoryRequest
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("decodeJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSONKeepsDomainErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"twelve"}`))
	var dst transactionRequest
	err := decodeJSON(httptest.NewRecorder(), r, &dst)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("error = %v, want ErrInvalidAmount", err)
	}
}

func TestBudgetRequestDefaults(t *testing.T) {
	in, err := budgetRequest{Name: " Food\x00 ", Period: " Monthly ", StartDate: "2024-01-01"}.input(time.UTC)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.Name != "Food" || in.Period != core.Monthly {
		t.Errorf("name=%q period=%q", in.Name, in.Period)
	}
	if !in.Active || in.NotificationThreshold != defaultNotificationThreshold {
		t.Errorf("active=%v threshold=%d", in.Active, in.NotificationThreshold)
	}
	if !in.EndDate.IsZero() {
		t.Errorf("end date = %v, want zero", in.EndDate)
	}

	inactive, zero := false, 0
	in, err = budgetRequest{StartDate: "2024-01-01", Active: &inactive, NotificationThreshold: &zero}.input(time.UTC)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.Active || in.NotificationThreshold != 0 {
		t.Errorf("explicit values overridden: active=%v threshold=%d", in.Active, in.NotificationThreshold)
	}
}

func TestAccountRequestNormalises(t *testing.T) {
	in := accountRequest{Name: "Main", Type: "Checking", Currency: " eur "}.input()
	if in.Type != core.Checking || in.Currency != "EUR" || !in.IncludeInNetWorth {
		t.Errorf("input = %+v", in)
	}
}

func TestOwnerFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := ownerFrom(r); !errors.Is(err, errMissingOwner) {
		t.Fatalf("missing header: err = %v", err)
	}
	r.Header.Set(OwnerHeader, " user-1\x07 ")
	if got, err := ownerFrom(r); err != nil || got != "user-1" {
		t.Fatalf("ownerFrom = %q, %v", got, err)
	}
}
