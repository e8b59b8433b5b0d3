package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decode %q: %v", lines[len(lines)-1], err)
	}
	return rec
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentLedger, Format: "json", Output: &buf})

	logger.With(FieldOwnerID, "u1").Info("Transaction created", FieldTransactionID, "t1")
	rec := lastRecord(t, &buf)
	if rec[FieldComponent] != ComponentLedger || rec[FieldOwnerID] != "u1" || rec[FieldTransactionID] != "t1" {
		t.Errorf("record = %v", rec)
	}

	logger.WithComponent(ComponentBudget).Warn("Threshold")
	if rec := lastRecord(t, &buf); rec[FieldComponent] != ComponentBudget {
		t.Errorf("component = %v", rec[FieldComponent])
	}

	logger.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug record written at info level")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOperation(OpUpdate).
		WithTransaction("t1", "expense", 1234).
		WithDeltas(2).
		WithError(errors.New("boom"), ErrorTypeDatabase)
	if f[FieldAmountCents] != int64(1234) || f[FieldDeltaCount] != 2 || f[FieldError] != "boom" {
		t.Errorf("fields = %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length = %d", len(f.ToSlice()))
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Format: "json", Output: &buf})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			LogHTTPEnd(r.Context(), r, http.StatusInternalServerError, 12, "10.0.0.1")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/budgets?active=true", nil))

	rec := lastRecord(t, &buf)
	if rec["level"] != "ERROR" || rec[FieldRequestID] != "req-1" || rec[FieldQuery] != "active=true" {
		t.Errorf("record = %v", rec)
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("FromContext without logger should fall back to the default")
	}
}
