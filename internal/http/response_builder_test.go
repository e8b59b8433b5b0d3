package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"finboard/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errMissingOwner, http.StatusUnauthorized},
		{fmt.Errorf("%w: eof", errBadRequest), http.StatusBadRequest},
		{fmt.Errorf("update transaction: %w", core.ErrTransactionNotFound), http.StatusNotFound},
		{fmt.Errorf("delete account: %w", core.ErrAccountInUse), http.StatusConflict},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{fmt.Errorf("create transaction: %w", core.ErrCurrencyMismatch), http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got, _ := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	writeServiceError(rr, r, errors.New("sqlite: database disk image is malformed"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestWriteServiceErrorClientMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	writeServiceError(rr, r, core.ErrTransferWithoutDestination)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	var body errorBody
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Error != core.ErrTransferWithoutDestination.Error() {
		t.Errorf("error = %q", body.Error)
	}
}

func TestWriteJSONNilBody(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusNoContent, nil)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Errorf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}
