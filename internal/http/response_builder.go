package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	applog "finboard/internal/log"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

var (
	errMissingOwner = errors.New("missing X-User-ID header")
	errBadRequest   = errors.New("malformed request")
)

// writeJSON writes v as the response body with the given status.
// A nil v writes headers only.
func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusFor maps service errors onto HTTP status codes and log error types.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errMissingOwner):
		return http.StatusUnauthorized, applog.ErrorTypeAuth
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrAccountInUse):
		return http.StatusConflict, applog.ErrorTypeConflict
	case errors.Is(err, core.ErrInvalid), errors.Is(err, core.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// writeServiceError renders err. Client errors carry their message; server
// errors are logged and answered with a generic one.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.NewFields().WithError(err, errType).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").ToSlice()...)
		writeJSON(w, status, errorBody{Error: "internal server error", RequestID: requestID(r)})
		return
	}
	logger.DebugContext(r.Context(), "Request rejected", applog.NewFields().WithError(err, errType).ToSlice()...)
	writeJSON(w, status, errorBody{Error: err.Error()})
}
