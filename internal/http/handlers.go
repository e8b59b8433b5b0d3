package http

import (
	"context"
	"net/http"
	"time"

	applog "finboard/internal/log"
)

// ownedHandler is an API handler that runs on behalf of an authenticated owner.
type ownedHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// owned resolves the owner from the request and rejects anonymous calls.
func (s *Server) owned(h ownedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFrom(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		logger := applog.FromContext(r.Context()).With(applog.FieldOwnerID, owner)
		h(w, r.WithContext(applog.NewContext(r.Context(), logger)), owner)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the ledger store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeDatabase)
			checks["store"] = "unavailable"
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
