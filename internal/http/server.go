// Package http exposes the ledger services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

// HealthChecker reports whether the ledger store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	// Location interprets date-only values and anchors budget periods.
	Location *time.Location
}

type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Health       HealthChecker
}

// Server wraps http.Server with the API routes and middleware chain.
type Server struct {
	http.Server
	accounts     *services.AccountService
	transactions *services.TransactionService
	budgets      *services.BudgetService
	health       HealthChecker

	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *applog.Logger
	loc      *time.Location
	now      func() time.Time
	timeout  time.Duration
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		accounts:     svc.Accounts,
		transactions: svc.Transactions,
		budgets:      svc.Budgets,
		health:       svc.Health,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		logger:       logger,
		loc:          loc,
		now:          time.Now,
		timeout:      cfg.RequestTimeout,
		started:      time.Now(),
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/accounts", s.owned(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.owned(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.owned(s.handleGetAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.owned(s.handleDeleteAccount))
	mux.HandleFunc("GET /api/net-worth", s.owned(s.handleNetWorth))

	mux.HandleFunc("POST /api/categories", s.owned(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories", s.owned(s.handleListCategories))

	mux.HandleFunc("POST /api/transactions", s.owned(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.owned(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.owned(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.owned(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.owned(s.handleDeleteTransaction))

	mux.HandleFunc("POST /api/budgets", s.owned(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets", s.owned(s.handleListBudgets))
	mux.HandleFunc("GET /api/budgets/progress", s.owned(s.handleProgressAll))
	mux.HandleFunc("GET /api/budgets/alerts", s.owned(s.handleThresholdAlerts))
	mux.HandleFunc("GET /api/budgets/{id}", s.owned(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.owned(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.owned(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/{id}/progress", s.owned(s.handleBudgetProgress))
	return mux
}

// middleware wraps h, outermost first: tracing and logging, panic recovery,
// security headers, scan detection, rate limiting of mutations and the
// request deadline.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.withTimeout(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.onRateLimit)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.recoverPanics(h)
	h = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(h)
	return h
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	if s.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Panic recovered",
					applog.FieldError, rec,
					applog.FieldErrorType, applog.ErrorTypeInternal,
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}
