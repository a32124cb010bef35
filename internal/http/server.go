// Package http exposes the ledger, its aggregates and the sync and insight
// bridges as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quy/internal/core"
	"quy/internal/insight"
	"quy/internal/ledger"
	"quy/internal/log"
	"quy/internal/middleware/ratelimit"
	"quy/internal/middleware/security"
	"quy/internal/middleware/trace"
	"quy/internal/services"
)

// Deps are the collaborators the handlers read from and write to.
type Deps struct {
	Store   *ledger.Store
	Sync    *services.SyncService
	Insight *insight.Service
	Logger  *log.Logger

	LowBalanceThreshold core.Money
	ChartWindowDays     int
	Location            *time.Location
	RateLimit           ratelimit.Config

	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	deps Deps

	logger           *log.Logger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	transactionsCreated int64
	transactionsDeleted int64
	uptime              time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.LowBalanceThreshold == 0 {
		deps.LowBalanceThreshold = core.DefaultLowBalanceThreshold
	}
	if deps.ChartWindowDays == 0 {
		deps.ChartWindowDays = 7
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		deps:             deps,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		securityDetector: security.NewDetector(),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.securityDetector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.MutatingOnly, s.handleRateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/grouped", s.handleGroupedTransactions)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/balances", s.handleBalances)
		r.Get("/chart", s.handleChart)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/export.csv", s.handleExportCSV)

		r.Get("/colors", s.handleGetColors)
		r.Put("/colors", s.handlePutColors)
		r.Delete("/colors", s.handleResetColors)

		r.Get("/settings/sync-endpoint", s.handleGetSyncEndpoint)
		r.Put("/settings/sync-endpoint", s.handlePutSyncEndpoint)

		r.Post("/sync", s.handleSync)
		r.Get("/sync/status", s.handleSyncStatus)

		r.Post("/insight", s.handleStartInsight)
		r.Get("/insight", s.handleGetInsight)
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) now() time.Time {
	return s.deps.Now().In(s.deps.Location)
}

func (s *Server) countCreated() { atomic.AddInt64(&s.appMetrics.transactionsCreated, 1) }
func (s *Server) countDeleted() { atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1) }
