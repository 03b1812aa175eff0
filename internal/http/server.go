package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/users"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource exposes cache counters for /metrics.
type StatsSource interface {
	Stats() cache.Stats
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Finance  *services.FinanceService
	Users    *users.Service
	Sessions *session.Manager
	Store    Pinger

	// Optional.
	SummaryCache       StatsSource
	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server wraps http.Server with the finance API routes.
type Server struct {
	http.Server

	finance  *services.FinanceService
	users    *users.Service
	sessions *session.Manager
	store    Pinger
	summary  StatsSource

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	logger          *log.Logger
	started         time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	rpm := deps.RateLimitPerMinute
	if rpm <= 0 {
		rpm = ratelimit.DefaultConfig().RequestsPerMinute
	}

	s := &Server{
		finance:         deps.Finance,
		users:           deps.Users,
		sessions:        deps.Sessions,
		store:           deps.Store,
		summary:         deps.SummaryCache,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: rpm}),
		traceMiddleware: trace.NewMiddleware(logger, security.ClientIP),
		logger:          logger.WithComponent(log.ComponentHTTP),
		started:         time.Now(),
	}
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
	r.Use(s.traceMiddleware.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	limited := s.rateLimiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "rate limit exceeded",
			log.FieldClientIP, security.ClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.With(limited).Post("/register", s.handleRegister)
		r.With(limited).Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/summary", s.handleSummary)
			r.Get("/series", s.handleSeries)
			r.Get("/incomes", s.handleListIncomes)
			r.Get("/expenses", s.handleListExpenses)
			r.Get("/categories/suggest", s.handleSuggestCategory)
			r.Get("/budgets", s.handleListBudgets)
			r.Get("/export.csv", s.handleExportCSV)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(limited)
				r.Post("/incomes", s.handleCreateIncome)
				r.Post("/expenses", s.handleCreateExpense)
				r.Put("/budgets/{category}", s.handleSetBudget)
				r.Delete("/budgets/{category}", s.handleDeleteBudget)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	return r
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.Server.Shutdown(ctx)
	s.rateLimiter.Stop()
	return err
}
