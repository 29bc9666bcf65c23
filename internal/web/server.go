// Package web provides the JSON HTTP API over the session service.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/ledgerprep/internal/config"
	"github.com/JonMunkholm/ledgerprep/internal/core"
	"github.com/JonMunkholm/ledgerprep/internal/web/middleware"
)

// Server is the HTTP server for the ledgerprep API.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	metrics  http.Handler
	validate *validator.Validate
	router   *chi.Mux
	server   *http.Server

	limiters []*rateLimiter
}

// NewServer creates a new Server instance. metrics may be nil, in which case
// /metrics is not mounted.
func NewServer(service *core.Service, cfg *config.Config, metrics http.Handler) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		metrics:  metrics,
		validate: newValidator(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	general := s.rateLimit(s.cfg.Rate.RequestsPerMinute)
	upload := s.rateLimit(s.cfg.Rate.UploadLimit)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(general)

		r.Get("/status", s.handleStatus)
		r.Get("/profiles", s.handleListProfiles)
		r.Get("/profiles/{key}", s.handleGetProfile)

		// Sessions
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/load", s.handleLoad)
			r.With(upload).Post("/upload", s.handleUpload)

			// Views
			r.Get("/table", s.handleTable)
			r.Get("/export", s.handleExport)

			// Edits
			r.Post("/cells", s.handleEditCell)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/reset", s.handleReset)
			r.Post("/columns/move", s.handleMoveColumn)

			// Pipeline
			r.Get("/pipeline", s.handleGetPipeline)
			r.Put("/pipeline", s.handleSetPipeline)
			r.Post("/pipeline/run", s.handleRunPipeline)
			r.Post("/pipeline/steps", s.handleAddStep)
			r.Put("/pipeline/steps/{index}", s.handleUpdateStep)
			r.Delete("/pipeline/steps/{index}", s.handleRemoveStep)
			r.Post("/pipeline/steps/{index}/move", s.handleMoveStep)
			r.Post("/pipeline/steps/{index}/enabled", s.handleEnableStep)

			// Recipes
			r.Get("/recipe", s.handleExportRecipe)
			r.With(upload).Post("/recipe/import", s.handleImportRecipe)
			r.Post("/recipe/save", s.handleSaveRecipe)
			r.Post("/recipes/{recipeID}/apply", s.handleApplyRecipe)
			r.Post("/profiles/{key}/apply", s.handleApplyProfile)

			// Analysis
			r.Get("/classify", s.handleClassify)
			r.Get("/scan/suggest", s.handleSuggestScan)
			r.Post("/scan", s.handleScan)
			r.Post("/scan/export", s.handleScanExport)
			r.Get("/reconcile/suggest", s.handleSuggestReconcile)
			r.Get("/readiness", s.handleReadiness)
		})

		// Stored recipes
		r.Get("/recipes", s.handleListRecipes)
		r.Get("/recipes/{recipeID}", s.handleGetRecipe)
		r.Delete("/recipes/{recipeID}", s.handleDeleteRecipe)

		// Reconciliation
		r.Post("/reconcile", s.handleReconcile)
		r.Post("/reconcile/export", s.handleReconcileExport)
	})
}

// rateLimit returns per-IP limiting middleware, or a pass-through when rate
// limiting is disabled.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl.middleware
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiters()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) stopLimiters() {
	for _, rl := range s.limiters {
		rl.stop()
	}
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window

	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stopped.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1,
			lastReset: time.Now(),
		}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
				Action:  "Wait a minute and try again",
				Code:    "RATE002",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
