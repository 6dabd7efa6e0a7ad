// Package web provides the HTTP server and handlers for multipart uploads.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/formstage/internal/config"
	"github.com/JonMunkholm/formstage/internal/form"
	"github.com/JonMunkholm/formstage/internal/limiter"
	mw "github.com/JonMunkholm/formstage/internal/web/middleware"
)

// Deps are the collaborators the server is built from.
type Deps struct {
	Config  *config.Config
	Limiter *limiter.Limiter

	// Observer receives form lifecycle events (metrics, journal).
	Observer form.Observer

	// Metrics serves the metrics endpoint; nil leaves it unmounted.
	Metrics http.Handler

	Logger *slog.Logger
}

// Server is the HTTP server for the upload service.
type Server struct {
	cfg      *config.Config
	limiter  *limiter.Limiter
	observer form.Observer
	metrics  http.Handler
	logger   *slog.Logger
	opts     form.ParseOptions

	router *chi.Mux
	server *http.Server
	rates  []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(d Deps) *Server {
	if d.Limiter == nil {
		d.Limiter = limiter.New(d.Config.Upload.MaxConcurrent, d.Config.Upload.MaxWaitTime)
	}
	if d.Observer == nil {
		d.Observer = form.NopObserver{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	s := &Server{
		cfg:      d.Config,
		limiter:  d.Limiter,
		observer: d.Observer,
		metrics:  d.Metrics,
		logger:   d.Logger,
		opts:     d.Config.ParseOptions(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Method(http.MethodGet, s.cfg.Metrics.Path, s.metrics)
	}

	s.router.Route("/api/upload", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		if s.cfg.Rate.Enabled {
			r.Use(s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware)
		}
		r.Use(s.throttle)

		r.Post("/", s.handleUpload)
		r.Post("/stream", s.handleUploadStream)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections, waits for in-flight parses to
// release their slots and stops the rate limiter sweeps.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.rates {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// throttle holds a parse slot for the duration of the request.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.limiter.Acquire(r.Context()); err != nil {
			s.respondError(w, r, err)
			return
		}
		defer s.limiter.Release()

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		requestLogger(r).Error("json encode error", "error", err)
	}
}
