// Package api is the HTTP control surface: thin adapters that decode wire
// requests into Dispatcher and Registry calls and encode the results back.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Atiyakh/dyright/internal/dispatch"
	"github.com/Atiyakh/dyright/internal/history"
	"github.com/Atiyakh/dyright/internal/script"
)

// Dispatcher executes one inspection request.
type Dispatcher interface {
	Execute(ctx context.Context, req dispatch.Request) dispatch.Response
}

// ScriptRegistry defines the registry operations the API exposes.
type ScriptRegistry interface {
	Register(typeName, scriptPath string) bool
	Reload(typeName string) bool
	Entries() []*script.Entry
}

// HistoryStore records and lists completed inspections.
type HistoryStore interface {
	Record(ctx context.Context, typeName string, resp dispatch.Response) error
	Recent(ctx context.Context, n int) ([]history.Record, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is an optional bearer token guarding mutating routes.
	APIKey string
	// Workers is reported by the health endpoint.
	Workers int
	// ShutdownDelay is how long POST /shutdown waits before stopping the
	// control loop.
	ShutdownDelay time.Duration
}

// Server represents the HTTP control surface.
type Server struct {
	config     Config
	dispatcher Dispatcher
	registry   ScriptRegistry
	// history is optional; nil disables /history and recording.
	history   HistoryStore
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
	// requestStop triggers the delayed graceful stop; wired by main to the
	// root context's cancel.
	requestStop func()
}

// New creates a control surface server. stop is invoked (after the
// configured delay) when a shutdown request arrives.
func New(config Config, d Dispatcher, reg ScriptRegistry, hist HistoryStore, logger *slog.Logger, stop func()) *Server {
	if config.ShutdownDelay <= 0 {
		config.ShutdownDelay = 500 * time.Millisecond
	}
	if stop == nil {
		stop = func() {}
	}
	return &Server{
		config:      config,
		dispatcher:  d,
		registry:    reg,
		history:     hist,
		logger:      logger,
		startedAt:   time.Now(),
		requestStop: stop,
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("inspection server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("inspection server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/inspect", s.handleInspect)
	r.Get("/types", s.handleTypes)
	r.Get("/history", s.handleHistory)

	// Mutating routes honor the optional bearer token.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/register", s.handleRegister)
		r.Post("/reload", s.handleReload)
		r.Post("/shutdown", s.handleShutdown)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// authMiddleware enforces the configured bearer token, if any.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.config.APIKey {
			s.writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
