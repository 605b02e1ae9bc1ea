// Package web provides the HTTP API for file imports, the summary report and
// deposit reconciliation.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brokerops/backoffice/internal/config"
	"github.com/brokerops/backoffice/internal/ingest"
	"github.com/brokerops/backoffice/internal/reconcile"
	"github.com/brokerops/backoffice/internal/report"
)

// Server is the HTTP server for the back-office API.
type Server struct {
	ingester    *ingest.Service
	aggregator  *report.Aggregator
	matcher     *reconcile.Matcher
	maxFileSize int64

	router *chi.Mux
	server *http.Server
}

func NewServer(ingester *ingest.Service, aggregator *report.Aggregator, matcher *reconcile.Matcher, cfg config.IngestConfig) *Server {
	s := &Server{
		ingester:    ingester,
		aggregator:  aggregator,
		matcher:     matcher,
		maxFileSize: cfg.MaxFileSize,
		router:      chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(10 * time.Minute))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/owners/{ownerID}", func(r chi.Router) {
		r.Post("/imports/{recordType}", s.handleImport)
		r.Get("/report", s.handleReport)
		r.Get("/reconciliation", s.handleReconciliation)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(cfg config.ServerConfig) error {
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
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
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
