package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-commerce/kea/internal/classify"
	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/taxcheck"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, classifier *classify.Service, checker *taxcheck.Service, version string) *Server {
	handler := NewHandler(repo, cache, bus, classifier, checker, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no store required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (store required)
	router.Route("/", func(r chi.Router) {
		r.Use(StoreMiddleware)

		// Order classification
		r.Post("/classify", handler.Classify)

		// Standalone tax-id check
		r.Post("/taxid/check", handler.CheckTaxID)

		// Scheme metadata
		r.Get("/scheme", handler.GetScheme)

		// Store configuration
		r.Get("/config", handler.GetConfig)
		r.Put("/config", handler.UpdateConfig)

		// Host exchange rates
		r.Get("/rates/{currency}", handler.GetRate)
		r.Put("/rates/{currency}", handler.UpdateRate)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
