// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	analyticshandlers "github.com/SzymonLiszewski/investfolio/internal/modules/analytics/handlers"
	bondhandlers "github.com/SzymonLiszewski/investfolio/internal/modules/bonds/handlers"
	currencyhandlers "github.com/SzymonLiszewski/investfolio/internal/modules/currency/handlers"
	economichandlers "github.com/SzymonLiszewski/investfolio/internal/modules/economic/handlers"
	portfoliohandlers "github.com/SzymonLiszewski/investfolio/internal/modules/portfolio/handlers"
	transactionhandlers "github.com/SzymonLiszewski/investfolio/internal/modules/transactions/handlers"
)

// Config holds the server wiring
type Config struct {
	Port    int
	DevMode bool
	Log     zerolog.Logger

	Portfolio    *portfoliohandlers.Handler
	Transactions *transactionhandlers.Handler
	Bonds        *bondhandlers.Handler
	Currency     *currencyhandlers.Handler
	Economic     *economichandlers.Handler
	Analytics    *analyticshandlers.Handler
	System       *SystemHandlers
}

// Server is the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", cfg.System.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		cfg.Portfolio.RegisterRoutes(r)
		cfg.Transactions.RegisterRoutes(r)
		cfg.Bonds.RegisterRoutes(r)
		cfg.Currency.RegisterRoutes(r)
		cfg.Economic.RegisterRoutes(r)
		cfg.Analytics.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", cfg.System.HandleSystemStatus)
			r.Get("/databases", cfg.System.HandleDatabaseStats)
			r.Post("/jobs/{name}/run", cfg.System.HandleTriggerJob)
		})
	})
}

// loggingMiddleware logs each request with duration and status
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// Start begins serving. It blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("HTTP server stopping")
	return s.server.Shutdown(ctx)
}
