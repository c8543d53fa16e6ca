// Package server exposes the farm risk dashboard over HTTP and websocket.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/config"
	"greenorbit/internal/database"
	"greenorbit/internal/metrics"
	"greenorbit/internal/models"
	"greenorbit/internal/realtime"
)

// HistorySource synthesizes a daily series for farms with no stored readings
type HistorySource interface {
	Historical(days int) []models.HistoricalPoint
}

// Options carries the HTTP settings of the server
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	StaticDir   string
	// OnlineWindow is how recent a farm's latest reading must be to count its sensor as online
	OnlineWindow time.Duration
}

// OptionsFromConfig derives server options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		JWTSecret:    cfg.Server.JWTSecret,
		CORSOrigins:  cfg.Server.CORSOrigins,
		StaticDir:    cfg.Server.StaticDir,
		OnlineWindow: 3 * cfg.Realtime.Interval,
	}
}

// Server represents the HTTP server
type Server struct {
	store   database.Store
	sampler realtime.Sampler
	history HistorySource
	hub     *realtime.Hub
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
	router  chi.Router
}

// NewServer creates a new HTTP server
func NewServer(store database.Store, sampler realtime.Sampler, history HistorySource, hub *realtime.Hub, opts Options, logger *zap.Logger) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, eris.New("server: jwt secret cannot be empty")
	}
	if opts.OnlineWindow <= 0 {
		opts.OnlineWindow = 30 * time.Second
	}
	s := &Server{
		store:   store,
		sampler: sampler,
		history: history,
		hub:     hub,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler with every route mounted
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.recordMetrics)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		r.Handle("/ws", s.hub.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)

		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/logout", s.handleLogout)

		api.Get("/farms", s.handleListFarms)
		api.Get("/farms/{farmId}", s.handleGetFarm)
		api.Get("/farms/{farmId}/assessment", s.handleFarmAssessment)
		api.Post("/assess", s.handleAssess)

		api.Get("/alerts", s.handleListAlerts)
		api.Get("/alerts/{farmId}", s.handleFarmAlerts)

		api.Get("/historical-data/{farmId}", s.handleHistoricalData)

		api.Get("/farmer-feedback", s.handleListFeedback)
		api.Post("/farmer-feedback", s.handleCreateFeedback)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(s.requireRole(models.RoleAdmin))
			admin.Get("/stats", s.handleStats)
			admin.Get("/feature-importance", s.handleFeatureImportance)
			admin.Get("/reports/farms.xlsx", s.handleFarmsReport)
		})

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})

	r.NotFound(s.spa())
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	body := map[string]any{
		"status":    "healthy",
		"timestamp": now,
		"uptime":    now.Sub(metrics.StartedAt()).Seconds(),
	}
	if s.hub != nil {
		body["websocketClients"] = s.hub.Clients()
	}
	writeJSON(w, http.StatusOK, body)
}
