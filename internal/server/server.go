// Package server provides the HTTP server and routing for investlog.
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

	"github.com/aristath/investlog/internal/config"
	"github.com/aristath/investlog/internal/di"
	chartshandlers "github.com/aristath/investlog/internal/modules/charts/handlers"
	ledgerhandlers "github.com/aristath/investlog/internal/modules/ledger/handlers"
	priceshandlers "github.com/aristath/investlog/internal/modules/prices/handlers"
	profithandlers "github.com/aristath/investlog/internal/modules/profit/handlers"
	snapshotshandlers "github.com/aristath/investlog/internal/modules/snapshots/handlers"
	"github.com/aristath/investlog/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	Container *di.Container    // DI container with all services
	Jobs      *di.JobInstances // Optional, enables on-demand refresh and job triggers
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	jobs           *di.JobInstances
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Container.Databases(),
		cfg.Container.LedgerRepo,
		cfg.Container.QuoteFetcher.Providers(),
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		port:           cfg.Port,
		container:      cfg.Container,
		jobs:           cfg.Jobs,
		systemHandlers: systemHandlers,
	}

	if cfg.Jobs != nil {
		systemHandlers.SetJobs(jobList(cfg.Jobs)...)
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// Recalculations run inside the request, so writes get a long timeout.
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// jobList returns the registered jobs that may be triggered by hand
func jobList(jobs *di.JobInstances) []scheduler.Job {
	list := []scheduler.Job{
		jobs.DailyRefresh,
		jobs.WALCheckpoints,
		jobs.CoreDatabases,
		jobs.DailyMaintenance,
		jobs.ClientDataCleanup,
	}
	if jobs.Backup != nil {
		list = append(list, jobs.Backup)
	}
	return list
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	c := s.container

	// Load balancer probe
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.systemHandlers.HandleHealth)

		r.Route("/system", func(r chi.Router) {
			r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
			r.Get("/jobs", s.systemHandlers.HandleListJobs)
			r.Post("/jobs/{name}", func(w http.ResponseWriter, r *http.Request) {
				s.systemHandlers.HandleTriggerJob(w, r, chi.URLParam(r, "name"))
			})
		})

		// Short requests get a timeout; recalculation and bulk refreshes
		// can legitimately run for minutes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			ledgerhandlers.NewHandler(c.LedgerRepo, c.Aggregator, c.ConversionService, s.log).RegisterRoutes(r)
			snapshotshandlers.NewHandler(c.SnapshotRepo, s.log).RegisterRoutes(r)
			chartshandlers.NewHandler(c.ChartsService, c.PriceCache.Now, s.cfg.Valuation.RecalcStartDate, s.log).RegisterRoutes(r)
		})

		var refresher priceshandlers.DailyRefresher
		if s.jobs != nil {
			refresher = s.jobs.DailyRefresh
		}
		priceshandlers.NewHandler(c.PriceService, refresher, priceshandlers.Config{
			BatchRetries:     s.cfg.Quotes.BatchRetries,
			InteractiveDelay: s.cfg.Quotes.InteractiveDelay,
		}, s.log).RegisterRoutes(r)

		profithandlers.NewHandler(profithandlers.Dependencies{
			Records:      c.ProfitRepo,
			Calculator:   c.Calculator,
			Recalculator: c.Recalculator,
			Rollup:       c.Rollup,
			Charts:       c.ChartsService,
			Converter:    c.ConversionService,
			Today:        c.Today,
			Since:        s.cfg.Valuation.RecalcStartDate,
		}, s.log).RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
