package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/internal/graph"
	"github.com/dyike/StockPilot/internal/metrics"
	"github.com/dyike/StockPilot/internal/storage/sqlite"
	"github.com/dyike/StockPilot/models"
)

// Backend is the pipeline the API serves. app.Runtime implements it.
type Backend interface {
	Run(ctx context.Context, opts graph.RunOptions) (*models.Report, error)
	Rank(ctx context.Context, tickers []string, limit int) ([]models.RankingRecord, error)
	AnalyzeTicker(ctx context.Context, ticker string) (models.TickerResult, error)
	Filing(ctx context.Context, ticker string) (*models.FilingInfo, error)
	Runs(ctx context.Context, limit int) ([]sqlite.RunRecord, error)
	UpdateConfigJSON(jsonStr string) error
}

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	Backend Backend
	Metrics *metrics.Recorder
}

// Server serves the dashboard API.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	backend Backend
	metrics *metrics.Recorder
	port    int

	mu     sync.RWMutex
	latest *models.Report
}

func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		backend: cfg.Backend,
		metrics: cfg.Metrics,
		port:    cfg.Port,
	}

	s.setupMiddleware()
	s.setupRoutes()

	// no write timeout: a scan is bounded by the run timeout
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/report", s.handleLatestReport)
		r.Post("/scan", s.handleScan)
		r.Get("/rank", s.handleRank)
		r.Get("/tickers/{ticker}", s.handleTicker)
		r.Get("/filings/{ticker}", s.handleFiling)
		r.Get("/runs", s.handleRuns)
		r.Put("/config", s.handleUpdateConfig)
	})
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

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
