// Package server wires configuration, persistence, the spending-guard session and the
// HTTP API into one runnable process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spending-guard/internal/config"
	"spending-guard/internal/database"
	"spending-guard/internal/handlers"
	"spending-guard/internal/middleware"
	"spending-guard/internal/realtime"
	"spending-guard/internal/repositories"
	"spending-guard/internal/services"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Server is the spending-guard HTTP server
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *database.DB
	registry *prometheus.Registry

	echo    *echo.Echo
	session *services.Session
	hub     *realtime.Hub
	limiter *middleware.RateLimiter
	httpSrv *http.Server

	cancelRunCtx context.CancelFunc
	unsubscribe  func()
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDatabase persists transactions and preferences through db. Without it the
// session is purely in-memory.
func WithDatabase(db *database.DB) Option {
	return func(s *Server) {
		s.db = db
	}
}

// WithRegistry sets the registry application metrics are registered on
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a server with all dependencies wired
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	var stores services.SessionStores
	var gormDB *gorm.DB
	if s.db != nil {
		gormDB = s.db.DB
		stores.Transactions = repositories.NewTransactionRepository(gormDB)
		stores.Preferences = repositories.NewPreferenceRepository(gormDB)
	}

	s.hub = realtime.NewHub(s.logger, s.registry)
	s.session = services.NewSession(cfg, stores, services.NewPrometheusMetrics(s.registry), s.logger,
		s.hub,
		services.NewLogSink(s.logger),
	)
	s.unsubscribe = s.session.Geofences.Subscribe(s.hub.BroadcastGeofenceEvent)
	s.session.Insights.OnInsight(s.hub.BroadcastInsight)
	s.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	s.setupRoutes(gormDB)
	return s, nil
}

func (s *Server) setupRoutes(gormDB *gorm.DB) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = s.cfg.IsDevelopment()
	e.HTTPErrorHandler = middleware.CustomHTTPErrorHandler
	e.Validator = handlers.NewValidator()

	e.Use(middleware.RequestID())
	e.Use(middleware.PanicRecovery(s.logger))
	e.Use(middleware.RequestLogger(s.logger))
	e.Use(middleware.RequestMetrics(s.registry))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  s.cfg.Server.CORSAllowOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.TraceIDHeader},
		ExposeHeaders: []string{middleware.TraceIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	health := handlers.NewHealthCheckHandler(gormDB, s.session, s.hub)
	e.GET("/health", health.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
		prometheus.Gatherers{s.registry, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	)))
	e.GET("/ws", echo.WrapHandler(http.HandlerFunc(s.hub.HandleWebSocket)))

	v1 := e.Group("/api/v1", s.limiter.Middleware())

	transactions := handlers.NewTransactionHandler(s.session)
	v1.POST("/transactions", transactions.CreateTransaction)
	v1.GET("/transactions", transactions.ListTransactions)
	v1.GET("/transactions/summary", transactions.GetSummary)
	v1.GET("/transactions/:id", transactions.GetTransaction)

	patterns := handlers.NewPatternHandler(s.session.Patterns)
	v1.GET("/patterns", patterns.ListPatterns)
	v1.GET("/patterns/:merchant", patterns.GetPattern)

	risk := handlers.NewRiskHandler(s.session)
	v1.POST("/risk/assess", risk.AssessRisk)

	prefs := handlers.NewPreferencesHandler(s.session.Preferences)
	v1.GET("/preferences", prefs.GetPreferences)
	v1.PUT("/preferences", prefs.UpdatePreferences)

	geofences := handlers.NewGeofenceHandler(s.session)
	v1.GET("/geofences", geofences.ListGeofences)
	v1.POST("/geofences", geofences.CreateGeofence)
	v1.GET("/geofences/events", geofences.ListEvents)
	v1.DELETE("/geofences/:id", geofences.DeleteGeofence)
	v1.GET("/location", geofences.TrackingStatus)
	v1.POST("/location", geofences.PushLocation)
	v1.POST("/location/simulate", geofences.SimulateLocation)
	v1.POST("/location/tracking/start", geofences.StartTracking)
	v1.POST("/location/tracking/stop", geofences.StopTracking)

	insights := handlers.NewInsightHandler(s.session)
	v1.GET("/insights", insights.ListInsights)
	v1.POST("/insights/scan", insights.ScanInsights)
	v1.GET("/predictions/weekly", insights.WeeklyForecast)

	s.echo = e
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Session() *services.Session {
	return s.session
}

// Run restores persisted state, starts background work and serves HTTP until ctx is
// cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.session.Init(runCtx)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.echo,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"address", s.httpSrv.Addr,
			"environment", s.cfg.Server.Environment,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.hub.Run(runCtx)
	go s.limiter.RunCleanup(runCtx)

	if err := s.session.Start(runCtx); err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to start session: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		_ = s.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")

	var shutdownErr error
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("http shutdown: %w", err)
		}
	}

	s.session.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	s.logger.Info("server stopped")
	return shutdownErr
}
