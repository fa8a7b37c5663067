// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mintlabs/mintguard/internal/config"
	"github.com/mintlabs/mintguard/internal/health"
	"github.com/mintlabs/mintguard/internal/logging"
	"github.com/mintlabs/mintguard/internal/metrics"
	"github.com/mintlabs/mintguard/internal/ratelimit"
	"github.com/mintlabs/mintguard/internal/realtime"
	"github.com/mintlabs/mintguard/internal/scan"
	"github.com/mintlabs/mintguard/internal/traces"
	"github.com/mintlabs/mintguard/internal/upstream"
	"github.com/mintlabs/mintguard/internal/validation"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	scans        *scan.Service
	limiter      *ratelimit.Limiter
	feedHub      *realtime.Hub
	healthReg    *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	traceShutdown func(context.Context) error

	// testClients overrides the configured providers when set (testing only).
	testClients []upstream.Client

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClients overrides the upstream provider clients (for testing)
func WithClients(clients []upstream.Client) Option {
	return func(s *Server) {
		s.testClients = clients
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
	}

	// Apply options first (may set logger or test clients)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Tracing (no-op when OTLP endpoint is not configured)
	shutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.traceShutdown = shutdown

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var auditStore scan.Store
	var counterStore ratelimit.CounterStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		pgScans := scan.NewPostgresStore(db)
		if err := pgScans.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate scan store", "error", err)
		}
		auditStore = pgScans

		pgCounters := ratelimit.NewPostgresStore(db)
		if err := pgCounters.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate ratelimit store", "error", err)
		}
		counterStore = pgCounters
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		auditStore = scan.NewMemoryStore()
		counterStore = ratelimit.NewMemoryStore()
	}

	// Rate limiter shared by all scan routes
	s.limiter = ratelimit.New(counterStore,
		ratelimit.WithMax(cfg.RateLimitMax),
		ratelimit.WithWindow(cfg.RateLimitWindow),
		ratelimit.WithLogger(s.logger),
	)

	// Live scan feed
	s.feedHub = realtime.NewHub(s.logger)

	// Upstream fan-out and the evaluation pipeline
	clients := s.testClients
	if clients == nil {
		clients = upstream.DefaultClients(cfg)
	}
	aggregator := upstream.NewAggregator(clients,
		upstream.WithSourceTimeout(cfg.SourceTimeout),
		upstream.WithPrimaryAffectsDegraded(cfg.PrimaryAffectsDegraded),
		upstream.WithLogger(s.logger),
	)
	s.scans = scan.NewService(aggregator, auditStore,
		scan.WithFeed(s.feedHub),
		scan.WithLogger(s.logger),
	)

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", health.DatabaseChecker(s.db))
	}
	s.healthReg.Register("rugcheck", health.ProviderChecker("rugcheck", cfg.RugcheckURL))
	s.healthReg.Register("birdeye", health.ProviderChecker("birdeye", cfg.BirdeyeURL))
	s.healthReg.Register("dexscreener", health.ProviderChecker("dexscreener", cfg.DexscreenerURL))
	s.healthReg.Register("helius", health.ProviderChecker("helius", cfg.HeliusURL))

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Prometheus metrics
	s.router.Use(metrics.GinMiddleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/healthz", s.livenessHandler)
	s.router.GET("/readyz", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())
	s.router.GET("/api", s.infoHandler)

	// WebSocket feed of completed scans
	s.router.GET("/ws/feed", func(c *gin.Context) {
		s.feedHub.HandleWebSocket(c.Writer, c.Request)
	})

	// Scan API, rate limited per caller
	v1 := s.router.Group("/api/v1")
	v1.Use(s.limiter.Middleware())
	{
		v1.POST("/scan", s.scanHandler)
		v1.GET("/scan/:mint", s.scanByMintHandler)
		v1.GET("/scans", s.historyHandler)
	}
}

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start feed hub
	go s.feedHub.Run(runCtx)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
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
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (feed hub)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	if s.traceShutdown != nil {
		if err := s.traceShutdown(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Scans returns the evaluation pipeline (used by the MCP server).
func (s *Server) Scans() *scan.Service {
	return s.scans
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
