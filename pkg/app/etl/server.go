// Package etl implements app.Runner for the vault ETL process.
package etl

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chainsafe/vault-etl/internal/metrics"
	"github.com/chainsafe/vault-etl/pkg/app/httpserver"
	"github.com/chainsafe/vault-etl/pkg/config"
	"github.com/chainsafe/vault-etl/pkg/ethereum"
	"github.com/chainsafe/vault-etl/pkg/pgutil"
	"github.com/chainsafe/vault-etl/pkg/pipeline"
	"github.com/chainsafe/vault-etl/pkg/vault"
	"github.com/chainsafe/vault-etl/pkg/vaultstore"
)

const (
	defaultGracefulShutdownTimeout = 30 * time.Second
	defaultHTTPMiddlewareTimeout   = 60 * time.Second
	defaultHTTPReadTimeout         = 15 * time.Second
	defaultHTTPWriteTimeout        = 15 * time.Second
	defaultHTTPIdleTimeout         = 60 * time.Second
	defaultPushTimeout             = 10 * time.Second
)

// passRunner runs one ETL pass
type passRunner interface {
	Run(ctx context.Context) error
}

// Server holds configuration for the ETL process.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new ETL Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run executes a single pass, or keeps running passes on the configured schedule
// until an OS shutdown signal is received.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vault ETL",
		zap.Int("vaults", len(cfg.Vaults)),
		zap.Int("rpc_endpoints", len(cfg.RPCURLs)),
		zap.String("history_source", cfg.History.Source))

	db, err := pgutil.ConnectDB(ctx, &cfg.Database)
	if err != nil {
		dbErr := &vaultstore.DatabaseError{Op: "connect", Err: err}
		logger.Error("ETL failed", zap.Error(dbErr))
		return dbErr
	}
	defer func() { _ = db.Close() }()
	logger.Info("Database connection established", zap.String("database", cfg.Database.Database))

	p, err := newPipeline(cfg, vaultstore.NewStore(db), logger)
	if err != nil {
		return err
	}

	if cfg.Schedule == "" {
		return s.runOnce(ctx, p, logger)
	}
	return s.runScheduled(ctx, p, logger)
}

func newPipeline(cfg *config.Config, store vaultstore.Store, logger *zap.Logger) (*pipeline.Pipeline, error) {
	chain := ethereum.NewClient(cfg.RPCURLs, cfg.RPC, logger)

	extractor, err := vault.NewExtractor(chain, logger, vault.WithAssetVerification(cfg.VerifyAssets))
	if err != nil {
		return nil, fmt.Errorf("initialize extractor: %w", err)
	}

	var history vault.HistorySource
	switch cfg.History.Source {
	case config.HistorySourceArchive:
		history = vault.NewArchiveHistorySource(extractor, chain, cfg.History.BlockTime, logger)
	default:
		history = vault.NewSimulatedHistorySource(nil)
	}

	return pipeline.New(pipeline.Options{
		Chain:          chain,
		Extractor:      extractor,
		History:        history,
		Store:          store,
		Vaults:         vault.FromConfigs(cfg.Vaults),
		HoursBack:      cfg.LoadHistoryHours,
		SamplesPerHour: cfg.TimesInAnHour,
		Logger:         logger,
	}), nil
}

func (s *Server) runOnce(ctx context.Context, p passRunner, logger *zap.Logger) error {
	err := p.Run(ctx)

	if url := s.cfg.Monitoring.PushgatewayURL; url != "" {
		// push even when the pass failed so the failure counter is visible
		pushCtx, cancel := context.WithTimeout(context.Background(), defaultPushTimeout)
		defer cancel()
		if pushErr := metrics.Push(pushCtx, url, prometheus.DefaultGatherer); pushErr != nil {
			logger.Warn("Failed to push metrics", zap.Error(pushErr))
		} else {
			logger.Info("Metrics pushed", zap.String("url", url))
		}
	}
	return err
}

func (s *Server) runScheduled(ctx context.Context, p passRunner, logger *zap.Logger) error {
	cfg := s.cfg

	sched, err := newScheduler(cfg.Schedule, p, logger)
	if err != nil {
		return err
	}
	sched.start(ctx)
	defer sched.stop()

	router := newRouter(sched.isReady, cfg.Monitoring.Enabled, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Monitoring.Host, cfg.Monitoring.Port)

	return httpserver.ServeAndWait(ctx, logger, newHTTPServer(addr, router), defaultGracefulShutdownTimeout)
}

func newRouter(ready func() bool, metricsEnabled bool, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// ready once a pass has succeeded
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	return r
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  defaultHTTPReadTimeout,
		WriteTimeout: defaultHTTPWriteTimeout,
		IdleTimeout:  defaultHTTPIdleTimeout,
	}
}
