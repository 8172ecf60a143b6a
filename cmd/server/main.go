package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/metrics"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/server"
	"github.com/jathurchan/namereg/types"
)

const (
	AppName    = "NameReg Server"
	AppVersion = "v1.0.0"
	AppDesc    = "Commit-reveal name registry with escrowed bonds on an append-only ledger"
)

// Journal backends.
const (
	JournalMemory = "memory"
	JournalFile   = "file"
	JournalSQLite = "sqlite"
)

const (
	fileJournalName   = "ledger.journal"
	sqliteJournalName = "ledger.db"
	snapshotName      = "ledger.snapshot"
)

// AppConfig is the complete server process configuration. Environment
// variables are read first; command-line flags override them.
type AppConfig struct {
	ListenAddress  string `env:"NAMEREG_LISTEN"`
	MetricsAddress string `env:"NAMEREG_METRICS_LISTEN"`

	Journal    string `env:"NAMEREG_JOURNAL"`
	DataDir    string `env:"NAMEREG_DATA_DIR"`
	SyncWrites bool   `env:"NAMEREG_SYNC_WRITES"`

	SnapshotEvery int `env:"NAMEREG_SNAPSHOT_EVERY"`

	LockAmount       uint64        `env:"NAMEREG_LOCK_AMOUNT"`
	LockPeriod       time.Duration `env:"NAMEREG_LOCK_PERIOD"`
	MinCommitmentAge time.Duration `env:"NAMEREG_MIN_COMMITMENT_AGE"`
	MaxCommitmentAge time.Duration `env:"NAMEREG_MAX_COMMITMENT_AGE"`
	AllowDeposits    bool          `env:"NAMEREG_ALLOW_DEPOSITS"`

	TickInterval    time.Duration `env:"NAMEREG_TICK_INTERVAL"`
	RequestTimeout  time.Duration `env:"NAMEREG_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"NAMEREG_SHUTDOWN_TIMEOUT"`

	EnableRateLimit bool `env:"NAMEREG_RATE_LIMIT"`
	RateLimit       int  `env:"NAMEREG_RATE_LIMIT_RPS"`
	RateLimitBurst  int  `env:"NAMEREG_RATE_LIMIT_BURST"`

	LogLevel    string `env:"NAMEREG_LOG_LEVEL"`
	ShowVersion bool
}

func defaultAppConfig() AppConfig {
	srv := server.DefaultServerConfig()
	reg := registry.DefaultRegistryConfig()
	return AppConfig{
		ListenAddress:    srv.ListenAddress,
		MetricsAddress:   "0.0.0.0:9420",
		Journal:          JournalFile,
		DataDir:          "./data",
		SyncWrites:       true,
		SnapshotEvery:    1000,
		LockAmount:       uint64(reg.LockAmount),
		LockPeriod:       reg.LockPeriod,
		MinCommitmentAge: reg.MinCommitmentAge,
		MaxCommitmentAge: reg.MaxCommitmentAge,
		TickInterval:     srv.TickInterval,
		RequestTimeout:   srv.RequestTimeout,
		ShutdownTimeout:  srv.ShutdownTimeout,
		RateLimit:        srv.RateLimit,
		RateLimitBurst:   srv.RateLimitBurst,
		LogLevel:         "info",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// run parses configuration, serves until ctx is done, then shuts down.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("namereg-server", flag.ContinueOnError)
	cfg, err := parseAndValidateFlags(fs, args)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "%s %s\n%s\n", AppName, AppVersion, AppDesc)
		return nil
	}

	log := createLogger(cfg.LogLevel)
	promReg := prometheus.NewRegistry()
	m := newMetrics(promReg)

	l, err := buildLedger(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			log.Errorw("failed to close ledger", "error", err)
		}
	}()

	srv, err := buildServer(cfg, l, log, m)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	log.Infow("server started", "address", srv.Addr(), "journal", cfg.Journal, "lastIndex", l.LastIndex())

	var metricsSrv *http.Server
	if cfg.MetricsAddress != "" {
		metricsSrv, err = startMetricsServer(cfg.MetricsAddress, promReg, log)
		if err != nil {
			_ = srv.Stop(context.Background())
			return err
		}
	}

	<-ctx.Done()
	log.Infow("shutdown signal received")
	return gracefulShutdown(srv, metricsSrv, cfg.ShutdownTimeout, log)
}

// parseAndValidateFlags loads environment variables into the defaults and
// then applies command-line flags on top.
func parseAndValidateFlags(fs *flag.FlagSet, args []string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.ListenAddress, "listen", cfg.ListenAddress, "gRPC listen address")
	fs.StringVar(&cfg.MetricsAddress, "metrics-listen", cfg.MetricsAddress, "Prometheus /metrics address (empty disables)")
	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "journal backend: memory, file or sqlite")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for file and sqlite journals")
	fs.BoolVar(&cfg.SyncWrites, "sync", cfg.SyncWrites, "fsync the file journal on every append")
	fs.IntVar(&cfg.SnapshotEvery, "snapshot-every", cfg.SnapshotEvery, "write a ledger snapshot every N entries (0 snapshots on shutdown only)")
	fs.Uint64Var(&cfg.LockAmount, "lock-amount", cfg.LockAmount, "bond escrowed per registration, in gwei")
	fs.DurationVar(&cfg.LockPeriod, "lock-period", cfg.LockPeriod, "duration granted by a registration or renewal")
	fs.DurationVar(&cfg.MinCommitmentAge, "min-commitment-age", cfg.MinCommitmentAge, "earliest reveal after commit")
	fs.DurationVar(&cfg.MaxCommitmentAge, "max-commitment-age", cfg.MaxCommitmentAge, "latest reveal after commit")
	fs.BoolVar(&cfg.AllowDeposits, "allow-deposits", cfg.AllowDeposits, "enable the Deposit RPC (development only)")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "registry maintenance interval (0 disables)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-request timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	fs.BoolVar(&cfg.EnableRateLimit, "rate-limit", cfg.EnableRateLimit, "enable per-account rate limiting")
	fs.IntVar(&cfg.RateLimit, "rate-limit-rps", cfg.RateLimit, "requests per second per account")
	fs.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", cfg.RateLimitBurst, "rate limiter burst")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return &cfg, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.ListenAddress == "" {
		return errors.New("--listen is required")
	}
	switch c.Journal {
	case JournalMemory:
	case JournalFile, JournalSQLite:
		if c.DataDir == "" {
			return fmt.Errorf("--data-dir is required for the %s journal", c.Journal)
		}
	default:
		return fmt.Errorf("unknown --journal %q (want memory, file or sqlite)", c.Journal)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("--shutdown-timeout must be positive")
	}
	if c.TickInterval < 0 {
		return errors.New("--tick-interval cannot be negative")
	}
	if c.SnapshotEvery < 0 {
		return errors.New("--snapshot-every cannot be negative")
	}
	return nil
}

func createLogger(level string) logger.Logger {
	return logger.NewStdLogger(level).With("app", "namereg")
}

// newMetrics registers the registry, ledger and server collectors plus the
// Go runtime and process collectors on reg.
func newMetrics(reg *prometheus.Registry) *metrics.Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg)
}

// openJournal opens the configured journal backend.
func openJournal(ctx context.Context, cfg *AppConfig, log logger.Logger) (ledger.Journal, error) {
	switch cfg.Journal {
	case JournalMemory:
		log.Warnw("using in-memory journal; state is lost on exit")
		return ledger.NewMemoryJournal(), nil
	case JournalFile:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return ledger.OpenFileJournal(filepath.Join(cfg.DataDir, fileJournalName), cfg.SyncWrites, log)
	case JournalSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return ledger.OpenSQLiteJournal(ctx, filepath.Join(cfg.DataDir, sqliteJournalName), log)
	}
	return nil, fmt.Errorf("unknown journal backend %q", cfg.Journal)
}

// buildLedger constructs the registry and replays the journal into a ledger.
func buildLedger(ctx context.Context, cfg *AppConfig, log logger.Logger, m *metrics.Metrics) (*ledger.Ledger, error) {
	reg, err := registry.NewRegistry(
		registry.WithLockAmount(types.Amount(cfg.LockAmount)),
		registry.WithLockPeriod(cfg.LockPeriod),
		registry.WithCommitmentAge(cfg.MinCommitmentAge, cfg.MaxCommitmentAge),
		registry.WithLogger(log),
		registry.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	journal, err := openJournal(ctx, cfg, log)
	if err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	opts := []ledger.Option{
		ledger.WithJournal(journal),
		ledger.WithDeposits(cfg.AllowDeposits),
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
	}
	if cfg.Journal != JournalMemory {
		opts = append(opts, ledger.WithSnapshots(filepath.Join(cfg.DataDir, snapshotName), cfg.SnapshotEvery))
	}
	l, err := ledger.New(ctx, reg, opts...)
	if err != nil {
		_ = journal.Close()
		_ = reg.Close()
		return nil, fmt.Errorf("failed to replay ledger: %w", err)
	}
	if err := l.Audit(); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("ledger failed audit after replay: %w", err)
	}
	return l, nil
}

func buildServer(cfg *AppConfig, l server.Ledger, log logger.Logger, m server.ServerMetrics) (server.RegistryServer, error) {
	return server.NewRegistryServerBuilder().
		WithLedger(l).
		WithListenAddress(cfg.ListenAddress).
		WithTimeouts(cfg.RequestTimeout, cfg.ShutdownTimeout).
		WithRateLimit(cfg.EnableRateLimit, cfg.RateLimit, cfg.RateLimitBurst, time.Second).
		WithTickInterval(cfg.TickInterval).
		WithDeposits(cfg.AllowDeposits).
		WithLogger(log).
		WithMetrics(m).
		Build()
}

// startMetricsServer serves reg on /metrics in the background.
func startMetricsServer(addr string, reg *prometheus.Registry, log logger.Logger) (*http.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: metricsHandler(reg), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	log.Infow("metrics server started", "address", lis.Addr().String())
	return srv, nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// gracefulShutdown stops the gRPC server and the metrics endpoint within timeout.
func gracefulShutdown(srv server.RegistryServer, metricsSrv *http.Server, timeout time.Duration, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := srv.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Errorw("shutdown finished with errors", "error", err)
		return err
	}
	log.Infow("shutdown complete")
	return nil
}
