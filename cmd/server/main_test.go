package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/server"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

func parse(t *testing.T, args ...string) (*AppConfig, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseAndValidateFlags(fs, args)
}

func TestParseAndValidateFlags_Defaults(t *testing.T) {
	cfg, err := parse(t)
	testutil.RequireNoError(t, err)

	testutil.AssertEqual(t, server.DefaultListenAddress, cfg.ListenAddress)
	testutil.AssertEqual(t, JournalFile, cfg.Journal)
	testutil.AssertEqual(t, "./data", cfg.DataDir)
	testutil.AssertTrue(t, cfg.SyncWrites)
	testutil.AssertEqual(t, 1000, cfg.SnapshotEvery)
	testutil.AssertEqual(t, uint64(registry.DefaultLockAmount), cfg.LockAmount)
	testutil.AssertEqual(t, registry.DefaultLockPeriod, cfg.LockPeriod)
	testutil.AssertEqual(t, registry.DefaultMinCommitmentAge, cfg.MinCommitmentAge)
	testutil.AssertEqual(t, registry.DefaultMaxCommitmentAge, cfg.MaxCommitmentAge)
	testutil.AssertEqual(t, server.DefaultTickInterval, cfg.TickInterval)
	testutil.AssertFalse(t, cfg.AllowDeposits)
	testutil.AssertFalse(t, cfg.EnableRateLimit)
	testutil.AssertEqual(t, "info", cfg.LogLevel)
	testutil.AssertFalse(t, cfg.ShowVersion)
}

func TestParseAndValidateFlags_EnvThenFlags(t *testing.T) {
	t.Setenv("NAMEREG_JOURNAL", "sqlite")
	t.Setenv("NAMEREG_DATA_DIR", "/var/lib/namereg")
	t.Setenv("NAMEREG_MIN_COMMITMENT_AGE", "2m")
	t.Setenv("NAMEREG_ALLOW_DEPOSITS", "true")
	t.Setenv("NAMEREG_SNAPSHOT_EVERY", "50")

	cfg, err := parse(t, "--data-dir", "/srv/namereg", "--tick-interval", "30s", "--rate-limit", "--snapshot-every", "200")
	testutil.RequireNoError(t, err)

	testutil.AssertEqual(t, JournalSQLite, cfg.Journal, "from env")
	testutil.AssertEqual(t, 2*time.Minute, cfg.MinCommitmentAge, "from env")
	testutil.AssertTrue(t, cfg.AllowDeposits, "from env")
	testutil.AssertEqual(t, "/srv/namereg", cfg.DataDir, "flag overrides env")
	testutil.AssertEqual(t, 30*time.Second, cfg.TickInterval)
	testutil.AssertTrue(t, cfg.EnableRateLimit)
	testutil.AssertEqual(t, 200, cfg.SnapshotEvery, "flag overrides env")
}

func TestParseAndValidateFlags_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		errorMsg string
	}{
		{"empty listen", []string{"--listen", ""}, "--listen is required"},
		{"unknown journal", []string{"--journal", "postgres"}, "unknown --journal"},
		{"file journal without dir", []string{"--data-dir", ""}, "--data-dir is required"},
		{"zero shutdown timeout", []string{"--shutdown-timeout", "0s"}, "--shutdown-timeout"},
		{"negative tick", []string{"--tick-interval", "-1s"}, "--tick-interval"},
		{"negative snapshot interval", []string{"--snapshot-every", "-5"}, "--snapshot-every"},
		{"unknown flag", []string{"--node-id", "n1"}, "node-id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.args...)
			testutil.AssertError(t, err)
			testutil.AssertContains(t, err.Error(), tc.errorMsg)
		})
	}

	t.Run("memory journal needs no dir", func(t *testing.T) {
		_, err := parse(t, "--journal", "memory", "--data-dir", "")
		testutil.AssertNoError(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("NAMEREG_LOCK_PERIOD", "forever")
		_, err := parse(t)
		testutil.AssertError(t, err)
		testutil.AssertContains(t, err.Error(), "parse env")
	})
}

func TestParseAndValidateFlags_Version(t *testing.T) {
	cfg, err := parse(t, "--version", "--journal", "bogus")
	testutil.RequireNoError(t, err, "version skips validation")
	testutil.AssertTrue(t, cfg.ShowVersion)
}

func TestCreateLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "invalid"} {
		t.Run(level, func(t *testing.T) {
			log := createLogger(level)
			testutil.AssertNotNil(t, log)
			log.Debugw("test log message", "level", level)
		})
	}
}

func testConfig(t *testing.T, journal string) *AppConfig {
	t.Helper()
	cfg := defaultAppConfig()
	cfg.Journal = journal
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.MetricsAddress = ""
	cfg.AllowDeposits = true
	cfg.LogLevel = "error"
	return &cfg
}

func TestBuildLedger_Backends(t *testing.T) {
	const alice = types.Address("0xa11ce")

	for _, backend := range []string{JournalMemory, JournalFile, JournalSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := t.Context()
			cfg := testConfig(t, backend)
			log := createLogger(cfg.LogLevel)

			l, err := buildLedger(ctx, cfg, log, newMetrics(prometheus.NewRegistry()))
			testutil.RequireNoError(t, err)
			_, err = l.Deposit(ctx, alice, 3*registry.Ether)
			testutil.RequireNoError(t, err)
			testutil.RequireNoError(t, l.Close())

			_, statErr := os.Stat(filepath.Join(cfg.DataDir, snapshotName))
			testutil.AssertEqual(t, backend != JournalMemory, statErr == nil, "snapshot written on close")

			reopened, err := buildLedger(ctx, cfg, log, newMetrics(prometheus.NewRegistry()))
			testutil.RequireNoError(t, err)
			t.Cleanup(func() { _ = reopened.Close() })

			if backend == JournalMemory {
				testutil.AssertEqual(t, types.Amount(0), reopened.Balance(alice), "memory journal starts empty")
				return
			}
			testutil.AssertEqual(t, 3*registry.Ether, reopened.Balance(alice), "state replayed from journal")
			testutil.AssertEqual(t, types.Index(1), reopened.LastIndex())
		})
	}
}

func TestBuildLedger_InvalidPolicy(t *testing.T) {
	cfg := testConfig(t, JournalMemory)
	cfg.MinCommitmentAge = time.Hour
	cfg.MaxCommitmentAge = time.Minute

	_, err := buildLedger(t.Context(), cfg, createLogger("error"), newMetrics(prometheus.NewRegistry()))
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "failed to create registry")
}

func TestBuildServer(t *testing.T) {
	cfg := testConfig(t, JournalMemory)
	cfg.EnableRateLimit = true
	cfg.RateLimit = 50
	cfg.RateLimitBurst = 100
	log := createLogger(cfg.LogLevel)
	m := newMetrics(prometheus.NewRegistry())

	l, err := buildLedger(t.Context(), cfg, log, m)
	testutil.RequireNoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	srv, err := buildServer(cfg, l, log, m)
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, srv.Metrics() == server.ServerMetrics(m), "server reports through the shared collectors")

	testutil.RequireNoError(t, srv.Start(t.Context()))
	testutil.AssertNotEqual(t, "", srv.Addr())
	testutil.AssertNoError(t, gracefulShutdown(srv, nil, time.Second, log))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	cfg := testConfig(t, JournalMemory)

	l, err := buildLedger(t.Context(), cfg, createLogger("error"), m)
	testutil.RequireNoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	_, err = l.Deposit(t.Context(), "0xa11ce", registry.Ether)
	testutil.RequireNoError(t, err)

	rec := httptest.NewRecorder()
	metricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	testutil.AssertEqual(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	testutil.AssertContains(t, body, "namereg_ledger_last_index 1")
	testutil.AssertContains(t, body, "go_goroutines")
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	err := run(t.Context(), []string{"--version"}, &out)
	testutil.RequireNoError(t, err)
	testutil.AssertContains(t, out.String(), AppVersion)
	testutil.AssertContains(t, out.String(), AppName)
}

func TestRun_InvalidFlags(t *testing.T) {
	err := run(t.Context(), []string{"--journal", "bogus"}, io.Discard)
	testutil.AssertError(t, err)
	testutil.AssertContains(t, err.Error(), "configuration error")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{
			"--listen", "127.0.0.1:0",
			"--metrics-listen", "127.0.0.1:0",
			"--journal", JournalSQLite,
			"--data-dir", t.TempDir(),
			"--log-level", "error",
		}, io.Discard)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestConstants(t *testing.T) {
	testutil.AssertEqual(t, "NameReg Server", AppName)
	testutil.AssertEqual(t, "v1.0.0", AppVersion)
	testutil.AssertContains(t, AppDesc, "name registry")
}
