package ledger

import (
	"errors"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/types"
)

// Option configures a Ledger.
type Option func(*Config)

// Config holds the collaborators and settings of a Ledger.
type Config struct {
	// RegistryAccount holds rent, escrow and lapsed bonds.
	RegistryAccount types.Address

	// AllowDeposits enables the deposit operation, which mints funds.
	AllowDeposits bool

	// SnapshotPath, when set, is where the ledger keeps its snapshot. An
	// existing snapshot is restored on open and only later entries are
	// replayed; a final snapshot is written on Close.
	SnapshotPath string

	// SnapshotEvery writes a snapshot after this many journaled entries.
	// Zero snapshots only on Close.
	SnapshotEvery int

	Journal    Journal
	Clock      clock.Clock
	Serializer registry.Serializer
	Logger     logger.Logger
	Metrics    Metrics
}

// DefaultConfig returns an in-memory ledger configuration on the wall clock.
func DefaultConfig() Config {
	return Config{
		RegistryAccount: DefaultRegistryAccount,
		Clock:           clock.NewStandardClock(),
		Serializer:      &registry.JSONSerializer{},
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.RegistryAccount == "" {
		return errors.New("ledger: registry account is required")
	}
	if c.Journal == nil {
		return errors.New("ledger: journal is required")
	}
	if c.Clock == nil {
		return errors.New("ledger: clock is required")
	}
	if c.Serializer == nil {
		return errors.New("ledger: serializer is required")
	}
	if c.SnapshotEvery < 0 {
		return errors.New("ledger: snapshot interval cannot be negative")
	}
	if c.SnapshotEvery > 0 && c.SnapshotPath == "" {
		return errors.New("ledger: snapshot interval requires a snapshot path")
	}
	return nil
}

// WithJournal sets the journal backend.
func WithJournal(j Journal) Option {
	return func(c *Config) { c.Journal = j }
}

// WithClock sets the time source used to stamp transactions.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		if clk != nil {
			c.Clock = clk
		}
	}
}

// WithRegistryAccount sets the account holding registry funds.
func WithRegistryAccount(account types.Address) Option {
	return func(c *Config) { c.RegistryAccount = account }
}

// WithDeposits enables or disables the deposit operation.
func WithDeposits(enabled bool) Option {
	return func(c *Config) { c.AllowDeposits = enabled }
}

// WithSnapshots keeps a snapshot at path, rewritten every `every` entries.
func WithSnapshots(path string, every int) Option {
	return func(c *Config) {
		c.SnapshotPath = path
		c.SnapshotEvery = every
	}
}

// WithSerializer sets the command serializer. It must match the registry's.
func WithSerializer(s registry.Serializer) Option {
	return func(c *Config) {
		if s != nil {
			c.Serializer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}
