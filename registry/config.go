package registry

import (
	"fmt"
	"time"

	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/types"
)

// RegistryOption defines a function that applies a configuration setting
// to a Registry during initialization.
type RegistryOption func(*RegistryConfig)

// RegistryConfig holds the deployment constants and collaborators of a Registry.
// The four policy constants are fixed for the registry's lifetime.
type RegistryConfig struct {
	// LockAmount is the bond locked by each registration and released to the
	// owner once the record expires.
	LockAmount types.Amount

	// LockPeriod is the duration a registration, and each renewal, grants.
	LockPeriod time.Duration

	// MinCommitmentAge and MaxCommitmentAge bound, inclusively, how long after
	// admission a commitment may be revealed.
	MinCommitmentAge time.Duration
	MaxCommitmentAge time.Duration

	// Pricing computes rent. Its Floor must cover LockAmount so that every
	// registration fully funds its own bond.
	Pricing PricingPolicy

	Serializer Serializer
	Logger     logger.Logger
	Metrics    Metrics
}

// DefaultRegistryConfig returns a RegistryConfig with the reference policy.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		LockAmount:       DefaultLockAmount,
		LockPeriod:       DefaultLockPeriod,
		MinCommitmentAge: DefaultMinCommitmentAge,
		MaxCommitmentAge: DefaultMaxCommitmentAge,
		Pricing:          DefaultPricing(),
		Serializer:       &JSONSerializer{},
	}
}

// Validate checks that the configuration describes a solvent, usable policy.
func (c *RegistryConfig) Validate() error {
	if c.LockPeriod <= 0 {
		return NewConfigError("LockPeriod must be positive")
	}
	if c.MinCommitmentAge < 0 {
		return NewConfigError("MinCommitmentAge cannot be negative")
	}
	if c.MaxCommitmentAge < c.MinCommitmentAge {
		return NewConfigError(fmt.Sprintf("MaxCommitmentAge (%s) must be >= MinCommitmentAge (%s)",
			c.MaxCommitmentAge, c.MinCommitmentAge))
	}
	if c.Pricing == nil {
		return NewConfigError("Pricing cannot be nil")
	}
	if floor := c.Pricing.Floor(); floor < c.LockAmount {
		return NewConfigError(fmt.Sprintf("pricing floor %d is below LockAmount %d", floor, c.LockAmount))
	}
	if c.Serializer == nil {
		return NewConfigError("Serializer cannot be nil")
	}
	return nil
}

// WithLockAmount sets the per-registration bond.
func WithLockAmount(amount types.Amount) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.LockAmount = amount
	}
}

// WithLockPeriod sets the duration granted by registration and renewal.
func WithLockPeriod(period time.Duration) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.LockPeriod = period
	}
}

// WithCommitmentAge sets the inclusive reveal window.
func WithCommitmentAge(minAge, maxAge time.Duration) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.MinCommitmentAge = minAge
		cfg.MaxCommitmentAge = maxAge
	}
}

// WithPricing sets the rent price schedule.
func WithPricing(pricing PricingPolicy) RegistryOption {
	return func(cfg *RegistryConfig) {
		if pricing != nil {
			cfg.Pricing = pricing
		}
	}
}

// WithSerializer sets the serializer for decoding ledger commands and snapshots.
func WithSerializer(serializer Serializer) RegistryOption {
	return func(cfg *RegistryConfig) {
		if serializer != nil {
			cfg.Serializer = serializer
		}
	}
}

// WithLogger sets the logger for internal events.
func WithLogger(logger logger.Logger) RegistryOption {
	return func(cfg *RegistryConfig) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

// WithMetrics sets the metrics collector for operational data.
func WithMetrics(metrics Metrics) RegistryOption {
	return func(cfg *RegistryConfig) {
		if metrics != nil {
			cfg.Metrics = metrics
		}
	}
}
