package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/logger"
)

// RegistryServerBuilder helps construct a RegistryServer with validated
// configuration and sane defaults.
type RegistryServerBuilder struct {
	config ServerConfig
	ledger Ledger
}

// NewRegistryServerBuilder returns a builder preloaded with default configuration values.
func NewRegistryServerBuilder() *RegistryServerBuilder {
	return &RegistryServerBuilder{
		config: DefaultServerConfig(),
	}
}

// WithLedger sets the ledger the server submits transactions to. Required.
func (b *RegistryServerBuilder) WithLedger(l Ledger) *RegistryServerBuilder {
	b.ledger = l
	return b
}

// WithListenAddress sets the gRPC server's listening address.
func (b *RegistryServerBuilder) WithListenAddress(address string) *RegistryServerBuilder {
	b.config.ListenAddress = address
	return b
}

// WithListener makes the server serve on lis instead of binding an address.
func (b *RegistryServerBuilder) WithListener(lis net.Listener) *RegistryServerBuilder {
	b.config.Listener = lis
	return b
}

// WithTimeouts sets timeouts for request handling and shutdown.
// Values <= 0 leave the defaults unchanged.
func (b *RegistryServerBuilder) WithTimeouts(requestTimeout, shutdownTimeout time.Duration) *RegistryServerBuilder {
	if requestTimeout > 0 {
		b.config.RequestTimeout = requestTimeout
	}
	if shutdownTimeout > 0 {
		b.config.ShutdownTimeout = shutdownTimeout
	}
	return b
}

// WithLimits sets message size and concurrency limits.
// Values <= 0 leave the defaults unchanged.
func (b *RegistryServerBuilder) WithLimits(maxRequestSize, maxResponseSize, maxConcurrentStreams int) *RegistryServerBuilder {
	if maxRequestSize > 0 {
		b.config.MaxRequestSize = maxRequestSize
	}
	if maxResponseSize > 0 {
		b.config.MaxResponseSize = maxResponseSize
	}
	if maxConcurrentStreams > 0 {
		b.config.MaxConcurrentStreams = maxConcurrentStreams
	}
	return b
}

// WithRateLimit configures per-account rate limiting.
// Values <= 0 use the default if rate limiting is enabled.
func (b *RegistryServerBuilder) WithRateLimit(enabled bool, rateLimit, burst int, window time.Duration) *RegistryServerBuilder {
	b.config.EnableRateLimit = enabled
	if enabled {
		if rateLimit > 0 {
			b.config.RateLimit = rateLimit
		}
		if burst > 0 {
			b.config.RateLimitBurst = burst
		}
		if window > 0 {
			b.config.RateLimitWindow = window
		}
	}
	return b
}

// WithTickInterval sets how often registry maintenance runs. Zero disables it.
func (b *RegistryServerBuilder) WithTickInterval(interval time.Duration) *RegistryServerBuilder {
	b.config.TickInterval = interval
	return b
}

// WithDeposits exposes or hides the Deposit RPC.
func (b *RegistryServerBuilder) WithDeposits(enabled bool) *RegistryServerBuilder {
	b.config.AllowDeposits = enabled
	return b
}

// WithLogger sets the server logger. If nil, a no-op logger is used.
func (b *RegistryServerBuilder) WithLogger(logger logger.Logger) *RegistryServerBuilder {
	b.config.Logger = logger
	return b
}

// WithMetrics sets the metrics collector. If nil, a no-op implementation is used.
func (b *RegistryServerBuilder) WithMetrics(metrics ServerMetrics) *RegistryServerBuilder {
	b.config.Metrics = metrics
	return b
}

// WithClock sets the clock used for latency measurements and connection tracking.
func (b *RegistryServerBuilder) WithClock(clk clock.Clock) *RegistryServerBuilder {
	b.config.Clock = clk
	return b
}

func (b *RegistryServerBuilder) prepareConfig() {
	if b.config.Logger == nil {
		b.config.Logger = logger.NewNoOpLogger()
	}
	if b.config.Metrics == nil {
		b.config.Metrics = NewNoOpServerMetrics()
	}
	if b.config.Clock == nil {
		b.config.Clock = clock.NewStandardClock()
	}
}

// Build constructs a RegistryServer using the current builder state.
func (b *RegistryServerBuilder) Build() (RegistryServer, error) {
	if b.ledger == nil {
		return nil, errors.New("server builder: ledger must be set using WithLedger")
	}

	b.prepareConfig()

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("server builder: configuration validation failed: %w", err)
	}
	return NewRegistryServer(b.config, b.ledger)
}
