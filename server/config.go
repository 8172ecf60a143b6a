package server

import (
	"fmt"
	"net"
	"time"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/logger"
)

// ServerConfig holds the configuration settings for a registry server instance.
type ServerConfig struct {
	// ListenAddress is the gRPC server's bind address (e.g., "0.0.0.0:7420").
	ListenAddress string

	// Listener, when set, is used instead of binding ListenAddress.
	Listener net.Listener

	RequestTimeout       time.Duration // Max time to handle a client request
	ShutdownTimeout      time.Duration // Max time allowed for graceful shutdown
	MaxRequestSize       int           // Maximum size of incoming requests (in bytes)
	MaxResponseSize      int           // Maximum size of outgoing responses (in bytes)
	MaxConcurrentStreams int           // Max in-flight RPCs per connection

	EnableRateLimit bool          // Whether rate limiting is enforced
	RateLimit       int           // Requests allowed per RateLimitWindow
	RateLimitBurst  int           // Burst capacity for client requests
	RateLimitWindow time.Duration // Time window used for rate calculation

	// TickInterval is how often registry maintenance runs. Zero disables it.
	TickInterval time.Duration

	// AllowDeposits exposes the Deposit RPC. The ledger must accept deposits too.
	AllowDeposits bool

	Logger  logger.Logger
	Metrics ServerMetrics
	Clock   clock.Clock
}

// DefaultServerConfig returns a ServerConfig pre-populated with safe defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress:        DefaultListenAddress,
		RequestTimeout:       DefaultRequestTimeout,
		ShutdownTimeout:      DefaultShutdownTimeout,
		MaxRequestSize:       DefaultMaxRequestSize,
		MaxResponseSize:      DefaultMaxResponseSize,
		MaxConcurrentStreams: DefaultMaxConcurrentStreams,
		EnableRateLimit:      false,
		RateLimit:            DefaultRateLimit,
		RateLimitBurst:       DefaultRateLimitBurst,
		RateLimitWindow:      DefaultRateLimitWindow,
		TickInterval:         DefaultTickInterval,
		Logger:               logger.NewNoOpLogger(),
		Metrics:              NewNoOpServerMetrics(),
		Clock:                clock.NewStandardClock(),
	}
}

// Validate checks if the server configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.ListenAddress == "" && c.Listener == nil {
		return NewServerConfigError("ListenAddress cannot be empty")
	}

	checkPositiveDuration := func(val time.Duration, name string) error {
		if val <= 0 {
			return NewServerConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}

	checkPositiveInt := func(val int, name string) error {
		if val <= 0 {
			return NewServerConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}

	if err := checkPositiveDuration(c.RequestTimeout, "RequestTimeout"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.ShutdownTimeout, "ShutdownTimeout"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxRequestSize, "MaxRequestSize"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxResponseSize, "MaxResponseSize"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxConcurrentStreams, "MaxConcurrentStreams"); err != nil {
		return err
	}

	if c.EnableRateLimit {
		if err := checkPositiveInt(c.RateLimit, "RateLimit"); err != nil {
			return err
		}
		if err := checkPositiveInt(c.RateLimitBurst, "RateLimitBurst"); err != nil {
			return err
		}
		if err := checkPositiveDuration(c.RateLimitWindow, "RateLimitWindow"); err != nil {
			return err
		}
	}

	if c.TickInterval < 0 {
		return NewServerConfigError("TickInterval cannot be negative")
	}
	return nil
}

// ServerConfigError represents a validation error in ServerConfig.
type ServerConfigError struct {
	Message string
}

// NewServerConfigError returns a new ServerConfigError instance.
func NewServerConfigError(msg string) *ServerConfigError {
	return &ServerConfigError{Message: msg}
}

// Error implements the error interface.
func (e *ServerConfigError) Error() string {
	return "server config error: " + e.Message
}
