package server

import "time"

const (
	// --- Default server configuration values ---

	// DefaultListenAddress is the default address for the client-facing gRPC endpoint.
	DefaultListenAddress = "0.0.0.0:7420"

	// DefaultRequestTimeout is the default timeout for processing individual client requests.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMaxRequestSize is the default maximum size for incoming client gRPC requests (1MB).
	DefaultMaxRequestSize = 1024 * 1024

	// DefaultMaxResponseSize is the default maximum size for outgoing client gRPC responses (4MB).
	DefaultMaxResponseSize = 4 * 1024 * 1024

	// DefaultMaxConcurrentStreams bounds in-flight RPCs per client connection.
	DefaultMaxConcurrentStreams = 256

	// --- Rate limiting defaults ---

	// DefaultRateLimit is the default number of requests allowed per window.
	DefaultRateLimit = 100

	// DefaultRateLimitBurst is the default burst size for rate limiting.
	DefaultRateLimitBurst = 200

	// DefaultRateLimitWindow is the default time window for rate limiting calculations.
	DefaultRateLimitWindow = time.Second

	// DefaultRateLimiterPoolSize bounds the number of per-caller limiters kept in memory.
	DefaultRateLimiterPoolSize = 10000

	// --- Background tasks ---

	// DefaultTickInterval is how often the server drives registry maintenance.
	DefaultTickInterval = time.Minute

	// --- gRPC keepalive ---

	// DefaultGRPCKeepaliveTime is the interval for keepalive pings to idle client connections.
	DefaultGRPCKeepaliveTime = 30 * time.Second

	// DefaultGRPCKeepaliveTimeout is how long to wait for a keepalive acknowledgment.
	DefaultGRPCKeepaliveTimeout = 5 * time.Second

	// --- Validation limits for client-provided data ---

	// MaxNameInputLength bounds the raw name before canonicalization, in bytes.
	MaxNameInputLength = 256

	// MaxAddressLength bounds caller, owner and account addresses, in bytes.
	MaxAddressLength = 128

	// MaxListLimit caps the page size of ListRecords.
	MaxListLimit = 1000

	// DefaultListLimit is used when ListRecords is called without a limit.
	DefaultListLimit = 100

	// --- Record state filters accepted by ListRecords ---

	StateFilterActive       = "active"
	StateFilterExpired      = "expired"
	StateFilterWithdrawable = "withdrawable"
)
