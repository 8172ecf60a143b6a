package client

import (
	"errors"
	"time"
)

// RegistryClientBuilder provides a fluent API for constructing registry clients.
//
// Example:
//
//	client, err := client.NewRegistryClientBuilder([]string{"localhost:7420"}).
//	    WithRequestTimeout(5*time.Second).
//	    Build()
type RegistryClientBuilder struct {
	config      Config
	hasEndpoint bool
}

// NewRegistryClientBuilder returns a new builder initialized with the given endpoints.
// At least one endpoint is required to build a client.
func NewRegistryClientBuilder(endpoints []string) *RegistryClientBuilder {
	b := &RegistryClientBuilder{
		config: DefaultClientConfig(),
	}
	if len(endpoints) > 0 {
		b.config.Endpoints = endpoints
		b.hasEndpoint = true
	}
	return b
}

// WithEndpoints sets the server endpoints.
// This is required and overrides any previously set endpoints.
func (b *RegistryClientBuilder) WithEndpoints(endpoints []string) *RegistryClientBuilder {
	b.config.Endpoints = endpoints
	b.hasEndpoint = len(endpoints) > 0
	return b
}

// WithRequestTimeout sets the per-request timeout.
func (b *RegistryClientBuilder) WithRequestTimeout(requestTimeout time.Duration) *RegistryClientBuilder {
	if requestTimeout > 0 {
		b.config.RequestTimeout = requestTimeout
	}
	return b
}

// WithKeepAlive sets gRPC keepalive parameters.
func (b *RegistryClientBuilder) WithKeepAlive(time, timeout time.Duration, permitWithoutStream bool) *RegistryClientBuilder {
	b.config.KeepAlive = KeepAliveConfig{
		Time:                time,
		Timeout:             timeout,
		PermitWithoutStream: permitWithoutStream,
	}
	return b
}

// WithRetryPolicy sets a custom retry policy.
func (b *RegistryClientBuilder) WithRetryPolicy(policy RetryPolicy) *RegistryClientBuilder {
	b.config.RetryPolicy = policy
	return b
}

// WithRetryOptions updates the default retry policy parameters.
func (b *RegistryClientBuilder) WithRetryOptions(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier float64) *RegistryClientBuilder {
	if maxRetries >= 0 {
		b.config.RetryPolicy.MaxRetries = maxRetries
	}
	if initialBackoff > 0 {
		b.config.RetryPolicy.InitialBackoff = initialBackoff
	}
	if maxBackoff > 0 {
		b.config.RetryPolicy.MaxBackoff = maxBackoff
	}
	if multiplier > 0 {
		b.config.RetryPolicy.BackoffMultiplier = multiplier
	}
	return b
}

// WithRetryableReasons sets the server reasons that should trigger retries.
// An empty list disables reason-based retries.
func (b *RegistryClientBuilder) WithRetryableReasons(reasons ...string) *RegistryClientBuilder {
	b.config.RetryPolicy.RetryableReasons = append([]string{}, reasons...)
	return b
}

// WithMetrics enables or disables metrics collection.
func (b *RegistryClientBuilder) WithMetrics(enabled bool) *RegistryClientBuilder {
	b.config.EnableMetrics = enabled
	return b
}

// WithMaxMessageSize sets the max gRPC message size (bytes).
func (b *RegistryClientBuilder) WithMaxMessageSize(size int) *RegistryClientBuilder {
	if size > 0 {
		b.config.MaxMessageSize = size
	}
	return b
}

// validate checks if the builder has valid configuration.
func (b *RegistryClientBuilder) validate() error {
	if !b.hasEndpoint || len(b.config.Endpoints) == 0 {
		return errors.New("builder: at least one endpoint must be set")
	}
	return nil
}

// Build returns a configured RegistryClient.
func (b *RegistryClientBuilder) Build() (RegistryClient, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	return NewRegistryClient(b.config)
}
