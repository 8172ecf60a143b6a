package server

import (
	"time"
)

// ServerMetrics defines observability hooks for registry server operations.
// All methods must be safe for concurrent use.
type ServerMetrics interface {
	// IncrGRPCRequest increments the count for an RPC method invocation.
	// 'reason' is the stable failure reason, empty on success.
	IncrGRPCRequest(method string, success bool, reason string)

	// IncrValidationError increments validation failure counters.
	// 'field' names the offending request field.
	IncrValidationError(method string, field string)

	// IncrRateLimited counts requests rejected by the rate limiter.
	IncrRateLimited(method string)

	// ObserveRequestLatency records end-to-end latency for a gRPC method call.
	ObserveRequestLatency(method string, latency time.Duration)

	// IncrConcurrentRequests adjusts the count of concurrently active requests.
	// Use delta +1 at request start, -1 when completed.
	IncrConcurrentRequests(method string, delta int)

	// IncrHealthCheck increments the count of health check invocations.
	IncrHealthCheck(healthy bool)

	// SetActiveConnections sets the number of live gRPC connections to this server.
	SetActiveConnections(count int)
}

// NoOpServerMetrics provides a no-operation implementation of ServerMetrics.
type NoOpServerMetrics struct{}

// NewNoOpServerMetrics creates a new no-operation metrics implementation.
func NewNoOpServerMetrics() ServerMetrics {
	return &NoOpServerMetrics{}
}

func (n *NoOpServerMetrics) IncrGRPCRequest(method string, success bool, reason string)  {}
func (n *NoOpServerMetrics) IncrValidationError(method string, field string)             {}
func (n *NoOpServerMetrics) IncrRateLimited(method string)                               {}
func (n *NoOpServerMetrics) ObserveRequestLatency(method string, latency time.Duration)  {}
func (n *NoOpServerMetrics) IncrConcurrentRequests(method string, delta int)             {}
func (n *NoOpServerMetrics) IncrHealthCheck(healthy bool)                                {}
func (n *NoOpServerMetrics) SetActiveConnections(count int)                              {}
