package client

import (
	"sync"
	"time"
)

// ClientMetrics exposes client-side metrics for observability and monitoring.
type ClientMetrics interface {
	// GetRequestCount returns the total number of requests for the given operation type.
	GetRequestCount(operation string) uint64

	// GetSuccessRate returns the success rate (0.0 to 1.0) for the given operation type.
	GetSuccessRate(operation string) float64

	// GetAverageLatency returns the average latency for the given operation type.
	GetAverageLatency(operation string) time.Duration

	// GetRetryCount returns the total number of retries for the given operation type.
	GetRetryCount(operation string) uint64

	// Reset clears all collected metrics.
	Reset()
}

// Metrics records client activity. It is also readable as ClientMetrics.
type Metrics interface {
	ClientMetrics

	IncrSuccess(operation string)
	IncrFailure(operation string)
	IncrRetry(operation string)
	ObserveLatency(operation string, latency time.Duration)
}

type operationStats struct {
	success      uint64
	failure      uint64
	retries      uint64
	latencyTotal time.Duration
	latencyCount uint64
}

// metrics is an in-memory Metrics keyed by operation name.
type metrics struct {
	mu  sync.Mutex
	ops map[string]*operationStats
}

func newMetrics() *metrics {
	return &metrics{ops: make(map[string]*operationStats)}
}

// statsLocked returns the stats for operation, creating them. Caller holds mu.
func (m *metrics) statsLocked(operation string) *operationStats {
	s, ok := m.ops[operation]
	if !ok {
		s = &operationStats{}
		m.ops[operation] = s
	}
	return s
}

func (m *metrics) IncrSuccess(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(operation).success++
}

func (m *metrics) IncrFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(operation).failure++
}

func (m *metrics) IncrRetry(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(operation).retries++
}

func (m *metrics) ObserveLatency(operation string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.statsLocked(operation)
	s.latencyTotal += latency
	s.latencyCount++
}

func (m *metrics) GetRequestCount(operation string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.ops[operation]; ok {
		return s.success + s.failure
	}
	return 0
}

func (m *metrics) GetSuccessRate(operation string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ops[operation]
	if !ok || s.success+s.failure == 0 {
		return 0
	}
	return float64(s.success) / float64(s.success+s.failure)
}

func (m *metrics) GetAverageLatency(operation string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ops[operation]
	if !ok || s.latencyCount == 0 {
		return 0
	}
	return s.latencyTotal / time.Duration(s.latencyCount)
}

func (m *metrics) GetRetryCount(operation string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.ops[operation]; ok {
		return s.retries
	}
	return 0
}

func (m *metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.ops)
}

// noOpMetrics discards everything.
type noOpMetrics struct{}

func (*noOpMetrics) IncrSuccess(string)                    {}
func (*noOpMetrics) IncrFailure(string)                    {}
func (*noOpMetrics) IncrRetry(string)                      {}
func (*noOpMetrics) ObserveLatency(string, time.Duration)  {}
func (*noOpMetrics) GetRequestCount(string) uint64         { return 0 }
func (*noOpMetrics) GetSuccessRate(string) float64         { return 0 }
func (*noOpMetrics) GetAverageLatency(string) time.Duration { return 0 }
func (*noOpMetrics) GetRetryCount(string) uint64           { return 0 }
func (*noOpMetrics) Reset()                                {}
