package client

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/server"
	"github.com/jathurchan/namereg/testutil"
)

func newOfflineBase(t *testing.T) *baseClient {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.Endpoints = []string{"localhost:7420"}
	c, err := newBaseClient(cfg)
	testutil.RequireNoError(t, err)
	return c
}

func TestBaseClient_CalculateBackoff(t *testing.T) {
	c := newOfflineBase(t)
	c.setRetryPolicy(RetryPolicy{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{10, time.Second},
	}
	for _, tc := range tests {
		testutil.AssertEqual(t, tc.want, c.calculateBackoff(tc.attempt), "attempt %d", tc.attempt)
	}

	t.Run("jitter", func(t *testing.T) {
		c.setRetryPolicy(RetryPolicy{
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        time.Second,
			BackoffMultiplier: 2,
			JitterFactor:      0.5,
		})
		c.jitter = func() float64 { return 1 }
		testutil.AssertEqual(t, 150*time.Millisecond, c.calculateBackoff(1))
		c.jitter = func() float64 { return 0 }
		testutil.AssertEqual(t, 50*time.Millisecond, c.calculateBackoff(1))
	})
}

func TestBaseClient_IsRetryable(t *testing.T) {
	c := newOfflineBase(t)

	tests := []struct {
		name   string
		err    error
		kind   callKind
		expect bool
	}{
		{"rate limited read", server.ToGRPCError(server.ErrRateLimited), readCall, true},
		{"rate limited tx", server.ToGRPCError(server.ErrRateLimited), txCall, true},
		{"server not started tx", server.ToGRPCError(server.ErrServerNotStarted), txCall, true},
		{"domain error", server.ToGRPCError(registry.ErrNotExpired), readCall, false},
		{"bare unavailable read", status.Error(codes.Unavailable, "conn refused"), readCall, true},
		{"bare unavailable tx", status.Error(codes.Unavailable, "conn refused"), txCall, false},
		{"deadline read", status.Error(codes.DeadlineExceeded, "slow"), readCall, true},
		{"deadline tx", status.Error(codes.DeadlineExceeded, "slow"), txCall, false},
		{"plain error", errors.New("boom"), readCall, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testutil.AssertEqual(t, tc.expect, c.isRetryable(tc.err, tc.kind))
		})
	}

	t.Run("empty reason list", func(t *testing.T) {
		c.setRetryPolicy(RetryPolicy{})
		testutil.AssertFalse(t, c.isRetryable(server.ToGRPCError(server.ErrRateLimited), readCall))
	})
}

func TestIsTransportFailure(t *testing.T) {
	testutil.AssertTrue(t, isTransportFailure(status.Error(codes.Unavailable, "dial failed")))
	testutil.AssertFalse(t, isTransportFailure(server.ToGRPCError(server.ErrServerNotStarted)))
	testutil.AssertFalse(t, isTransportFailure(status.Error(codes.Internal, "oops")))
	testutil.AssertFalse(t, isTransportFailure(errors.New("plain")))
}

func TestNewBaseClient_MetricsToggle(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.Endpoints = []string{"a"}
	cfg.EnableMetrics = false
	c, err := newBaseClient(cfg)
	testutil.RequireNoError(t, err)

	c.metrics.IncrSuccess("op")
	testutil.AssertEqual(t, uint64(0), c.metrics.GetRequestCount("op"))
}
