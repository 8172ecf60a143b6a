package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/server"
)

// connector defines an interface for establishing gRPC connections.
// Useful for injecting in-memory listeners in tests.
type connector interface {
	// GetConnection returns a new gRPC connection to endpoint.
	GetConnection(endpoint string, opts ...grpc.DialOption) (*grpc.ClientConn, error)
}

// grpcConnector implements the default connector.
type grpcConnector struct{}

// GetConnection establishes a new gRPC connection to the given endpoint.
func (c *grpcConnector) GetConnection(endpoint string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	return grpc.NewClient(endpoint, opts...)
}

// callKind tells the retry loop whether an operation may be repeated after
// an ambiguous transport failure.
type callKind int

const (
	// readCall has no side effects and can always be retried.
	readCall callKind = iota

	// txCall submits a ledger transaction. It is only retried when the server
	// reports a reason proving the transaction was never executed.
	txCall
)

// baseClient manages connections, endpoint failover, retries and metrics.
type baseClient struct {
	config    Config
	endpoints []string

	mu        sync.RWMutex
	conns     map[string]*grpc.ClientConn
	preferred string

	metrics   Metrics
	closed    atomic.Bool
	clock     clock.Clock
	jitter    func() float64
	sleep     func(ctx context.Context, d time.Duration) error
	connector connector
}

// newBaseClient creates a new base client with the given configuration.
func newBaseClient(config Config) (*baseClient, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	c := &baseClient{
		config:    config,
		endpoints: slices.Clone(config.Endpoints),
		conns:     make(map[string]*grpc.ClientConn),
		clock:     clock.NewStandardClock(),
		jitter:    rand.Float64,
		sleep:     sleepContext,
		connector: &grpcConnector{},
	}
	if config.EnableMetrics {
		c.metrics = newMetrics()
	} else {
		c.metrics = &noOpMetrics{}
	}
	return c, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setRetryPolicy updates the client's retry policy in a thread-safe manner.
func (c *baseClient) setRetryPolicy(policy RetryPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.RetryPolicy = policy
}

// buildDialOptions returns gRPC dial options based on the current configuration.
func (c *baseClient) buildDialOptions() []grpc.DialOption {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.config.KeepAlive.Time,
			Timeout:             c.config.KeepAlive.Timeout,
			PermitWithoutStream: c.config.KeepAlive.PermitWithoutStream,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(c.config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(c.config.MaxMessageSize),
		),
	}
}

// getConnection returns a cached connection or establishes a new one.
func (c *baseClient) getConnection(endpoint string) (*grpc.ClientConn, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.mu.RLock()
	if conn, ok := c.conns[endpoint]; ok {
		c.mu.RUnlock()
		return conn, nil
	}
	c.mu.RUnlock()

	dialOpts := c.buildDialOptions()

	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[endpoint]; ok {
		return conn, nil
	}

	conn, err := c.connector.GetConnection(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	c.conns[endpoint] = conn
	return conn, nil
}

// execute runs fn with retry and backoff, translating the final error into
// a ClientError that wraps the matching domain sentinel.
func (c *baseClient) execute(ctx context.Context, operation string, kind callKind, fn func(ctx context.Context, rc api.RegistryClient) error) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	start := c.clock.Now()
	defer func() { c.metrics.ObserveLatency(operation, c.clock.Since(start)) }()

	c.mu.RLock()
	maxRetries := c.config.RetryPolicy.MaxRetries
	c.mu.RUnlock()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.tryOperation(ctx, operation, fn)
		if err == nil {
			c.metrics.IncrSuccess(operation)
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if !c.isRetryable(err, kind) || attempt == maxRetries {
			break
		}

		c.metrics.IncrRetry(operation)
		if err := c.sleep(ctx, c.calculateBackoff(attempt+1)); err != nil {
			return err
		}
	}

	c.metrics.IncrFailure(operation)
	return translateError(operation, lastErr)
}

// tryOperation attempts the operation on the last endpoint that answered,
// then on every configured endpoint in order.
func (c *baseClient) tryOperation(ctx context.Context, operation string, fn func(context.Context, api.RegistryClient) error) error {
	preferred := c.getPreferred()
	if preferred != "" {
		err := c.tryEndpoint(ctx, preferred, fn)
		if err == nil || !isTransportFailure(err) {
			return err
		}
		c.setPreferred("")
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		if endpoint == preferred {
			continue
		}
		err := c.tryEndpoint(ctx, endpoint, fn)
		if err == nil || !isTransportFailure(err) {
			c.setPreferred(endpoint)
			return err
		}
		lastErr = err
	}

	if lastErr != nil {
		return lastErr
	}
	return status.Errorf(codes.Unavailable, "no available servers for operation %s", operation)
}

// tryEndpoint invokes the operation on the specified endpoint.
func (c *baseClient) tryEndpoint(ctx context.Context, endpoint string, fn func(context.Context, api.RegistryClient) error) error {
	conn, err := c.getConnection(endpoint)
	if errors.Is(err, ErrClientClosed) {
		return err
	}
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	rc := api.NewRegistryClient(conn)

	c.mu.RLock()
	timeout := c.config.RequestTimeout
	c.mu.RUnlock()

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	return fn(reqCtx, rc)
}

// isTransportFailure reports whether err came from the connection rather
// than from a server decision, making another endpoint worth trying.
func isTransportFailure(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unavailable && server.ReasonFromStatus(err) == ""
}

// calculateBackoff computes exponential backoff with optional jitter.
func (c *baseClient) calculateBackoff(attempt int) time.Duration {
	c.mu.RLock()
	policy := c.config.RetryPolicy
	c.mu.RUnlock()

	backoff := float64(policy.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= policy.BackoffMultiplier
	}
	if backoff > float64(policy.MaxBackoff) {
		backoff = float64(policy.MaxBackoff)
	}

	if policy.JitterFactor > 0 {
		jitter := (c.jitter()*2 - 1) * policy.JitterFactor * backoff
		backoff += jitter
	}

	if backoff < 0 {
		return 0
	}
	return time.Duration(backoff)
}

// isRetryable reports whether err is worth another attempt. Reads retry on
// any transient status; transactions only on configured server reasons.
func (c *baseClient) isRetryable(err error, kind callKind) bool {
	c.mu.RLock()
	retryable := c.config.RetryPolicy.RetryableReasons
	c.mu.RUnlock()

	if reason := server.ReasonFromStatus(err); reason != "" {
		return slices.Contains(retryable, reason)
	}
	if kind != readCall {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

func (c *baseClient) getPreferred() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preferred
}

func (c *baseClient) setPreferred(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferred = endpoint
}

// isConnected reports whether there are any active connections.
func (c *baseClient) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns) > 0
}

// close shuts down all gRPC connections and marks the client as closed.
func (c *baseClient) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for ep, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection to %s: %w", ep, err))
		}
	}
	c.conns = make(map[string]*grpc.ClientConn)
	return errors.Join(errs...)
}
