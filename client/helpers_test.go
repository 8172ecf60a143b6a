package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/server"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

var genesis = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	alice = types.Address("0xa11ce")
	bob   = types.Address("0xb0b")

	bufEndpoint  = "bufnet"
	downEndpoint = "down"
)

// bufConnector dials the in-memory listener for bufEndpoint and fails
// every dial to downEndpoint.
type bufConnector struct {
	lis *bufconn.Listener
}

func (c *bufConnector) GetConnection(endpoint string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		if endpoint == downEndpoint {
			return nil, errors.New("connection refused")
		}
		return c.lis.DialContext(ctx)
	}
	opts = append(opts, grpc.WithContextDialer(dialer))
	return grpc.NewClient("passthrough:///"+endpoint, opts...)
}

// testEnv is a registry server on an in-memory listener with a client
// pointed at it. The ledger runs on a manual clock.
type testEnv struct {
	ledger    *ledger.Ledger
	clock     *clock.Manual
	client    *registryClient
	connector *bufConnector
	sleeps    []time.Duration
}

type envOptions struct {
	endpoints []string
	server    func(*server.RegistryServerBuilder)
	config    func(*Config)
}

func newTestEnv(t *testing.T, opts ...func(*envOptions)) *testEnv {
	t.Helper()

	o := &envOptions{endpoints: []string{bufEndpoint}}
	for _, fn := range opts {
		fn(o)
	}

	reg, err := registry.NewRegistry()
	testutil.RequireNoError(t, err)

	clk := clock.NewManual(genesis)
	l, err := ledger.New(context.Background(), reg, ledger.WithClock(clk), ledger.WithDeposits(true))
	testutil.RequireNoError(t, err)

	lis := bufconn.Listen(1 << 20)
	b := server.NewRegistryServerBuilder().
		WithLedger(l).
		WithListener(lis).
		WithTickInterval(0).
		WithDeposits(true)
	if o.server != nil {
		o.server(b)
	}
	srv, err := b.Build()
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, srv.Start(context.Background()))

	cfg := DefaultClientConfig()
	cfg.Endpoints = o.endpoints
	cfg.RequestTimeout = 5 * time.Second
	if o.config != nil {
		o.config(&cfg)
	}
	base, err := newBaseClient(cfg)
	testutil.RequireNoError(t, err)

	env := &testEnv{
		ledger:    l,
		clock:     clk,
		client:    &registryClient{base: base},
		connector: &bufConnector{lis: lis},
	}
	base.connector = env.connector
	base.clock = clk
	base.jitter = func() float64 { return 0.5 }
	base.sleep = func(ctx context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return ctx.Err()
	}

	t.Cleanup(func() {
		_ = env.client.Close()
		_ = srv.Stop(context.Background())
		_ = l.Close()
	})
	return env
}

func withEndpoints(endpoints ...string) func(*envOptions) {
	return func(o *envOptions) { o.endpoints = endpoints }
}

func withServer(fn func(*server.RegistryServerBuilder)) func(*envOptions) {
	return func(o *envOptions) { o.server = fn }
}

func withConfig(fn func(*Config)) func(*envOptions) {
	return func(o *envOptions) { o.config = fn }
}

func (e *testEnv) fund(t *testing.T, account types.Address, amount types.Amount) {
	t.Helper()
	_, err := e.client.Deposit(t.Context(), account, amount)
	testutil.RequireNoError(t, err)
}

// advancingWait replaces WaitFunc with one that moves the ledger clock
// forward by the requested duration instead of sleeping.
func (e *testEnv) advancingWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := WaitFunc
	WaitFunc = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		e.clock.Advance(d)
		return ctx.Err()
	}
	t.Cleanup(func() { WaitFunc = orig })
	return &waits
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
