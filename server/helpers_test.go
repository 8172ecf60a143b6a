package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jathurchan/namereg/api"
	"github.com/jathurchan/namereg/clock"
	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

var genesis = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	alice = types.Address("0xa11ce")
	bob   = types.Address("0xb0b")
)

// testEnv is a running server on an in-memory listener, backed by a real
// ledger and registry driven by a manual clock.
type testEnv struct {
	server  RegistryServer
	ledger  *ledger.Ledger
	clock   *clock.Manual
	metrics *mockServerMetrics
	conn    *grpc.ClientConn
	client  api.RegistryClient
}

func newTestEnv(t *testing.T, configure ...func(*RegistryServerBuilder)) *testEnv {
	t.Helper()

	reg, err := registry.NewRegistry()
	testutil.RequireNoError(t, err)

	clk := clock.NewManual(genesis)
	l, err := ledger.New(context.Background(), reg, ledger.WithClock(clk), ledger.WithDeposits(true))
	testutil.RequireNoError(t, err)

	lis := bufconn.Listen(1 << 20)
	metrics := newMockServerMetrics()
	b := NewRegistryServerBuilder().
		WithLedger(l).
		WithListener(lis).
		WithMetrics(metrics).
		WithTickInterval(0).
		WithDeposits(true)
	for _, fn := range configure {
		fn(b)
	}
	srv, err := b.Build()
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, srv.Start(context.Background()))

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	testutil.RequireNoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = srv.Stop(context.Background())
		_ = l.Close()
	})

	return &testEnv{
		server:  srv,
		ledger:  l,
		clock:   clk,
		metrics: metrics,
		conn:    conn,
		client:  api.NewRegistryClient(conn),
	}
}

func (e *testEnv) fund(t *testing.T, account types.Address, amount types.Amount) {
	t.Helper()
	_, err := e.client.Deposit(t.Context(), &api.DepositRequest{Account: account, Amount: amount})
	testutil.RequireNoError(t, err)
}

// register runs commit, waits the minimum age and reveals over the wire.
func (e *testEnv) register(t *testing.T, name string, owner types.Address) *api.TxResponse {
	t.Helper()
	ctx := t.Context()
	salt := testutil.SaltFromSeed(byte(len(name)))

	mc, err := e.client.MakeCommitment(ctx, &api.MakeCommitmentRequest{Name: name, Owner: owner, Salt: salt})
	testutil.RequireNoError(t, err)
	_, err = e.client.Commit(ctx, &api.CommitRequest{Caller: owner, Fingerprint: mc.Fingerprint})
	testutil.RequireNoError(t, err)

	e.clock.Advance(registry.DefaultMinCommitmentAge)

	price, err := e.client.RentPrice(ctx, &api.RentPriceRequest{Name: name})
	testutil.RequireNoError(t, err)
	resp, err := e.client.Register(ctx, &api.RegisterRequest{
		Caller: owner, Value: price.Price, Name: name, Owner: owner, Salt: salt,
	})
	testutil.RequireNoError(t, err)
	return resp
}

type requestEvent struct {
	method  string
	success bool
	reason  string
}

// mockServerMetrics records server metrics for assertions.
type mockServerMetrics struct {
	mu               sync.Mutex
	requests         []requestEvent
	validationErrors map[string]int
	rateLimited      map[string]int
	concurrent       map[string]int
	healthChecks     map[bool]int
	connections      int
}

func newMockServerMetrics() *mockServerMetrics {
	return &mockServerMetrics{
		validationErrors: make(map[string]int),
		rateLimited:      make(map[string]int),
		concurrent:       make(map[string]int),
		healthChecks:     make(map[bool]int),
	}
}

func (m *mockServerMetrics) IncrGRPCRequest(method string, success bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, requestEvent{method: method, success: success, reason: reason})
}

func (m *mockServerMetrics) IncrValidationError(method string, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationErrors[method+"/"+field]++
}

func (m *mockServerMetrics) IncrRateLimited(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited[method]++
}

func (m *mockServerMetrics) ObserveRequestLatency(string, time.Duration) {}

func (m *mockServerMetrics) IncrConcurrentRequests(method string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concurrent[method] += delta
}

func (m *mockServerMetrics) IncrHealthCheck(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthChecks[healthy]++
}

func (m *mockServerMetrics) SetActiveConnections(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections = count
}

func (m *mockServerMetrics) lastRequest() requestEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return requestEvent{}
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockServerMetrics) activeConnections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connections
}
