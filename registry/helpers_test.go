package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

var genesis = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	alice = types.Address("0xa11ce")
	bob   = types.Address("0xb0b")
	carol = types.Address("0xca401")
)

func createTestRegistry(t *testing.T, opts ...RegistryOption) (*registry, *recordingMetrics) {
	t.Helper()
	metrics := newRecordingMetrics()
	opts = append([]RegistryOption{WithLogger(logger.NewNoOpLogger()), WithMetrics(metrics)}, opts...)

	reg, err := NewRegistry(opts...)
	testutil.RequireNoError(t, err)
	internal, ok := reg.(*registry)
	testutil.AssertTrue(t, ok, "Expected *registry type")
	return internal, metrics
}

// txAt builds a transaction context at genesis + offset.
func txAt(caller types.Address, value types.Amount, offset time.Duration) types.TxContext {
	return types.TxContext{Caller: caller, Value: value, Now: genesis.Add(offset)}
}

// mustRegister runs a full commit/reveal for name at genesis + start.
func mustRegister(t *testing.T, r *registry, name string, owner types.Address, start time.Duration) *types.Receipt {
	t.Helper()
	salt := testutil.SaltFromSeed(byte(len(name)))
	fp, err := r.MakeCommitment(name, owner, salt)
	testutil.RequireNoError(t, err)

	_, err = r.ApplyCommit(t.Context(), txAt(owner, 0, start), fp)
	testutil.RequireNoError(t, err)

	price, err := r.RentPrice(name)
	testutil.RequireNoError(t, err)
	receipt, err := r.ApplyRegister(t.Context(), txAt(owner, price, start+r.config.MinCommitmentAge), name, owner, salt)
	testutil.RequireNoError(t, err)
	return receipt
}

type applyEvent struct {
	op      types.Operation
	success bool
	reason  string
}

// recordingMetrics captures registry metrics for assertions.
type recordingMetrics struct {
	mu        sync.Mutex
	applies   []applyEvent
	fees      types.Amount
	released  types.Amount
	expired   int
	pruned    int
	snapshots map[SnapshotOperation]int
	active    int
	pending   int
	held      types.Amount
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{snapshots: make(map[SnapshotOperation]int)}
}

func (m *recordingMetrics) IncrApply(op types.Operation, success bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applies = append(m.applies, applyEvent{op: op, success: success, reason: reason})
}

func (m *recordingMetrics) ObserveFee(_ types.Operation, fee types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fees += fee
}

func (m *recordingMetrics) ObserveEscrowReleased(amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released += amount
}

func (m *recordingMetrics) IncrExpiredRecords(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired += count
}

func (m *recordingMetrics) IncrPrunedCommitments(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned += count
}

func (m *recordingMetrics) ObserveTickDuration(time.Duration) {}

func (m *recordingMetrics) IncrSnapshotEvent(op SnapshotOperation, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.snapshots[op]++
	}
}

func (m *recordingMetrics) SetRecordGauges(active, pending int, held types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active, m.pending, m.held = active, pending, held
}

func (m *recordingMetrics) lastApply() applyEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.applies) == 0 {
		return applyEvent{}
	}
	return m.applies[len(m.applies)-1]
}
