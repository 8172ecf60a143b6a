package registry

import (
	"time"

	"github.com/jathurchan/namereg/types"
)

// Metrics defines the interface for recording registry activity.
// All methods must be safe for concurrent use.
type Metrics interface {
	// IncrApply counts ledger commands applied, by operation and outcome.
	// `reason` is empty on success and a short error class otherwise.
	IncrApply(op types.Operation, success bool, reason string)

	// ObserveFee records rent retained by a registration or renewal.
	ObserveFee(op types.Operation, fee types.Amount)

	// ObserveEscrowReleased records a bond paid out by a withdrawal.
	ObserveEscrowReleased(amount types.Amount)

	// IncrExpiredRecords counts records that lapsed since the previous tick.
	IncrExpiredRecords(count int)

	// IncrPrunedCommitments counts commitments dropped as unredeemable.
	IncrPrunedCommitments(count int)

	// ObserveTickDuration records how long a tick cycle took.
	ObserveTickDuration(duration time.Duration)

	// IncrSnapshotEvent counts snapshot create/restore events.
	IncrSnapshotEvent(operation SnapshotOperation, success bool)

	// SetRecordGauges publishes the size of the registry's tables.
	SetRecordGauges(active, pendingCommitments int, escrowHeld types.Amount)
}

// NoOpMetrics is a Metrics implementation that records nothing.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a Metrics that discards everything.
func NewNoOpMetrics() Metrics { return &NoOpMetrics{} }

func (*NoOpMetrics) IncrApply(types.Operation, bool, string) {}
func (*NoOpMetrics) ObserveFee(types.Operation, types.Amount) {}
func (*NoOpMetrics) ObserveEscrowReleased(types.Amount) {}
func (*NoOpMetrics) IncrExpiredRecords(int) {}
func (*NoOpMetrics) IncrPrunedCommitments(int) {}
func (*NoOpMetrics) ObserveTickDuration(time.Duration) {}
func (*NoOpMetrics) IncrSnapshotEvent(SnapshotOperation, bool) {}
func (*NoOpMetrics) SetRecordGauges(int, int, types.Amount) {}
