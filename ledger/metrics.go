package ledger

import (
	"time"

	"github.com/jathurchan/namereg/types"
)

// Metrics defines the interface for recording ledger activity.
type Metrics interface {
	// IncrSubmit counts executed transactions by operation and outcome.
	IncrSubmit(op types.Operation, success bool, reason string)

	// ObserveSubmitLatency records the time from submission to settlement.
	ObserveSubmitLatency(op types.Operation, latency time.Duration)

	// ObserveJournalAppend records the duration of a journal append.
	ObserveJournalAppend(latency time.Duration)

	// SetLastIndex publishes the index of the last journaled entry.
	SetLastIndex(index types.Index)

	// SetRegistryBalance publishes the balance held by the registry account.
	SetRegistryBalance(amount types.Amount)

	// IncrAuditFailure counts failed balance audits.
	IncrAuditFailure()
}

// NoOpMetrics is a Metrics implementation that records nothing.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a Metrics that discards everything.
func NewNoOpMetrics() Metrics { return &NoOpMetrics{} }

func (*NoOpMetrics) IncrSubmit(types.Operation, bool, string) {}
func (*NoOpMetrics) ObserveSubmitLatency(types.Operation, time.Duration) {}
func (*NoOpMetrics) ObserveJournalAppend(time.Duration) {}
func (*NoOpMetrics) SetLastIndex(types.Index) {}
func (*NoOpMetrics) SetRegistryBalance(types.Amount) {}
func (*NoOpMetrics) IncrAuditFailure() {}
