package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/testutil"
	"github.com/jathurchan/namereg/types"
)

// sample returns the value of the series name{labels} gathered from reg,
// failing the test if it is absent.
func sample(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	testutil.RequireNoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			got := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue series
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("series %s%v not found", name, labels)
	return 0
}

func TestMetrics_Registry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrApply(types.OperationRegister, true, "")
	m.IncrApply(types.OperationRegister, false, "COMMITMENT_TOO_YOUNG")
	m.IncrApply(types.OperationRegister, false, "COMMITMENT_TOO_YOUNG")
	m.ObserveFee(types.OperationRegister, 250_000_000)
	m.ObserveFee(types.OperationRenew, 250_000_000)
	m.ObserveEscrowReleased(registry.DefaultLockAmount)
	m.IncrExpiredRecords(3)
	m.IncrExpiredRecords(0)
	m.IncrPrunedCommitments(2)
	m.ObserveTickDuration(time.Millisecond)
	m.IncrSnapshotEvent(registry.SnapshotCreate, true)
	m.SetRecordGauges(4, 7, 4*registry.DefaultLockAmount)

	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_registry_apply_total",
		map[string]string{"operation": "register", "success": "true"}))
	testutil.AssertEqual(t, 2.0, sample(t, reg, "namereg_registry_apply_total",
		map[string]string{"reason": "COMMITMENT_TOO_YOUNG"}))
	testutil.AssertEqual(t, 250_000_000.0, sample(t, reg, "namereg_registry_fees_gwei_total",
		map[string]string{"operation": "renew"}))
	testutil.AssertEqual(t, float64(registry.DefaultLockAmount), sample(t, reg, "namereg_registry_escrow_released_gwei_total", nil))
	testutil.AssertEqual(t, 3.0, sample(t, reg, "namereg_registry_expired_records_total", nil))
	testutil.AssertEqual(t, 2.0, sample(t, reg, "namereg_registry_pruned_commitments_total", nil))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_registry_tick_duration_seconds", nil))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_registry_snapshot_events_total",
		map[string]string{"operation": "create", "success": "true"}))
	testutil.AssertEqual(t, 4.0, sample(t, reg, "namereg_registry_active_records", nil))
	testutil.AssertEqual(t, 7.0, sample(t, reg, "namereg_registry_pending_commitments", nil))
}

func TestMetrics_Ledger(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrSubmit(types.OperationCommit, true, "")
	m.ObserveSubmitLatency(types.OperationCommit, 2*time.Millisecond)
	m.ObserveJournalAppend(100 * time.Microsecond)
	m.SetLastIndex(42)
	m.SetRegistryBalance(5 * registry.Ether)
	m.IncrAuditFailure()

	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_ledger_submit_total",
		map[string]string{"operation": "commit", "success": "true"}))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_ledger_submit_latency_seconds",
		map[string]string{"operation": "commit"}))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_ledger_journal_append_seconds", nil))
	testutil.AssertEqual(t, 42.0, sample(t, reg, "namereg_ledger_last_index", nil))
	testutil.AssertEqual(t, float64(5*registry.Ether), sample(t, reg, "namereg_ledger_registry_balance_gwei", nil))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_ledger_audit_failures_total", nil))
}

func TestMetrics_Server(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrGRPCRequest("Register", false, "NOT_OWNER")
	m.IncrValidationError("Commit", "caller")
	m.IncrRateLimited("Commit")
	m.ObserveRequestLatency("Register", 5*time.Millisecond)
	m.IncrConcurrentRequests("Register", 1)
	m.IncrConcurrentRequests("Register", 1)
	m.IncrConcurrentRequests("Register", -1)
	m.IncrHealthCheck(true)
	m.SetActiveConnections(3)

	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_server_grpc_requests_total",
		map[string]string{"method": "Register", "success": "false", "reason": "NOT_OWNER"}))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_server_validation_errors_total",
		map[string]string{"field": "caller"}))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_server_rate_limited_total", nil))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_server_request_latency_seconds", nil))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_server_inflight_requests",
		map[string]string{"method": "Register"}))
	testutil.AssertEqual(t, 1.0, sample(t, reg, "namereg_server_health_checks_total",
		map[string]string{"healthy": "true"}))
	testutil.AssertEqual(t, 3.0, sample(t, reg, "namereg_server_active_connections", nil))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		testutil.AssertNotNil(t, recover(), "second registration on the same registry should panic")
	}()
	New(reg)
}
