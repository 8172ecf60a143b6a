// Package metrics exports registry, ledger and server activity to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jathurchan/namereg/ledger"
	"github.com/jathurchan/namereg/registry"
	"github.com/jathurchan/namereg/server"
	"github.com/jathurchan/namereg/types"
)

// Namespace prefixes every metric exported by this package.
const Namespace = "namereg"

var (
	_ registry.Metrics     = (*Metrics)(nil)
	_ ledger.Metrics       = (*Metrics)(nil)
	_ server.ServerMetrics = (*Metrics)(nil)
)

// Metrics implements the metrics hooks of the registry, the ledger and the
// gRPC server on top of a single Prometheus registerer.
type Metrics struct {
	// registry
	applyTotal        *prometheus.CounterVec
	feesGwei          *prometheus.CounterVec
	escrowReleased    prometheus.Counter
	expiredRecords    prometheus.Counter
	prunedCommitments prometheus.Counter
	tickDuration      prometheus.Histogram
	snapshotEvents    *prometheus.CounterVec
	activeRecords     prometheus.Gauge
	pendingCommits    prometheus.Gauge
	escrowHeld        prometheus.Gauge

	// ledger
	submitTotal     *prometheus.CounterVec
	submitLatency   *prometheus.HistogramVec
	journalAppend   prometheus.Histogram
	lastIndex       prometheus.Gauge
	registryBalance prometheus.Gauge
	auditFailures   prometheus.Counter

	// server
	grpcRequests     *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	inflight         *prometheus.GaugeVec
	healthChecks     *prometheus.CounterVec
	connections      prometheus.Gauge
}

// New creates all collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		applyTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "apply_total",
			Help: "Commands applied by the registry, by operation and outcome.",
		}, []string{"operation", "success", "reason"}),
		feesGwei: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "fees_gwei_total",
			Help: "Rent retained by registrations and renewals, in gwei.",
		}, []string{"operation"}),
		escrowReleased: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "escrow_released_gwei_total",
			Help: "Bonds paid out by escrow withdrawals, in gwei.",
		}),
		expiredRecords: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "expired_records_total",
			Help: "Records observed to lapse during maintenance.",
		}),
		prunedCommitments: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "pruned_commitments_total",
			Help: "Commitments dropped after they could no longer be redeemed.",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name:    "tick_duration_seconds",
			Help:    "Duration of registry maintenance cycles.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		snapshotEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "snapshot_events_total",
			Help: "Snapshot create and restore events.",
		}, []string{"operation", "success"}),
		activeRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "active_records",
			Help: "Records whose term has not lapsed.",
		}),
		pendingCommits: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "pending_commitments",
			Help: "Commitments waiting to be revealed.",
		}),
		escrowHeld: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "registry",
			Name: "escrow_held_gwei",
			Help: "Sum of bonds currently held in escrow, in gwei.",
		}),

		submitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "ledger",
			Name: "submit_total",
			Help: "Transactions executed by the ledger, by operation and outcome.",
		}, []string{"operation", "success", "reason"}),
		submitLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "ledger",
			Name:    "submit_latency_seconds",
			Help:    "Time from submission to settlement.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		journalAppend: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "ledger",
			Name:    "journal_append_seconds",
			Help:    "Duration of journal appends.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 9),
		}),
		lastIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "ledger",
			Name: "last_index",
			Help: "Index of the last journaled transaction.",
		}),
		registryBalance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "ledger",
			Name: "registry_balance_gwei",
			Help: "Balance held by the registry account, in gwei.",
		}),
		auditFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "ledger",
			Name: "audit_failures_total",
			Help: "Balance audits that found a mismatch.",
		}),

		grpcRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "server",
			Name: "grpc_requests_total",
			Help: "RPCs handled, by method and outcome.",
		}, []string{"method", "success", "reason"}),
		validationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "server",
			Name: "validation_errors_total",
			Help: "Requests rejected by validation, by method and field.",
		}, []string{"method", "field"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "server",
			Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"method"}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "server",
			Name:    "request_latency_seconds",
			Help:    "End-to-end RPC latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		inflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "server",
			Name: "inflight_requests",
			Help: "RPCs currently being handled.",
		}, []string{"method"}),
		healthChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "server",
			Name: "health_checks_total",
			Help: "Health RPCs, by result.",
		}, []string{"healthy"}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "server",
			Name: "active_connections",
			Help: "Open client connections.",
		}),
	}
}

func (m *Metrics) IncrApply(op types.Operation, success bool, reason string) {
	m.applyTotal.WithLabelValues(string(op), strconv.FormatBool(success), reason).Inc()
}

func (m *Metrics) ObserveFee(op types.Operation, fee types.Amount) {
	m.feesGwei.WithLabelValues(string(op)).Add(float64(fee))
}

func (m *Metrics) ObserveEscrowReleased(amount types.Amount) {
	m.escrowReleased.Add(float64(amount))
}

func (m *Metrics) IncrExpiredRecords(count int) {
	if count > 0 {
		m.expiredRecords.Add(float64(count))
	}
}

func (m *Metrics) IncrPrunedCommitments(count int) {
	if count > 0 {
		m.prunedCommitments.Add(float64(count))
	}
}

func (m *Metrics) ObserveTickDuration(duration time.Duration) {
	m.tickDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncrSnapshotEvent(operation registry.SnapshotOperation, success bool) {
	m.snapshotEvents.WithLabelValues(string(operation), strconv.FormatBool(success)).Inc()
}

func (m *Metrics) SetRecordGauges(active, pendingCommitments int, escrowHeld types.Amount) {
	m.activeRecords.Set(float64(active))
	m.pendingCommits.Set(float64(pendingCommitments))
	m.escrowHeld.Set(float64(escrowHeld))
}

func (m *Metrics) IncrSubmit(op types.Operation, success bool, reason string) {
	m.submitTotal.WithLabelValues(string(op), strconv.FormatBool(success), reason).Inc()
}

func (m *Metrics) ObserveSubmitLatency(op types.Operation, latency time.Duration) {
	m.submitLatency.WithLabelValues(string(op)).Observe(latency.Seconds())
}

func (m *Metrics) ObserveJournalAppend(latency time.Duration) {
	m.journalAppend.Observe(latency.Seconds())
}

func (m *Metrics) SetLastIndex(index types.Index) {
	m.lastIndex.Set(float64(index))
}

func (m *Metrics) SetRegistryBalance(amount types.Amount) {
	m.registryBalance.Set(float64(amount))
}

func (m *Metrics) IncrAuditFailure() {
	m.auditFailures.Inc()
}

func (m *Metrics) IncrGRPCRequest(method string, success bool, reason string) {
	m.grpcRequests.WithLabelValues(method, strconv.FormatBool(success), reason).Inc()
}

func (m *Metrics) IncrValidationError(method string, field string) {
	m.validationErrors.WithLabelValues(method, field).Inc()
}

func (m *Metrics) IncrRateLimited(method string) {
	m.rateLimited.WithLabelValues(method).Inc()
}

func (m *Metrics) ObserveRequestLatency(method string, latency time.Duration) {
	m.requestLatency.WithLabelValues(method).Observe(latency.Seconds())
}

func (m *Metrics) IncrConcurrentRequests(method string, delta int) {
	m.inflight.WithLabelValues(method).Add(float64(delta))
}

func (m *Metrics) IncrHealthCheck(healthy bool) {
	m.healthChecks.WithLabelValues(strconv.FormatBool(healthy)).Inc()
}

func (m *Metrics) SetActiveConnections(count int) {
	m.connections.Set(float64(count))
}
