// Package metrics defines the Prometheus collectors for the minute ledger.
// Collectors are registered via promauto at init and exported as package
// variables; the API server exposes them on /metrics when enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DetentionTransitions counts single-record status transitions by target.
var DetentionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_detention_transitions_total",
	Help: "Detention status transitions applied, by target status.",
}, []string{"target"})

// RewardsAwarded counts rewards persisted by the allocator.
var RewardsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ledger_rewards_awarded_total",
	Help: "Rewards persisted, including zero-offset awards.",
})

// OffsetMinutesApplied counts reward minutes reconciled against detentions.
var OffsetMinutesApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ledger_offset_minutes_applied_total",
	Help: "Total reward minutes applied to detentions as offsets.",
})

// AllocationRetries counts optimistic-lock retries inside the allocator.
var AllocationRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ledger_allocation_retries_total",
	Help: "Conditional-update retries during reward allocation.",
})

// BulkOperations counts bulk transition calls by operation.
var BulkOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_bulk_operations_total",
	Help: "Bulk transition requests, by operation.",
}, []string{"op"})

// BulkDetentionsUpdated counts detentions changed by bulk operations.
var BulkDetentionsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_bulk_detentions_updated_total",
	Help: "Detentions updated by bulk transitions, by operation.",
}, []string{"op"})

// DashboardQueries times tenant dashboard aggregation.
var DashboardQueries = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ledger_dashboard_query_seconds",
	Help:    "Latency of tenant dashboard aggregation.",
	Buckets: prometheus.DefBuckets,
})
