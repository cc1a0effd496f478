// Package metrics defines and registers all custom Prometheus metrics for the
// energy ledger. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default registry at package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "energy_ledger"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// OperationsTotal counts ledger mutations handled by the API.
// Labels:
//   - op: the ledger operation (e.g. "post_listing", "purchase")
//   - result: "ok" or the error class (e.g. "not_found", "conflict")
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of ledger operations, by operation and result.",
	},
	[]string{"op", "result"},
)

// EnergyTradedTotal sums the energy units moved by filled listings.
var EnergyTradedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "energy_traded_units_total",
		Help:      "Total energy units transferred through filled listings.",
	},
)

// IdempotencyTotal counts idempotency-key decisions.
// Label:
//   - result: "hit" (duplicate, rejected) or "miss" (new request)
var IdempotencyTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotency_total",
		Help:      "Total number of idempotency checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsPublishedTotal counts change events handed to the sink.
// Labels:
//   - type: the event type (e.g. "listing.filled")
//   - result: "ok" or "error"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of change events published, by type and result.",
	},
	[]string{"type", "result"},
)

// EventsDroppedTotal counts events discarded because a worker queue was full.
var EventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of change events dropped on a full dispatcher queue.",
	},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventPublishDuration measures how long a single publish takes.
var EventPublishDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_publish_duration_seconds",
		Help:      "Duration of a single change event publish.",
		Buckets:   prometheus.DefBuckets,
	},
)
