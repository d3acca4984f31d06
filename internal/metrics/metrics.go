// Package metrics holds the Prometheus collectors of the fulfillment service.
//
// Collectors are registered on a private Registry so tests can build as many
// as they like without tripping duplicate-registration panics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grocery"

// Metrics bundles every collector used by the service.
type Metrics struct {
	Registry *prometheus.Registry

	// PassDuration tracks how long one aggregation pass takes, by outcome.
	PassDuration *prometheus.HistogramVec
	// PassesDiscarded counts passes dropped because a newer snapshot superseded them.
	PassesDiscarded prometheus.Counter
	// Lookups counts customer lookups by outcome ("found", "missing", "anonymous", "error").
	Lookups *prometheus.CounterVec
	// LookupErrors counts failed lookups by classified reason.
	LookupErrors *prometheus.CounterVec
	// StatusChanges counts operator status updates by target status and result.
	StatusChanges *prometheus.CounterVec
	// OrdersPlaced counts successful storefront checkouts.
	OrdersPlaced prometheus.Counter
	// PendingOrders mirrors the latest stats snapshot.
	PendingOrders prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "pass_duration_seconds",
			Help:      "Duration of order aggregation passes in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		PassesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "passes_discarded_total",
			Help:      "Aggregation passes discarded because a newer snapshot arrived.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "customers",
			Name:      "lookups_total",
			Help:      "Customer directory lookups by outcome.",
		}, []string{"outcome"}),
		LookupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "customers",
			Name:      "lookup_errors_total",
			Help:      "Failed customer lookups by reason.",
		}, []string{"reason"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Operator status changes by target status and result.",
		}, []string{"status", "result"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders placed through the storefront checkout.",
		}),
		PendingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "pending",
			Help:      "Orders currently in the pending status.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PassDuration,
		m.PassesDiscarded,
		m.Lookups,
		m.LookupErrors,
		m.StatusChanges,
		m.OrdersPlaced,
		m.PendingOrders,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
