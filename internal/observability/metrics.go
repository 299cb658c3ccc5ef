package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors exposed on /metrics
var (
	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapgroups_geocode_requests_total",
			Help: "Geocoding provider requests by outcome",
		},
		[]string{"outcome"},
	)

	GeocodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapgroups_geocode_duration_seconds",
			Help:    "Geocoding provider request latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	GeocodeCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapgroups_geocode_cache_total",
			Help: "Geocode cache lookups by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mapgroups_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapgroups_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	ImportItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapgroups_import_items_total",
			Help: "Bulk import addresses by outcome",
		},
		[]string{"outcome"},
	)

	ImportsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapgroups_imports_active",
			Help: "Bulk imports currently running",
		},
	)

	ReorderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapgroups_reorder_failures_total",
			Help: "Reorder requests rolled back because an id did not belong to the group",
		},
	)

	DevicesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapgroups_devices_swept_total",
			Help: "Inactive devices removed by maintenance",
		},
	)
)
