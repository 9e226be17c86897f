package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trigger label values for fetch metrics.
const (
	TriggerManual = "manual"
	TriggerTick   = "tick"
)

// Result label values for fetch metrics.
const (
	ResultSuccess = "success"
	ResultEmpty   = "empty"
	ResultError   = "error"
	ResultStale   = "stale"
)

var (
	// FetchTotal counts route fetches by what started them and how they ended.
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bustracker_fetch_total",
		Help: "Number of route fetches by trigger (manual, tick) and result (success, empty, error, stale)",
	}, []string{"trigger", "result"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bustracker_fetch_duration_seconds",
		Help:    "Duration of route fetches in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})

	// NearestBusDistance is the distance to the closest bus of the last
	// successful fetch of a line.
	NearestBusDistance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bustracker_nearest_bus_distance_km",
		Help: "Distance in kilometres from the user to the nearest bus of the line",
	}, []string{"line"})

	StaleResultsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bustracker_stale_results_discarded_total",
		Help: "Number of fetch results dropped because a newer search replaced their session",
	})
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bustracker_active_sessions",
		Help: "Number of live search sessions",
	})
)

var (
	// OutgoingLatency tracks upstream request latency by URL, method and status.
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bustracker_outgoing_request_latency_seconds",
		Help:    "Latency of outgoing HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})

	RealtimeVehiclePositions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bustracker_gtfs_rt_vehicles",
		Help: "Number of vehicle positions in the last GTFS-RT feed download",
	}, []string{"feed_url"})
)

var (
	NATSPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bustracker_nats_published_total",
		Help: "Number of boards published to NATS",
	})

	NATSPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bustracker_nats_publish_errors_total",
		Help: "Number of failed NATS publishes",
	})

	// NATSConnected is 1 while the NATS connection is up.
	NATSConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bustracker_nats_connected",
		Help: "NATS connection status (0 = disconnected, 1 = connected)",
	})

	StaticCatalogRoutes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bustracker_gtfs_static_routes",
		Help: "Routes with terminal names in the loaded GTFS static bundle",
	})
)
