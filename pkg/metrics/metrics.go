package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	EventsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipesight_events_submitted_total",
			Help: "Total number of events submitted to the ingestion queue by kind",
		},
		[]string{"kind"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_events_dropped_total",
			Help: "Total number of events dropped due to a full ingestion queue",
		},
	)

	EventsFolded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_events_folded_total",
			Help: "Total number of events folded into the pipeline state cache",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipesight_queue_depth",
			Help: "Current number of events waiting in the ingestion queue",
		},
	)

	// Durable log metrics
	StoreAppends = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_store_appends_total",
			Help: "Total number of records appended to the durable log store",
		},
	)

	StoreAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_store_append_failures_total",
			Help: "Total number of failed append attempts to the durable log store",
		},
	)

	MalformedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_malformed_records_total",
			Help: "Total number of malformed log records skipped during scans",
		},
	)

	// Broadcast hub metrics
	ClientsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipesight_clients_connected",
			Help: "Current number of connected dashboard clients",
		},
	)

	ClientsDisconnected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipesight_clients_disconnected_total",
			Help: "Total number of client disconnects by reason",
		},
		[]string{"reason"},
	)

	MessagesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_messages_published_total",
			Help: "Total number of delta messages delivered to clients",
		},
	)

	MessagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipesight_messages_dropped_total",
			Help: "Total number of delta messages dropped on full client buffers",
		},
	)

	// Stats aggregator metrics
	StatsScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipesight_stats_scan_duration_seconds",
			Help:    "Duration of full stats aggregation scans in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipesight_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipesight_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(EventsSubmitted)
	prometheus.MustRegister(EventsDropped)
	prometheus.MustRegister(EventsFolded)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(StoreAppends)
	prometheus.MustRegister(StoreAppendFailures)
	prometheus.MustRegister(MalformedRecords)
	prometheus.MustRegister(ClientsConnected)
	prometheus.MustRegister(ClientsDisconnected)
	prometheus.MustRegister(MessagesPublished)
	prometheus.MustRegister(MessagesDropped)
	prometheus.MustRegister(StatsScanDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
