package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceLoads counts load cycles by outcome (ok, cache_hit, unreadable_encoding, missing_columns, error).
	SourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binfinder_source_loads_total",
		Help: "Number of bin data source loads by outcome",
	}, []string{"source", "outcome"})

	SourceRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "binfinder_source_valid_records",
		Help: "Number of valid bin records in the most recent load of a source",
	}, []string{"source"})

	SourceDroppedRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "binfinder_source_dropped_rows",
		Help: "Number of rows dropped for unusable coordinates in the most recent load of a source",
	}, []string{"source"})

	SourceEncodingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binfinder_source_encoding_failures_total",
		Help: "Number of failed decode attempts by encoding",
	}, []string{"encoding"})
)

var (
	RankRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binfinder_rank_requests_total",
		Help: "Number of ranking computations by reference point provenance",
	}, []string{"provenance"})

	RankDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "binfinder_rank_duration_seconds",
		Help:    "Time spent computing distances and ordering bins",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	StaleSessionUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binfinder_session_stale_updates_total",
		Help: "Number of session results discarded because a newer location had already been applied",
	})
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binfinder_http_requests_total",
		Help: "Number of HTTP requests served by method and status code",
	}, []string{"method", "status"})

	// OutgoingLatency tracks the latency of outgoing HTTP requests (source and config downloads).
	OutgoingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binfinder_outgoing_request_latency_seconds",
			Help:    "Latency of outgoing HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"url", "method", "status"},
	)
)
