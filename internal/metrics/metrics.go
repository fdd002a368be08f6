package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP layer

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disperse_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disperse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// Chain reads

	ChainReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disperse_chain_read_duration_seconds",
			Help:    "Duration of node read calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ChainReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disperse_chain_read_errors_total",
			Help: "Total number of failed node read calls",
		},
		[]string{"method", "kind"},
	)

	// Submissions

	TxSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disperse_tx_submissions_total",
			Help: "Total number of transaction submissions",
		},
		[]string{"operation", "outcome"},
	)

	TxSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disperse_tx_submission_duration_seconds",
			Help:    "Duration of the nonce-through-send submission span in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Events

	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "disperse_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disperse_nats_events_published_total",
			Help: "Total number of transaction events published to NATS",
		},
		[]string{"subject", "outcome"},
	)
)
