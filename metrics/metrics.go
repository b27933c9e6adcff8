package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eloverblik_exporter_http_requests_total",
			Help: "Outbound HTTP requests by service and status code",
		},
		[]string{"service", "code"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eloverblik_exporter_rate_limited_total",
			Help: "Responses classified as rate limited by service",
		},
		[]string{"service"},
	)

	TokenExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eloverblik_exporter_token_exchanges_total",
			Help: "Access token exchanges by service and result",
		},
		[]string{"service", "result"},
	)

	TokenCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eloverblik_exporter_token_cache_hits_total",
			Help: "Requests served with a cached access token",
		},
		[]string{"service"},
	)

	ExportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eloverblik_exporter_runs_total",
			Help: "Export runs by result",
		},
		[]string{"result"},
	)

	ExportDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eloverblik_exporter_run_duration_seconds",
			Help:    "Duration of export runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	BucketsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eloverblik_exporter_usage_buckets_written_total",
			Help: "Usage buckets handed to the store by granularity",
		},
		[]string{"granularity"},
	)
)

func RecordRequest(service string, statusCode int) {
	RequestsTotal.WithLabelValues(service, strconv.Itoa(statusCode)).Inc()
}

func RecordExportRun(err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ExportRunsTotal.WithLabelValues(result).Inc()
	ExportDurationSeconds.Observe(duration.Seconds())
}
