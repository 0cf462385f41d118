// Package metrics exposes Prometheus collectors for the site server and the
// snapshot builder.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	contentFetchesTotal          *prometheus.CounterVec
	contentFetchDurationSeconds  *prometheus.HistogramVec
	crawlerSnapshotRequestsTotal *prometheus.CounterVec
	snapshotRendersTotal         *prometheus.CounterVec
	snapshotBytesTotal           prometheus.Counter
	snapshotActiveRenders        prometheus.Gauge
	snapshotRenderWaitSeconds    prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)

		contentFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_content_fetches_total",
				Help: "Total number of content store reads, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		contentFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "site_content_fetch_duration_seconds",
				Help:    "Histogram of content store read latencies, labeled by source.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"source"},
		)

		crawlerSnapshotRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_crawler_snapshot_requests_total",
				Help: "Total number of escaped-fragment requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		snapshotRendersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_renders_total",
				Help: "Total number of snapshot render attempts, labeled by renderer and status.",
			},
			[]string{"renderer", "status"},
		)

		snapshotBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshot_bytes_total",
				Help: "Total number of snapshot bytes written.",
			},
		)

		snapshotActiveRenders = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapshot_active_renders",
				Help: "Number of snapshot tasks currently rendering.",
			},
		)

		snapshotRenderWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapshot_render_wait_seconds",
				Help:    "Histogram of render rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveContentFetch records one read from the content store.
func ObserveContentFetch(source, outcome string, duration time.Duration) {
	Init()
	contentFetchesTotal.WithLabelValues(source, outcome).Inc()
	contentFetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveCrawlerSnapshot records how an escaped-fragment request was answered.
func ObserveCrawlerSnapshot(outcome string) {
	Init()
	crawlerSnapshotRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSnapshotRender records a render attempt and the bytes it produced.
func ObserveSnapshotRender(renderer, status string, bytesWritten int) {
	Init()
	snapshotRendersTotal.WithLabelValues(renderer, status).Inc()
	if bytesWritten > 0 {
		snapshotBytesTotal.Add(float64(bytesWritten))
	}
}

// IncActiveRenders increments the active renders gauge.
func IncActiveRenders() {
	Init()
	snapshotActiveRenders.Inc()
}

// DecActiveRenders decrements the active renders gauge.
func DecActiveRenders() {
	Init()
	snapshotActiveRenders.Dec()
}

// ObserveRenderWait records the duration of a render rate limit wait.
func ObserveRenderWait(duration time.Duration) {
	Init()
	snapshotRenderWaitSeconds.Observe(duration.Seconds())
}
