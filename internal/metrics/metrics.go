// Package metrics exposes Prometheus collectors for the extraction service.
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
	extractionsTotal           *prometheus.CounterVec
	extractionDurationSeconds  prometheus.Histogram
	batchURLsTotal             *prometheus.CounterVec
	batchesTotal               prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_extractions_total",
				Help: "Total number of extraction runs, labeled by status.",
			},
			[]string{"status"},
		)

		extractionDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "extractor_extraction_duration_seconds",
				Help:    "Histogram of end-to-end extraction latencies.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		batchURLsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_batch_urls_total",
				Help: "Total number of URLs processed in batches, labeled by status.",
			},
			[]string{"status"},
		)

		batchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "extractor_batches_total",
				Help: "Total number of batches processed.",
			},
		)

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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveExtraction records one finished extraction run.
func ObserveExtraction(duration time.Duration, success bool) {
	if extractionsTotal == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	extractionsTotal.WithLabelValues(status).Inc()
	extractionDurationSeconds.Observe(duration.Seconds())
}

// ObserveBatch records one finished batch.
func ObserveBatch(total, successful int) {
	if batchesTotal == nil {
		return
	}
	batchesTotal.Inc()
	batchURLsTotal.WithLabelValues("success").Add(float64(successful))
	batchURLsTotal.WithLabelValues("failed").Add(float64(total - successful))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
