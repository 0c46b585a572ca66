// Package monitoring exposes Prometheus metrics for estimates, feed imports
// and the HTTP API.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carvalue"

// Import results recorded by ObserveImport.
const (
	ImportSucceeded = "success"
	ImportSkipped   = "skipped"
	ImportFailed    = "failed"
)

// Metrics holds the application's collectors. A nil *Metrics is valid and
// records nothing, so callers never need to guard their calls.
type Metrics struct {
	estimates      *prometheus.CounterVec
	imports        *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	importDuration prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Price estimates produced, by method.",
		}, []string{"method"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Inventory feed imports, by result.",
		}, []string{"result"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Feed rows processed, by outcome.",
		}, []string{"outcome"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Wall time of feed imports.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.estimates,
		m.imports,
		m.importRows,
		m.importDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveEstimate counts one estimate produced by method.
func (m *Metrics) ObserveEstimate(method string) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(method).Inc()
}

// ObserveImport records the outcome of one import run.
func (m *Metrics) ObserveImport(result string, imported, rejected int64, d time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(result).Inc()
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("rejected").Add(float64(rejected))
	if result != ImportSkipped {
		m.importDuration.Observe(d.Seconds())
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
