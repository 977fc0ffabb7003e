package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds Prometheus metrics for the gateway.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	searchResults   prometheus.Histogram
	upstreamErrors  *prometheus.CounterVec
}

// NewMetrics creates and registers gateway metrics with the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memhandler_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memhandler_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memhandler_search_results",
			Help:    "Number of memories returned per context search",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memhandler_upstream_errors_total",
			Help: "Total number of memory store failures by operation",
		}, []string{"op"}),
	}

	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.searchResults,
		m.upstreamErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// ObserveSearchResults records how many memories a search returned.
func (m *Metrics) ObserveSearchResults(n int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(n))
}

// UpstreamFailure counts a failed memory store operation.
func (m *Metrics) UpstreamFailure(op string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(op).Inc()
}
