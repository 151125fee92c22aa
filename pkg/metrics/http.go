package metrics

import (
	"strconv"
	"time"
)

// HTTPMetrics are the metrics recorded by the validation server.
type HTTPMetrics struct {
	// Requests counts requests by route pattern and response status.
	Requests *Counter

	// Duration tracks request latency by route pattern.
	Duration *Histogram

	// Routes is the number of configured routes.
	Routes *Gauge
}

// NewHTTPMetrics registers the server metrics on r.
func NewHTTPMetrics(r *Registry) *HTTPMetrics {
	return &HTTPMetrics{
		Requests: r.NewCounter(
			"routeval_requests_total",
			"Total number of requests by route pattern and status",
			"pattern", "status",
		),
		Duration: r.NewHistogram(
			"routeval_request_duration_seconds",
			"Duration of requests in seconds, validation included",
			DefaultBuckets,
			"pattern",
		),
		Routes: r.NewGauge(
			"routeval_routes",
			"Number of configured routes",
		),
	}
}

// Observe records one request. Requests that matched no route have an empty
// pattern and are recorded as "unmatched".
func (m *HTTPMetrics) Observe(pattern string, status int, d time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	if vec, err := m.Requests.WithLabels(pattern, strconv.Itoa(status)); err == nil {
		_ = vec.Inc()
	}
	if vec, err := m.Duration.WithLabels(pattern); err == nil {
		vec.Observe(d.Seconds())
	}
}
