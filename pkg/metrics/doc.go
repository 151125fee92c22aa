// Package metrics provides Prometheus-compatible metrics for the validation
// server.
//
// It implements the Prometheus text exposition format (text/plain;
// version=0.0.4) with three metric types:
//   - Counter: monotonically increasing value (e.g. request counts)
//   - Gauge: value that can go up or down (e.g. configured routes)
//   - Histogram: distribution of values with configurable buckets (e.g. latencies)
//
// All metrics are safe for concurrent use. Exposition output is sorted by
// label values so scrapes are deterministic.
//
// # Usage
//
//	registry := metrics.NewRegistry()
//	m := metrics.NewHTTPMetrics(registry)
//	m.Observe("GET /users/{id}", 400, 1500*time.Microsecond)
//	mux.Handle("GET /metrics", registry.Handler())
//
// Custom metrics can also be created:
//
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1", "label2")
//	vec, _ := counter.WithLabels("value1", "value2")
//	_ = vec.Inc()
package metrics
