// Package metrics provides the centralized Prometheus metrics reference
// for codacy-report. All metrics are defined in their respective packages
// (codacy, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by codacy-report.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/codacy):
//   - codacy_requests_total{status} (Counter): Issue search requests by HTTP status
//   - codacy_request_duration_seconds (Histogram): Issue search request duration
//   - codacy_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/codacy):
//   - codacy_retries_total{error_class} (Counter): Retry attempts by error class
//   - codacy_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - codacy_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - codacy_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - codacy_cache_misses_total (Counter): Page cache misses
//   - codacy_cache_size_bytes{layer="redis"} (Gauge): Page cache size in bytes
//   - codacy_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pacer Metrics (pkg/ratelimit):
//   - codacy_pacer_throttles_total (Counter): Requests delayed by the pacer
//   - codacy_pacer_holdoff_seconds (Histogram): Hold-off durations applied
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(codacy_cache_hits_total[5m])) /
//   (sum(rate(codacy_cache_hits_total[5m])) + sum(rate(codacy_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(codacy_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(codacy_request_duration_seconds_bucket[5m]))
