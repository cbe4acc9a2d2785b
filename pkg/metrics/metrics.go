// Package metrics exposes the Prometheus registry used by the discovery client.
// Metrics are defined in their own packages (client, pagination, ratelimit)
// and registered through promauto; this package documents them and serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - discovery_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status or error class
//   - discovery_request_duration_seconds{endpoint} (Histogram): server round trip
//   - discovery_errors_total{class} (Counter): failures by class (network, status, decode, cancelled)
//
// Retry Metrics (pkg/client):
//   - discovery_retries_total{endpoint} (Counter): retry attempts
//   - discovery_retry_backoff_seconds{endpoint} (Histogram): backoff slept before a retry
//   - discovery_retry_exhausted_total{endpoint} (Counter): pages that used every attempt
//
// Traversal Metrics (pkg/pagination):
//   - discovery_pages_fetched_total{mode} (Counter): pages appended, mode is cursor or offset
//   - discovery_traversals_total{mode, status} (Counter): traversals by final status
//
// Throttle Metrics (pkg/ratelimit):
//   - discovery_throttled_responses_total (Counter): 429 responses
//   - discovery_throttle_waits_total (Counter): requests delayed by a shared cooldown
//   - discovery_throttle_cooldown_seconds (Gauge): last requested cooldown
//
// Example Prometheus Queries:
//
//   # Share of list syncs that returned partial data
//   sum(rate(discovery_traversals_total{mode="offset",status="partial"}[1h]))
//     / sum(rate(discovery_traversals_total{mode="offset"}[1h]))
//
//   # Search pages giving up after all retries
//   rate(discovery_retry_exhausted_total[15m])
//
//   # P95 discovery latency
//   histogram_quantile(0.95, rate(discovery_request_duration_seconds_bucket[5m]))
