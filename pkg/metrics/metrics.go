// Package metrics documents the Prometheus metrics exposed by the service.
// All metrics are defined in their owning packages (flightstats, rendezvous,
// poller, server) via promauto to keep registration next to the code that
// drives them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Vendor Client (pkg/flightstats):
//   - flightstatus_vendor_requests_total{status} (Counter): vendor calls by HTTP status
//   - flightstatus_vendor_request_duration_seconds (Histogram): vendor call duration
//   - flightstatus_vendor_errors_total{class} (Counter): failures by class (client, server, network)
//
// Rendezvous Store (pkg/rendezvous):
//   - flightstatus_rendezvous_appends_total (Counter): partials appended
//   - flightstatus_rendezvous_drains_total (Counter): lists drained and deleted
//   - flightstatus_rendezvous_store_errors_total{operation} (Counter): Redis errors
//
// Completion Poller (pkg/poller):
//   - flightstatus_polls_total{state} (Counter): polls by outcome
//     (pending, ready, error, bad-airport, invalid_key)
//
// HTTP Surface (pkg/server):
//   - flightstatus_http_requests_total{path, status} (Counter): inbound requests
//
// Example Prometheus Queries:
//
//   # Vendor failure rate
//   rate(flightstatus_vendor_errors_total[5m]) / rate(flightstatus_vendor_requests_total[5m])
//
//   # Fan-outs that never complete (appends lag behind dispatched windows)
//   rate(flightstatus_rendezvous_appends_total[5m])
//
//   # Share of polls still pending
//   rate(flightstatus_polls_total{state="pending"}[5m]) / rate(flightstatus_polls_total[5m])
//
//   # P95 vendor latency
//   histogram_quantile(0.95, rate(flightstatus_vendor_request_duration_seconds_bucket[5m]))
