// Package metrics provides the centralized Prometheus metrics registry for
// the collector. All metrics are defined in their respective packages
// (schedule, harvest, transport, report) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the collector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Scheduler Metrics (pkg/schedule):
//   - collector_tasks_admitted_total (Counter): Tasks admitted by the scheduler
//   - collector_admission_wait_seconds (Histogram): Time spent waiting out the inter-admission interval
//   - collector_queue_depth (Gauge): Tasks currently waiting in the queue
//
// Harvest Metrics (pkg/harvest):
//   - collector_batch_retries_total (Counter): Batch fetch retry attempts
//   - collector_batch_failures_total (Counter): Batches that exhausted their retries
//   - collector_records_fetched_total (Counter): Device records retrieved
//
// Transport Metrics (pkg/transport):
//   - collector_requests_total{status} (Counter): Telemetry API requests by HTTP status
//   - collector_request_duration_seconds (Histogram): Request duration
//   - collector_transport_errors_total{class} (Counter): Failures by class (rejected, no_response, request)
//
// Report Metrics (pkg/report):
//   - collector_report_mirror_writes_total (Counter): Reports mirrored to Redis
//   - collector_report_mirror_errors_total{operation} (Counter): Mirror errors by operation
//
// Example Prometheus Queries:
//
//   # Batch failure rate
//   rate(collector_batch_failures_total[15m]) / rate(collector_tasks_admitted_total[15m])
//
//   # Retry pressure
//   rate(collector_batch_retries_total[15m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(collector_request_duration_seconds_bucket[5m]))
//
//   # Transport failures by class
//   sum by (class) (rate(collector_transport_errors_total[15m]))
