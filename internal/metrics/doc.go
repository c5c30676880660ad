// Package metrics collects per-target forwarding metrics for the label
// forwarder.
//
// Handlers emit events through a buffered channel with non-blocking sends; a
// single collector goroutine folds them into per-target counters:
//   - requests received, dry runs and missing-configuration rejections
//   - forwarded calls, remote error statuses and unreachable generators
//   - generator latency (average, P50, P95, P99) and status code distribution
//   - last known health from the optional health checker
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventForwardCompleted,
//		Target:     "small",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// Cancelling the context passed to Start drains queued events before the
// collector goroutine exits.
package metrics
