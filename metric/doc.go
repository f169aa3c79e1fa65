// Package metric provides Prometheus-based metrics collection and an HTTP
// server for llmbridge observability.
//
// The package offers a registry managing bridge metrics plus Go runtime and
// process collectors, and an HTTP server exposing metrics in Prometheus
// format together with the aggregated component health.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Registry: duplicate-guarded registration over a private Prometheus
//     registry (MetricsRegistry, MetricsRegistrar interface)
//  2. Bridge metrics: the worker's domain metrics under the "llmbridge"
//     namespace (BridgeMetrics)
//  3. HTTP server: metrics endpoint with a JSON health check (Server)
//
// The HTTP server is strictly an observer. It never touches the command
// loop's state directly; everything it serves comes from Prometheus
// collectors and the health.Monitor, both safe for concurrent reads.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	bridgeMetrics, err := metric.NewBridgeMetrics(registry)
//	if err != nil {
//	    return err
//	}
//
//	monitor := health.NewMonitor()
//	server := metric.NewServer("", 9090, "/metrics", registry, monitor, security.Config{})
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	bridgeMetrics.RecordCommand("ping", "success", elapsed)
//
// The server binds loopback by default. The worker's only intended remote
// surface is the framed stdio protocol; metrics stay on the local host
// unless the operator configures a bind address and TLS.
//
// # Bridge Metrics
//
// All bridge metrics use the namespace "llmbridge":
//
//   - llmbridge_commands_total{command,status} and
//     llmbridge_commands_duration_seconds{command}
//   - llmbridge_programs_active and
//     llmbridge_programs_executions_total{kind,status}
//   - llmbridge_wire_frames_read_total, llmbridge_wire_frames_written_total,
//     llmbridge_wire_bytes_read_total, llmbridge_wire_bytes_written_total
//   - llmbridge_signature_cache_entries, llmbridge_signature_cache_hits,
//     llmbridge_signature_cache_misses
//   - llmbridge_backend_configured
//
// A nil *BridgeMetrics records nothing, so the command loop runs identically
// with metrics disabled.
//
// # Health Endpoint
//
// GET /health serves the health.Monitor aggregate as JSON. A healthy or
// degraded worker answers 200; an unhealthy one answers 503 so probes can
// fail over. Messages reaching this endpoint have been sanitized by the
// health package.
package metric
