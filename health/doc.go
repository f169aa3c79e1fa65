// Package health provides health monitoring for llmbridge components with
// thread-safe status tracking and aggregation.
//
// The worker tracks three components: "bridge" (the command loop), "lm" (the
// language-model backend), and "registry" (the program store). The metrics
// HTTP server exposes their aggregate on /health.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced functionality
//   - Unhealthy: component not functioning properly
//
// An unconfigured language model is degraded, not unhealthy: the worker keeps
// serving commands and executes fail with a backend error until a configure
// succeeds or the environment supplies a key.
//
// # Basic Usage
//
//	monitor := health.NewMonitor()
//
//	monitor.UpdateHealthy("bridge", "serving")
//	monitor.Update("lm", health.DegradedFromError("lm", err))
//
//	system := monitor.AggregateHealth("llmbridge")
//	if system.IsUnhealthy() {
//	    log.Printf("worker unhealthy: %s", system.Message)
//	}
//
// Aggregation uses hierarchical rules:
//   - Any unhealthy component → system unhealthy
//   - Any degraded component (with no unhealthy) → system degraded
//   - All healthy → system healthy
//
// # Error Sanitization
//
// UnhealthyFromError and DegradedFromError pass error messages through a
// sanitizer before they can reach the HTTP surface. Backend errors can carry
// the LM endpoint URL with the API key attached, configuration errors carry
// file paths, and transport errors carry host:port pairs; the sanitizer
// replaces all of these with placeholder tokens. Statuses built directly via
// NewHealthy/NewDegraded/NewUnhealthy are not sanitized and must only carry
// operator-written messages.
package health
