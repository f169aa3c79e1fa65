package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every bridge metric.
const namespace = "llmbridge"

// BridgeMetrics holds the Prometheus metrics for the command loop. A nil
// *BridgeMetrics is valid and records nothing, so callers never guard.
type BridgeMetrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	executionsTotal *prometheus.CounterVec
	programsActive  prometheus.Gauge

	framesRead    prometheus.Counter
	framesWritten prometheus.Counter
	bytesRead     prometheus.Counter
	bytesWritten  prometheus.Counter

	cacheEntries prometheus.Gauge
	cacheHits    prometheus.Gauge
	cacheMisses  prometheus.Gauge

	backendConfigured prometheus.Gauge
}

// NewBridgeMetrics creates and registers the bridge metrics. A nil registry
// returns nil, which disables recording.
func NewBridgeMetrics(registry *MetricsRegistry) (*BridgeMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &BridgeMetrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Commands dispatched, by command name and outcome",
		}, []string{"command", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Command handling duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "programs",
			Name:      "executions_total",
			Help:      "Program executions, by program kind and outcome",
		}, []string{"kind", "status"}),
		programsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "programs",
			Name:      "active",
			Help:      "Programs currently stored in the local registry",
		}),
		framesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "frames_read_total",
			Help:      "Frames read from the host stream",
		}),
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "frames_written_total",
			Help:      "Frames written to the host stream",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "bytes_read_total",
			Help:      "Payload bytes read from the host stream",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "bytes_written_total",
			Help:      "Payload bytes written to the host stream",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signature_cache",
			Name:      "entries",
			Help:      "Compiled signatures currently cached",
		}),
		cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signature_cache",
			Name:      "hits",
			Help:      "Cumulative signature cache hits, mirrored from the compiler",
		}),
		cacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signature_cache",
			Name:      "misses",
			Help:      "Cumulative signature cache misses, mirrored from the compiler",
		}),
		backendConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "configured",
			Help:      "Whether a language-model client is installed (0 or 1)",
		}),
	}

	registrations := []error{
		registry.RegisterCounterVec("bridge", "commands_total", m.commandsTotal),
		registry.RegisterHistogramVec("bridge", "command_duration", m.commandDuration),
		registry.RegisterCounterVec("bridge", "executions_total", m.executionsTotal),
		registry.RegisterGauge("bridge", "programs_active", m.programsActive),
		registry.RegisterCounter("bridge", "frames_read", m.framesRead),
		registry.RegisterCounter("bridge", "frames_written", m.framesWritten),
		registry.RegisterCounter("bridge", "bytes_read", m.bytesRead),
		registry.RegisterCounter("bridge", "bytes_written", m.bytesWritten),
		registry.RegisterGauge("bridge", "cache_entries", m.cacheEntries),
		registry.RegisterGauge("bridge", "cache_hits", m.cacheHits),
		registry.RegisterGauge("bridge", "cache_misses", m.cacheMisses),
		registry.RegisterGauge("bridge", "backend_configured", m.backendConfigured),
	}
	for _, err := range registrations {
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordCommand counts one dispatched command and observes its duration.
func (m *BridgeMetrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordExecution counts one program execution by kind and outcome.
func (m *BridgeMetrics) RecordExecution(kind, status string) {
	if m == nil {
		return
	}
	m.executionsTotal.WithLabelValues(kind, status).Inc()
}

// SetActivePrograms updates the stored-program gauge.
func (m *BridgeMetrics) SetActivePrograms(count int) {
	if m == nil {
		return
	}
	m.programsActive.Set(float64(count))
}

// RecordFrameRead counts one inbound frame and its payload size.
func (m *BridgeMetrics) RecordFrameRead(payloadBytes int) {
	if m == nil {
		return
	}
	m.framesRead.Inc()
	m.bytesRead.Add(float64(payloadBytes))
}

// RecordFrameWritten counts one outbound frame and its payload size.
func (m *BridgeMetrics) RecordFrameWritten(payloadBytes int) {
	if m == nil {
		return
	}
	m.framesWritten.Inc()
	m.bytesWritten.Add(float64(payloadBytes))
}

// SetSignatureCache mirrors the compiler's cache statistics. Hits and misses
// are cumulative counters owned by the compiler, so they surface as gauges.
func (m *BridgeMetrics) SetSignatureCache(entries int, hits, misses uint64) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(entries))
	m.cacheHits.Set(float64(hits))
	m.cacheMisses.Set(float64(misses))
}

// SetBackendConfigured flips the backend gauge.
func (m *BridgeMetrics) SetBackendConfigured(configured bool) {
	if m == nil {
		return
	}
	value := 0.0
	if configured {
		value = 1.0
	}
	m.backendConfigured.Set(value)
}
