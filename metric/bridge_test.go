package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBridgeMetricsNilRegistry(t *testing.T) {
	m, err := NewBridgeMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// A nil receiver records nothing and must not panic.
	m.RecordCommand("ping", "success", time.Millisecond)
	m.RecordExecution("predict", "success")
	m.SetActivePrograms(3)
	m.RecordFrameRead(128)
	m.RecordFrameWritten(256)
	m.SetSignatureCache(2, 10, 4)
	m.SetBackendConfigured(true)
}

func TestNewBridgeMetricsRegistersEverything(t *testing.T) {
	registry := NewMetricsRegistry()

	m, err := NewBridgeMetrics(registry)
	require.NoError(t, err)
	require.NotNil(t, m)

	m.RecordCommand("ping", "success", 5*time.Millisecond)
	m.RecordExecution("gemini", "error")
	m.SetActivePrograms(2)
	m.RecordFrameRead(64)
	m.RecordFrameWritten(128)
	m.SetSignatureCache(1, 3, 1)
	m.SetBackendConfigured(false)

	names := gatherNames(t, registry)
	for _, want := range []string{
		"llmbridge_commands_total",
		"llmbridge_commands_duration_seconds",
		"llmbridge_programs_executions_total",
		"llmbridge_programs_active",
		"llmbridge_wire_frames_read_total",
		"llmbridge_wire_frames_written_total",
		"llmbridge_wire_bytes_read_total",
		"llmbridge_wire_bytes_written_total",
		"llmbridge_signature_cache_entries",
		"llmbridge_signature_cache_hits",
		"llmbridge_signature_cache_misses",
		"llmbridge_backend_configured",
	} {
		assert.True(t, names[want], "expected metric %s", want)
	}
}

func TestNewBridgeMetricsDoubleRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	_, err := NewBridgeMetrics(registry)
	require.NoError(t, err)

	// The same registry cannot host the bridge metrics twice.
	_, err = NewBridgeMetrics(registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}
