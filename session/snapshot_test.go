package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/llmbridge/session"
	"github.com/c360/llmbridge/signature"
)

func completeSignatureDef() map[string]any {
	return map[string]any{
		"name": "QA",
		"inputs": []any{
			map[string]any{"name": "question"},
		},
		"outputs": []any{
			map[string]any{"name": "answer"},
		},
	}
}

func TestParseSnapshot(t *testing.T) {
	raw := map[string]any{
		"signature_def": completeSignatureDef(),
		"field_mapping": map[string]any{
			"user name": "user_name",
			"answer":    "answer",
		},
		"fallback_used":   false,
		"created_at":      float64(1700000000.5),
		"execution_count": float64(3),
		"last_executed":   float64(1700000100),
	}

	snap := session.ParseSnapshot(raw)

	assert.Equal(t, "QA", snap.SignatureDef["name"])
	assert.Equal(t, signature.FieldMapping{
		"user name": "user_name",
		"answer":    "answer",
	}, snap.FieldMapping)
	assert.False(t, snap.FallbackUsed)
	assert.Equal(t, int64(3), snap.ExecutionCount)
	assert.Equal(t, int64(1700000000), snap.CreatedAt.Unix())
	require.NotNil(t, snap.LastExecuted)
	assert.Equal(t, int64(1700000100), snap.LastExecuted.Unix())
	assert.True(t, snap.Dynamic())
}

func TestParseSnapshotEmpty(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}} {
		snap := session.ParseSnapshot(raw)
		assert.Nil(t, snap.SignatureDef)
		assert.Nil(t, snap.FieldMapping)
		assert.False(t, snap.FallbackUsed)
		assert.True(t, snap.CreatedAt.IsZero())
		assert.Zero(t, snap.ExecutionCount)
		assert.Nil(t, snap.LastExecuted)
		assert.False(t, snap.Dynamic())
	}
}

func TestParseSnapshotTolerant(t *testing.T) {
	raw := map[string]any{
		"signature_def": "not a map",
		"field_mapping": map[string]any{
			"good": "kept",
			"bad":  42,
		},
		"fallback_used":   "yes",
		"created_at":      "not a time",
		"execution_count": "three",
		"last_executed":   nil,
	}

	snap := session.ParseSnapshot(raw)

	assert.Nil(t, snap.SignatureDef)
	assert.Equal(t, signature.FieldMapping{"good": "kept"}, snap.FieldMapping)
	assert.False(t, snap.FallbackUsed)
	assert.True(t, snap.CreatedAt.IsZero())
	assert.Zero(t, snap.ExecutionCount)
	assert.Nil(t, snap.LastExecuted)
}

func TestParseSnapshotIntegerTimes(t *testing.T) {
	raw := map[string]any{
		"created_at":      int64(1700000000),
		"execution_count": 7,
	}

	snap := session.ParseSnapshot(raw)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), snap.CreatedAt.UTC())
	assert.Equal(t, int64(7), snap.ExecutionCount)
}

func TestSnapshotDynamic(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want bool
	}{
		{
			name: "complete definition",
			snap: session.Snapshot{SignatureDef: completeSignatureDef()},
			want: true,
		},
		{
			name: "fallback recorded at creation",
			snap: session.Snapshot{SignatureDef: completeSignatureDef(), FallbackUsed: true},
			want: false,
		},
		{
			name: "missing outputs",
			snap: session.Snapshot{SignatureDef: map[string]any{
				"inputs": []any{map[string]any{"name": "question"}},
			}},
			want: false,
		},
		{
			name: "empty inputs",
			snap: session.Snapshot{SignatureDef: map[string]any{
				"inputs":  []any{},
				"outputs": []any{map[string]any{"name": "answer"}},
			}},
			want: false,
		},
		{
			name: "nil definition",
			snap: session.Snapshot{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Dynamic())
		})
	}
}
