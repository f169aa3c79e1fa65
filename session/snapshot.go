package session

import (
	"time"

	"github.com/c360/llmbridge/pkg/timestamp"
	"github.com/c360/llmbridge/signature"
)

// Snapshot is the serialized form of a program as carried by the host for
// named pool sessions. Workers rebuild a live program from it on demand,
// so decoding is tolerant: missing or malformed fields fall back to zero
// values rather than failing the request.
type Snapshot struct {
	SignatureDef   map[string]any
	FieldMapping   signature.FieldMapping
	FallbackUsed   bool
	CreatedAt      time.Time
	ExecutionCount int64
	LastExecuted   *time.Time
}

// ParseSnapshot decodes the host-supplied program data map.
func ParseSnapshot(raw map[string]any) Snapshot {
	var snap Snapshot
	if raw == nil {
		return snap
	}
	if def, ok := raw["signature_def"].(map[string]any); ok {
		snap.SignatureDef = def
	}
	if mapping, ok := raw["field_mapping"].(map[string]any); ok {
		snap.FieldMapping = make(signature.FieldMapping, len(mapping))
		for orig, v := range mapping {
			if sanitized, ok := v.(string); ok {
				snap.FieldMapping[orig] = sanitized
			}
		}
	}
	if fb, ok := raw["fallback_used"].(bool); ok {
		snap.FallbackUsed = fb
	}
	if created := timestamp.Parse(raw["created_at"]); created > 0 {
		snap.CreatedAt = timestamp.ToTime(created)
	}
	snap.ExecutionCount = asInt64(raw["execution_count"])
	if last := timestamp.Parse(raw["last_executed"]); last > 0 {
		t := timestamp.ToTime(last)
		snap.LastExecuted = &t
	}
	return snap
}

// Dynamic reports whether the snapshot carries enough signature structure
// to rebuild a compiled program. Snapshots that fell back at creation, or
// that lack input or output fields, are rebuilt as legacy Q&A programs.
func (s Snapshot) Dynamic() bool {
	return !s.FallbackUsed && signature.Complete(s.SignatureDef)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case int32:
		return int64(n)
	}
	return 0
}
