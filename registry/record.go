package registry

import (
	"time"

	"github.com/c360/llmbridge/pkg/timestamp"
	"github.com/c360/llmbridge/signature"
)

// Kind separates the two executable families. Predict records run through
// the configured language model with a compiled (or default) signature;
// Gemini records carry their own model name and a raw definition that
// drives prompt construction directly.
type Kind string

const (
	KindPredict Kind = "predict"
	KindGemini  Kind = "gemini"
)

// Record is one stored program. Compiled is nil for legacy and
// fallen-back records; those execute with the default question→answer
// signature. RawDefinition keeps the definition exactly as the caller sent
// it so list and info responses can echo it unchanged.
type Record struct {
	ID            string
	Kind          Kind
	ProgramType   string
	RawDefinition map[string]any
	Definition    signature.Definition
	Compiled      *signature.Compiled
	FieldMapping  signature.FieldMapping
	FallbackUsed  bool
	ModelName     string

	CreatedAt      time.Time
	ExecutionCount int64
	LastExecuted   *time.Time
}

// dynamic reports whether execution goes through the compiled signature.
func (rec *Record) dynamic() bool {
	return rec.Compiled != nil && !rec.FallbackUsed
}

// listEntry renders the record for list_programs. Callers hold the
// registry lock.
func (rec *Record) listEntry() map[string]any {
	return map[string]any{
		"id":              rec.ID,
		"created_at":      timestamp.FromTime(rec.CreatedAt),
		"execution_count": rec.ExecutionCount,
		"last_executed":   timestamp.Optional(rec.LastExecuted),
		"signature":       rec.RawDefinition,
	}
}

// infoPayload renders the record for get_program_info. Callers hold the
// registry lock.
func (rec *Record) infoPayload() map[string]any {
	payload := map[string]any{
		"program_id":      rec.ID,
		"signature":       rec.RawDefinition,
		"created_at":      timestamp.FromTime(rec.CreatedAt),
		"execution_count": rec.ExecutionCount,
		"last_executed":   timestamp.Optional(rec.LastExecuted),
	}
	if rec.Kind == KindGemini {
		payload["type"] = "gemini"
		payload["model_name"] = rec.ModelName
	}
	return payload
}
