package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/pkg/timestamp"
)

// GeminiCreateParams carries the resolved create_gemini_program arguments.
type GeminiCreateParams struct {
	ID            string
	RawDefinition map[string]any
	ModelName     string
}

// CreateGemini stores a Gemini-backed program. The definition is kept raw;
// it is only walked at execution time to build and parse prompts, so no
// compilation or validation happens here.
func (r *Registry) CreateGemini(p GeminiCreateParams) (map[string]any, error) {
	if !r.lm.GeminiAvailable() {
		return nil, errors.Backend(errors.ErrBackendUnavailable,
			"Gemini not available - cannot create Gemini programs")
	}
	if p.ID == "" {
		return nil, errors.Validation(errors.ErrMissingProgramID, "Program ID is required")
	}

	raw := p.RawDefinition
	if raw == nil {
		raw = map[string]any{}
	}
	model := p.ModelName
	if model == "" {
		model = lm.DefaultModel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.programs[p.ID]; exists {
		return nil, errors.Validation(errors.ErrDuplicateProgram,
			fmt.Sprintf("Program with ID '%s' already exists", p.ID))
	}

	r.programs[p.ID] = &Record{
		ID:            p.ID,
		Kind:          KindGemini,
		ProgramType:   "gemini",
		RawDefinition: raw,
		ModelName:     model,
		CreatedAt:     time.Now(),
	}

	return map[string]any{
		"program_id": p.ID,
		"status":     "created",
		"type":       "gemini",
		"model_name": model,
		"signature":  raw,
	}, nil
}

// ExecuteGemini runs a Gemini record. The record's own model name rides on
// the request so programs pinned to different Gemini models share one
// client.
func (r *Registry) ExecuteGemini(ctx context.Context, rec *Record, inputs map[string]any) (map[string]any, error) {
	if rec.Kind != KindGemini {
		return nil, errors.Validation(errors.ErrWrongProgramKind,
			fmt.Sprintf("Program %s is not a Gemini program", rec.ID))
	}

	client, err := r.lm.GeminiClient()
	if err != nil {
		return nil, err
	}

	prompt := BuildGeminiPrompt(rec.RawDefinition, inputs)
	res, err := client.Complete(ctx, lm.Request{Content: prompt, Model: rec.ModelName})
	if err != nil {
		return nil, errors.Execution(err, fmt.Sprintf("Gemini program execution failed: %s", err))
	}

	outputs := ParseGeminiResponse(rec.RawDefinition, res.Text)
	r.touch(rec)

	return map[string]any{
		"program_id":     rec.ID,
		"outputs":        outputs,
		"execution_time": timestamp.Now(),
		"raw_response":   res.Text,
	}, nil
}
