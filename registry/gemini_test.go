package registry_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/registry"
)

func geminiRawDefinition() map[string]any {
	return map[string]any{
		"inputs": []any{
			map[string]any{"name": "question", "description": "The question to answer"},
		},
		"outputs": []any{
			map[string]any{"name": "answer", "description": "The answer"},
		},
	}
}

func mustCreateGemini(t *testing.T, env *testEnv, id string) *registry.Record {
	t.Helper()
	_, err := env.registry.CreateGemini(registry.GeminiCreateParams{
		ID:            id,
		RawDefinition: geminiRawDefinition(),
	})
	require.NoError(t, err)
	rec, err := env.registry.Get(id)
	require.NoError(t, err)
	return rec
}

func TestCreateGemini(t *testing.T) {
	env := newTestEnv()
	raw := geminiRawDefinition()

	result, err := env.registry.CreateGemini(registry.GeminiCreateParams{
		ID:            "g1",
		RawDefinition: raw,
	})
	require.NoError(t, err)

	assert.Equal(t, "g1", result["program_id"])
	assert.Equal(t, "created", result["status"])
	assert.Equal(t, "gemini", result["type"])
	assert.Equal(t, "gemini-1.5-flash", result["model_name"])
	assert.Equal(t, raw, result["signature"])

	rec, err := env.registry.Get("g1")
	require.NoError(t, err)
	assert.Equal(t, registry.KindGemini, rec.Kind)
	assert.Equal(t, "gemini-1.5-flash", rec.ModelName)
}

func TestCreateGeminiCustomModel(t *testing.T) {
	env := newTestEnv()

	result, err := env.registry.CreateGemini(registry.GeminiCreateParams{
		ID:        "g1",
		ModelName: "gemini-1.5-pro",
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", result["model_name"])
}

func TestCreateGeminiUnavailable(t *testing.T) {
	env := newTestEnv()
	bare := registry.NewRegistry(env.compiler, lm.NewEmptyTestManager(), nil)

	_, err := bare.CreateGemini(registry.GeminiCreateParams{ID: "g1"})
	require.Error(t, err)
	assert.True(t, errors.IsBackend(err))
	assert.Equal(t, "Gemini not available - cannot create Gemini programs", err.Error())
}

func TestCreateGeminiDuplicate(t *testing.T) {
	env := newTestEnv()
	mustCreateGemini(t, env, "g1")

	_, err := env.registry.CreateGemini(registry.GeminiCreateParams{ID: "g1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateProgram)
	assert.Equal(t, "Program with ID 'g1' already exists", err.Error())
}

func TestCreateGeminiRequiresID(t *testing.T) {
	env := newTestEnv()

	_, err := env.registry.CreateGemini(registry.GeminiCreateParams{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "Program ID is required", err.Error())
}

func TestExecuteGemini(t *testing.T) {
	env := newTestEnv()
	rec := mustCreateGemini(t, env, "g1")
	env.fake.Text = "answer: 42\nsome trailing text"

	result, err := env.registry.ExecuteGemini(context.Background(), rec, map[string]any{
		"question": "What is 6*7?",
	})
	require.NoError(t, err)

	assert.Equal(t, "g1", result["program_id"])
	assert.Equal(t, map[string]any{"answer": "42"}, result["outputs"])
	assert.Equal(t, "answer: 42\nsome trailing text", result["raw_response"])
	execTime, ok := result["execution_time"].(float64)
	require.True(t, ok)
	assert.Greater(t, execTime, float64(0))
	assert.Equal(t, int64(1), rec.ExecutionCount)

	call := env.fake.LastCall()
	assert.Equal(t, "gemini-1.5-flash", call.Model)
	assert.Empty(t, call.Instructions)
	assert.Contains(t, call.Content, "Please provide The answer.")
	assert.Contains(t, call.Content, "The question to answer: What is 6*7?")
	assert.Contains(t, call.Content, "Please respond in this format:\nanswer: [your the answer]")
}

func TestExecuteGeminiWholeTextFallback(t *testing.T) {
	env := newTestEnv()
	rec := mustCreateGemini(t, env, "g1")
	env.fake.Text = "  The answer is forty-two.  "

	result, err := env.registry.ExecuteGemini(context.Background(), rec, map[string]any{
		"question": "What is 6*7?",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"answer": "The answer is forty-two."}, result["outputs"])
}

func TestExecuteGeminiMultiOutput(t *testing.T) {
	env := newTestEnv()
	raw := map[string]any{
		"inputs": []any{
			map[string]any{"name": "text"},
		},
		"outputs": []any{
			map[string]any{"name": "summary"},
			map[string]any{"name": "keywords"},
		},
	}
	_, err := env.registry.CreateGemini(registry.GeminiCreateParams{
		ID:            "g1",
		RawDefinition: raw,
	})
	require.NoError(t, err)
	rec, err := env.registry.Get("g1")
	require.NoError(t, err)

	env.fake.Text = "Summary: a short text\nnothing else"

	result, err := env.registry.ExecuteGemini(context.Background(), rec, map[string]any{
		"text": "hello world",
	})
	require.NoError(t, err)

	// Unmatched fields stay present with empty values.
	assert.Equal(t, map[string]any{
		"summary":  "a short text",
		"keywords": "",
	}, result["outputs"])

	assert.Contains(t, env.fake.LastCall().Content, "Please provide the following: summary, keywords.")
}

func TestExecuteGeminiKindMismatch(t *testing.T) {
	env := newTestEnv()
	rec := mustCreate(t, env, "p1", qaRawDefinition())

	_, err := env.registry.ExecuteGemini(context.Background(), rec, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.ErrorIs(t, err, errors.ErrWrongProgramKind)
	assert.Equal(t, "Program p1 is not a Gemini program", err.Error())
}

func TestExecuteGeminiFailure(t *testing.T) {
	env := newTestEnv()
	rec := mustCreateGemini(t, env, "g1")
	env.fake.Err = stderrors.New("model overloaded")

	_, err := env.registry.ExecuteGemini(context.Background(), rec, map[string]any{
		"question": "hi",
	})
	require.Error(t, err)
	assert.True(t, errors.IsExecution(err))
	assert.Contains(t, err.Error(), "Gemini program execution failed:")
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Zero(t, rec.ExecutionCount)
}
