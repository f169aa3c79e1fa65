package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/lm"
	"github.com/c360/llmbridge/pkg/timestamp"
	"github.com/c360/llmbridge/signature"
)

// Execute runs a predict record against the configured language model.
// An unconfigured manager gets one implicit chance to configure itself
// from the environment before the call fails. Execution statistics are
// updated only when the run succeeds.
func (r *Registry) Execute(ctx context.Context, rec *Record, inputs map[string]any) (map[string]any, error) {
	if err := r.lm.EnsureConfigured(); err != nil {
		return nil, err
	}
	client, err := r.lm.Client()
	if err != nil {
		return nil, err
	}

	var outputs map[string]any
	if rec.dynamic() {
		outputs, err = r.executeDynamic(ctx, client, rec, inputs)
	} else {
		outputs, err = r.executeLegacy(ctx, client, inputs)
	}
	if err != nil {
		return nil, errors.Execution(err, fmt.Sprintf("Program execution failed: %s", err))
	}

	r.touch(rec)

	return map[string]any{
		"program_id":     rec.ID,
		"outputs":        outputs,
		"execution_time": timestamp.Now(),
	}, nil
}

// executeDynamic routes inputs through the field mapping, prompts with the
// compiled signature and maps extracted outputs back to original names.
func (r *Registry) executeDynamic(ctx context.Context, client lm.Client, rec *Record, inputs map[string]any) (map[string]any, error) {
	sanitized := make(map[string]any, len(inputs))
	for original, value := range inputs {
		name := original
		if mapped, ok := rec.FieldMapping[original]; ok {
			name = mapped
		}
		sanitized[name] = value
	}

	system, user := BuildPrompt(rec.Compiled, sanitized)
	res, err := client.Complete(ctx, lm.Request{Instructions: system, Content: user})
	if err != nil {
		return nil, err
	}

	outputFields := rec.Compiled.OutputFields()
	names := make([]string, 0, len(outputFields))
	for _, field := range outputFields {
		names = append(names, field.Name)
	}
	predictions := ParsePrediction(res.Text, names)

	outputs := make(map[string]any)
	for original, sanitizedName := range rec.FieldMapping {
		if !rec.Definition.HasOutput(original) {
			continue
		}
		if value, ok := predictions[sanitizedName]; ok {
			outputs[original] = value
		} else {
			outputs[original] = fmt.Sprintf("Field '%s' not found in prediction.", sanitizedName)
			r.logger.Warn("output field missing from prediction",
				"program_id", rec.ID,
				"field", sanitizedName)
		}
	}

	if len(outputs) == 0 {
		outputs["result"] = emergencyResult(res.Text)
	}
	return outputs, nil
}

// executeLegacy runs the default question→answer signature. The question
// comes from the "question" input, or failing that the first input value
// in key order, or an empty string.
func (r *Registry) executeLegacy(ctx context.Context, client lm.Client, inputs map[string]any) (map[string]any, error) {
	system, user := BuildPrompt(signature.Default(), map[string]any{
		"question": legacyQuestion(inputs),
	})
	res, err := client.Complete(ctx, lm.Request{Instructions: system, Content: user})
	if err != nil {
		return nil, err
	}

	outputs := make(map[string]any)
	predictions := ParsePrediction(res.Text, []string{"answer"})
	if answer, ok := predictions["answer"]; ok {
		outputs["answer"] = answer
	} else {
		outputs["result"] = emergencyResult(res.Text)
	}
	return outputs, nil
}

func legacyQuestion(inputs map[string]any) string {
	if q, ok := inputs["question"]; ok {
		return fmt.Sprintf("%v", q)
	}
	if len(inputs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(inputs))
	for key := range inputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%v", inputs[keys[0]])
}

func emergencyResult(text string) string {
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return trimmed
	}
	return "No result"
}
