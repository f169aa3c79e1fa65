package registry

import (
	"fmt"
	"strings"

	"github.com/c360/llmbridge/signature"
)

// BuildPrompt renders a compiled signature into a system instruction and a
// user turn. Input values are keyed by sanitized field names; the format
// block asks the model to answer with one "name: value" line per output
// field so ParsePrediction can extract them.
func BuildPrompt(compiled *signature.Compiled, inputs map[string]any) (system, user string) {
	outputs := compiled.OutputFields()

	var parts []string

	if len(outputs) == 1 {
		subject := outputs[0].Description
		if subject == "" {
			subject = outputs[0].Name
		}
		parts = append(parts, fmt.Sprintf("Please provide %s.", strings.TrimSuffix(subject, ".")))
	} else {
		names := make([]string, 0, len(outputs))
		for _, field := range outputs {
			names = append(names, field.Name)
		}
		parts = append(parts, fmt.Sprintf("Please provide the following: %s.", strings.Join(names, ", ")))
	}

	var lines []string
	for _, field := range compiled.InputFields() {
		value := ""
		if v, ok := inputs[field.Name]; ok {
			value = fmt.Sprintf("%v", v)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", field.Name, value))
	}
	if len(lines) > 0 {
		parts = append(parts, strings.Join(lines, "\n"))
	}

	format := make([]string, 0, len(outputs))
	for _, field := range outputs {
		if desc := field.Description; desc != "" {
			format = append(format, fmt.Sprintf("%s: [your %s]",
				field.Name, strings.ToLower(strings.TrimSuffix(desc, "."))))
		} else {
			format = append(format, field.Name+": [your response]")
		}
	}
	parts = append(parts, "Please respond in this format:\n"+strings.Join(format, "\n"))

	return compiled.Docstring, strings.Join(parts, "\n\n")
}

// ParsePrediction extracts output fields from a model reply. Each name is
// matched against "name:" line prefixes, case-insensitively, first match
// wins. With a single expected field an unmatched or empty match falls
// back to the whole trimmed reply. Names with no usable value are left out
// of the result.
func ParsePrediction(text string, names []string) map[string]string {
	trimmed := strings.TrimSpace(text)
	lines := strings.Split(trimmed, "\n")

	predictions := make(map[string]string, len(names))
	for _, name := range names {
		value, found := scanFieldLine(lines, name)
		if value == "" && len(names) == 1 {
			value = trimmed
		}
		if found || value != "" {
			predictions[name] = value
		}
	}
	return predictions
}

// BuildGeminiPrompt renders a raw signature definition and input values
// into a single prompt. The definition is walked as loosely as it was
// stored: missing names and descriptions degrade to generic wording
// instead of failing.
func BuildGeminiPrompt(rawDef map[string]any, inputs map[string]any) string {
	inputFields := rawFields(rawDef, "inputs")
	outputFields := rawFields(rawDef, "outputs")

	var parts []string

	if len(outputFields) == 1 {
		subject := rawFieldString(outputFields[0], "description")
		if subject == "" {
			subject = rawFieldString(outputFields[0], "name")
		}
		if subject == "" {
			subject = "an answer"
		}
		parts = append(parts, fmt.Sprintf("Please provide %s.", subject))
	} else {
		names := make([]string, 0, len(outputFields))
		for _, field := range outputFields {
			name := rawFieldString(field, "name")
			if name == "" {
				name = "output"
			}
			names = append(names, name)
		}
		parts = append(parts, fmt.Sprintf("Please provide the following: %s.", strings.Join(names, ", ")))
	}

	for _, field := range inputFields {
		name := rawFieldString(field, "name")
		value := ""
		if v, ok := inputs[name]; ok {
			value = fmt.Sprintf("%v", v)
		}
		if desc := rawFieldString(field, "description"); desc != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", desc, value))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", name, value))
		}
	}

	formatLines := make([]string, 0, len(outputFields))
	for _, field := range outputFields {
		name := rawFieldString(field, "name")
		if desc := rawFieldString(field, "description"); desc != "" {
			formatLines = append(formatLines, fmt.Sprintf("%s: [your %s]", name, strings.ToLower(desc)))
		} else {
			formatLines = append(formatLines, fmt.Sprintf("%s: [your response]", name))
		}
	}
	if len(formatLines) > 0 {
		parts = append(parts, "\nPlease respond in this format:\n"+strings.Join(formatLines, "\n"))
	}

	return strings.Join(parts, "\n\n")
}

// ParseGeminiResponse extracts every output field named in the raw
// definition. Unmatched fields are present with an empty value; a single
// output field with no structured match takes the whole trimmed reply.
func ParseGeminiResponse(rawDef map[string]any, text string) map[string]any {
	outputFields := rawFields(rawDef, "outputs")
	lines := strings.Split(strings.TrimSpace(text), "\n")

	outputs := make(map[string]any, len(outputFields))
	for _, field := range outputFields {
		name := rawFieldString(field, "name")
		if name == "" {
			continue
		}
		value, _ := scanFieldLine(lines, name)
		if value == "" && len(outputFields) == 1 {
			value = strings.TrimSpace(text)
		}
		outputs[name] = value
	}
	return outputs
}

// scanFieldLine finds the first line starting with "name:" regardless of
// case and returns the remainder of that line.
func scanFieldLine(lines []string, name string) (string, bool) {
	prefix := strings.ToLower(name) + ":"
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			_, rest, _ := strings.Cut(line, ":")
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// rawFields returns the field list under key as generic maps, skipping
// entries of any other shape.
func rawFields(rawDef map[string]any, key string) []map[string]any {
	list, ok := rawDef[key].([]any)
	if !ok {
		return nil
	}
	fields := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if field, ok := item.(map[string]any); ok {
			fields = append(fields, field)
		}
	}
	return fields
}

func rawFieldString(field map[string]any, key string) string {
	value, _ := field[key].(string)
	return value
}
