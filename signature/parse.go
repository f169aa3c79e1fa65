package signature

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/llmbridge/errors"
)

//go:embed schema.json
var metaSchema string

var metaSchemaLoader = gojsonschema.NewStringLoader(metaSchema)

// MetaSchema returns the JSON meta-schema raw definitions are validated
// against. Hosts can pre-validate definitions before sending
// create_program; the schema-exporter tool publishes it for them.
func MetaSchema() string {
	return metaSchema
}

// ParseDefinition validates a raw definition against the embedded
// meta-schema and decodes it into a Definition. On validation failure the
// returned Definition still carries whatever fields decoded cleanly, so
// callers can record the definition even when it cannot compile.
func ParseDefinition(raw map[string]any) (Definition, error) {
	var def Definition
	if raw == nil {
		return def, nil
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return def, errors.Wrap(err, "Signature", "ParseDefinition", "marshal definition")
	}

	result, err := gojsonschema.Validate(metaSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return def, errors.Wrap(err, "Signature", "ParseDefinition", "run schema validation")
	}

	if !result.Valid() {
		// Best-effort decode: mistyped fields stay zero.
		_ = json.Unmarshal(payload, &def)
		return def, errors.Validation(errors.ErrInvalidSignature, schemaFailureMessage(result))
	}

	if err := json.Unmarshal(payload, &def); err != nil {
		return def, errors.Wrap(err, "Signature", "ParseDefinition", "decode definition")
	}
	return def, nil
}

func schemaFailureMessage(result *gojsonschema.Result) string {
	var b strings.Builder
	b.WriteString("Signature definition failed schema validation:")
	for _, desc := range result.Errors() {
		fmt.Fprintf(&b, " %s: %s;", desc.Field(), desc.Description())
	}
	return strings.TrimSuffix(b.String(), ";")
}
