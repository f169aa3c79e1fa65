// Package contract pins the schemas llmbridge publishes for host
// integrators. Hosts validate signature definitions against the committed
// copies under schemas/, so drift between those files and the embedded
// sources breaks integrations silently; these tests make it break loudly.
package contract

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/llmbridge/signature"
)

// TestCommittedSchemaMatchesCode validates that the committed signature
// definition schema matches the one compiled into the worker.
func TestCommittedSchemaMatchesCode(t *testing.T) {
	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("Failed to find repository root: %v", err)
	}

	path := filepath.Join(repoRoot, "schemas", "signature.definition.v1.json")
	committed, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read committed schema: %v", err)
	}

	var want, got any
	if err := json.Unmarshal([]byte(signature.MetaSchema()), &want); err != nil {
		t.Fatalf("Embedded schema is not valid JSON: %v", err)
	}
	if err := json.Unmarshal(committed, &got); err != nil {
		t.Fatalf("Committed schema is not valid JSON: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Committed schema drifted from code (-code +committed):\n%s\n"+
			"Regenerate with: go run ./cmd/schema-exporter", diff)
	}
}

// TestSchemaAcceptsWellFormedDefinitions pins the acceptance side of the
// published contract: definitions hosts legitimately send must validate.
func TestSchemaAcceptsWellFormedDefinitions(t *testing.T) {
	cases := []struct {
		name string
		def  string
	}{
		{
			name: "minimal",
			def:  `{"inputs": [{"name": "question"}], "outputs": [{"name": "answer"}]}`,
		},
		{
			name: "fully described",
			def: `{
				"name": "qa.Basic",
				"description": "Answer questions.",
				"inputs": [{"name": "question", "description": "the question", "type": "str"}],
				"outputs": [{"name": "answer", "description": "the answer", "type": "str"}]
			}`,
		},
		{
			name: "empty object",
			def:  `{}`,
		},
		{
			// Hosts attach their own metadata; the schema must stay
			// permissive about unknown keys.
			name: "extra keys",
			def:  `{"inputs": [], "outputs": [], "x-host-revision": 7}`,
		},
	}

	schema := gojsonschema.NewStringLoader(signature.MetaSchema())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(tc.def))
			if err != nil {
				t.Fatalf("Validation failed to run: %v", err)
			}
			if !result.Valid() {
				t.Errorf("Definition should validate, got: %v", result.Errors())
			}
		})
	}
}

// TestSchemaRejectsMalformedDefinitions pins the rejection side: shape
// violations hosts rely on catching before the wire must stay violations.
func TestSchemaRejectsMalformedDefinitions(t *testing.T) {
	cases := []struct {
		name string
		def  string
	}{
		{
			name: "inputs not a list",
			def:  `{"inputs": "question", "outputs": [{"name": "answer"}]}`,
		},
		{
			name: "field not an object",
			def:  `{"inputs": ["question"], "outputs": [{"name": "answer"}]}`,
		},
		{
			name: "name not a string",
			def:  `{"name": 7, "inputs": [], "outputs": []}`,
		},
		{
			name: "field name not a string",
			def:  `{"inputs": [{"name": 42}], "outputs": []}`,
		},
	}

	schema := gojsonschema.NewStringLoader(signature.MetaSchema())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(tc.def))
			if err != nil {
				t.Fatalf("Validation failed to run: %v", err)
			}
			if result.Valid() {
				t.Error("Definition should fail validation")
			}
		})
	}
}

// findRepoRoot walks up from the working directory to the module root.
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
