package signature_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/signature"
)

func qaDefinition() signature.Definition {
	return signature.Definition{
		Name:        "QA",
		Description: "Answer questions.",
		Inputs:      []signature.FieldSpec{{Name: "question"}},
		Outputs:     []signature.FieldSpec{{Name: "answer"}},
	}
}

func TestCompileBasic(t *testing.T) {
	compiler := signature.NewCompiler(nil)

	compiled, mapping, err := compiler.Compile(qaDefinition())
	require.NoError(t, err)

	assert.Equal(t, "QA", compiled.TypeName)
	assert.Equal(t, "Answer questions.", compiled.Docstring)
	require.Len(t, compiled.Fields, 2)

	assert.Equal(t, signature.RoleInput, compiled.Fields[0].Role)
	assert.Equal(t, "question", compiled.Fields[0].Name)
	assert.Equal(t, "Input field: question", compiled.Fields[0].Description)

	assert.Equal(t, signature.RoleOutput, compiled.Fields[1].Role)
	assert.Equal(t, "answer", compiled.Fields[1].Name)
	assert.Equal(t, "Output field: answer", compiled.Fields[1].Description)

	assert.Equal(t, signature.FieldMapping{"question": "question", "answer": "answer"}, mapping)
}

func TestCompileSanitizesNames(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		want      string
	}{
		{"plain identifier", "question", "question"},
		{"spaces", "user name", "user_name"},
		{"hyphen", "e-mail", "e_mail"},
		{"dots", "a.b.c", "a_b_c"},
		{"mixed punctuation", "what?!now", "what__now"},
		{"unicode letters kept", "prénom", "prénom"},
		{"leading digit", "9lives", "field_0"},
		{"leading underscore", "_private", "field_0"},
		{"all punctuation", "???", "field_0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiler := signature.NewCompiler(nil)
			def := signature.Definition{
				Inputs:  []signature.FieldSpec{{Name: tt.fieldName}},
				Outputs: []signature.FieldSpec{{Name: "out"}},
			}

			compiled, mapping, err := compiler.Compile(def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mapping[tt.fieldName])
			assert.Equal(t, tt.want, compiled.Fields[0].Name)
		})
	}
}

func TestCompileFallbackCounterSpansRoles(t *testing.T) {
	// The field_<n> counter runs across inputs then outputs.
	compiler := signature.NewCompiler(nil)
	def := signature.Definition{
		Inputs:  []signature.FieldSpec{{Name: "!"}, {Name: "ok"}},
		Outputs: []signature.FieldSpec{{Name: "?"}},
	}

	_, mapping, err := compiler.Compile(def)
	require.NoError(t, err)

	want := signature.FieldMapping{
		"!":  "field_0",
		"ok": "ok",
		"?":  "field_2",
	}
	assert.Equal(t, want, mapping)
}

func TestCompileCacheIdentity(t *testing.T) {
	compiler := signature.NewCompiler(nil)

	first, firstMapping, err := compiler.Compile(qaDefinition())
	require.NoError(t, err)
	second, secondMapping, err := compiler.Compile(qaDefinition())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, firstMapping, secondMapping)
	assert.Equal(t, 1, compiler.CacheSize())

	hits, misses := compiler.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCompileFieldOrderIsSignificant(t *testing.T) {
	compiler := signature.NewCompiler(nil)

	a := signature.Definition{
		Inputs:  []signature.FieldSpec{{Name: "context"}, {Name: "question"}},
		Outputs: []signature.FieldSpec{{Name: "answer"}},
	}
	b := signature.Definition{
		Inputs:  []signature.FieldSpec{{Name: "question"}, {Name: "context"}},
		Outputs: []signature.FieldSpec{{Name: "answer"}},
	}

	first, _, err := compiler.Compile(a)
	require.NoError(t, err)
	second, _, err := compiler.Compile(b)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, compiler.CacheSize())
}

func TestCompileValidation(t *testing.T) {
	tests := []struct {
		name    string
		def     signature.Definition
		wantMsg string
	}{
		{
			name:    "no inputs",
			def:     signature.Definition{Outputs: []signature.FieldSpec{{Name: "answer"}}},
			wantMsg: "Signature must have at least one input field",
		},
		{
			name:    "no outputs",
			def:     signature.Definition{Inputs: []signature.FieldSpec{{Name: "question"}}},
			wantMsg: "Signature must have at least one output field",
		},
		{
			name: "unnamed input",
			def: signature.Definition{
				Inputs:  []signature.FieldSpec{{Name: "question"}, {Description: "no name"}},
				Outputs: []signature.FieldSpec{{Name: "answer"}},
			},
			wantMsg: "Field definition 1 in inputs must have a 'name'",
		},
		{
			name: "unnamed output",
			def: signature.Definition{
				Inputs:  []signature.FieldSpec{{Name: "question"}},
				Outputs: []signature.FieldSpec{{}},
			},
			wantMsg: "Field definition 0 in outputs must have a 'name'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiler := signature.NewCompiler(nil)
			_, _, err := compiler.Compile(tt.def)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCompileTypeName(t *testing.T) {
	tests := []struct {
		name    string
		defName string
		want    string
	}{
		{"last dotted segment", "mod.sub.MySig", "MySig"},
		{"empty defaults", "", "DynamicSignature"},
		{"punctuation sanitized", "my-sig", "my_sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiler := signature.NewCompiler(nil)
			def := qaDefinition()
			def.Name = tt.defName

			compiled, _, err := compiler.Compile(def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, compiled.TypeName)
		})
	}
}

func TestCompileTypeNameTimestampFallback(t *testing.T) {
	tests := []string{"_hidden", "9Sig", "...", "trailing.dot."}

	for _, defName := range tests {
		t.Run(defName, func(t *testing.T) {
			compiler := signature.NewCompiler(nil)
			def := qaDefinition()
			def.Name = defName

			compiled, _, err := compiler.Compile(def)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(compiled.TypeName, "Dynamic_"),
				"got type name %q", compiled.TypeName)
		})
	}
}

func TestCompileKeepsExplicitDescriptions(t *testing.T) {
	compiler := signature.NewCompiler(nil)
	def := signature.Definition{
		Inputs:  []signature.FieldSpec{{Name: "question", Description: "What to ask."}},
		Outputs: []signature.FieldSpec{{Name: "answer"}},
	}

	compiled, _, err := compiler.Compile(def)
	require.NoError(t, err)
	assert.Equal(t, "What to ask.", compiled.Fields[0].Description)
	assert.Equal(t, "A dynamically generated signature.", compiled.Docstring)
}

func TestCompileCollidingNamesCollapse(t *testing.T) {
	// Two raw names that sanitize identically share one field slot; the
	// later definition wins.
	compiler := signature.NewCompiler(nil)
	def := signature.Definition{
		Inputs: []signature.FieldSpec{
			{Name: "a b", Description: "first"},
			{Name: "a.b", Description: "second"},
		},
		Outputs: []signature.FieldSpec{{Name: "answer"}},
	}

	compiled, mapping, err := compiler.Compile(def)
	require.NoError(t, err)

	require.Len(t, compiled.Fields, 2)
	assert.Equal(t, "a_b", compiled.Fields[0].Name)
	assert.Equal(t, "second", compiled.Fields[0].Description)
	assert.Equal(t, signature.FieldMapping{"a b": "a_b", "a.b": "a_b", "answer": "answer"}, mapping)
}

func TestCompileRoleOverwriteFailsPostValidation(t *testing.T) {
	// An output that sanitizes onto the only input leaves no input fields.
	compiler := signature.NewCompiler(nil)
	def := signature.Definition{
		Inputs:  []signature.FieldSpec{{Name: "x"}},
		Outputs: []signature.FieldSpec{{Name: "x"}},
	}

	_, _, err := compiler.Compile(def)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "No valid input fields after sanitization")
}

func TestCompilerReset(t *testing.T) {
	compiler := signature.NewCompiler(nil)

	_, _, err := compiler.Compile(qaDefinition())
	require.NoError(t, err)
	_, _, err = compiler.Compile(qaDefinition())
	require.NoError(t, err)

	compiler.Reset()

	assert.Equal(t, 0, compiler.CacheSize())
	hits, misses := compiler.CacheStats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestDefaultSignature(t *testing.T) {
	def := signature.Default()

	require.Len(t, def.Fields, 2)
	assert.Equal(t, "question", def.Fields[0].Name)
	assert.Equal(t, signature.RoleInput, def.Fields[0].Role)
	assert.Equal(t, "answer", def.Fields[1].Name)
	assert.Equal(t, signature.RoleOutput, def.Fields[1].Role)
	assert.Same(t, signature.Default(), def)
}

func TestCompiledFieldsByRole(t *testing.T) {
	compiler := signature.NewCompiler(nil)
	def := signature.Definition{
		Inputs:  []signature.FieldSpec{{Name: "context"}, {Name: "question"}},
		Outputs: []signature.FieldSpec{{Name: "answer"}, {Name: "confidence"}},
	}

	compiled, _, err := compiler.Compile(def)
	require.NoError(t, err)

	inputs := compiled.InputFields()
	require.Len(t, inputs, 2)
	assert.Equal(t, "context", inputs[0].Name)
	assert.Equal(t, "question", inputs[1].Name)

	outputs := compiled.OutputFields()
	require.Len(t, outputs, 2)
	assert.Equal(t, "answer", outputs[0].Name)
	assert.Equal(t, "confidence", outputs[1].Name)
}
