package signature

// Role distinguishes the two sides of a signature.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// FieldSpec is one field of a raw signature definition as supplied by the
// host: the caller's original name plus optional description and type hint.
type FieldSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Definition is the normalized form of a raw signature definition.
type Definition struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Inputs      []FieldSpec `json:"inputs"`
	Outputs     []FieldSpec `json:"outputs"`
}

// HasOutput reports whether name is declared as an output field.
func (d Definition) HasOutput(name string) bool {
	for _, spec := range d.Outputs {
		if spec.Name == name {
			return true
		}
	}
	return false
}

// Field is one compiled field: role, sanitized name, and the description
// used when building prompts.
type Field struct {
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Compiled is the executable form of a signature. Programs interpret it at
// execution time. Compiled values are immutable once built and safe to
// share across goroutines.
type Compiled struct {
	TypeName  string  `json:"type_name"`
	Docstring string  `json:"docstring"`
	Fields    []Field `json:"fields"`
}

// InputFields returns the compiled fields with the input role, in
// declaration order.
func (c *Compiled) InputFields() []Field {
	return c.fieldsByRole(RoleInput)
}

// OutputFields returns the compiled fields with the output role, in
// declaration order.
func (c *Compiled) OutputFields() []Field {
	return c.fieldsByRole(RoleOutput)
}

func (c *Compiled) fieldsByRole(role Role) []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// FieldMapping records original field name to sanitized field name for one
// compiled signature. Execution translates inputs through it and reverses
// it when extracting outputs.
type FieldMapping map[string]string

// defaultCompiled is the question/answer signature used whenever a program
// has no compiled signature of its own.
var defaultCompiled = &Compiled{
	TypeName:  "QuestionAnswer",
	Docstring: "Answer the question.",
	Fields: []Field{
		{Role: RoleInput, Name: "question", Description: "The question to answer."},
		{Role: RoleOutput, Name: "answer", Description: "The answer to the question."},
	},
}

// Default returns the shared question to answer signature used for legacy
// programs and compile fallbacks. Callers must not mutate it.
func Default() *Compiled {
	return defaultCompiled
}

// Complete reports whether a raw definition carries at least one input and
// one output field, the precondition for attempting compilation. Anything
// short of that is handled by the legacy question/answer path.
func Complete(raw map[string]any) bool {
	return hasFields(raw["inputs"]) && hasFields(raw["outputs"])
}

func hasFields(v any) bool {
	list, ok := v.([]any)
	return ok && len(list) > 0
}
