package signature

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/pkg/cache"
)

// nonWordPattern matches every rune that cannot appear in a field or type
// name. Word runes are letters, digits, and underscore.
var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_]`)

type cacheEntry struct {
	compiled *Compiled
	mapping  FieldMapping
}

// Compiler turns definitions into Compiled signatures and caches the
// result. Structurally identical definitions share one Compiled value, so
// repeated program creation with the same signature costs one map lookup.
type Compiler struct {
	cache  *cache.Cache[cacheEntry]
	logger *slog.Logger
}

// NewCompiler returns a Compiler with an empty unbounded cache. A nil
// logger falls back to slog.Default.
func NewCompiler(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{
		cache:  cache.New[cacheEntry](0),
		logger: logger,
	}
}

// Compile validates a definition and builds its Compiled form plus the
// original-to-sanitized field mapping. Identical definitions return the
// same *Compiled pointer. All validation failures are validation-class
// errors; callers decide whether to surface or fall back.
func (c *Compiler) Compile(def Definition) (*Compiled, FieldMapping, error) {
	key, err := cacheKey(def)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Compiler", "Compile", "build cache key")
	}

	if entry, ok := c.cache.Get(key); ok {
		return entry.compiled, maps.Clone(entry.mapping), nil
	}

	compiled, mapping, err := build(def)
	if err != nil {
		return nil, nil, err
	}

	// A concurrent caller may have compiled the same definition while we
	// built; the resident entry wins so the pointer identity holds.
	entry, inserted := c.cache.GetOrSet(key, cacheEntry{compiled: compiled, mapping: mapping})
	if inserted {
		c.logger.Debug("compiled new signature",
			"type_name", compiled.TypeName,
			"fields", len(compiled.Fields),
			"cache_size", c.cache.Size())
	}
	return entry.compiled, maps.Clone(entry.mapping), nil
}

// CacheSize returns the number of distinct compiled signatures held.
func (c *Compiler) CacheSize() int {
	return c.cache.Size()
}

// CacheStats returns cumulative cache hits and misses.
func (c *Compiler) CacheStats() (hits, misses uint64) {
	stats := c.cache.Stats()
	return uint64(stats.Hits()), uint64(stats.Misses())
}

// Reset drops every cached signature and zeroes the counters.
func (c *Compiler) Reset() {
	c.cache.Clear()
	c.cache.Stats().Reset()
}

// cacheKey is the canonical JSON of the normalized definition. Struct
// field order fixes the key layout, so definitions that differ only in
// JSON key order collide as intended.
func cacheKey(def Definition) (string, error) {
	b, err := json.Marshal(def)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func build(def Definition) (*Compiled, FieldMapping, error) {
	if len(def.Inputs) == 0 {
		return nil, nil, errors.Validation(errors.ErrInvalidSignature,
			"Signature must have at least one input field")
	}
	if len(def.Outputs) == 0 {
		return nil, nil, errors.Validation(errors.ErrInvalidSignature,
			"Signature must have at least one output field")
	}
	if err := checkFieldNames(def.Inputs, "input"); err != nil {
		return nil, nil, err
	}
	if err := checkFieldNames(def.Outputs, "output"); err != nil {
		return nil, nil, err
	}

	docstring := def.Description
	if docstring == "" {
		docstring = "A dynamically generated signature."
	}

	mapping := FieldMapping{}
	var fields []Field
	// Sanitized name to position in fields. A later field with the same
	// sanitized name replaces the earlier one, role included.
	index := map[string]int{}

	addField := func(role Role, spec FieldSpec) {
		name := sanitizeName(spec.Name)
		if name == "" || strings.HasPrefix(name, "_") {
			name = fmt.Sprintf("field_%d", len(mapping))
		}
		mapping[spec.Name] = name

		desc := spec.Description
		if desc == "" {
			switch role {
			case RoleInput:
				desc = "Input field: " + spec.Name
			case RoleOutput:
				desc = "Output field: " + spec.Name
			}
		}

		f := Field{Role: role, Name: name, Description: desc}
		if i, ok := index[name]; ok {
			fields[i] = f
			return
		}
		index[name] = len(fields)
		fields = append(fields, f)
	}

	for _, spec := range def.Inputs {
		addField(RoleInput, spec)
	}
	for _, spec := range def.Outputs {
		addField(RoleOutput, spec)
	}

	var inputCount, outputCount int
	for _, f := range fields {
		switch f.Role {
		case RoleInput:
			inputCount++
		case RoleOutput:
			outputCount++
		}
	}
	if inputCount == 0 {
		return nil, nil, errors.Validation(errors.ErrInvalidSignature,
			"No valid input fields after sanitization")
	}
	if outputCount == 0 {
		return nil, nil, errors.Validation(errors.ErrInvalidSignature,
			"No valid output fields after sanitization")
	}

	return &Compiled{
		TypeName:  typeName(def.Name),
		Docstring: docstring,
		Fields:    fields,
	}, mapping, nil
}

func checkFieldNames(specs []FieldSpec, role string) error {
	for i, spec := range specs {
		if spec.Name == "" {
			return errors.Validation(errors.ErrInvalidSignature,
				fmt.Sprintf("Field definition %d in %ss must have a 'name'", i, role))
		}
	}
	return nil
}

// typeName derives the compiled type name from the definition name: last
// dot-separated segment, sanitized. Unusable results get a timestamped
// fallback name.
func typeName(name string) string {
	if name == "" {
		name = "DynamicSignature"
	}
	parts := strings.Split(name, ".")
	candidate := sanitizeName(parts[len(parts)-1])
	if candidate == "" || strings.HasPrefix(candidate, "_") {
		candidate = fmt.Sprintf("Dynamic_%d", time.Now().Unix())
	}
	return candidate
}

// sanitizeName replaces every non-word rune with an underscore and prefixes
// one when the name starts with a digit. Any input yields a usable
// identifier or the empty string, never an error.
func sanitizeName(name string) string {
	s := nonWordPattern.ReplaceAllString(name, "_")
	if s == "" {
		return s
	}
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsDigit(r) {
		s = "_" + s
	}
	return s
}
