// Package signature compiles caller-supplied signature definitions into an
// executable form.
//
// A definition names input and output fields in the caller's vocabulary.
// Compilation sanitizes those names into identifiers, records the
// original-to-sanitized mapping, and produces an immutable Compiled value
// that the program registry interprets when building prompts and extracting
// outputs. Raw definitions are validated structurally against an embedded
// JSON meta-schema before semantic checks run.
//
// The Compiler caches by the canonical JSON of the definition, so
// structurally identical definitions share one Compiled value.
package signature
