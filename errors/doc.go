// Package errors provides standardized error handling patterns for llmbridge.
//
// # Overview
//
// The errors package implements a six-class error taxonomy matched to the
// bridge protocol's failure semantics: Protocol (malformed wire data, dropped),
// Validation (bad arguments, answered), NotFound (unknown program/session/
// command, answered), Backend (no usable language model, answered), Execution
// (the executor raised mid-call, answered with the underlying message), and
// Disconnected (peer loss, recoverable, never answered).
//
// Every error that reaches the command dispatcher is converted to a uniform
// failure envelope; the class decides whether it is answered at all and how it
// is counted. Classification integrates with errors.Is, errors.As, and error
// wrapping chains.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if _, ok := r.programs[id]; !ok {
//	    return errors.ErrProgramNotFound
//	}
//
// Wrap errors with component context using the standardized format
// "component.method: action failed: %w":
//
//	if err := framer.WriteFrame(payload); err != nil {
//	    return errors.WrapDisconnected(err, "Bridge", "respond", "write frame")
//	}
//
// Build exact wire-contract messages around sentinels:
//
//	return errors.Validation(errors.ErrDuplicateProgram,
//	    fmt.Sprintf("Program with ID '%s' already exists", id))
//
// Check classification at the dispatch boundary:
//
//	if errors.IsDisconnected(err) {
//	    // peer gone; keep serving, nothing to answer
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
