package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorProtocol, "protocol"},
		{ErrorValidation, "validation"},
		{ErrorNotFound, "not_found"},
		{ErrorBackend, "backend"},
		{ErrorExecution, "execution"},
		{ErrorDisconnected, "disconnected"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsDisconnected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"end of stream", ErrEndOfStream, true},
		{"peer closed", ErrPeerClosed, true},
		{"broken pipe in message", fmt.Errorf("write |1: broken pipe"), true},
		{"connection reset in message", fmt.Errorf("connection reset by peer"), true},
		{"closed pipe in message", fmt.Errorf("io: read/write on closed pipe"), true},
		{"validation error", ErrMissingProgramID, false},
		{"truncated frame", ErrFrameTruncated, false},
		{"wrapped peer closed", Wrap(ErrPeerClosed, "Framer", "WriteFrame", "flush"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsDisconnected(test.err)
			if result != test.expected {
				t.Errorf("IsDisconnected(%v) = %v, expected %v", test.err, result, test.expected)
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"missing program id", ErrMissingProgramID, true},
		{"missing session id", ErrMissingSessionID, true},
		{"missing model", ErrMissingModel, true},
		{"missing api key", ErrMissingAPIKey, true},
		{"duplicate program", ErrDuplicateProgram, true},
		{"invalid signature", ErrInvalidSignature, true},
		{"program not found", ErrProgramNotFound, false},
		{"peer closed", ErrPeerClosed, false},
		{"wrapped invalid signature", WrapValidation(ErrInvalidSignature, "Compiler", "Compile", "validate"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsValidation(test.err)
			if result != test.expected {
				t.Errorf("IsValidation(%v) = %v, expected %v", test.err, result, test.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"program not found", ErrProgramNotFound, true},
		{"session not found", ErrSessionNotFound, true},
		{"unknown command", ErrUnknownCommand, true},
		{"backend unavailable", ErrBackendUnavailable, false},
		{"nil error", nil, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsNotFound(test.err)
			if result != test.expected {
				t.Errorf("IsNotFound(%v) = %v, expected %v", test.err, result, test.expected)
			}
		})
	}
}

func TestIsBackend(t *testing.T) {
	if !IsBackend(ErrNoLanguageModel) {
		t.Error("ErrNoLanguageModel should classify as backend")
	}
	if !IsBackend(ErrBackendUnavailable) {
		t.Error("ErrBackendUnavailable should classify as backend")
	}
	if IsBackend(ErrProgramNotFound) {
		t.Error("ErrProgramNotFound should not classify as backend")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults to execution", nil, ErrorExecution},
		{"peer closed", ErrPeerClosed, ErrorDisconnected},
		{"truncated frame", ErrFrameTruncated, ErrorProtocol},
		{"missing id", ErrMissingID, ErrorProtocol},
		{"duplicate program", ErrDuplicateProgram, ErrorValidation},
		{"program not found", ErrProgramNotFound, ErrorNotFound},
		{"no language model", ErrNoLanguageModel, ErrorBackend},
		{"opaque error", errors.New("model blew up"), ErrorExecution},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("Classify(%v) = %v, expected %v", test.err, result, test.expected)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := Wrap(baseErr, "Registry", "Create", "duplicate check")

	expected := "Registry.Create: duplicate check failed: base error"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}

	if !errors.Is(wrapped, baseErr) {
		t.Error("wrapped error should match base error with errors.Is")
	}

	if Wrap(nil, "Registry", "Create", "duplicate check") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	baseErr := errors.New("dial refused")

	tests := []struct {
		name     string
		wrap     func(error, string, string, string) error
		expected ErrorClass
	}{
		{"protocol", WrapProtocol, ErrorProtocol},
		{"validation", WrapValidation, ErrorValidation},
		{"not found", WrapNotFound, ErrorNotFound},
		{"backend", WrapBackend, ErrorBackend},
		{"execution", WrapExecution, ErrorExecution},
		{"disconnected", WrapDisconnected, ErrorDisconnected},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(baseErr, "Component", "Method", "action")

			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected a ClassifiedError")
			}
			if ce.Class != test.expected {
				t.Errorf("expected class %v, got %v", test.expected, ce.Class)
			}
			if ce.Component != "Component" {
				t.Errorf("expected component Component, got %s", ce.Component)
			}
			if !strings.Contains(err.Error(), "Component.Method: action failed") {
				t.Errorf("unexpected message: %s", err.Error())
			}
			if !errors.Is(err, baseErr) {
				t.Error("classification should preserve the error chain")
			}
			if test.wrap(nil, "Component", "Method", "action") != nil {
				t.Error("wrapping nil should return nil")
			}
		})
	}
}

func TestValidationMessageConstructors(t *testing.T) {
	err := Validation(ErrDuplicateProgram, "Program with ID 'p1' already exists")

	if err.Error() != "Program with ID 'p1' already exists" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrDuplicateProgram) {
		t.Error("sentinel should survive the constructor")
	}
	if Classify(err) != ErrorValidation {
		t.Errorf("expected validation class, got %v", Classify(err))
	}

	nf := NotFound(ErrProgramNotFound, "Program not found: p9")
	if nf.Error() != "Program not found: p9" {
		t.Errorf("unexpected message: %s", nf.Error())
	}
	if Classify(nf) != ErrorNotFound {
		t.Errorf("expected not_found class, got %v", Classify(nf))
	}

	be := Backend(ErrNoLanguageModel, "No LM is loaded.")
	if !errors.Is(be, ErrNoLanguageModel) {
		t.Error("backend sentinel should survive the constructor")
	}
	if Classify(be) != ErrorBackend {
		t.Errorf("expected backend class, got %v", Classify(be))
	}
}
