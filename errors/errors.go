// Package errors provides standardized error handling patterns for llmbridge
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping across the bridge.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorProtocol represents malformed frames or envelopes on the wire.
	// Logged and skipped; never answered when no request id is recoverable.
	ErrorProtocol ErrorClass = iota
	// ErrorValidation represents missing or invalid command arguments
	ErrorValidation
	// ErrorNotFound represents unknown programs, sessions, or commands
	ErrorNotFound
	// ErrorBackend represents an absent or unconfigured language-model backend
	ErrorBackend
	// ErrorExecution represents a failure raised by the program executor mid-call
	ErrorExecution
	// ErrorDisconnected represents I/O-level peer loss; recoverable, never
	// surfaced through the command layer
	ErrorDisconnected
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorProtocol:
		return "protocol"
	case ErrorValidation:
		return "validation"
	case ErrorNotFound:
		return "not_found"
	case ErrorBackend:
		return "backend"
	case ErrorExecution:
		return "execution"
	case ErrorDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Wire and stream errors
	ErrEndOfStream     = errors.New("end of stream")
	ErrPeerClosed      = errors.New("peer closed the stream")
	ErrFrameTruncated  = errors.New("truncated frame")
	ErrFrameTooLarge   = errors.New("frame exceeds maximum size")
	ErrInvalidEncoding = errors.New("invalid UTF-8 payload")

	// Envelope errors
	ErrMissingID      = errors.New("envelope missing id")
	ErrMissingCommand = errors.New("envelope missing command")

	// Command argument errors
	ErrMissingProgramID = errors.New("Program ID is required")
	ErrMissingSessionID = errors.New("Session ID required in pool-worker mode")
	ErrMissingModel     = errors.New("Model name is required")
	ErrMissingAPIKey    = errors.New("API key is required")
	ErrUnsupportedModel = errors.New("unsupported provider/model combination")
	ErrInvalidSignature = errors.New("invalid signature definition")

	// Registry errors
	ErrDuplicateProgram = errors.New("program already exists")
	ErrProgramNotFound  = errors.New("program not found")
	ErrWrongProgramKind = errors.New("program kind mismatch")
	ErrSessionNotFound  = errors.New("session not found")
	ErrUnknownCommand   = errors.New("unknown command")

	// Backend errors
	ErrNoLanguageModel    = errors.New("No LM is loaded.")
	ErrBackendUnavailable = errors.New("language model backend unavailable")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsProtocol checks if an error is a wire-level protocol error
func IsProtocol(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorProtocol
	}

	return errors.Is(err, ErrFrameTruncated) ||
		errors.Is(err, ErrFrameTooLarge) ||
		errors.Is(err, ErrInvalidEncoding) ||
		errors.Is(err, ErrMissingID) ||
		errors.Is(err, ErrMissingCommand)
}

// IsValidation checks if an error is due to missing or invalid arguments
func IsValidation(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorValidation
	}

	return errors.Is(err, ErrMissingProgramID) ||
		errors.Is(err, ErrMissingSessionID) ||
		errors.Is(err, ErrMissingModel) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrUnsupportedModel) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrDuplicateProgram) ||
		errors.Is(err, ErrWrongProgramKind)
}

// IsNotFound checks if an error refers to an unknown program, session, or command
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorNotFound
	}

	return errors.Is(err, ErrProgramNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrUnknownCommand)
}

// IsBackend checks if an error indicates an unavailable language-model backend
func IsBackend(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorBackend
	}

	return errors.Is(err, ErrNoLanguageModel) ||
		errors.Is(err, ErrBackendUnavailable)
}

// IsDisconnected checks if an error is a recoverable peer-loss condition
func IsDisconnected(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorDisconnected
	}

	if errors.Is(err, ErrEndOfStream) || errors.Is(err, ErrPeerClosed) {
		return true
	}

	// Raw pipe failures surface from the OS with platform-dependent wrapping.
	errStr := strings.ToLower(err.Error())
	disconnectedPatterns := []string{
		"broken pipe",
		"connection reset",
		"file already closed",
		"closed pipe",
	}

	for _, pattern := range disconnectedPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// Classify returns the error class for an error. Unknown errors default to
// ErrorExecution so they surface through the failure envelope rather than
// being silently retried or dropped.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorExecution
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	switch {
	case IsDisconnected(err):
		return ErrorDisconnected
	case IsProtocol(err):
		return ErrorProtocol
	case IsValidation(err):
		return ErrorValidation
	case IsNotFound(err):
		return ErrorNotFound
	case IsBackend(err):
		return ErrorBackend
	default:
		return ErrorExecution
	}
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapProtocol wraps an error as a wire-level protocol error with context
func WrapProtocol(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorProtocol, wrappedErr, component, method, wrappedErr.Error())
}

// WrapValidation wraps an error as an argument-validation failure with context
func WrapValidation(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorValidation, wrappedErr, component, method, wrappedErr.Error())
}

// WrapNotFound wraps an error as a missing-entity failure with context
func WrapNotFound(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorNotFound, wrappedErr, component, method, wrappedErr.Error())
}

// WrapBackend wraps an error as a backend-availability failure with context
func WrapBackend(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorBackend, wrappedErr, component, method, wrappedErr.Error())
}

// WrapExecution wraps an error as an executor failure with context
func WrapExecution(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorExecution, wrappedErr, component, method, wrappedErr.Error())
}

// WrapDisconnected wraps an error as a recoverable peer-loss condition with context
func WrapDisconnected(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorDisconnected, wrappedErr, component, method, wrappedErr.Error())
}

// Validation builds a ClassifiedError around a sentinel with an exact
// user-facing message. Command handlers use it for argument failures whose
// wording is part of the wire contract, while errors.Is still matches the
// sentinel.
func Validation(sentinel error, message string) error {
	return newClassified(ErrorValidation, sentinel, "", "", message)
}

// NotFound builds a not-found ClassifiedError around a sentinel with an
// exact user-facing message.
func NotFound(sentinel error, message string) error {
	return newClassified(ErrorNotFound, sentinel, "", "", message)
}

// Backend builds a backend-availability ClassifiedError around a sentinel
// with an exact user-facing message.
func Backend(sentinel error, message string) error {
	return newClassified(ErrorBackend, sentinel, "", "", message)
}

// Execution builds an execution-failure ClassifiedError that keeps the
// underlying cause for errors.Is while surfacing an exact message.
func Execution(cause error, message string) error {
	return newClassified(ErrorExecution, cause, "", "", message)
}
