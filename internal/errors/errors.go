// Package errors provides the error taxonomy for the bootstrap core.
// Construction-time errors are fatal and raised immediately; runtime
// listener errors are contained and reported; phase errors are contained
// only after rollback completes and are then escalated to the boot entry
// point.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType defines the category of error for proper handling and response.
type ErrorType string

const (
	// ErrorTypeMissingDependency marks a required constructor input that
	// is absent. Raised synchronously during component construction.
	ErrorTypeMissingDependency ErrorType = "MISSING_DEPENDENCY"

	// ErrorTypeAttachFailure marks a listener that could not be added or
	// removed. Reported, never thrown past the call site.
	ErrorTypeAttachFailure ErrorType = "ATTACH_FAILURE"

	// ErrorTypeHandlerFailure marks a panic or error inside a tracked
	// listener's wrapped handler.
	ErrorTypeHandlerFailure ErrorType = "HANDLER_FAILURE"

	// ErrorTypePhaseFailure marks a failed initialization phase. Triggers
	// rollback and a terminal lifecycle state.
	ErrorTypePhaseFailure ErrorType = "PHASE_FAILURE"

	// ErrorTypeTimeout marks a bounded readiness wait that exceeded its
	// deadline. Treated as an ordinary phase failure by the orchestrator.
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// ErrorTypeInternal is the catch-all for unclassified failures.
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// Severity defines the severity level for logging and monitoring.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CoreError is the single error type used across the bootstrap core.
type CoreError struct {
	Type      ErrorType
	Message   string
	Operation string
	Module    string
	Severity  Severity
	Timestamp time.Time
	Cause     error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// WithOperation annotates the error with the operation that failed.
func (e *CoreError) WithOperation(op string) *CoreError {
	e.Operation = op
	return e
}

// WithModule annotates the error with the originating module name.
func (e *CoreError) WithModule(module string) *CoreError {
	e.Module = module
	return e
}

func newError(t ErrorType, severity Severity, message string, cause error) *CoreError {
	return &CoreError{
		Type:      t,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewMissingDependency creates a fatal missing-dependency error. Callers
// must raise it immediately during construction, never degrade.
func NewMissingDependency(name string) *CoreError {
	return newError(ErrorTypeMissingDependency, SeverityCritical,
		fmt.Sprintf("required dependency %q is missing", name), nil)
}

// NewAttachFailure creates a contained listener attach/detach error.
func NewAttachFailure(message string, cause error) *CoreError {
	return newError(ErrorTypeAttachFailure, SeverityMedium, message, cause)
}

// NewHandlerFailure creates a contained handler-execution error.
func NewHandlerFailure(message string, cause error) *CoreError {
	return newError(ErrorTypeHandlerFailure, SeverityMedium, message, cause)
}

// NewPhaseFailure wraps a phase rejection. Always re-thrown to the boot
// entry point after rollback completes.
func NewPhaseFailure(phase string, cause error) *CoreError {
	e := newError(ErrorTypePhaseFailure, SeverityHigh,
		fmt.Sprintf("phase %q failed", phase), cause)
	e.Operation = phase
	return e
}

// NewTimeout creates a readiness-timeout error.
func NewTimeout(what string, waited time.Duration) *CoreError {
	return newError(ErrorTypeTimeout, SeverityHigh,
		fmt.Sprintf("timed out after %v waiting for %s", waited, what), nil)
}

// NewInternal creates an internal error wrapping a cause.
func NewInternal(message string, cause error) *CoreError {
	return newError(ErrorTypeInternal, SeverityHigh, message, cause)
}

// Wrap adds context to an error, preserving an existing CoreError type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var core *CoreError
	if errors.As(err, &core) {
		return &CoreError{
			Type:      core.Type,
			Message:   fmt.Sprintf("%s: %s", message, core.Message),
			Operation: core.Operation,
			Module:    core.Module,
			Severity:  core.Severity,
			Timestamp: core.Timestamp,
			Cause:     core.Cause,
		}
	}
	return newError(ErrorTypeInternal, SeverityMedium, message, err)
}

// TypeOf returns the core error type, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var core *CoreError
	if errors.As(err, &core) {
		return core.Type
	}
	return ErrorTypeInternal
}

// IsTimeout checks whether an error is a readiness-timeout error.
func IsTimeout(err error) bool {
	return TypeOf(err) == ErrorTypeTimeout
}

// IsPhaseFailure checks whether an error is a phase failure.
func IsPhaseFailure(err error) bool {
	return TypeOf(err) == ErrorTypePhaseFailure
}

// IsMissingDependency checks whether an error is a missing-dependency error.
func IsMissingDependency(err error) bool {
	return TypeOf(err) == ErrorTypeMissingDependency
}
