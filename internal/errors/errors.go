// Package errors provides a lightweight structured error type (ModkitError)
// for category-based classification across the generator and the eject CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a modkit error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Generation pipeline errors
	CategoryScan       ErrorCategory = "scan"
	CategoryEmit       ErrorCategory = "emit"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Command errors
	CategoryEject    ErrorCategory = "eject"
	CategoryHistory  ErrorCategory = "history"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// Sentinel errors for the generator and eject precondition taxonomy. Callers
// match these with errors.Is; the CLI maps them to exact messages.
var (
	ErrConfigNotFound    = errors.New("modules configuration not found")
	ErrModuleNotFound    = errors.New("module not found")
	ErrAlreadyLocal      = errors.New("module is already app-owned")
	ErrNotEjectable      = errors.New("module is not ejectable")
	ErrSourceMissing     = errors.New("module package source is missing")
	ErrDestinationExists = errors.New("app-owned destination already exists")
	ErrDependencyUnmet   = errors.New("module dependencies unmet")
)

// ModkitError is a structured error with category, severity, and context
type ModkitError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for ModkitError
type ContextFields map[string]any

// Error implements the error interface
func (e *ModkitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *ModkitError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *ModkitError) WithContext(key string, value any) *ModkitError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new ModkitError
func New(category ErrorCategory, severity ErrorSeverity, message string) *ModkitError {
	return &ModkitError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new ModkitError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *ModkitError {
	return &ModkitError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var me *ModkitError
	if errors.As(err, &me) {
		return me.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if the error carries no classification.
func GetCategory(err error) ErrorCategory {
	var me *ModkitError
	if errors.As(err, &me) {
		return me.Category
	}
	return CategoryInternal
}
