// Package errors provides structured error types for Fleettrack.
// Errors carry a stable code, a category, and key-value context so that
// a failed generation can be reproduced from its error alone.
package errors

import (
	"fmt"
	"strings"
)

// Category classifies errors for consistent handling and display.
type Category string

const (
	CategoryAggregation Category = "aggregation" // Data-store query/grouping errors
	CategoryRender      Category = "render"      // Layout invariant violations
	CategoryAsset       Category = "asset"       // Logo/watermark/QR degradation
	CategoryToken       Category = "token"       // Report token issue/verify errors
	CategoryValidation  Category = "validation"  // Input validation errors
	CategoryConfig      Category = "config"      // Configuration loading/parsing errors
	CategoryIO          Category = "io"          // File/IO errors
	CategoryInternal    Category = "internal"    // Internal/unexpected errors
)

// Stable error codes used across the report pipeline.
const (
	CodeAggregationFailed = "AGGREGATION_FAILED"
	CodeRenderInvariant   = "RENDER_INVARIANT"
	CodeAssetDegraded     = "ASSET_DEGRADED"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeTokenExpired      = "TOKEN_EXPIRED"
)

// FleetError is a structured error with context.
// It implements the error interface and supports error wrapping.
type FleetError struct {
	// Code is a unique identifier for this error type (e.g., "AGGREGATION_FAILED")
	Code string

	// Category classifies this error for consistent handling
	Category Category

	// Message is the primary error message describing what went wrong
	Message string

	// Context provides additional key-value details about the error
	Context map[string]string

	// Cause is the underlying error that triggered this error (for wrapping)
	Cause error
}

// Error implements the error interface.
func (e *FleetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
// This enables errors.Is() and errors.As() to work with FleetError.
func (e *FleetError) Unwrap() error {
	return e.Cause
}

// Is reports whether e matches target for errors.Is() checks.
// Two FleetErrors match if they have the same Code.
func (e *FleetError) Is(target error) bool {
	if t, ok := target.(*FleetError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new FleetError with the given code, category, and message.
func New(code string, category Category, message string) *FleetError {
	return &FleetError{
		Code:     code,
		Category: category,
		Message:  message,
		Context:  make(map[string]string),
	}
}

// WithContext adds a context key-value pair and returns the error for chaining.
func (e *FleetError) WithContext(key, value string) *FleetError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause wraps an underlying error and returns the error for chaining.
func (e *FleetError) WithCause(cause error) *FleetError {
	e.Cause = cause
	return e
}

// ContextString returns a formatted string of all context entries.
func (e *FleetError) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	var parts []string
	for k, v := range e.Context {
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	return strings.Join(parts, ", ")
}

// Wrap wraps an existing error with a FleetError.
func Wrap(err error, code string, category Category, message string) *FleetError {
	return New(code, category, message).WithCause(err)
}

// AsFleetError attempts to convert an error to a FleetError.
// Returns the FleetError and true if successful, nil and false otherwise.
func AsFleetError(err error) (*FleetError, bool) {
	if err == nil {
		return nil, false
	}
	if fe, ok := err.(*FleetError); ok {
		return fe, true
	}
	return nil, false
}

// IsCategory checks if an error is a FleetError with the given category.
func IsCategory(err error, category Category) bool {
	if fe, ok := AsFleetError(err); ok {
		return fe.Category == category
	}
	return false
}

// IsCode checks if an error is a FleetError with the given code.
func IsCode(err error, code string) bool {
	if fe, ok := AsFleetError(err); ok {
		return fe.Code == code
	}
	return false
}

// -----------------------------------------------------------------------------
// Helper Constructors for the Pipeline Failure Taxonomy
// -----------------------------------------------------------------------------

// AggregationError creates an aggregation failure.
// Fatal to the whole operation; surfaced to the caller, never retried here.
func AggregationError(message string) *FleetError {
	return New(CodeAggregationFailed, CategoryAggregation, message)
}

// WrapAggregation wraps a data-store error as an aggregation failure.
func WrapAggregation(err error, message string) *FleetError {
	return Wrap(err, CodeAggregationFailed, CategoryAggregation, message)
}

// RenderError creates a render failure. A violated layout invariant is a
// defect, not a recoverable condition.
func RenderError(message string) *FleetError {
	return New(CodeRenderInvariant, CategoryRender, message)
}

// RenderErrorf creates a render failure with a formatted message.
func RenderErrorf(format string, args ...interface{}) *FleetError {
	return New(CodeRenderInvariant, CategoryRender, fmt.Sprintf(format, args...))
}

// AssetDegraded creates an asset degradation marker. This is not an operation
// failure: it is logged and absorbed, and the document is still generated.
func AssetDegraded(message string) *FleetError {
	return New(CodeAssetDegraded, CategoryAsset, message)
}

// TokenInvalid creates a token verification error for tampered or malformed tokens.
func TokenInvalid(message string) *FleetError {
	return New(CodeTokenInvalid, CategoryToken, message)
}

// TokenExpired creates a token verification error for expired tokens.
func TokenExpired(message string) *FleetError {
	return New(CodeTokenExpired, CategoryToken, message)
}

// ValidationError creates a new validation error.
func ValidationError(code, message string) *FleetError {
	return New(code, CategoryValidation, message)
}

// ConfigError creates a new configuration error.
func ConfigError(code, message string) *FleetError {
	return New(code, CategoryConfig, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *FleetError {
	return Wrap(err, code, CategoryConfig, message)
}

// IOError creates a new file/IO error.
func IOError(code, message string) *FleetError {
	return New(code, CategoryIO, message)
}

// InternalError creates a new internal/unexpected error.
func InternalError(code, message string) *FleetError {
	return New(code, CategoryInternal, message)
}
