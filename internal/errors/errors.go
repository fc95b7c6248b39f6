// Package errors defines structured errors shared by the CLI, MCP, and
// web surfaces.
package errors

import "fmt"

// ErrorCode represents a Rhizome error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrInvalidQuery    ErrorCode = "INVALID_QUERY"    // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrUnknownModel    ErrorCode = "UNKNOWN_MODEL"    // 422
	ErrEmbeddingFailed ErrorCode = "EMBEDDING_FAILED" // 502
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// RhizomeError represents a structured error with code, status, and details.
type RhizomeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *RhizomeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *RhizomeError {
	return &RhizomeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidQuery creates a 400 error for a rejected raw SQL statement.
func NewInvalidQuery(msg string) *RhizomeError {
	return &RhizomeError{
		Code:    ErrInvalidQuery,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a slug with no matching note.
func NewNotFound(slug string) *RhizomeError {
	return &RhizomeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", slug),
		Details: map[string]any{"slug": slug},
	}
}

// NewUnknownModel creates a 422 error for an embedding model whose
// vector dimension cannot be determined.
func NewUnknownModel(model string) *RhizomeError {
	return &RhizomeError{
		Code:    ErrUnknownModel,
		Status:  422,
		Message: fmt.Sprintf("unknown embedding model %q: dimension not configured", model),
		Details: map[string]any{"model": model},
	}
}

// NewEmbeddingFailed creates a 502 error for a failed embedder call.
func NewEmbeddingFailed(err error) *RhizomeError {
	msg := "embedding request failed"
	if err != nil {
		msg = err.Error()
	}
	return &RhizomeError{
		Code:    ErrEmbeddingFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *RhizomeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &RhizomeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a RhizomeError with the given code.
func Is(err error, code ErrorCode) bool {
	if rErr, ok := err.(*RhizomeError); ok {
		return rErr.Code == code
	}
	return false
}
