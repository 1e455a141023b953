package task

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is returned when caller input is rejected before any side effect.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrGeneration is returned when the language model call itself fails.
	ErrGeneration = errors.New("generation failed")
	// ErrMalformedOutput is returned when the model completion has no usable tasks.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrPersistence is returned when the store rejects a write.
	ErrPersistence = errors.New("persistence failed")

	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
	ErrSubtaskNotFound = fmt.Errorf("subtask %w", ErrNotFound)
	ErrExportNotFound  = fmt.Errorf("export %w", ErrNotFound)
)

// ValidationError describes a rejected input field. Message is safe to show
// to the end user.
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// GenerationError wraps a provider failure. StatusCode is the provider HTTP
// status when one was received, otherwise zero.
type GenerationError struct {
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// Retryable reports whether a caller-side retry could succeed.
func (e *GenerationError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPStatus maps an error from the taxonomy onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the human-readable message for err.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrUserNotFound):
		return "User not found."
	case errors.Is(err, ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrSubtaskNotFound):
		return "Subtask Not Found"
	case errors.Is(err, ErrMalformedOutput):
		return "AI failed to generate tasks."
	case errors.Is(err, ErrGeneration):
		return "Failed to generate tasks"
	default:
		return "Internal error"
	}
}
