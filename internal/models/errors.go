package models

import (
	"errors"
	"fmt"
)

// Upload failures.
var (
	ErrEmptyFile           = errors.New("file is empty or missing")
	ErrFileTooLarge        = errors.New("file exceeds the size limit")
	ErrAuthRequired        = errors.New("authentication required")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrBucketMisconfigured = errors.New("storage bucket misconfigured")
	ErrNetwork             = errors.New("network failure")
	ErrUploadExhausted     = errors.New("upload retries exhausted")
)

// Remote edit failures.
var (
	ErrEditEndpointNotFound = errors.New("edit endpoint not found")
	ErrEditInternal         = errors.New("edit endpoint internal error")
	ErrEditTimeout          = errors.New("edit request timed out")
	ErrEditConnection       = errors.New("edit endpoint unreachable")
	ErrResponseShape        = errors.New("unrecognized edit response shape")
)

// ErrValidation marks user-correctable input errors.
var ErrValidation = errors.New("validation error")

// Pipeline stages used for error tagging.
const (
	StageUpload  = "upload"
	StageEdit    = "edit"
	StagePersist = "persist"
)

// StageError tags a failure with the pipeline stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// ValidationError describes a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UserMessage maps an error to actionable text safe to show in a UI.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return "Select an image before submitting."
	case errors.Is(err, ErrFileTooLarge):
		return "The image is too large. The limit is 10 MB."
	case errors.Is(err, ErrAuthRequired):
		return "Sign in to edit images."
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to upload here."
	case errors.Is(err, ErrBucketMisconfigured):
		return "Storage is not set up correctly. Contact support."
	case errors.Is(err, ErrUploadExhausted):
		return "Uploading kept failing. Try again in a moment."
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrEditConnection):
		return "Check your connection and try again."
	case errors.Is(err, ErrEditEndpointNotFound):
		return "The edit service is unavailable."
	case errors.Is(err, ErrEditTimeout):
		return "The edit took too long. Try again."
	case errors.Is(err, ErrEditInternal):
		return "The edit service failed. Try again later."
	case errors.Is(err, ErrResponseShape):
		return "The edit service returned an unexpected response."
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "Something went wrong. Try again."
	}
}
