// Package domain defines domain-specific errors.
// These errors represent rendering and export failures independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services and adapters can return.
var (
	// ErrDecodeFailed is returned when the audio stream cannot be decoded.
	ErrDecodeFailed = errors.New("audio decode failed")

	// ErrUnsupportedFormat is returned when no decoder recognises the audio stream.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyOutput is returned when the encoder finished without producing bytes.
	ErrEmptyOutput = errors.New("encoder produced an empty output")

	// ErrEncoderNotLoaded is returned when the encoder is used before Load succeeded.
	ErrEncoderNotLoaded = errors.New("encoder not loaded")

	// ErrExportInProgress is returned when an export is started while another runs.
	ErrExportInProgress = errors.New("export already in progress")

	// ErrExportReset is returned by a run that was discarded by Reset.
	ErrExportReset = errors.New("export reset")

	// ErrMediaUnavailable is returned when a background or album-art asset cannot be loaded.
	ErrMediaUnavailable = errors.New("media unavailable")

	// ErrTextLayerNotFound is returned when a text layer id is unknown.
	ErrTextLayerNotFound = errors.New("text layer not found")

	// ErrDuplicateTextLayer is returned when a text layer id is already used.
	ErrDuplicateTextLayer = errors.New("text layer id already exists")
)

// ExportError is a fatal export failure tagged with the pipeline stage.
type ExportError struct {
	Stage   string // Pipeline stage (e.g., "load", "decode", "capture", "encode", "deliver")
	Message string // User-facing message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export %s failed: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("export %s failed: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new ExportError.
func NewExportError(stage, message string, err error) *ExportError {
	return &ExportError{
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "ExportService", "SessionService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
