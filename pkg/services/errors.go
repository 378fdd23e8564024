// Package services provides the application service layer between HTTP handlers and the engine.
package services

import (
	"errors"
	"fmt"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
)

// Business logic errors - these indicate client errors (4xx responses).
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrCaseIDRequired    = errors.New("case id is required")
	ErrRecipientRequired = errors.New("recipient is required")
	ErrInvalidStatus     = errors.New("invalid instance status")
	ErrInstanceNotActive = errors.New("instance is not active")
	ErrStepNotCurrent    = errors.New("step is not the instance's current step")
	ErrStepNotExecutable = errors.New("step is not manually executable")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrCaseIDRequired) ||
		errors.Is(err, ErrRecipientRequired) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, registry.ErrUnknownWorkflow) ||
		errors.Is(err, engine.ErrUnknownInstance) ||
		errors.Is(err, notification.ErrUnknownTemplate) ||
		errors.Is(err, persistence.ErrCaseNotFound) ||
		errors.Is(err, persistence.ErrInstanceNotFound) ||
		errors.Is(err, persistence.ErrNotificationNotFound)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInstanceNotActive) ||
		errors.Is(err, ErrStepNotCurrent) ||
		errors.Is(err, ErrStepNotExecutable)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a new business logic conflict error with context.
func NewConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
