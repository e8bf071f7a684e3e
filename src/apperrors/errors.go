// Package apperrors defines the error taxonomy shared by all services.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is returned when a payload is malformed or violates a
// business rule. Violations maps field names to one or more messages.
type ValidationError struct {
	Message    string
	Violations map[string][]string
}

// Error implements the error interface for ValidationError
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Violations))
	for field, msgs := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// ConflictError is returned when a unique key already exists.
type ConflictError struct {
	Resource string
	Key      string
}

// Error implements the error interface for ConflictError
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

// NotFoundError is returned when a resource with the given id does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface for NotFoundError
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: id=%s", e.Resource, e.ID)
}

// AuthError is returned for bad credentials, bad tokens and failed 2FA codes.
type AuthError struct {
	Message string
}

// Error implements the error interface for AuthError
func (e *AuthError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError without field violations
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// NewValidationErrorWithViolations creates a ValidationError carrying
// per-field violation messages
func NewValidationErrorWithViolations(message string, violations map[string][]string) error {
	return &ValidationError{Message: message, Violations: violations}
}

// NewConflictError creates a new ConflictError
func NewConflictError(resource, key string) error {
	return &ConflictError{Resource: resource, Key: key}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewAuthError creates a new AuthError
func NewAuthError(message string) error {
	return &AuthError{Message: message}
}

// Type assertion helpers for use with errors.As()

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsAuthError checks if an error is an AuthError
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
