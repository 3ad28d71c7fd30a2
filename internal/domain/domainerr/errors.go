// Package domainerr holds the error kinds produced by the user domain.
//
// Every concrete error matches exactly one sentinel kind through errors.Is, so callers can
// branch on the kind without knowing the concrete type:
//
//	if errors.Is(err, domainerr.ErrBusinessRuleViolation) { ... }
package domainerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds.
var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrBusinessRuleViolation  = errors.New("business rule violation")
	ErrConflict               = errors.New("concurrent modification conflict")
)

// Reason identifies the rule that denied a role transition.
type Reason string

const (
	ReasonNoOpTransition                  Reason = "NoOpTransition"
	ReasonUnauthorizedInitiator           Reason = "UnauthorizedInitiator"
	ReasonInsufficientProfileCompleteness Reason = "InsufficientProfileCompleteness"
	ReasonIneligibleAccountAge            Reason = "IneligibleAccountAge"
	ReasonUnderMinimumAge                 Reason = "UnderMinimumAge"
	ReasonUnsupportedTransition           Reason = "UnsupportedTransition"
)

// ValidationError represents malformed input to a constructor or value object.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidationErrors is a collection of field errors reported together.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func (ve ValidationErrors) Is(target error) bool { return target == ErrValidation }

// Details flattens the collection into field -> message.
func (ve ValidationErrors) Details() map[string]string {
	out := make(map[string]string, len(ve))
	for _, e := range ve {
		out[e.Field] = e.Message
	}
	return out
}

// InvalidStateTransitionError reports a lifecycle method called from a status that does not permit it.
type InvalidStateTransitionError struct {
	Operation string `json:"operation"`
	From      string `json:"from"`
}

func NewInvalidStateTransition(operation, from string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{Operation: operation, From: from}
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s a user in status %s", e.Operation, e.From)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// BusinessRuleViolationError is a role-transition denial carrying the unmet condition.
type BusinessRuleViolationError struct {
	Reason  Reason                 `json:"reason"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func NewBusinessRuleViolation(reason Reason, message string, ctx map[string]interface{}) *BusinessRuleViolationError {
	return &BusinessRuleViolationError{Reason: reason, Message: message, Context: ctx}
}

func (e *BusinessRuleViolationError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", e.Reason, e.Message)
}

func (e *BusinessRuleViolationError) Is(target error) bool {
	return target == ErrBusinessRuleViolation
}

// ConflictError is raised by persistence when an optimistic-concurrency check fails.
// The domain never returns it; it lives here so every layer names the same kind.
type ConflictError struct {
	Resource        string `json:"resource"`
	ID              string `json:"id"`
	ExpectedVersion int64  `json:"expected_version"`
}

func NewConflict(resource, id string, expectedVersion int64) *ConflictError {
	return &ConflictError{Resource: resource, ID: id, ExpectedVersion: expectedVersion}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %s was modified concurrently (expected version %d)", e.Resource, e.ID, e.ExpectedVersion)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ReasonOf extracts the denial reason from err, if it is a business rule violation.
func ReasonOf(err error) (Reason, bool) {
	var bre *BusinessRuleViolationError
	if errors.As(err, &bre) {
		return bre.Reason, true
	}
	return "", false
}
