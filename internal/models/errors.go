package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrArithmeticOverflow signals a derived total that does not fit in int64.
	// Valid inputs never produce it.
	ErrArithmeticOverflow = errors.New("arithmetic overflow while aggregating costs")

	ErrWorkflowCompleted = errors.New("cost workflow already completed")
	ErrStepOutOfOrder    = errors.New("cost workflow step not reached yet")
)

// ValidationError is a caller-fixable input error.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a reference to a record that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// DuplicateCostRecordError is returned when a trip already owns a cost record.
type DuplicateCostRecordError struct {
	TripID string
}

func (e *DuplicateCostRecordError) Error() string {
	return fmt.Sprintf("trip %s already has a cost record", e.TripID)
}

// WorkflowError reports a cost workflow step that is not allowed in the
// record's current step.
type WorkflowError struct {
	Step    CostStep
	Current CostStep
	Err     error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("cannot run step %s while workflow is at %s: %v", e.Step, e.Current, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
