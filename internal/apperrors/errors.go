package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel classes. Concrete errors wrap one of these so callers can branch
// with errors.Is without caring about the detail payload.
var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientQuantity   = errors.New("insufficient quantity")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConfigurationMissing   = errors.New("configuration missing")
	ErrConcurrencyConflict    = errors.New("concurrency conflict")
	ErrQuantityMismatch       = errors.New("quantity mismatch")
)

// MismatchError reports a stage-advance guard failure, naming the line or
// allocation whose quantities disagree.
type MismatchError struct {
	Subject  string // "order line 2", "allocation abc"
	Expected float64
	Actual   float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("quantity mismatch: %s: expected %.3f, got %.3f", e.Subject, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error { return ErrQuantityMismatch }

func QuantityMismatch(subject string, expected, actual float64) error {
	return &MismatchError{Subject: subject, Expected: expected, Actual: actual}
}

// ValidationError carries the offending field so the caller can surface it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// QuantityError names the product/location a binding availability check failed
// on. The surrounding transaction is rolled back whole when it is returned.
type QuantityError struct {
	ProductID  string
	LocationID string
	Requested  float64
	Available  float64
	class      error
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("%v: product %s location %s: requested %.3f, available %.3f",
		e.class, e.ProductID, e.LocationID, e.Requested, e.Available)
}

func (e *QuantityError) Unwrap() error { return e.class }

func InsufficientQuantity(productID, locationID string, requested, available float64) error {
	return &QuantityError{
		ProductID:  productID,
		LocationID: locationID,
		Requested:  requested,
		Available:  available,
		class:      ErrInsufficientQuantity,
	}
}

func InsufficientStock(productID string, requested, available float64) error {
	return &QuantityError{
		ProductID: productID,
		Requested: requested,
		Available: available,
		class:     ErrInsufficientStock,
	}
}

// StateError reports an operation attempted against a status it is not legal for.
type StateError struct {
	Entity    string
	Current   string
	Operation string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s %s in state %q", e.Operation, e.Entity, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidStateTransition }

func InvalidState(entity, current, operation string) error {
	return &StateError{Entity: entity, Current: current, Operation: operation}
}

func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

func ConfigurationMissing(what string) error {
	return fmt.Errorf("%w: %s", ErrConfigurationMissing, what)
}
