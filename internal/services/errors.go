// Package services defines the business logic for premium contracts:
// creation, adjudication, entitlement, notification dispatch and expiry.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Contract-related errors.
var (
	// ErrValidation is matched (via errors.Is) by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates that the requested contract does not exist or is
	// not accessible to the current user.
	ErrNotFound = errors.New("contract not found")

	// ErrInvalidTransition is returned when the requested lifecycle event is
	// not permitted from the contract's current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrAlreadyAdjudicated is returned when an accept/reject targets a
	// contract that is no longer pending review, including when a concurrent
	// request won the conditional update.
	ErrAlreadyAdjudicated = errors.New("contract already adjudicated")
)

// Notification-related errors.
var (
	// ErrNotificationNotFound indicates that the notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotRequeueable is returned when requeueing a notification that is
	// not in the FAILED state.
	ErrNotRequeueable = errors.New("notification is not failed")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
