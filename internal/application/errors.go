package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/room-booking/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a record with the same identity exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidPasscode is returned when a company passcode does not match.
	ErrInvalidPasscode = errors.New("application: invalid passcode")
	// ErrLastAdmin is returned when an operation would leave a company without admins.
	ErrLastAdmin = errors.New("application: company must keep at least one admin")
	// ErrRoomInactive is returned when booking a deactivated room.
	ErrRoomInactive = errors.New("application: room is inactive")
	// ErrLockUnavailable is returned when the room stayed locked by a concurrent booking.
	ErrLockUnavailable = errors.New("application: room is busy, try again")
	// ErrConflict is the sentinel behind ConflictError.
	ErrConflict = errors.New("application: booking conflicts with existing bookings")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError reports the existing occurrences that block a booking.
type ConflictError struct {
	Conflicts []scheduler.Conflict
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (%d conflicting occurrences)", ErrConflict.Error(), len(e.Conflicts))
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
