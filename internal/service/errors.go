package service

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or missing input. The caller can always
// recover by correcting the request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that the referenced reservation does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "reservation not found: " + e.ID
}

// ForbiddenError reports that the actor lacks ownership or role to mutate
// the target reservation.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// ConflictError reports that the candidate interval overlaps existing
// active reservations. It carries the blocking reservation ids so callers
// can display them.
type ConflictError struct {
	ReservationIDs []string
}

func (e *ConflictError) Error() string {
	if len(e.ReservationIDs) == 0 {
		return "scheduling conflict"
	}
	return "scheduling conflict with reservation(s): " + strings.Join(e.ReservationIDs, ", ")
}
