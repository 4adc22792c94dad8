package database

import "errors"

var (
	// ErrNotFound is returned when a reservation does not exist.
	ErrNotFound = errors.New("reservation not found")

	// ErrRoomBusy is returned by the guarded writes when an active
	// reservation already occupies the requested slot.
	ErrRoomBusy = errors.New("room already reserved for this interval")

	// ErrConcurrentModification is returned when a versioned update loses
	// the race against another writer.
	ErrConcurrentModification = errors.New("reservation was modified concurrently")

	// ErrStoreUnavailable marks store outages so callers can distinguish
	// them from domain failures. No placeholder data is ever substituted.
	ErrStoreUnavailable = errors.New("reservation store unavailable")
)
