package service

import (
	"context"
	"fmt"

	"reservas/internal/domain"
	"reservas/internal/models"
)

// ConflictChecker applies the overlap predicate to the active reservations
// of a room. It is a pure read; the transactional guard in the store gives
// the same answer atomically at write time.
type ConflictChecker struct {
	store domain.ReservationStore
}

func NewConflictChecker(store domain.ReservationStore) *ConflictChecker {
	return &ConflictChecker{store: store}
}

// Check returns the ids of active reservations in the room whose intervals
// overlap the candidate. excludeID skips the reservation being modified so
// an update never collides with itself. An empty result means the slot is
// free.
func (c *ConflictChecker) Check(ctx context.Context, roomID string, candidate models.Interval, excludeID string) ([]string, error) {
	existing, err := c.store.ActiveReservationsForRoom(ctx, roomID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates for conflict check: %w", err)
	}

	var conflicts []string
	for _, r := range existing {
		if candidate.Overlaps(r.Interval()) {
			conflicts = append(conflicts, r.ID)
		}
	}
	return conflicts, nil
}
