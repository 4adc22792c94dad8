package domain

import (
	"context"
	"time"

	"reservas/internal/models"
)

// ReservationStore is the storage adapter the lifecycle manager depends on.
// The guarded writes must check the no-overlap invariant and persist inside
// a single transaction.
type ReservationStore interface {
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	CreateReservationWithGuard(ctx context.Context, r *models.Reservation) error
	UpdateReservationWithGuard(ctx context.Context, r *models.Reservation, fromVersion int64) error
	UpdateReservationStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error
	ActiveReservationsForRoom(ctx context.Context, roomID, excludeID string) ([]*models.Reservation, error)
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetUserNotifications(ctx context.Context, userID string) ([]*models.Notification, error)
}

// RoomDirectory answers room existence and bookability. The catalog itself
// is maintained outside the reservation core.
type RoomDirectory interface {
	GetRooms() []models.Room
	GetRoom(id string) (models.Room, bool)
	RoomBookable(id string) bool
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier emits a notification record for a user, optionally tied to a
// reservation. Best-effort: implementations never report delivery failures
// to the caller.
type Notifier interface {
	Emit(userID, message, reservationID string)
}

type ReservationService interface {
	Create(ctx context.Context, actor models.Principal, input models.CreateReservationInput) (*models.Reservation, error)
	Update(ctx context.Context, actor models.Principal, id string, patch models.ReservationPatch) (*models.Reservation, error)
	Cancel(ctx context.Context, actor models.Principal, id string) (*models.Reservation, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
}

// ListingCache caches serialized listing responses and tracks per-client
// request budgets. Implementations may lose data at any time.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error)
}
