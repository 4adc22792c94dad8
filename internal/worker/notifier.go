package worker

import (
	"context"
	"time"

	"reservas/internal/domain"
	"reservas/internal/metrics"
	"reservas/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationDispatcher persists notification records off the request path.
// Emit never blocks the caller; records are written to the store by a
// background loop with retries.
type NotificationDispatcher struct {
	store  domain.NotificationStore
	retry  RetryPolicy
	queue  chan models.Notification
	logger *zerolog.Logger
}

// NewNotificationDispatcher builds a dispatcher with sane defaults.
func NewNotificationDispatcher(store domain.NotificationStore, retry RetryPolicy, logger *zerolog.Logger) *NotificationDispatcher {
	retry = retry.withDefaults()

	return &NotificationDispatcher{
		store:  store,
		retry:  retry,
		queue:  make(chan models.Notification, models.NotifyQueueSize),
		logger: logger,
	}
}

// Emit queues a notification record for the user. When the queue is full the
// record is dropped with a log entry; notifications are best-effort.
func (d *NotificationDispatcher) Emit(userID, message, reservationID string) {
	n := models.Notification{
		ID:            uuid.NewString(),
		UserID:        userID,
		Message:       message,
		ReservationID: reservationID,
		CreatedAt:     time.Now().UTC(),
	}

	select {
	case d.queue <- n:
		metrics.IncNotification()
	default:
		d.logger.Warn().
			Str("user_id", userID).
			Str("reservation_id", reservationID).
			Msg("notification queue full, record dropped")
	}
}

// Start runs the dispatch loop; stops when ctx is done. Remaining queued
// records are flushed before returning.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.logger.Info().Msg("notification dispatcher started")
	defer d.logger.Info().Msg("notification dispatcher stopped")

	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *NotificationDispatcher) tryQueue() (models.Notification, bool) {
	select {
	case n := <-d.queue:
		return n, true
	default:
		return models.Notification{}, false
	}
}

// flush writes whatever is still queued, without retries. Uses a fresh
// context because the loop's context is already cancelled.
func (d *NotificationDispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case n := <-d.queue:
			if err := d.store.CreateNotification(ctx, &n); err != nil {
				d.logger.Error().Err(err).Str("notification_id", n.ID).Msg("flush notification failed")
			}
		default:
			return
		}
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, n models.Notification) {
	var lastErr error
	for attempt := 1; attempt <= d.retry.MaxRetries; attempt++ {
		if err := d.store.CreateNotification(ctx, &n); err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.retry.NextDelay(attempt)):
			}
			continue
		}
		return
	}

	d.logger.Error().
		Err(lastErr).
		Str("notification_id", n.ID).
		Str("user_id", n.UserID).
		Msg("notification dropped after retries")
}
