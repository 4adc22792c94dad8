package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservas/internal/database"
	"reservas/internal/domain"
	"reservas/internal/events"
	"reservas/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// timestampLayouts are accepted input formats, most specific first. The
// layout without seconds matches what the front end sends.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// BookingWindow bounds how far from now a reservation may start. Zero
// values disable the corresponding check.
type BookingWindow struct {
	MaxDaysAhead int
	RejectPast   bool
}

// ReservationService is the lifecycle manager: it validates intent,
// authorizes the actor, runs the conflict check and persists transitions.
// All reservation writes go through its three entry points.
type ReservationService struct {
	store    domain.ReservationStore
	rooms    domain.RoomDirectory
	checker  *ConflictChecker
	notifier domain.Notifier
	eventBus domain.EventPublisher
	window   BookingWindow
	logger   *zerolog.Logger
}

func NewReservationService(
	store domain.ReservationStore,
	rooms domain.RoomDirectory,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	window BookingWindow,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		store:    store,
		rooms:    rooms,
		checker:  NewConflictChecker(store),
		notifier: notifier,
		eventBus: eventBus,
		window:   window,
		logger:   logger,
	}
}

func (s *ReservationService) Create(ctx context.Context, actor models.Principal, input models.CreateReservationInput) (*models.Reservation, error) {
	if input.RoomID == "" {
		return nil, validationf("room_id is required")
	}
	if input.Start == "" || input.End == "" {
		return nil, validationf("start and end are required")
	}

	start, err := parseTimestamp(input.Start)
	if err != nil {
		return nil, validationf("invalid start: %s", input.Start)
	}
	end, err := parseTimestamp(input.End)
	if err != nil {
		return nil, validationf("invalid end: %s", input.End)
	}
	candidate := models.Interval{Start: start, End: end}
	if !candidate.Valid() {
		return nil, validationf("start must be before end")
	}

	if err := s.checkWindow(start); err != nil {
		return nil, err
	}

	if s.rooms != nil && !s.rooms.RoomBookable(input.RoomID) {
		return nil, validationf("room %s does not exist or is not bookable", input.RoomID)
	}

	ownerID := actor.ID
	if input.OnBehalfOf != "" {
		if !actor.IsCoordinator() {
			return nil, &ForbiddenError{Reason: "only a coordinator may book on behalf of another user"}
		}
		ownerID = input.OnBehalfOf
	}

	conflicts, err := s.checker.Check(ctx, input.RoomID, candidate, "")
	if err != nil {
		return nil, s.wrapStoreError(err)
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{ReservationIDs: conflicts}
	}

	r := &models.Reservation{
		ID:           uuid.NewString(),
		RoomID:       input.RoomID,
		OwnerID:      ownerID,
		DisciplineID: input.DisciplineID,
		Start:        start,
		End:          end,
		Participants: input.Participants,
		Status:       models.StatusActive,
	}
	if err := s.store.CreateReservationWithGuard(ctx, r); err != nil {
		if errors.Is(err, database.ErrRoomBusy) {
			// Lost the race between check and write; report whoever won.
			return nil, s.conflictError(ctx, input.RoomID, candidate, "")
		}
		return nil, s.wrapStoreError(err)
	}

	s.emit(ownerID, fmt.Sprintf("Reservation created: %s", r.ID), r.ID)
	s.publishEvent(events.EventReservationCreated, r, actor)

	return r, nil
}

func (s *ReservationService) Update(ctx context.Context, actor models.Principal, id string, patch models.ReservationPatch) (*models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, r); err != nil {
		return nil, err
	}

	if patch.Status != "" {
		if !models.ValidStatus(patch.Status) {
			return nil, validationf("invalid status: %s", patch.Status)
		}
		if r.Terminal() && patch.Status != r.Status {
			return nil, validationf("reservation is %s and cannot change status", r.Status)
		}
	}

	if patch.TouchesSchedule() {
		roomID := r.RoomID
		if patch.RoomID != "" {
			roomID = patch.RoomID
		}
		start, end := r.Start, r.End
		if patch.Start != "" {
			if start, err = parseTimestamp(patch.Start); err != nil {
				return nil, validationf("invalid start: %s", patch.Start)
			}
		}
		if patch.End != "" {
			if end, err = parseTimestamp(patch.End); err != nil {
				return nil, validationf("invalid end: %s", patch.End)
			}
		}
		candidate := models.Interval{Start: start, End: end}
		if !candidate.Valid() {
			return nil, validationf("start must be before end")
		}

		if patch.RoomID != "" && s.rooms != nil && !s.rooms.RoomBookable(roomID) {
			return nil, validationf("room %s does not exist or is not bookable", roomID)
		}

		conflicts, err := s.checker.Check(ctx, roomID, candidate, r.ID)
		if err != nil {
			return nil, s.wrapStoreError(err)
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{ReservationIDs: conflicts}
		}

		r.RoomID = roomID
		r.Start = start
		r.End = end
	}

	if patch.Status != "" {
		r.Status = patch.Status
	}
	if patch.Participants != nil {
		r.Participants = patch.Participants
	}

	if err := s.store.UpdateReservationWithGuard(ctx, r, r.Version); err != nil {
		if errors.Is(err, database.ErrRoomBusy) {
			return nil, s.conflictError(ctx, r.RoomID, r.Interval(), r.ID)
		}
		if errors.Is(err, database.ErrConcurrentModification) {
			return nil, err
		}
		return nil, s.wrapStoreError(err)
	}

	s.emit(actor.ID, fmt.Sprintf("Reservation updated: %s", r.ID), r.ID)
	s.publishEvent(eventTypeForStatus(r.Status), r, actor)

	return r, nil
}

func (s *ReservationService) Cancel(ctx context.Context, actor models.Principal, id string) (*models.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, r); err != nil {
		return nil, err
	}

	// Cancelling an already-inactive reservation is a no-op, not an error.
	if r.Terminal() {
		return r, nil
	}

	if err := s.store.UpdateReservationStatusWithVersion(ctx, r.ID, r.Version, models.StatusCancelled); err != nil {
		if errors.Is(err, database.ErrConcurrentModification) {
			return nil, err
		}
		return nil, s.wrapStoreError(err)
	}
	r.Status = models.StatusCancelled
	r.Version++

	s.emit(actor.ID, fmt.Sprintf("Reservation cancelled: %s", r.ID), r.ID)
	s.publishEvent(events.EventReservationCancelled, r, actor)

	return r, nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.load(ctx, id)
}

// List returns reservations matching the filter. When no status is given,
// only active reservations are returned; StatusAny lifts the filter.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	switch filter.Status {
	case "":
		filter.Status = models.StatusActive
	case models.StatusAny:
		filter.Status = ""
	default:
		if !models.ValidStatus(filter.Status) {
			return nil, validationf("invalid status: %s", filter.Status)
		}
	}

	reservations, err := s.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, s.wrapStoreError(err)
	}
	return reservations, nil
}

func (s *ReservationService) load(ctx context.Context, id string) (*models.Reservation, error) {
	if id == "" {
		return nil, validationf("reservation id is required")
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, s.wrapStoreError(err)
	}
	return r, nil
}

func authorize(actor models.Principal, r *models.Reservation) error {
	if actor.ID == r.OwnerID || actor.IsCoordinator() {
		return nil
	}
	return &ForbiddenError{Reason: "not the reservation owner"}
}

func (s *ReservationService) checkWindow(start time.Time) error {
	if s.window.RejectPast && start.Before(time.Now()) {
		return validationf("start is in the past")
	}
	if s.window.MaxDaysAhead > 0 {
		maxStart := time.Now().AddDate(0, 0, s.window.MaxDaysAhead)
		if start.After(maxStart) {
			return validationf("start is more than %d days ahead", s.window.MaxDaysAhead)
		}
	}
	return nil
}

// conflictError rebuilds the colliding id list after the store guard
// rejected a write.
func (s *ReservationService) conflictError(ctx context.Context, roomID string, candidate models.Interval, excludeID string) error {
	conflicts, err := s.checker.Check(ctx, roomID, candidate, excludeID)
	if err != nil || len(conflicts) == 0 {
		return &ConflictError{}
	}
	return &ConflictError{ReservationIDs: conflicts}
}

// wrapStoreError marks unexpected store failures as an outage. Domain
// sentinels pass through untouched; no placeholder data is substituted.
func (s *ReservationService) wrapStoreError(err error) error {
	if errors.Is(err, database.ErrNotFound) ||
		errors.Is(err, database.ErrRoomBusy) ||
		errors.Is(err, database.ErrConcurrentModification) {
		return err
	}
	return fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
}

func (s *ReservationService) emit(userID, message, reservationID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(userID, message, reservationID)
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation, actor models.Principal) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		OwnerID:       r.OwnerID,
		Status:        r.Status,
		Start:         r.Start,
		End:           r.End,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", r.ID).Msg("publish event error")
	}
}

func eventTypeForStatus(status string) string {
	switch status {
	case models.StatusCancelled:
		return events.EventReservationCancelled
	case models.StatusRejected:
		return events.EventReservationRejected
	default:
		return events.EventReservationUpdated
	}
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp: %s", raw)
}
