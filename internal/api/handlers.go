package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reservas/internal/database"
	"reservas/internal/metrics"
	"reservas/internal/models"
	"reservas/internal/service"
)

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createReservation(w, r)
	case http.MethodGet:
		s.listReservations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getReservation(w, r, id)
	case http.MethodPut, http.MethodPatch:
		s.updateReservation(w, r, id)
	case http.MethodDelete:
		s.cancelReservation(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}

	var input models.CreateReservationInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reservation, err := s.service.Create(r.Context(), actor, input)
	if err != nil {
		metrics.IncOperation("create", outcomeLabel(err))
		s.writeServiceError(w, err)
		return
	}

	metrics.IncOperation("create", "ok")
	s.invalidateListings(r)
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := r.URL.Query().Encode()
	if s.cache != nil {
		if data, hit, err := s.cache.Get(r.Context(), cacheKey); err == nil && hit {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	reservations, err := s.service.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	payload, err := json.Marshal(map[string]any{"reservations": reservations})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.cache != nil {
		ttl := time.Duration(s.cfg.CacheTTL) * time.Second
		if err := s.cache.Set(r.Context(), cacheKey, payload, ttl); err != nil {
			s.logger.Warn().Err(err).Msg("listing cache set failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *HTTPServer) getReservation(w http.ResponseWriter, r *http.Request, id string) {
	reservation, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) updateReservation(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}

	var patch models.ReservationPatch
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reservation, err := s.service.Update(r.Context(), actor, id, patch)
	if err != nil {
		metrics.IncOperation("update", outcomeLabel(err))
		s.writeServiceError(w, err)
		return
	}

	metrics.IncOperation("update", "ok")
	s.invalidateListings(r)
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) cancelReservation(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}

	reservation, err := s.service.Cancel(r.Context(), actor, id)
	if err != nil {
		metrics.IncOperation("cancel", outcomeLabel(err))
		s.writeServiceError(w, err)
		return
	}

	metrics.IncOperation("cancel", "ok")
	s.invalidateListings(r)
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.rooms.GetRooms()})
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actor, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}

	notifications, err := s.notifications.GetUserNotifications(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "notification store unavailable")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actor, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !actor.IsCoordinator() {
		writeError(w, http.StatusForbidden, "coordinator role required")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export is not configured")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Status == "" {
		filter.Status = models.StatusAny
	}

	reservations, err := s.service.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	f, err := s.exporter.Build(reservations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	defer f.Close()

	fileName := fmt.Sprintf("reservas_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("export write failed")
	}
}

func parseListFilter(r *http.Request) (models.ReservationFilter, error) {
	q := r.URL.Query()
	filter := models.ReservationFilter{
		RoomID:  strings.TrimSpace(q.Get("room_id")),
		OwnerID: strings.TrimSpace(q.Get("owner_id")),
		Status:  strings.TrimSpace(q.Get("status")),
	}

	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		ts, err := parseQueryTime(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid %s: expected RFC3339 or YYYY-MM-DD", name)
		}
		*dst = &ts
	}

	return filter, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time: %s", raw)
}

// invalidateListings drops cached listings after any successful write.
func (s *HTTPServer) invalidateListings(r *http.Request) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("listing cache invalidate failed")
	}
}

// writeServiceError maps lifecycle manager errors onto HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		forbiddenErr  *service.ForbiddenError
		conflictErr   *service.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &forbiddenErr):
		writeError(w, http.StatusForbidden, forbiddenErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            conflictErr.Error(),
			"conflicting_with": conflictErr.ReservationIDs,
		})
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "reservation was modified concurrently, retry")
	case errors.Is(err, database.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "reservation store unavailable")
	default:
		s.logger.Error().Err(err).Msg("unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func outcomeLabel(err error) string {
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		metrics.IncConflict()
		return "conflict"
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return "invalid"
	}
	var forbiddenErr *service.ForbiddenError
	if errors.As(err, &forbiddenErr) {
		return "forbidden"
	}
	var notFoundErr *service.NotFoundError
	if errors.As(err, &notFoundErr) {
		return "not_found"
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
