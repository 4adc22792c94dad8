package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"reservas/internal/config"
	"reservas/internal/database"
	"reservas/internal/export"
	"reservas/internal/models"
	"reservas/internal/repository"
	"reservas/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncNotifier writes notification records inline so tests can assert on
// them without a background dispatcher.
type syncNotifier struct {
	db *database.DB
}

func (n syncNotifier) Emit(userID, message, reservationID string) {
	_ = n.db.CreateNotification(context.Background(), &models.Notification{
		ID:            fmt.Sprintf("n-%d", time.Now().UnixNano()),
		UserID:        userID,
		Message:       message,
		ReservationID: reservationID,
		CreatedAt:     time.Now().UTC(),
	})
}

func newTestServer(t *testing.T, cfg config.APIConfig) (*HTTPServer, *database.DB) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	db.SetRooms([]models.Room{
		{ID: "room-101", Name: "Sala 101", Capacity: 30, IsActive: true},
		{ID: "room-102", Name: "Sala 102", Capacity: 20, IsActive: true},
	})

	svc := service.NewReservationService(db, db, syncNotifier{db: db}, nil, service.BookingWindow{}, &logger)
	cache := repository.NewMemoryListingCache()
	exporter := export.NewExporter(t.TempDir(), db, &logger)

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = models.DefaultListCacheTTL
	}

	return NewHTTPServer(cfg, svc, db, db, cache, exporter, &logger), db
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, headers map[string]string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeReservation(t *testing.T, resp *http.Response) models.Reservation {
	t.Helper()
	defer resp.Body.Close()
	var r models.Reservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	return r
}

var instructorHeaders = map[string]string{
	"X-User-Id":   "prof-1",
	"X-User-Role": models.RoleInstructor,
}

func TestCreateAndGetReservation(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101",
		Start:  "2026-03-10T14:00",
		End:    "2026-03-10T16:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeReservation(t, resp)
	assert.Equal(t, "prof-1", created.OwnerID)
	assert.Equal(t, models.StatusActive, created.Status)

	resp = doJSON(t, ts, http.MethodGet, "/api/v1/reservations/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeReservation(t, resp)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateRequiresIdentity(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", nil, models.CreateReservationInput{
		RoomID: "room-101",
		Start:  "2026-03-10T14:00",
		End:    "2026-03-10T16:00",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateValidationError(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101",
		Start:  "2026-03-10T16:00",
		End:    "2026-03-10T14:00",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateConflictReportsBlockers(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101", Start: "2026-03-10T14:00", End: "2026-03-10T16:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeReservation(t, resp)

	resp = doJSON(t, ts, http.MethodPost, "/api/v1/reservations", map[string]string{
		"X-User-Id": "prof-2", "X-User-Role": models.RoleInstructor,
	}, models.CreateReservationInput{
		RoomID: "room-101", Start: "2026-03-10T15:00", End: "2026-03-10T17:00",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Error           string   `json:"error"`
		ConflictingWith []string `json:"conflicting_with"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.ConflictingWith, first.ID)
}

func TestUpdateForbiddenForNonOwner(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101", Start: "2026-03-10T14:00", End: "2026-03-10T16:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeReservation(t, resp)

	resp = doJSON(t, ts, http.MethodPut, "/api/v1/reservations/"+created.ID, map[string]string{
		"X-User-Id": "prof-2", "X-User-Role": models.RoleInstructor,
	}, models.ReservationPatch{RoomID: "room-102"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCancelAndListDefaults(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101", Start: "2026-03-10T14:00", End: "2026-03-10T16:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeReservation(t, resp)

	resp = doJSON(t, ts, http.MethodDelete, "/api/v1/reservations/"+created.ID, instructorHeaders, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeReservation(t, resp)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Default listing hides cancelled reservations
	resp = doJSON(t, ts, http.MethodGet, "/api/v1/reservations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Reservations []models.Reservation `json:"reservations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	assert.Empty(t, listing.Reservations)

	// status=any lifts the filter
	resp = doJSON(t, ts, http.MethodGet, "/api/v1/reservations?status=any", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	assert.Len(t, listing.Reservations, 1)
}

func TestListInvalidStatus(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodGet, "/api/v1/reservations?status=bogus", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListInvalidTimeFilter(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodGet, "/api/v1/reservations?from=not-a-time", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListServedFromCacheAfterFirstHit(t *testing.T) {
	server, db := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101", Start: "2026-03-10T14:00", End: "2026-03-10T16:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Prime the cache
	resp = doJSON(t, ts, http.MethodGet, "/api/v1/reservations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A write that bypasses the API is invisible until invalidation
	stale := &models.Reservation{
		ID: "direct-1", RoomID: "room-102", OwnerID: "prof-9",
		Start:  time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC),
		Status: models.StatusActive,
	}
	require.NoError(t, db.CreateReservationWithGuard(context.Background(), stale))

	resp = doJSON(t, ts, http.MethodGet, "/api/v1/reservations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Reservations []models.Reservation `json:"reservations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	assert.Len(t, listing.Reservations, 1)

	// An API write invalidates and the next read sees both
	resp = doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-102", Start: "2026-03-12T10:00", End: "2026-03-12T11:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/api/v1/reservations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	assert.Len(t, listing.Reservations, 3)
}

func TestRooms(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodGet, "/api/v1/rooms", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var body struct {
		Rooms []models.Room `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Rooms, 2)
}

func TestNotificationsForActor(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/reservations", instructorHeaders, models.CreateReservationInput{
		RoomID: "room-101", Start: "2026-03-10T14:00", End: "2026-03-10T16:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/api/v1/notifications", instructorHeaders, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var body struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "prof-1", body.Notifications[0].UserID)
}

func TestExportRequiresCoordinator(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodGet, "/api/v1/export/reservations", instructorHeaders, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, ts, http.MethodGet, "/api/v1/export/reservations", map[string]string{
		"X-User-Id": "coord-1", "X-User-Role": models.RoleCoordinator,
	}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t, config.APIConfig{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	resp := doJSON(t, ts, http.MethodDelete, "/api/v1/rooms", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
