package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reservas/internal/config"
	"reservas/internal/domain"
	"reservas/internal/export"
	"reservas/internal/metrics"
	"reservas/internal/models"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the reservation REST API. Identity arrives via the
// X-User-Id and X-User-Role headers, filled in by the gateway in front of
// this service.
type HTTPServer struct {
	cfg           config.APIConfig
	service       domain.ReservationService
	notifications domain.NotificationStore
	rooms         domain.RoomDirectory
	cache         domain.ListingCache
	exporter      *export.Exporter
	logger        *zerolog.Logger
	server        *http.Server
	auth          *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	service domain.ReservationService,
	notifications domain.NotificationStore,
	rooms domain.RoomDirectory,
	cache domain.ListingCache,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:           cfg,
		service:       service,
		notifications: notifications,
		rooms:         rooms,
		cache:         cache,
		exporter:      exporter,
		logger:        logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationByID)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/notifications", srv.handleNotifications)
	mux.HandleFunc("/api/v1/export/reservations", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// principal extracts the acting user from the trusted identity headers.
func (s *HTTPServer) principal(r *http.Request) (models.Principal, bool) {
	id := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if id == "" {
		return models.Principal{}, false
	}
	role := strings.TrimSpace(r.Header.Get("X-User-Role"))
	if role == "" {
		role = models.RoleInstructor
	}
	return models.Principal{ID: id, Role: role}, true
}

// requirePrincipal resolves the actor and applies the per-user request
// budget. A cache outage never blocks the request.
func (s *HTTPServer) requirePrincipal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	actor, ok := s.principal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return models.Principal{}, false
	}

	if s.cache != nil {
		allowed, err := s.cache.CheckRateLimit(r.Context(), actor.ID, models.RateLimitRequests, models.RateLimitWindow*time.Second)
		if err == nil && !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return models.Principal{}, false
		}
	}

	return actor, true
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses id-bearing paths so the metric cardinality stays
// bounded.
func endpointLabel(path string) string {
	if strings.HasPrefix(path, "/api/v1/reservations/") {
		return "/api/v1/reservations/{id}"
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
