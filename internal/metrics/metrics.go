package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "reservation_operations_total",
			Help:      "Reservation operations by kind and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "reservation_conflicts_total",
			Help:      "Reservation requests rejected due to schedule overlap.",
		},
	)

	notificationsEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "notifications_emitted_total",
			Help:      "Notifications handed to the dispatch queue.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationOps, conflicts, notificationsEmitted)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncOperation records the outcome of a reservation operation.
func IncOperation(operation, outcome string) {
	reservationOps.WithLabelValues(operation, outcome).Inc()
}

// IncConflict counts a request rejected because the slot was taken.
func IncConflict() {
	conflicts.Inc()
}

// IncNotification counts a notification queued for delivery.
func IncNotification() {
	notificationsEmitted.Inc()
}
