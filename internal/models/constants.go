package models

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// StatusAny opts a listing out of the default active-only filter. It is a
// query value, never a persisted status.
const StatusAny = "any"

// ValidStatus reports whether s is one of the three reservation statuses.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusCancelled || s == StatusRejected
}

const (
	RoleCoordinator = "coordinator"
	RoleInstructor  = "instructor"
	RoleParticipant = "participant"
)

const (
	// DefaultMaxBookingDays is the default booking horizon in days.
	DefaultMaxBookingDays = 365

	// DefaultListCacheTTL is the lifetime of cached listings in seconds.
	DefaultListCacheTTL = 60

	// NotifyQueueSize is the size of the notification dispatch queue.
	NotifyQueueSize = 1000

	// RateLimitRequests is the number of API requests allowed per window.
	RateLimitRequests = 20

	// RateLimitWindow is the rate limit window in seconds.
	RateLimitWindow = 60
)
