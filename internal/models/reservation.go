package models

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the range is strictly positive.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals intersect.
// Back-to-back ranges (a.End == b.Start) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

type Reservation struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	OwnerID      string    `json:"owner_id"`
	DisciplineID string    `json:"discipline_id,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Participants []string  `json:"participants"`
	Status       string    `json:"status"` // active, cancelled, rejected
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// Interval returns the reservation's time slot.
func (r *Reservation) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// Terminal reports whether the reservation can no longer change status.
func (r *Reservation) Terminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusRejected
}

// ReservationFilter narrows List queries. Zero-value fields are ignored;
// supplied fields combine as an AND-conjunction. From/To bound Start
// inclusively.
type ReservationFilter struct {
	RoomID  string
	OwnerID string
	Status  string
	From    *time.Time
	To      *time.Time
}

type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Message       string    `json:"message"`
	ReservationID string    `json:"reservation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
