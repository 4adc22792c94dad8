package models

// CreateReservationInput carries the raw create intent. Start and End are
// timestamp strings; the lifecycle manager owns their parsing so malformed
// values become validation failures, not transport errors.
type CreateReservationInput struct {
	RoomID       string   `json:"room_id"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	DisciplineID string   `json:"discipline_id,omitempty"`
	Participants []string `json:"participants,omitempty"`
	// OnBehalfOf books for another owner; only coordinators may set it.
	OnBehalfOf string `json:"on_behalf_of,omitempty"`
}

// ReservationPatch is a partial update. Empty strings mean "leave as is";
// a nil Participants slice leaves the participant set untouched.
type ReservationPatch struct {
	RoomID       string   `json:"room_id,omitempty"`
	Start        string   `json:"start,omitempty"`
	End          string   `json:"end,omitempty"`
	Status       string   `json:"status,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// TouchesSchedule reports whether the patch changes room or time and thus
// requires a conflict check.
func (p ReservationPatch) TouchesSchedule() bool {
	return p.RoomID != "" || p.Start != "" || p.End != ""
}
