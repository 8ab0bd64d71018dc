// Package attendance tracks which members attended which events.
package attendance

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("attendance record not found")
	ErrBadReference = errors.New("event or member does not exist")
)

// Record marks one member's attendance at one event. The pair
// (EventID, MemberID) is unique; recording twice overwrites.
type Record struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"eventId"`
	MemberID   int64     `json:"memberId"`
	Present    bool      `json:"present"`
	Notes      string    `json:"notes"`
	RecordedBy *int64    `json:"recordedBy,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// EventRecord is a record joined with the member's name for event rosters.
type EventRecord struct {
	Record
	MemberFirstName string `json:"memberFirstName"`
	MemberLastName  string `json:"memberLastName"`
}

// Mark is the input for recording one member at an event.
type Mark struct {
	MemberID int64  `json:"memberId"`
	Present  bool   `json:"present"`
	Notes    string `json:"notes"`
}

// Validate checks the member reference.
func (m *Mark) Validate() error {
	if m.MemberID <= 0 {
		return errors.New("memberId is required")
	}
	return nil
}

// Summary aggregates attendance for one event.
type Summary struct {
	EventID int64 `json:"eventId"`
	Present int   `json:"present"`
	Absent  int   `json:"absent"`
}
