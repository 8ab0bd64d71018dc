// Package events manages congregation events such as services and
// meetings.
package events

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("event not found")

// Event is a scheduled congregation activity.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"eventDate"`
	Location    string    `json:"location"`
	CreatedBy   *int64    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Draft is the input for creating or replacing an event.
type Draft struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"eventDate"`
	Location    string    `json:"location"`
}

// Validate checks required fields.
func (d *Draft) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return errors.New("name is required")
	}
	if d.EventDate.IsZero() {
		return errors.New("eventDate is required")
	}
	return nil
}

// Filter narrows List queries. UpcomingOnly keeps events on or after the
// current day.
type Filter struct {
	UpcomingOnly bool
	From         time.Time
	To           time.Time
}
