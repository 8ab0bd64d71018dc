// Package members manages the congregation roster.
package members

import (
	"errors"
	"strings"
	"time"

	"github.com/scrcr/scrcr-server/pkg/validation"
)

var (
	ErrNotFound  = errors.New("member not found")
	ErrDuplicate = errors.New("a member with that document id already exists")
)

// Status is the membership lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Member is one person on the roster. DocumentID is the national identity
// document and is unique.
type Member struct {
	ID             int64      `json:"id"`
	DocumentID     string     `json:"documentId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Address        string     `json:"address"`
	MembershipDate *time.Time `json:"membershipDate,omitempty"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Draft is the input for creating or replacing a member.
type Draft struct {
	DocumentID     string     `json:"documentId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Address        string     `json:"address"`
	MembershipDate *time.Time `json:"membershipDate,omitempty"`
	Status         Status     `json:"status"`
}

// Validate checks required fields, validates contact details, and
// normalizes names and status.
func (d *Draft) Validate() error {
	d.DocumentID = strings.TrimSpace(d.DocumentID)
	d.FirstName = validation.NormalizeName(d.FirstName)
	d.LastName = validation.NormalizeName(d.LastName)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)

	if d.DocumentID == "" {
		return errors.New("documentId is required")
	}
	if err := validation.DocumentID(d.DocumentID); err != nil {
		return err
	}
	if d.FirstName == "" {
		return errors.New("firstName is required")
	}
	if d.LastName == "" {
		return errors.New("lastName is required")
	}
	if err := validation.Email(d.Email); err != nil {
		return err
	}
	if err := validation.Phone(d.Phone); err != nil {
		return err
	}
	switch d.Status {
	case "":
		d.Status = StatusActive
	case StatusActive, StatusInactive:
	default:
		return errors.New("status must be active or inactive")
	}
	return nil
}

// Filter narrows List queries. Zero values mean no constraint. Search
// matches names and document id case-insensitively.
type Filter struct {
	Status Status
	Search string
}
