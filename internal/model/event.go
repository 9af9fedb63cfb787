package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle label of an event. Any status may be set to any
// other status; no transition graph is enforced.
type Status string

const (
	StatusActive    Status = "active"
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusActive, StatusUpcoming, StatusCompleted, StatusArchived}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of %v", s, Statuses)
	}
	return st, nil
}

// Event is a conference or meetup that attendees can leave feedback against.
type Event struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Status      Status    `json:"status" yaml:"status"`
	StartDate   time.Time `json:"startDate" yaml:"startDate"`
	EndDate     time.Time `json:"endDate" yaml:"endDate"`
	Location    string    `json:"location" yaml:"location"`
	Organizer   string    `json:"organizer" yaml:"organizer"`
	ImageURL    string    `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`

	// Derived from the feedback referencing this event.
	FeedbackCount int     `json:"feedbackCount" yaml:"feedbackCount"`
	AverageRating float64 `json:"averageRating" yaml:"averageRating"`
}

// EventInput holds the caller-supplied fields of a new event. The id and the
// derived aggregate fields are assigned by the event store.
type EventInput struct {
	Title       string
	Description string
	Status      Status
	StartDate   time.Time
	EndDate     time.Time
	Location    string
	Organizer   string
	ImageURL    string
}

// ScheduleValid reports whether the end date does not precede the start date.
// Zero dates are treated as unset and always pass.
func ScheduleValid(start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return true
	}
	return !end.Before(start)
}

// EventPatch is a partial update. Nil fields are left unchanged.
type EventPatch struct {
	Title         *string
	Description   *string
	Status        *Status
	StartDate     *time.Time
	EndDate       *time.Time
	Location      *string
	Organizer     *string
	ImageURL      *string
	FeedbackCount *int
	AverageRating *float64
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p == EventPatch{}
}

// Apply merges the patch into e field by field.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Organizer != nil {
		e.Organizer = *p.Organizer
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.FeedbackCount != nil {
		e.FeedbackCount = *p.FeedbackCount
	}
	if p.AverageRating != nil {
		e.AverageRating = *p.AverageRating
	}
}
