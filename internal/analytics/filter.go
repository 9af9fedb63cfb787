// Package analytics derives filtered views and summary statistics from the
// event and feedback collections. Everything here is a pure function of its
// inputs; nothing reads or writes the stores.
package analytics

import (
	"fmt"
	"time"

	"github.com/roach88/feedbackflow/internal/model"
)

// Range selects a date window for feedback.
type Range string

const (
	RangeAll        Range = "all"
	RangeLast7Days  Range = "last7days"
	RangeLast30Days Range = "last30days"
	RangeCustom     Range = "custom"
)

// ParseRange converts a string to a Range. The empty string means RangeAll.
func ParseRange(s string) (Range, error) {
	switch r := Range(s); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeLast7Days, RangeLast30Days, RangeCustom:
		return r, nil
	default:
		return "", fmt.Errorf("invalid range %q", s)
	}
}

// FeedbackFilter narrows a feedback collection. Zero fields do not filter.
type FeedbackFilter struct {
	// EventID keeps only feedback for one event.
	EventID string
	// Rating keeps only one star value, 1..5.
	Rating int
	Range  Range
	// Start and End bound a RangeCustom window by calendar day, inclusive.
	// The window applies only when both are set.
	Start time.Time
	End   time.Time
	// Search matches user name, comment or event title.
	Search string
}

// Apply returns the feedback that passes every criterion, in input order.
// events resolves titles for search; now anchors the preset ranges.
func (f FeedbackFilter) Apply(feedback []model.Feedback, events []model.Event, now time.Time) []model.Feedback {
	titles := make(map[string]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	search := newMatcher(f.Search)

	out := []model.Feedback{}
	for _, item := range feedback {
		if f.EventID != "" && item.EventID != f.EventID {
			continue
		}
		if f.Rating != 0 && item.Rating != f.Rating {
			continue
		}
		if !f.inRange(item.Timestamp, now) {
			continue
		}
		if !search.match(item.UserName, item.Comment, titles[item.EventID]) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (f FeedbackFilter) inRange(ts, now time.Time) bool {
	switch f.Range {
	case RangeLast7Days:
		return !ts.Before(now.AddDate(0, 0, -7))
	case RangeLast30Days:
		return !ts.Before(now.AddDate(0, 0, -30))
	case RangeCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return true
		}
		day := startOfDay(ts)
		return !day.Before(startOfDay(f.Start)) && !day.After(startOfDay(f.End))
	default:
		return true
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EventFilter narrows the catalog by status and free text.
type EventFilter struct {
	// Status keeps one status; empty keeps all.
	Status model.Status
	// Search matches title, description or location.
	Search string
}

// Apply returns the matching events in catalog order.
func (f EventFilter) Apply(events []model.Event) []model.Event {
	search := newMatcher(f.Search)
	out := []model.Event{}
	for _, e := range events {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if !search.match(e.Title, e.Description, e.Location) {
			continue
		}
		out = append(out, e)
	}
	return out
}
