package analytics

import (
	"sort"

	"github.com/roach88/feedbackflow/internal/feedback"
	"github.com/roach88/feedbackflow/internal/model"
)

// Distribution counts feedback per star value. Index 0 holds rating 1.
type Distribution [5]int

// RatingCount is one bucket of a Distribution.
type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// Buckets lists the distribution from rating 1 to 5.
func (d Distribution) Buckets() []RatingCount {
	out := make([]RatingCount, len(d))
	for i, c := range d {
		out[i] = RatingCount{Rating: i + 1, Count: c}
	}
	return out
}

// MostCommon returns the rating with the highest count, preferring the lower
// rating on ties, or 0 when every bucket is empty.
func (d Distribution) MostCommon() int {
	best, bestCount := 0, 0
	for i, c := range d {
		if c > bestCount {
			best, bestCount = i+1, c
		}
	}
	return best
}

// RatingDistribution counts the items per rating. Out-of-range ratings are ignored.
func RatingDistribution(items []model.Feedback) Distribution {
	var d Distribution
	for _, f := range items {
		if f.Rating >= 1 && f.Rating <= 5 {
			d[f.Rating-1]++
		}
	}
	return d
}

// EventRating is the per-event slice of a feedback view.
type EventRating struct {
	EventID       string  `json:"eventId"`
	Title         string  `json:"title"`
	AverageRating float64 `json:"averageRating"`
	Count         int     `json:"count"`
}

// EventRatings aggregates items per event, in catalog order, skipping events
// with no feedback in the view. Feedback for unknown events is not reported.
func EventRatings(events []model.Event, items []model.Feedback) []EventRating {
	out := []EventRating{}
	for _, e := range events {
		count, avg := feedback.AggregateFor(items, e.ID)
		if count == 0 {
			continue
		}
		out = append(out, EventRating{EventID: e.ID, Title: e.Title, AverageRating: avg, Count: count})
	}
	return out
}

// DayCount is the number of submissions on one UTC calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Timeline groups items by UTC day (yyyy-mm-dd), oldest first.
func Timeline(items []model.Feedback) []DayCount {
	counts := map[string]int{}
	for _, f := range items {
		counts[f.Timestamp.UTC().Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DayCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Summary is the headline block of the analytics view.
type Summary struct {
	TotalFeedback      int           `json:"totalFeedback"`
	AverageRating      float64       `json:"averageRating"`
	EventsWithFeedback int           `json:"eventsWithFeedback"`
	TotalEvents        int           `json:"totalEvents"`
	MostCommonRating   int           `json:"mostCommonRating"`
	Distribution       []RatingCount `json:"distribution"`
	EventRatings       []EventRating `json:"eventRatings"`
	Timeline           []DayCount    `json:"timeline"`
}

// Summarize computes the analytics view over an already filtered feedback slice.
func Summarize(events []model.Event, items []model.Feedback) Summary {
	ratings := make([]int, len(items))
	seen := map[string]struct{}{}
	for i, f := range items {
		ratings[i] = f.Rating
		seen[f.EventID] = struct{}{}
	}
	total, avg := feedback.Aggregate(ratings)
	dist := RatingDistribution(items)
	return Summary{
		TotalFeedback:      total,
		AverageRating:      avg,
		EventsWithFeedback: len(seen),
		TotalEvents:        len(events),
		MostCommonRating:   dist.MostCommon(),
		Distribution:       dist.Buckets(),
		EventRatings:       EventRatings(events, items),
		Timeline:           Timeline(items),
	}
}

// DefaultLatest is how many recent submissions a Dashboard lists.
const DefaultLatest = 3

// Dashboard is the admin landing overview over the unfiltered collections.
type Dashboard struct {
	TotalEvents   int                  `json:"totalEvents"`
	ByStatus      map[model.Status]int `json:"byStatus"`
	TotalFeedback int                  `json:"totalFeedback"`
	AverageRating float64              `json:"averageRating"`
	Latest        []model.Feedback     `json:"latest"`
	Distribution  []RatingCount        `json:"distribution"`
}

// BuildDashboard computes the overview. latest caps the recent list; values
// below 1 mean DefaultLatest.
func BuildDashboard(events []model.Event, items []model.Feedback, latest int) Dashboard {
	if latest < 1 {
		latest = DefaultLatest
	}
	byStatus := make(map[model.Status]int, len(model.Statuses))
	for _, s := range model.Statuses {
		byStatus[s] = 0
	}
	for _, e := range events {
		byStatus[e.Status]++
	}

	ratings := make([]int, len(items))
	for i, f := range items {
		ratings[i] = f.Rating
	}
	total, avg := feedback.Aggregate(ratings)

	recent := append([]model.Feedback(nil), items...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > latest {
		recent = recent[:latest]
	}
	if recent == nil {
		recent = []model.Feedback{}
	}

	return Dashboard{
		TotalEvents:   len(events),
		ByStatus:      byStatus,
		TotalFeedback: total,
		AverageRating: avg,
		Latest:        recent,
		Distribution:  RatingDistribution(items).Buckets(),
	}
}
