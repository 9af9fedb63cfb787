package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedbackflow/internal/analytics"
	"github.com/roach88/feedbackflow/internal/model"
)

func TestAnalyticsSummary(t *testing.T) {
	opts := testOptions(t)

	s := runJSON[analytics.Summary](t, NewAnalyticsCommand, opts, "summary").Data
	assert.Equal(t, 6, s.TotalFeedback)
	assert.InDelta(t, 4.3, s.AverageRating, 1e-9)
	assert.Equal(t, 3, s.EventsWithFeedback)
	assert.Equal(t, 6, s.TotalEvents)
	assert.Equal(t, 5, s.MostCommonRating)
	require.Len(t, s.Distribution, 5)
	assert.Equal(t, analytics.RatingCount{Rating: 5, Count: 3}, s.Distribution[4])
	require.Len(t, s.EventRatings, 3)
	assert.Equal(t, "1", s.EventRatings[0].EventID)
	assert.NotEmpty(t, s.Timeline)
}

func TestAnalyticsSummary_Filters(t *testing.T) {
	opts := testOptions(t)

	tests := []struct {
		name  string
		args  []string
		total int
	}{
		{"last30days", []string{"--range", "last30days"}, 3},
		{"last7days", []string{"--range", "last7days"}, 0},
		{"rating", []string{"--rating", "4"}, 2},
		{"event", []string{"--event", "3"}, 2},
		{"custom_implied", []string{"--from", "2023-10-15", "--to", "2023-10-15"}, 2},
		{"custom_needs_both", []string{"--range", "custom", "--from", "2023-10-15"}, 6},
		{"search_title", []string{"--search", "entrepreneurship"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"summary"}, tt.args...)
			s := runJSON[analytics.Summary](t, NewAnalyticsCommand, opts, args...).Data
			assert.Equal(t, tt.total, s.TotalFeedback)
		})
	}
}

func TestAnalyticsSummary_InvalidFilter(t *testing.T) {
	opts := testOptions(t)

	out, err := execute(NewAnalyticsCommand, opts, "summary", "--rating", "9")
	require.Error(t, err)
	assert.Contains(t, out.Stdout, "--rating must be between 1 and 5")

	out, err = execute(NewAnalyticsCommand, opts, "summary", "--range", "yesterday")
	require.Error(t, err)
	assert.Contains(t, out.Stdout, `invalid range "yesterday"`)
}

func TestAnalyticsSummary_Text(t *testing.T) {
	opts := testOptions(t)

	out := mustExecute(t, NewAnalyticsCommand, opts, "summary")
	assert.Contains(t, out.Stdout, "Feedback:        6 across 3 of 6 events")
	assert.Contains(t, out.Stdout, "Average rating:  4.3")
	assert.Contains(t, out.Stdout, "Most common:     5")
	assert.Contains(t, out.Stdout, "Tech Conference 2023")
}

func TestAnalyticsDashboard(t *testing.T) {
	opts := testOptions(t)

	d := runJSON[analytics.Dashboard](t, NewAnalyticsCommand, opts, "dashboard").Data
	assert.Equal(t, 6, d.TotalEvents)
	assert.Equal(t, map[model.Status]int{
		model.StatusActive:    2,
		model.StatusUpcoming:  2,
		model.StatusCompleted: 2,
		model.StatusArchived:  0,
	}, d.ByStatus)
	assert.Equal(t, 6, d.TotalFeedback)
	assert.InDelta(t, 4.3, d.AverageRating, 1e-9)

	require.Len(t, d.Latest, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{d.Latest[0].ID, d.Latest[1].ID, d.Latest[2].ID})

	d = runJSON[analytics.Dashboard](t, NewAnalyticsCommand, opts, "dashboard", "--latest", "1").Data
	assert.Len(t, d.Latest, 1)
}

func TestAnalyticsDashboard_Text(t *testing.T) {
	opts := testOptions(t)

	out := mustExecute(t, NewAnalyticsCommand, opts, "dashboard")
	assert.Contains(t, out.Stdout, "Events:          6 (active 2, upcoming 2, completed 2, archived 0)")
	assert.Contains(t, out.Stdout, "Latest feedback:")
	assert.Contains(t, out.Stdout, "Michael Chen on Tech Conference 2023, 2023-11-11")
}
