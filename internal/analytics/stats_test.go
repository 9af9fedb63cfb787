package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedbackflow/internal/model"
)

func TestRatingDistribution(t *testing.T) {
	d := RatingDistribution(sampleFeedback())
	assert.Equal(t, Distribution{1, 1, 0, 2, 1}, d)
	assert.Equal(t, []RatingCount{
		{Rating: 1, Count: 1},
		{Rating: 2, Count: 1},
		{Rating: 3, Count: 0},
		{Rating: 4, Count: 2},
		{Rating: 5, Count: 1},
	}, d.Buckets())
}

func TestDistribution_MostCommon(t *testing.T) {
	assert.Equal(t, 0, Distribution{}.MostCommon())
	assert.Equal(t, 4, Distribution{1, 1, 0, 2, 1}.MostCommon())
	assert.Equal(t, 2, Distribution{0, 3, 0, 0, 3}.MostCommon(), "ties prefer the lower rating")
}

func TestEventRatings(t *testing.T) {
	got := EventRatings(sampleEvents(), sampleFeedback())
	assert.Equal(t, []EventRating{
		{EventID: "1", Title: "Tech Conference 2023", AverageRating: 4.5, Count: 2},
		{EventID: "2", Title: "Design Workshop", AverageRating: 2, Count: 1},
		{EventID: "3", Title: "Café Meetup", AverageRating: 4, Count: 1},
	}, got)

	assert.Empty(t, EventRatings(sampleEvents(), nil))
}

func TestTimeline(t *testing.T) {
	items := []model.Feedback{
		{Timestamp: time.Date(2023, 11, 12, 23, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2023, 11, 10, 8, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2023, 11, 12, 1, 0, 0, 0, time.UTC)},
	}
	assert.Equal(t, []DayCount{
		{Date: "2023-11-10", Count: 1},
		{Date: "2023-11-12", Count: 2},
	}, Timeline(items))
	assert.Empty(t, Timeline(nil))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEvents(), sampleFeedback())

	assert.Equal(t, 5, s.TotalFeedback)
	assert.Equal(t, 3.2, s.AverageRating)
	assert.Equal(t, 4, s.EventsWithFeedback)
	assert.Equal(t, 3, s.TotalEvents)
	assert.Equal(t, 4, s.MostCommonRating)
	assert.Len(t, s.Distribution, 5)
	assert.Len(t, s.EventRatings, 3)
	assert.Len(t, s.Timeline, 5)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(sampleEvents(), []model.Feedback{})
	assert.Zero(t, s.TotalFeedback)
	assert.Zero(t, s.AverageRating)
	assert.Zero(t, s.MostCommonRating)
	assert.Empty(t, s.EventRatings)
}

func TestBuildDashboard(t *testing.T) {
	d := BuildDashboard(sampleEvents(), sampleFeedback(), 0)

	assert.Equal(t, 3, d.TotalEvents)
	assert.Equal(t, map[model.Status]int{
		model.StatusActive:    1,
		model.StatusUpcoming:  1,
		model.StatusCompleted: 1,
		model.StatusArchived:  0,
	}, d.ByStatus)
	assert.Equal(t, 5, d.TotalFeedback)
	assert.Equal(t, 3.2, d.AverageRating)

	require.Len(t, d.Latest, DefaultLatest)
	assert.Equal(t, []string{"e", "a", "d"}, ids(d.Latest))
}

func TestBuildDashboard_LatestCap(t *testing.T) {
	d := BuildDashboard(nil, sampleFeedback()[:2], 10)
	assert.Equal(t, []string{"a", "b"}, ids(d.Latest))

	empty := BuildDashboard(nil, nil, 3)
	assert.NotNil(t, empty.Latest)
	assert.Empty(t, empty.Latest)
	assert.Zero(t, empty.AverageRating)
}
