package feedback

import (
	"math"

	"github.com/roach88/feedbackflow/internal/model"
)

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Aggregate returns the count and rounded mean of ratings. The mean is
// exactly 0 for an empty slice.
func Aggregate(ratings []int) (count int, avg float64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return len(ratings), Round1(float64(sum) / float64(len(ratings)))
}

// AggregateFor computes the aggregate over the feedback referencing eventID.
func AggregateFor(items []model.Feedback, eventID string) (count int, avg float64) {
	var ratings []int
	for _, f := range items {
		if f.EventID == eventID {
			ratings = append(ratings, f.Rating)
		}
	}
	return Aggregate(ratings)
}
