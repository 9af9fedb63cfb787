package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/feedbackflow/internal/feedback"
	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/notify"
)

// AssertionContext is the final state assertions run against.
type AssertionContext struct {
	Events   []model.Event
	Feedback []model.Feedback
	Notices  []notify.Notice
	// Resolve expands "$name" references. Nil means ids are used verbatim.
	Resolve func(string) (string, error)
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertEvent:
		return assertEvent(a, actx)
	case AssertEventAbsent:
		return assertEventAbsent(a, actx)
	case AssertFeedbackCount:
		return assertFeedbackCount(a, actx)
	case AssertNotice:
		return assertNotice(a, actx)
	case AssertConsistent:
		return assertConsistent(actx)
	case AssertNoOrphans:
		return assertNoOrphans(actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (actx *AssertionContext) resolve(id string) (string, error) {
	if actx.Resolve == nil {
		return id, nil
	}
	return actx.Resolve(id)
}

func (actx *AssertionContext) event(id string) (model.Event, bool) {
	for _, e := range actx.Events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// assertEvent checks the event exists and, when given, its aggregate.
func assertEvent(a Assertion, actx *AssertionContext) error {
	id, err := actx.resolve(a.ID)
	if err != nil {
		return err
	}
	e, ok := actx.event(id)
	if !ok {
		return &AssertionError{Type: AssertEvent, Expected: fmt.Sprintf("event %s", id), Actual: "not found"}
	}
	if a.FeedbackCount != nil && e.FeedbackCount != *a.FeedbackCount {
		return &AssertionError{
			Type:     AssertEvent,
			Expected: fmt.Sprintf("event %s feedbackCount %d", id, *a.FeedbackCount),
			Actual:   fmt.Sprintf("%d", e.FeedbackCount),
		}
	}
	if a.AverageRating != nil && e.AverageRating != *a.AverageRating {
		return &AssertionError{
			Type:     AssertEvent,
			Expected: fmt.Sprintf("event %s averageRating %.1f", id, *a.AverageRating),
			Actual:   fmt.Sprintf("%.1f", e.AverageRating),
		}
	}
	return nil
}

func assertEventAbsent(a Assertion, actx *AssertionContext) error {
	id, err := actx.resolve(a.ID)
	if err != nil {
		return err
	}
	if _, ok := actx.event(id); ok {
		return &AssertionError{Type: AssertEventAbsent, Expected: fmt.Sprintf("no event %s", id), Actual: "present"}
	}
	return nil
}

// assertFeedbackCount counts records referencing the event, or all records
// when no id is given.
func assertFeedbackCount(a Assertion, actx *AssertionContext) error {
	count := len(actx.Feedback)
	desc := "feedback records"
	if a.ID != "" {
		id, err := actx.resolve(a.ID)
		if err != nil {
			return err
		}
		count = 0
		for _, f := range actx.Feedback {
			if f.EventID == id {
				count++
			}
		}
		desc = fmt.Sprintf("feedback records for %s", id)
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertFeedbackCount,
			Expected: fmt.Sprintf("%d %s", *a.Count, desc),
			Actual:   fmt.Sprintf("%d", count),
		}
	}
	return nil
}

// assertNotice checks some notice carries the message and, if set, the level.
func assertNotice(a Assertion, actx *AssertionContext) error {
	for _, n := range actx.Notices {
		if n.Message == a.Message && (a.Level == "" || string(n.Level) == a.Level) {
			return nil
		}
	}
	seen := make([]string, len(actx.Notices))
	for i, n := range actx.Notices {
		seen[i] = fmt.Sprintf("%s: %s", n.Level, n.Message)
	}
	return &AssertionError{
		Type:     AssertNotice,
		Expected: fmt.Sprintf("notice %q", a.Message),
		Actual:   fmt.Sprintf("[%s]", strings.Join(seen, "; ")),
	}
}

// assertConsistent re-derives every aggregate from the feedback.
func assertConsistent(actx *AssertionContext) error {
	for _, e := range actx.Events {
		count, avg := feedback.AggregateFor(actx.Feedback, e.ID)
		if count != e.FeedbackCount || avg != e.AverageRating {
			return &AssertionError{
				Type:     AssertConsistent,
				Expected: fmt.Sprintf("event %s count %d avg %.1f", e.ID, count, avg),
				Actual:   fmt.Sprintf("count %d avg %.1f", e.FeedbackCount, e.AverageRating),
			}
		}
	}
	return nil
}

func assertNoOrphans(actx *AssertionContext) error {
	for _, f := range actx.Feedback {
		if _, ok := actx.event(f.EventID); !ok {
			return &AssertionError{
				Type:     AssertNoOrphans,
				Expected: "every feedback references an existing event",
				Actual:   fmt.Sprintf("feedback %s references %s", f.ID, f.EventID),
			}
		}
	}
	return nil
}
