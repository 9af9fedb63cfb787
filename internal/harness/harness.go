package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/feedbackflow/internal/app"
	"github.com/roach88/feedbackflow/internal/config"
	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/notify"
	"github.com/roach88/feedbackflow/internal/persist"
	"github.com/roach88/feedbackflow/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives a started runtime with deterministic ids and timestamps.
type Harness struct {
	rt      *app.Runtime
	notices *notify.Recorder
	refs    map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Start the runtime seeded with the scenario seed (or the fixtures)
// 2. Execute steps, checking each against its expect_error
// 3. Capture the final state
// 4. Evaluate assertions
//
// A returned error means the scenario itself is broken (for example an
// unknown $reference); step failures are reported in the Result.
func Run(scenario *Scenario) (_ *Result, err error) {
	ctx := context.Background()

	seed := persist.MustFixtures()
	if scenario.Seed != nil {
		seed = *scenario.Seed
	}

	cfg := config.Default()
	cfg.DatabasePath = ":memory:"
	rec := &notify.Recorder{}

	rt, err := app.Start(ctx, app.Options{
		Config:      cfg,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notifier:    rec,
		EventIDs:    ids.NewSequenceGenerator("event"),
		FeedbackIDs: ids.NewSequenceGenerator("feedback"),
		Clock:       testutil.NewDeterministicClock(),
		Fixtures:    &seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start runtime: %w", err)
	}
	defer stopInto(ctx, rt, &err)

	h := &Harness{rt: rt, notices: rec, refs: map[string]string{}}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.Final = persist.Document{
		Events:   rt.Events.List(ctx),
		Feedback: rt.Feedback.List(ctx),
	}

	actx := &AssertionContext{
		Events:   result.Final.Events,
		Feedback: result.Final.Feedback,
		Notices:  rec.Notices(),
		Resolve:  h.resolve,
	}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

// stopInto stops s and joins any failure into *errp.
func stopInto(ctx context.Context, s stopper, errp *error) {
	if stopErr := s.Stop(ctx); stopErr != nil {
		*errp = errors.Join(*errp, fmt.Errorf("failed to stop runtime: %w", stopErr))
	}
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		before := len(h.notices.Notices())

		target, stepErr, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}

		ev := TraceEvent{
			Seq:     i + 1,
			Op:      step.Op,
			Target:  target,
			Outcome: OutcomeOK,
		}
		if stepErr != nil {
			ev.Outcome = OutcomeError
			ev.Error = stepErr.Error()
		}
		if all := h.notices.Notices(); len(all) > before {
			ev.Notices = all[before:]
		}
		result.AddTrace(ev)

		switch {
		case step.ExpectError == "" && stepErr != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, stepErr))
		case step.ExpectError != "" && stepErr == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got success", i, step.Op, step.ExpectError))
		case step.ExpectError != "" && !strings.Contains(stepErr.Error(), step.ExpectError):
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got %q", i, step.Op, step.ExpectError, stepErr))
		}

		if step.As != "" && target != "" {
			h.refs[step.As] = target
		}
	}
	return nil
}

// execute runs one step. stepErr is the operation's own error; err means the
// step could not be run at all.
func (h *Harness) execute(ctx context.Context, step Step) (target string, stepErr, err error) {
	switch step.Op {
	case OpEventCreate:
		e, createErr := h.rt.Events.Create(ctx, step.Event.input())
		return e.ID, createErr, nil

	case OpEventUpdate:
		id, err := h.resolve(step.ID)
		if err != nil {
			return "", nil, err
		}
		return id, h.rt.Events.Update(ctx, id, step.Event.patch()), nil

	case OpEventDelete:
		id, err := h.resolve(step.ID)
		if err != nil {
			return "", nil, err
		}
		h.rt.Events.Delete(ctx, id)
		return id, nil, nil

	case OpFeedbackSubmit:
		eventID, err := h.resolve(step.Feedback.Event)
		if err != nil {
			return "", nil, err
		}
		f := h.rt.Feedback.Submit(ctx, model.FeedbackInput{
			EventID:     eventID,
			UserID:      step.Feedback.UserID,
			UserName:    step.Feedback.UserName,
			Rating:      step.Feedback.Rating,
			Comment:     step.Feedback.Comment,
			IsAnonymous: step.Feedback.IsAnonymous,
		})
		return f.ID, nil, nil

	case OpFeedbackDelete:
		id, err := h.resolve(step.ID)
		if err != nil {
			return "", nil, err
		}
		h.rt.Feedback.Delete(ctx, id)
		return id, nil, nil

	case OpRecompute:
		h.rt.Feedback.Recompute(ctx)
		return "", nil, nil

	default:
		return "", nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// resolve expands a "$name" reference to the id recorded for it. Other
// values are returned unchanged.
func (h *Harness) resolve(id string) (string, error) {
	name, ok := strings.CutPrefix(id, "$")
	if !ok {
		return id, nil
	}
	v, ok := h.refs[name]
	if !ok {
		return "", fmt.Errorf("unknown reference %q", id)
	}
	return v, nil
}
