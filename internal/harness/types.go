package harness

import (
	"github.com/roach88/feedbackflow/internal/notify"
	"github.com/roach88/feedbackflow/internal/persist"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq int    `json:"seq"`
	Op  string `json:"op"`
	// Target is the id the step created or acted on.
	Target  string          `json:"target,omitempty"`
	Outcome string          `json:"outcome"` // "ok" or "error"
	Error   string          `json:"error,omitempty"`
	Notices []notify.Notice `json:"notices,omitempty"`
}

// Step outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one entry per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the in-memory state of both stores after the last step.
	Final persist.Document `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step record.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
