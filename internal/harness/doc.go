// Package harness runs scripted scenarios against a fresh, fully wired data
// layer and checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: submit_then_delete
//	description: "Aggregates follow submissions and deletions"
//	seed:                       # optional; omitted means the embedded fixtures
//	  events:
//	    - id: E1
//	      title: Conf
//	      status: active
//	      startDate: 2024-01-01T09:00:00Z
//	      endDate: 2024-01-01T17:00:00Z
//	  feedback: []
//	steps:
//	  - op: feedback.submit
//	    as: first                 # later steps refer to the new id as $first
//	    feedback: { event: E1, userName: Ann, rating: 4 }
//	  - op: feedback.delete
//	    id: $first
//	  - op: events.create
//	    event: { title: Bad, startDate: 2024-02-02T00:00:00Z, endDate: 2024-02-01T00:00:00Z }
//	    expect_error: end date precedes start date
//	assertions:
//	  - type: event
//	    id: E1
//	    feedbackCount: 0
//	    averageRating: 0
//	  - type: notice
//	    message: Feedback deleted successfully!
//	  - type: aggregates_consistent
//
// # Operations
//
//   - events.create, events.update, events.delete
//   - feedback.submit, feedback.delete
//   - recompute: re-derive every event aggregate
//
// # Assertion Types
//
//   - event: the event exists, optionally with the given aggregate
//   - event_absent: no event has the id
//   - feedback_count: how many records reference an event (or exist at all)
//   - notice: a notice with the message (and level) was emitted
//   - aggregates_consistent: every event's aggregate matches its feedback
//   - no_orphans: every feedback record references an existing event
//
// # Deterministic Testing
//
// Each run uses an in-memory SQLite database, sequential ids
// ("event-1", "feedback-1", ...) and testutil.DeterministicClock, so the
// trace and final state are byte-stable and suitable for golden files.
package harness
