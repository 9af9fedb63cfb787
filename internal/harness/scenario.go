package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/persist"
)

// Scenario is a scripted sequence of store operations plus the checks to run
// once it finishes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the stored state before the first step.
	// If nil, the embedded fixtures are used.
	Seed *persist.Document `yaml:"seed,omitempty"`

	// Steps run in order against the live stores.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the notices.
	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpEventCreate    = "events.create"
	OpEventUpdate    = "events.update"
	OpEventDelete    = "events.delete"
	OpFeedbackSubmit = "feedback.submit"
	OpFeedbackDelete = "feedback.delete"
	OpRecompute      = "recompute"
)

// Step is one store operation.
type Step struct {
	Op string `yaml:"op"`

	// As names the id produced by a create or submit. Later steps and
	// assertions refer to it as "$name".
	As string `yaml:"as,omitempty"`

	// ID targets update and delete operations.
	ID string `yaml:"id,omitempty"`

	// Event carries create and update fields. For updates, omitted fields
	// are left unchanged.
	Event *EventFields `yaml:"event,omitempty"`

	// Feedback carries submit fields.
	Feedback *FeedbackFields `yaml:"feedback,omitempty"`

	// ExpectError, if set, must appear in the error the step returns.
	// Without it the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// EventFields are the writable event attributes.
type EventFields struct {
	Title       *string    `yaml:"title,omitempty"`
	Description *string    `yaml:"description,omitempty"`
	Status      *string    `yaml:"status,omitempty"`
	StartDate   *time.Time `yaml:"startDate,omitempty"`
	EndDate     *time.Time `yaml:"endDate,omitempty"`
	Location    *string    `yaml:"location,omitempty"`
	Organizer   *string    `yaml:"organizer,omitempty"`
	ImageURL    *string    `yaml:"imageUrl,omitempty"`
}

func (f EventFields) input() model.EventInput {
	in := model.EventInput{}
	if f.Title != nil {
		in.Title = *f.Title
	}
	if f.Description != nil {
		in.Description = *f.Description
	}
	if f.Status != nil {
		in.Status = model.Status(*f.Status)
	}
	if f.StartDate != nil {
		in.StartDate = *f.StartDate
	}
	if f.EndDate != nil {
		in.EndDate = *f.EndDate
	}
	if f.Location != nil {
		in.Location = *f.Location
	}
	if f.Organizer != nil {
		in.Organizer = *f.Organizer
	}
	if f.ImageURL != nil {
		in.ImageURL = *f.ImageURL
	}
	return in
}

func (f EventFields) patch() model.EventPatch {
	p := model.EventPatch{
		Title:       f.Title,
		Description: f.Description,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
		Location:    f.Location,
		Organizer:   f.Organizer,
		ImageURL:    f.ImageURL,
	}
	if f.Status != nil {
		s := model.Status(*f.Status)
		p.Status = &s
	}
	return p
}

// FeedbackFields are the submit attributes. Event may be a "$name" reference.
type FeedbackFields struct {
	Event       string  `yaml:"event"`
	UserID      *string `yaml:"userId,omitempty"`
	UserName    string  `yaml:"userName"`
	Rating      int     `yaml:"rating"`
	Comment     string  `yaml:"comment"`
	IsAnonymous bool    `yaml:"isAnonymous"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ID is an event id or "$name" reference (event, event_absent,
	// feedback_count). An empty ID in feedback_count counts all feedback.
	ID string `yaml:"id,omitempty"`

	// FeedbackCount and AverageRating are optional expectations for event.
	FeedbackCount *int     `yaml:"feedbackCount,omitempty"`
	AverageRating *float64 `yaml:"averageRating,omitempty"`

	// Count is the expected number of records (feedback_count).
	Count *int `yaml:"count,omitempty"`

	// Message and optional Level identify a notice.
	Message string `yaml:"message,omitempty"`
	Level   string `yaml:"level,omitempty"`
}

// Assertion type constants.
const (
	AssertEvent         = "event"
	AssertEventAbsent   = "event_absent"
	AssertFeedbackCount = "feedback_count"
	AssertNotice        = "notice"
	AssertConsistent    = "aggregates_consistent"
	AssertNoOrphans     = "no_orphans"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Seed != nil {
		if err := persist.ValidateDocument(*s.Seed); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	names := map[string]bool{}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
		if step.As != "" {
			if names[step.As] {
				return fmt.Errorf("steps[%d]: name %q already used", i, step.As)
			}
			names[step.As] = true
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	switch step.Op {
	case OpEventCreate:
		if step.Event == nil {
			return fmt.Errorf("steps[%d]: event is required for %s", i, step.Op)
		}
	case OpEventUpdate:
		if step.ID == "" || step.Event == nil {
			return fmt.Errorf("steps[%d]: id and event are required for %s", i, step.Op)
		}
	case OpEventDelete, OpFeedbackDelete:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", i, step.Op)
		}
	case OpFeedbackSubmit:
		if step.Feedback == nil || step.Feedback.Event == "" {
			return fmt.Errorf("steps[%d]: feedback.event is required for %s", i, step.Op)
		}
	case OpRecompute:
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.As != "" && step.Op != OpEventCreate && step.Op != OpFeedbackSubmit {
		return fmt.Errorf("steps[%d]: as is only valid for %s and %s", i, OpEventCreate, OpFeedbackSubmit)
	}
	if strings.HasPrefix(step.As, "$") {
		return fmt.Errorf("steps[%d]: as must not start with $", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEvent, AssertEventAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
	case AssertFeedbackCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertNotice:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for %s", index, a.Type)
		}
	case AssertConsistent, AssertNoOrphans:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
