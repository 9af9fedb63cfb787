package model

import "time"

// Feedback is a single rating and comment tied to one event.
type Feedback struct {
	ID      string `json:"id" yaml:"id"`
	EventID string `json:"eventId" yaml:"eventId"`
	// UserID is nil for guest submitters.
	UserID   *string `json:"userId" yaml:"userId"`
	UserName string  `json:"userName" yaml:"userName"`
	Rating   int     `json:"rating" yaml:"rating"`
	Comment  string  `json:"comment" yaml:"comment"`
	// Timestamp is set once at submission.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// IsAnonymous masks the display name; it is independent of UserID.
	IsAnonymous bool `json:"isAnonymous" yaml:"isAnonymous"`
}

// FeedbackInput holds the caller-supplied fields of a submission.
type FeedbackInput struct {
	EventID     string
	UserID      *string
	UserName    string
	Rating      int
	Comment     string
	IsAnonymous bool
}

// DisplayName is the name shown for the submission.
func (f Feedback) DisplayName() string {
	if f.IsAnonymous {
		return "Anonymous"
	}
	return f.UserName
}

// StringPtr returns a pointer to s. Handy for UserID and patch fields.
func StringPtr(s string) *string {
	return &s
}
