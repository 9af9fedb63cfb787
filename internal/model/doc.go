// Package model defines the records persisted by feedbackflow.
//
// Two collections exist: the event catalog and the feedback submitted against it.
// Event carries two derived fields (FeedbackCount and AverageRating) that must
// always reflect the feedback currently referencing the event; the feedback
// package owns that recomputation.
//
// JSON field names match the persisted layout so that collections written by
// earlier versions load unchanged.
package model
