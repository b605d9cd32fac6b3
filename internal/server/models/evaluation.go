// Package models defines the server-side records persisted in the database.
package models

import "time"

// Evaluation is a student's credential-review case. Its status is not a
// field: it is always derived from the latest Revision.
type Evaluation struct {
	ID                      string
	StudentID               string
	CountryCode             string
	EvaluationType          string
	Institution             string
	Program                 string
	AssignedTo              string
	SubmittedAt             time.Time
	EstimatedCompletionDate *time.Time
	// Progress is 0–100; nil until the first review transition.
	Progress *int
	Notes    *string
	// ClosedAt is set once a terminal status is recorded.
	ClosedAt *time.Time
}

// Closed reports whether the evaluation reached a terminal status.
func (e *Evaluation) Closed() bool {
	return e.ClosedAt != nil
}

// Assignment records a change of the evaluator an evaluation is assigned to.
type Assignment struct {
	ID           string
	EvaluationID string
	AssignedTo   string
	AssignedBy   string
	AssignedAt   time.Time
}
