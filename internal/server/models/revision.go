package models

import "time"

// Revision is one immutable entry of an evaluation's status history.
type Revision struct {
	ID           string
	EvaluationID string
	// Seq is the per-evaluation insertion order, starting at 1.
	Seq       int64
	Status    Status
	Actor     string
	Timestamp time.Time
	Note      *string
}

// Latest returns the current revision of a history: the one with the
// greatest timestamp, ties broken by Seq. It returns nil for an empty slice.
func Latest(history []*Revision) *Revision {
	var cur *Revision
	for _, r := range history {
		if cur == nil || r.Timestamp.After(cur.Timestamp) ||
			(r.Timestamp.Equal(cur.Timestamp) && r.Seq > cur.Seq) {
			cur = r
		}
	}
	return cur
}
