package models

import (
	"database/sql/driver"
	"fmt"
)

// Status is the closed set of lifecycle states of an Evaluation.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusSubmitted
	StatusInReview
	StatusNeedsMoreInfo
	StatusCompleted
	StatusRejected
)

var statusNames = map[Status]string{
	StatusSubmitted:     "submitted",
	StatusInReview:      "in_review",
	StatusNeedsMoreInfo: "needs_more_info",
	StatusCompleted:     "completed",
	StatusRejected:      "rejected",
}

// AllStatuses lists every valid status in lifecycle order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusInReview,
	StatusNeedsMoreInfo,
	StatusCompleted,
	StatusRejected,
}

// AllowedTransitions is the single source of truth for the state machine.
// Terminal statuses have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusSubmitted:     {StatusInReview, StatusRejected},
	StatusInReview:      {StatusNeedsMoreInfo, StatusCompleted, StatusRejected},
	StatusNeedsMoreInfo: {StatusInReview},
	StatusCompleted:     nil,
	StatusRejected:      nil,
}

// CanTransition reports whether from -> to is an edge of AllowedTransitions.
func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Progress is the completion percentage shown for an evaluation in s.
func (s Status) Progress() int {
	switch s {
	case StatusSubmitted:
		return 10
	case StatusInReview:
		return 40
	case StatusNeedsMoreInfo:
		return 50
	case StatusCompleted, StatusRejected:
		return 100
	default:
		return 0
	}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus maps the stored name back to a Status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status by name.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return s.String(), nil
}

// Scan reads a status stored by name.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
}
