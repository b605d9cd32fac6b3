package models

import "time"

// Country holds the serialized evaluation rules for one country code.
// Rules is opaque text here; only the rules resolver interprets it.
type Country struct {
	ID        string
	Code      string
	Name      string
	Rules     string
	UpdatedAt time.Time
}
