// Package rules turns a country's stored rule text into validated,
// structured evaluation criteria.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownCountry = errors.New("unknown country")
	ErrMalformedRules = errors.New("malformed rules")
)

// ParsedRules is only ever produced by Parse, so a value in hand has passed
// validation.
type ParsedRules struct {
	CountryCode       string        `json:"countryCode"`
	EducationSystem   string        `json:"educationSystem" validate:"required"`
	GradingScale      *GradingScale `json:"gradingScale" validate:"required"`
	DegreeEquivalence []Equivalence `json:"degreeEquivalence" validate:"required,min=1,dive"`
}

type GradingScale struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max" validate:"nefield=Min"`
	Passing float64 `json:"passing"`
	// Descending is set for scales where lower numbers are better (e.g. 1.0 in Germany).
	Descending  bool   `json:"descending"`
	Description string `json:"description"`
}

type Equivalence struct {
	Local      string `json:"local" validate:"required"`
	Equivalent string `json:"equivalent" validate:"required"`
}

// Equivalent returns the mapped degree for a local degree name,
// compared case-insensitively.
func (p ParsedRules) Equivalent(local string) (string, bool) {
	for _, e := range p.DegreeEquivalence {
		if strings.EqualFold(e.Local, local) {
			return e.Equivalent, true
		}
	}
	return "", false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates serialized rules. It never returns a
// partially populated value: any failure yields ErrMalformedRules.
func Parse(code, text string) (ParsedRules, error) {
	var p ParsedRules
	if strings.TrimSpace(text) == "" {
		return ParsedRules{}, fmt.Errorf("%w: empty rules for %s", ErrMalformedRules, code)
	}
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return ParsedRules{}, fmt.Errorf("%w: %w", ErrMalformedRules, err)
	}
	if err := validate.Struct(p); err != nil {
		return ParsedRules{}, fmt.Errorf("%w: %w", ErrMalformedRules, err)
	}
	if err := p.GradingScale.check(); err != nil {
		return ParsedRules{}, fmt.Errorf("%w: %w", ErrMalformedRules, err)
	}
	p.CountryCode = code
	return p, nil
}

func (g *GradingScale) check() error {
	lo, hi := g.Min, g.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if g.Passing < lo || g.Passing > hi {
		return fmt.Errorf("passing grade %v outside scale [%v, %v]", g.Passing, lo, hi)
	}
	return nil
}

// NormalizeCode upper-cases and trims a country code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
