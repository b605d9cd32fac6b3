package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedFile is the administrative country list, e.g.
//
//	countries:
//	  - code: DE
//	    name: Germany
//	    rules:
//	      educationSystem: Bologna
//	      gradingScale: {min: 1, max: 5, passing: 4, descending: true}
//	      degreeEquivalence:
//	        - {local: Bachelor, equivalent: "Bachelor's degree"}
type SeedFile struct {
	Countries []SeedCountry `yaml:"countries"`
}

type SeedCountry struct {
	Code  string         `yaml:"code"`
	Name  string         `yaml:"name"`
	Rules map[string]any `yaml:"rules"`
}

// ReadSeedFile parses a YAML seed file.
func ReadSeedFile(path string) (*SeedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Seed validates every country in f and upserts them in one transaction.
// Nothing is written if any country carries malformed rules.
func (r *Resolver) Seed(ctx context.Context, f *SeedFile) (int, error) {
	rows := make([]*models.Country, 0, len(f.Countries))
	now := time.Now().UTC()
	for _, sc := range f.Countries {
		code := NormalizeCode(sc.Code)
		if code == "" {
			return 0, fmt.Errorf("%w: country without code", ErrMalformedRules)
		}
		text, err := json.Marshal(sc.Rules)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrMalformedRules, code, err)
		}
		if _, err := Parse(code, string(text)); err != nil {
			return 0, fmt.Errorf("%s: %w", code, err)
		}
		rows = append(rows, &models.Country{
			ID:        uuid.NewString(),
			Code:      code,
			Name:      sc.Name,
			Rules:     string(text),
			UpdatedAt: now,
		})
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Countries(tx)
		for _, c := range rows {
			if err := repo.Upsert(ctx, c); err != nil {
				return fmt.Errorf("upsert %s: %w", c.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, c := range rows {
		if err := r.Invalidate(ctx, c.Code); err != nil {
			r.logger.Warn(ctx, "seeded country left stale in cache", "code", c.Code, "error", err)
		}
	}
	r.logger.Info(ctx, "countries seeded", "count", len(rows))
	return len(rows), nil
}
