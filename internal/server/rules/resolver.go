package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
	"golang.org/x/sync/singleflight"
)

// Resolver loads a country's rules from storage, parses them and caches
// successful results. Failures are never cached.
type Resolver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       Cache
	logger      logging.Logger
	group       singleflight.Group
}

func NewResolver(db *sql.DB, m repomanager.RepositoryManager, cache Cache, logger logging.Logger) *Resolver {
	return &Resolver{
		db:          db,
		repomanager: m,
		cache:       cache,
		logger:      logger.With("module", "rules"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, countryCode string) (ParsedRules, error) {
	code := NormalizeCode(countryCode)
	if code == "" {
		return ParsedRules{}, fmt.Errorf("%w: empty country code", ErrUnknownCountry)
	}

	if p, ok := r.cache.Get(ctx, code); ok {
		r.logger.Debug(ctx, "rules cache hit", "code", code)
		return p, nil
	}

	// The shared load outlives any one caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(code, func() (any, error) {
		return r.load(loadCtx, code)
	})
	select {
	case <-ctx.Done():
		return ParsedRules{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ParsedRules{}, res.Err
		}
		return res.Val.(ParsedRules), nil
	}
}

func (r *Resolver) load(ctx context.Context, code string) (ParsedRules, error) {
	c, err := r.repomanager.Countries(r.db).GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ParsedRules{}, fmt.Errorf("%w: %s", ErrUnknownCountry, code)
		}
		return ParsedRules{}, fmt.Errorf("load country %s: %w", code, err)
	}

	p, err := Parse(code, c.Rules)
	if err != nil {
		r.logger.Warn(ctx, "malformed country rules", "code", code, "error", err)
		return ParsedRules{}, err
	}

	r.cache.Set(ctx, code, p)
	return p, nil
}

// Invalidate drops the cached rules of one country so the next Resolve
// reads storage again.
func (r *Resolver) Invalidate(ctx context.Context, countryCode string) error {
	code := NormalizeCode(countryCode)
	if err := r.cache.Delete(ctx, code); err != nil {
		return fmt.Errorf("invalidate %s: %w", code, err)
	}
	r.logger.Info(ctx, "rules cache invalidated", "code", code)
	return nil
}
