package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// convertPDF renders the document and extracts page texts with at most
// PageWorkers extractions in flight. Texts are returned in page order.
//
// On failure the lowest failing page index is reported. Pages above a
// known failure are skipped; pages below it always run, so the reported
// index does not depend on scheduling.
func (c *Converter) convertPDF(ctx context.Context, path string) ([]string, error) {
	start := time.Now()

	pages, err := c.render(ctx, path)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(pages))
	errs := make([]error, len(pages))

	var mu sync.Mutex
	lowestFailed := len(pages)

	workers := c.cfg.PageWorkers
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, p := range pages {
		mu.Lock()
		skip := i > lowestFailed
		mu.Unlock()
		if skip {
			break
		}

		g.Go(func() error {
			text, err := c.extract(ctx, p)
			if err != nil {
				errs[i] = err
				mu.Lock()
				lowestFailed = min(lowestFailed, i)
				mu.Unlock()
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			c.logger.Warn(ctx, "page conversion failed", "path", path, "page", i, "error", err)
			var ce *ConversionError
			if errors.As(err, &ce) {
				err = ce.Err
			}
			return nil, ConversionFailed(i, err)
		}
	}

	c.logger.Debug(ctx, "pdf converted", "path", path, "pages", len(pages), "elapsed", time.Since(start))
	return texts, nil
}
