package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/logging"
	sc "github.com/dmitrijs2005/credeval/internal/server/config"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credeval/internal/syncx"
	"github.com/sethvargo/go-retry"
)

// Ingestor converts stored documents and records their parsed data.
type Ingestor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	converter   *Converter
	fetcher     Fetcher
	cfg         *sc.Config
	logger      logging.Logger
	locks       *syncx.KeyedMutex
	now         func() time.Time
}

func NewIngestor(db *sql.DB, m repomanager.RepositoryManager, r Rasterizer, f Fetcher, cfg *sc.Config, logger logging.Logger) *Ingestor {
	return &Ingestor{
		db:          db,
		repomanager: m,
		converter:   NewConverter(r, cfg, logger),
		fetcher:     f,
		cfg:         cfg,
		logger:      logger.With("module", "ingest"),
		locks:       syncx.NewKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// IngestUpload converts an upload that is already on local disk.
func (i *Ingestor) IngestUpload(ctx context.Context, u RawUpload) (ParsedDocument, error) {
	return i.converter.Convert(ctx, u)
}

// Ingest fetches the document's file if needed and converts it. It does not
// touch the stored document.
func (i *Ingestor) Ingest(ctx context.Context, doc *models.Document) (ParsedDocument, error) {
	local, cleanup, err := i.fetcher.Materialize(ctx, doc.Path)
	if err != nil {
		return ParsedDocument{}, err
	}
	defer cleanup()

	return i.converter.Convert(ctx, RawUpload{
		Path:         local,
		Mimetype:     doc.Mimetype,
		Size:         doc.Size,
		OriginalName: doc.OriginalName,
	})
}

// IngestDocument converts a stored document and saves its parsed data in a
// single write. Transient failures are retried with exponential backoff;
// on any failure the document is left as it was.
func (i *Ingestor) IngestDocument(ctx context.Context, documentID string) (*models.Document, error) {
	unlock := i.locks.Lock(documentID)
	defer unlock()

	repo := i.repomanager.Documents(i.db)

	doc, err := repo.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load document: %w", ErrStorageUnavailable, err)
	}
	if doc.ParsedData != nil {
		return doc, ErrAlreadyIngested
	}

	parsed, attempt, err := i.convertWithRetry(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pd := &models.ParsedData{
		Content:   parsed.Content,
		PageCount: parsed.PageCount,
		Checksum:  parsed.Checksum,
		ParsedAt:  i.now(),
	}
	if err := repo.SaveParsedData(ctx, doc.ID, pd); err != nil {
		return nil, fmt.Errorf("save parsed data: %w", err)
	}
	doc.ParsedData = pd

	i.logger.Info(ctx, "document ingested",
		"document_id", doc.ID, "pages", pd.PageCount, "bytes", len(pd.Content), "attempts", attempt)
	return doc, nil
}

// Reupload converts a replacement file for a document and, only when that
// succeeds, stores the new source together with its parsed data. A failed
// conversion leaves the document as it was.
func (i *Ingestor) Reupload(ctx context.Context, documentID string, u RawUpload) (*models.Document, error) {
	if err := validate.Struct(u); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}

	unlock := i.locks.Lock(documentID)
	defer unlock()

	repo := i.repomanager.Documents(i.db)
	doc, err := repo.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load document: %w", ErrStorageUnavailable, err)
	}

	next := *doc
	next.Path = u.Path
	next.Mimetype = u.Mimetype
	next.Size = u.Size
	if u.OriginalName != "" {
		next.OriginalName = u.OriginalName
	}

	parsed, attempt, err := i.convertWithRetry(ctx, &next)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next.ParsedData = &models.ParsedData{
		Content:   parsed.Content,
		PageCount: parsed.PageCount,
		Checksum:  parsed.Checksum,
		ParsedAt:  i.now(),
	}
	if err := repo.ReplaceSource(ctx, &next); err != nil {
		return nil, fmt.Errorf("replace source: %w", err)
	}

	i.logger.Info(ctx, "document re-uploaded",
		"document_id", next.ID, "pages", parsed.PageCount, "bytes", len(parsed.Content), "attempts", attempt)
	return &next, nil
}

// convertWithRetry runs Ingest, retrying transient failures with backoff.
func (i *Ingestor) convertWithRetry(ctx context.Context, doc *models.Document) (ParsedDocument, int, error) {
	var parsed ParsedDocument
	attempt := 0
	err := retry.Do(ctx, i.backoff(), func(ctx context.Context) error {
		attempt++
		p, err := i.Ingest(ctx, doc)
		if err != nil {
			if IsTransient(err) && ctx.Err() == nil {
				i.logger.Warn(ctx, "transient ingestion failure", "document_id", doc.ID, "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		parsed = p
		return nil
	})
	if err != nil {
		i.logger.Error(ctx, "ingestion failed", "document_id", doc.ID, "error", err)
		return ParsedDocument{}, attempt, err
	}
	return parsed, attempt, nil
}

func (i *Ingestor) backoff() retry.Backoff {
	base := i.cfg.RetryBaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	attempts := i.cfg.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}
	return retry.WithMaxRetries(uint64(attempts), retry.NewExponential(base))
}
