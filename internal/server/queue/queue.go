// Package queue carries asynchronous document-ingestion jobs.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/credeval/internal/server/ingest"
	"github.com/dmitrijs2005/credeval/internal/server/models"
)

// Job asks a worker to ingest one document.
type Job struct {
	DocumentID  string    `json:"document_id"`
	RequestedBy string    `json:"requested_by"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Handler processes one job. A nil error acknowledges it.
type Handler func(ctx context.Context, job Job) error

type DocumentIngestor interface {
	IngestDocument(ctx context.Context, documentID string) (*models.Document, error)
}

// IngestHandler runs IngestDocument for each job. Documents that were
// already ingested count as done.
func IngestHandler(ing DocumentIngestor) Handler {
	return func(ctx context.Context, job Job) error {
		_, err := ing.IngestDocument(ctx, job.DocumentID)
		if errors.Is(err, ingest.ErrAlreadyIngested) {
			return nil
		}
		return err
	}
}
