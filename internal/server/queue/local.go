package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/credeval/internal/logging"
)

// Local runs jobs in background goroutines of the current process. It is
// used when no broker is configured.
type Local struct {
	handler Handler
	logger  logging.Logger
	wg      sync.WaitGroup
}

func NewLocal(handler Handler, logger logging.Logger) *Local {
	return &Local{handler: handler, logger: logger.With("module", "queue")}
}

// Publish starts the job and returns immediately. The job outlives the
// request context.
func (l *Local) Publish(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	jobCtx := context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.handler(jobCtx, job); err != nil {
			l.logger.Error(jobCtx, "ingestion job failed", "document_id", job.DocumentID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every started job has finished.
func (l *Local) Wait() {
	l.wg.Wait()
}
