// Package ledger is the append-only record of evaluation status changes.
//
// The current status of an evaluation is never stored on the evaluation
// itself; it is the status of the latest revision, where "latest" means the
// greatest timestamp with ties broken by insertion order (seq).
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var ErrEmptyActor = fmt.Errorf("%w: actor is required", common.ErrorValidation)

type Ledger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func New(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *Ledger {
	return &Ledger{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "ledger"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Open stores a new evaluation together with its initial Submitted revision.
// Either both rows are written or neither is.
func (l *Ledger) Open(ctx context.Context, ev *models.Evaluation, actor string) (*models.Revision, error) {
	rev, err := dbx.WithTxValue(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Revision, error) {
		return l.OpenIn(ctx, tx, ev, actor)
	})
	if err != nil {
		return nil, fmt.Errorf("open evaluation: %w", err)
	}
	return rev, nil
}

// OpenIn is Open using the caller's transaction, so more rows (such as the
// evaluation's documents) can be written atomically with it.
func (l *Ledger) OpenIn(ctx context.Context, tx dbx.DBTX, ev *models.Evaluation, actor string) (*models.Revision, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, ErrEmptyActor
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.SubmittedAt.IsZero() {
		ev.SubmittedAt = l.now()
	}
	progress := models.StatusSubmitted.Progress()
	ev.Progress = &progress

	if err := l.repomanager.Evaluations(tx).Create(ctx, ev); err != nil {
		return nil, err
	}
	rev := &models.Revision{
		ID:           newRevisionID(),
		EvaluationID: ev.ID,
		Seq:          1,
		Status:       models.StatusSubmitted,
		Actor:        actor,
		Timestamp:    ev.SubmittedAt,
	}
	if err := l.repomanager.Revisions(tx).Append(ctx, rev); err != nil {
		return nil, err
	}

	l.logger.Info(ctx, "evaluation opened", "evaluation_id", ev.ID, "actor", actor)
	return rev, nil
}

// Append records a status change in its own transaction.
func (l *Ledger) Append(ctx context.Context, evaluationID string, status models.Status, actor string, note *string) (*models.Revision, error) {
	return dbx.WithTxValue(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Revision, error) {
		return l.AppendIn(ctx, tx, evaluationID, status, actor, note)
	})
}

// AppendIn records a status change using the caller's transaction.
//
// The new entry gets the next seq and a timestamp no earlier than the
// previous entry's, so history stays strictly ordered even if clocks skew.
func (l *Ledger) AppendIn(ctx context.Context, tx dbx.DBTX, evaluationID string, status models.Status, actor string, note *string) (*models.Revision, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %s", common.ErrorValidation, status)
	}
	if strings.TrimSpace(actor) == "" {
		return nil, ErrEmptyActor
	}

	revRepo := l.repomanager.Revisions(tx)
	last, err := revRepo.Last(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	ts := l.now()
	if ts.Before(last.Timestamp) {
		ts = last.Timestamp
	}
	rev := &models.Revision{
		ID:           newRevisionID(),
		EvaluationID: evaluationID,
		Seq:          last.Seq + 1,
		Status:       status,
		Actor:        actor,
		Timestamp:    ts,
		Note:         note,
	}
	if err := revRepo.Append(ctx, rev); err != nil {
		return nil, err
	}

	l.logger.Debug(ctx, "revision appended",
		"evaluation_id", evaluationID, "seq", rev.Seq, "status", status.String(), "actor", actor)
	return rev, nil
}

// CurrentStatus returns the status of the latest revision.
func (l *Ledger) CurrentStatus(ctx context.Context, evaluationID string) (models.Status, error) {
	return l.CurrentStatusIn(ctx, l.db, evaluationID)
}

// CurrentStatusIn is CurrentStatus read through the caller's transaction.
func (l *Ledger) CurrentStatusIn(ctx context.Context, tx dbx.DBTX, evaluationID string) (models.Status, error) {
	last, err := l.repomanager.Revisions(tx).Last(ctx, evaluationID)
	if err != nil {
		return models.StatusUnknown, err
	}
	return last.Status, nil
}

// Evaluation returns the evaluation record the ledger belongs to.
func (l *Ledger) Evaluation(ctx context.Context, evaluationID string) (*models.Evaluation, error) {
	return l.repomanager.Evaluations(l.db).Get(ctx, evaluationID)
}

// History returns every revision in ledger order. An evaluation without
// revisions does not exist.
func (l *Ledger) History(ctx context.Context, evaluationID string) ([]*models.Revision, error) {
	history, err := l.repomanager.Revisions(l.db).List(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, common.ErrorNotFound
	}
	return history, nil
}

// newRevisionID returns a time-ordered id so revisions created in one
// process sort by creation.
func newRevisionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
