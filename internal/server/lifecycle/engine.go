// Package lifecycle validates and applies evaluation status transitions.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/ledger"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
	"github.com/dmitrijs2005/credeval/internal/syncx"
	"github.com/google/uuid"
)

type RuleResolver interface {
	Resolve(ctx context.Context, countryCode string) (rules.ParsedRules, error)
}

// Engine serializes work per evaluation twice: an in-process keyed mutex,
// and a row lock on the evaluation inside each transaction for other
// processes. The ledger's unique (evaluation, seq) constraint catches
// anything that slips past both.
type Engine struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      *ledger.Ledger
	resolver    RuleResolver
	locks       *syncx.KeyedMutex
	logger      logging.Logger
	now         func() time.Time
}

func NewEngine(db *sql.DB, m repomanager.RepositoryManager, l *ledger.Ledger, r RuleResolver, logger logging.Logger) *Engine {
	return &Engine{
		db:          db,
		repomanager: m,
		ledger:      l,
		resolver:    r,
		locks:       syncx.NewKeyedMutex(),
		logger:      logger.With("module", "lifecycle"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit opens a new evaluation in the Submitted status and registers its
// documents in the same transaction.
func (e *Engine) Submit(ctx context.Context, ev *models.Evaluation, docs []*models.Document, actor string) (*models.Revision, error) {
	if strings.TrimSpace(ev.StudentID) == "" || strings.TrimSpace(ev.CountryCode) == "" {
		return nil, fmt.Errorf("%w: student and country are required", common.ErrorValidation)
	}
	ev.CountryCode = rules.NormalizeCode(ev.CountryCode)

	rev, err := dbx.WithTxValue(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Revision, error) {
		rev, err := e.ledger.OpenIn(ctx, tx, ev, actor)
		if err != nil {
			return nil, err
		}
		docRepo := e.repomanager.Documents(tx)
		for _, d := range docs {
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			d.EvaluationRequestID = ev.ID
			d.CreatedAt = rev.Timestamp
			if err := docRepo.Create(ctx, d); err != nil {
				return nil, err
			}
		}
		return rev, nil
	})
	if err != nil {
		return nil, e.fail(ctx, "submit", ev.ID, err)
	}
	return rev, nil
}

// Transition moves an evaluation to target and records it in the ledger.
// The current status is read inside the transaction, never from a cache.
func (e *Engine) Transition(ctx context.Context, evaluationID string, target models.Status, actor string, note *string) (*models.Revision, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown target status %s", common.ErrorValidation, target)
	}

	unlock := e.locks.Lock(evaluationID)
	defer unlock()

	rev, err := dbx.WithTxValue(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Revision, error) {
		evRepo := e.repomanager.Evaluations(tx)

		ev, err := evRepo.GetForUpdate(ctx, evaluationID)
		if err != nil {
			return nil, err
		}

		current, err := e.ledger.CurrentStatusIn(ctx, tx, evaluationID)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(current, target) {
			return nil, &TransitionError{From: current, To: target, Terminal: current.IsTerminal()}
		}

		if target == models.StatusCompleted {
			if err := e.checkCompletion(ctx, tx, ev); err != nil {
				return nil, err
			}
		}

		rev, err := e.ledger.AppendIn(ctx, tx, evaluationID, target, actor, note)
		if err != nil {
			return nil, err
		}

		var closedAt *time.Time
		if target.IsTerminal() {
			ts := rev.Timestamp
			closedAt = &ts
		}
		if err := evRepo.UpdateProgress(ctx, evaluationID, target.Progress(), closedAt); err != nil {
			return nil, err
		}
		return rev, nil
	})
	if err != nil {
		return nil, e.fail(ctx, "transition", evaluationID, err)
	}

	e.logger.Info(ctx, "transition applied",
		"evaluation_id", evaluationID, "to", target.String(), "actor", actor, "seq", rev.Seq)
	return rev, nil
}

// checkCompletion requires full ingestion of every document and resolvable
// country rules.
func (e *Engine) checkCompletion(ctx context.Context, tx dbx.DBTX, ev *models.Evaluation) error {
	docs, err := e.repomanager.Documents(tx).ListByEvaluation(ctx, ev.ID)
	if err != nil {
		return err
	}

	missing := []string{}
	for _, d := range docs {
		if !d.Ingested() {
			missing = append(missing, d.ID)
		}
	}
	if len(docs) == 0 || len(missing) > 0 {
		return &IncompleteDocumentsError{DocumentIDs: missing}
	}

	if _, err := e.resolver.Resolve(ctx, ev.CountryCode); err != nil {
		return fmt.Errorf("%w: %w", ErrUnresolvedRules, err)
	}
	return nil
}

// Assign hands an open evaluation to another evaluator.
func (e *Engine) Assign(ctx context.Context, evaluationID, evaluator, actor string) (*models.Assignment, error) {
	if strings.TrimSpace(evaluator) == "" || strings.TrimSpace(actor) == "" {
		return nil, fmt.Errorf("%w: evaluator and actor are required", common.ErrorValidation)
	}

	unlock := e.locks.Lock(evaluationID)
	defer unlock()

	a, err := dbx.WithTxValue(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Assignment, error) {
		evRepo := e.repomanager.Evaluations(tx)

		if _, err := evRepo.GetForUpdate(ctx, evaluationID); err != nil {
			return nil, err
		}
		current, err := e.ledger.CurrentStatusIn(ctx, tx, evaluationID)
		if err != nil {
			return nil, err
		}
		if current.IsTerminal() {
			return nil, fmt.Errorf("%w: %s is %s", ErrTerminalStateViolation, evaluationID, current)
		}

		if err := evRepo.UpdateAssignee(ctx, evaluationID, evaluator); err != nil {
			return nil, err
		}
		a := &models.Assignment{
			ID:           uuid.NewString(),
			EvaluationID: evaluationID,
			AssignedTo:   evaluator,
			AssignedBy:   actor,
			AssignedAt:   e.now(),
		}
		if err := e.repomanager.Assignments(tx).Create(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, e.fail(ctx, "assign", evaluationID, err)
	}

	e.logger.Info(ctx, "evaluation assigned", "evaluation_id", evaluationID, "to", evaluator, "actor", actor)
	return a, nil
}

// fail logs unexpected errors and wraps them with the operation name.
// Business outcomes pass through untouched.
func (e *Engine) fail(ctx context.Context, op, evaluationID string, err error) error {
	if expected(err) {
		e.logger.Debug(ctx, op+" rejected", "evaluation_id", evaluationID, "error", err)
		return err
	}
	e.logger.Error(ctx, op+" failed", "evaluation_id", evaluationID, "error", err)
	return fmt.Errorf("%s %s: %w", op, evaluationID, err)
}
