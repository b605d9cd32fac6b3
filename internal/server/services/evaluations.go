// Package services exposes the evaluation operations to the transports and
// decides which actors may call them.
package services

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/auth"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/queue"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
	"github.com/dmitrijs2005/credeval/internal/server/timeline"
)

// Evaluations is what the gRPC and HTTP layers call. The actor is taken
// from the context (see auth.WithActor).
type Evaluations interface {
	Submit(ctx context.Context, ev *models.Evaluation, docs []*models.Document) (*models.Revision, error)
	Transition(ctx context.Context, evaluationID string, target models.Status, note *string) (*models.Revision, error)
	Assign(ctx context.Context, evaluationID, evaluator string) (*models.Assignment, error)
	CurrentStatus(ctx context.Context, evaluationID string) (models.Status, error)
	History(ctx context.Context, evaluationID string) ([]*models.Revision, error)
	Timeline(ctx context.Context, evaluationID string) ([]timeline.Event, error)
	Ingest(ctx context.Context, documentID string, async bool) (*IngestResult, error)
	Rules(ctx context.Context, countryCode string) (rules.ParsedRules, error)
	InvalidateRules(ctx context.Context, countryCode string) error
}

type Lifecycle interface {
	Submit(ctx context.Context, ev *models.Evaluation, docs []*models.Document, actor string) (*models.Revision, error)
	Transition(ctx context.Context, evaluationID string, target models.Status, actor string, note *string) (*models.Revision, error)
	Assign(ctx context.Context, evaluationID, evaluator, actor string) (*models.Assignment, error)
}

type Ledger interface {
	Evaluation(ctx context.Context, evaluationID string) (*models.Evaluation, error)
	CurrentStatus(ctx context.Context, evaluationID string) (models.Status, error)
	History(ctx context.Context, evaluationID string) ([]*models.Revision, error)
}

type Projector interface {
	Project(ctx context.Context, evaluationID string) (iter.Seq[timeline.Event], error)
}

type RuleResolver interface {
	Resolve(ctx context.Context, countryCode string) (rules.ParsedRules, error)
	Invalidate(ctx context.Context, countryCode string) error
}

// IngestResult describes a finished ingestion, or only the job when the
// request was queued.
type IngestResult struct {
	DocumentID string
	Queued     bool
	Document   *models.Document
}

type EvaluationService struct {
	lifecycle Lifecycle
	ledger    Ledger
	projector Projector
	ingestor  queue.DocumentIngestor
	publisher queue.Publisher
	resolver  RuleResolver
	logger    logging.Logger
	now       func() time.Time
}

func NewEvaluationService(lc Lifecycle, l Ledger, p Projector, ing queue.DocumentIngestor, pub queue.Publisher,
	r RuleResolver, logger logging.Logger) *EvaluationService {
	return &EvaluationService{
		lifecycle: lc,
		ledger:    l,
		projector: p,
		ingestor:  ing,
		publisher: pub,
		resolver:  r,
		logger:    logger.With("module", "services"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit opens an evaluation. Students may only submit for themselves.
func (s *EvaluationService) Submit(ctx context.Context, ev *models.Evaluation, docs []*models.Document) (*models.Revision, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if a.Role == auth.RoleStudent {
		if ev.StudentID == "" {
			ev.StudentID = a.Name
		}
		if ev.StudentID != a.Name {
			return nil, fmt.Errorf("%w: students submit only their own evaluations", common.ErrorForbidden)
		}
	}
	return s.lifecycle.Submit(ctx, ev, docs, a.Name)
}

func (s *EvaluationService) Transition(ctx context.Context, evaluationID string, target models.Status, note *string) (*models.Revision, error) {
	a, err := requireActor(ctx, auth.RoleEvaluator)
	if err != nil {
		return nil, err
	}
	return s.lifecycle.Transition(ctx, evaluationID, target, a.Name, note)
}

func (s *EvaluationService) Assign(ctx context.Context, evaluationID, evaluator string) (*models.Assignment, error) {
	a, err := requireActor(ctx, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return s.lifecycle.Assign(ctx, evaluationID, evaluator, a.Name)
}

func (s *EvaluationService) CurrentStatus(ctx context.Context, evaluationID string) (models.Status, error) {
	if err := s.readable(ctx, evaluationID); err != nil {
		return 0, err
	}
	return s.ledger.CurrentStatus(ctx, evaluationID)
}

func (s *EvaluationService) History(ctx context.Context, evaluationID string) ([]*models.Revision, error) {
	if err := s.readable(ctx, evaluationID); err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, evaluationID)
}

func (s *EvaluationService) Timeline(ctx context.Context, evaluationID string) ([]timeline.Event, error) {
	if err := s.readable(ctx, evaluationID); err != nil {
		return nil, err
	}
	seq, err := s.projector.Project(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	return timeline.Collect(seq), nil
}

// Ingest converts a document now, or queues it when async is set.
func (s *EvaluationService) Ingest(ctx context.Context, documentID string, async bool) (*IngestResult, error) {
	a, err := requireActor(ctx, auth.RoleEvaluator)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", common.ErrorValidation)
	}

	if async {
		job := queue.Job{DocumentID: documentID, RequestedBy: a.Name, EnqueuedAt: s.now()}
		if err := s.publisher.Publish(ctx, job); err != nil {
			s.logger.Error(ctx, "enqueue ingestion failed", "document_id", documentID, "error", err)
			return nil, fmt.Errorf("enqueue %s: %w", documentID, err)
		}
		s.logger.Info(ctx, "ingestion queued", "document_id", documentID, "actor", a.Name)
		return &IngestResult{DocumentID: documentID, Queued: true}, nil
	}

	doc, err := s.ingestor.IngestDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &IngestResult{DocumentID: documentID, Document: doc}, nil
}

func (s *EvaluationService) Rules(ctx context.Context, countryCode string) (rules.ParsedRules, error) {
	if _, err := requireActor(ctx); err != nil {
		return rules.ParsedRules{}, err
	}
	return s.resolver.Resolve(ctx, countryCode)
}

func (s *EvaluationService) InvalidateRules(ctx context.Context, countryCode string) error {
	a, err := requireActor(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.resolver.Invalidate(ctx, countryCode); err != nil {
		return err
	}
	s.logger.Info(ctx, "rule cache invalidated", "country", countryCode, "actor", a.Name)
	return nil
}

// readable lets students see only their own evaluations. Other roles read
// any evaluation.
func (s *EvaluationService) readable(ctx context.Context, evaluationID string) error {
	a, err := requireActor(ctx)
	if err != nil {
		return err
	}
	if a.Role != auth.RoleStudent {
		return nil
	}
	ev, err := s.ledger.Evaluation(ctx, evaluationID)
	if err != nil {
		return err
	}
	if ev.StudentID != a.Name {
		return fmt.Errorf("%w: evaluation %s belongs to another student", common.ErrorForbidden, evaluationID)
	}
	return nil
}

// requireActor returns the caller, checking its role when roles are given.
func requireActor(ctx context.Context, roles ...auth.Role) (auth.Actor, error) {
	a, ok := auth.ActorFromContext(ctx)
	if !ok {
		return auth.Actor{}, common.ErrorUnauthorized
	}
	if len(roles) > 0 && !a.Is(roles...) {
		return auth.Actor{}, fmt.Errorf("%w: role %s", common.ErrorForbidden, a.Role)
	}
	return a, nil
}
