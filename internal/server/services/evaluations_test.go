package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/auth"
	"github.com/dmitrijs2005/credeval/internal/server/ingest"
	"github.com/dmitrijs2005/credeval/internal/server/lifecycle"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/queue"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
	"github.com/dmitrijs2005/credeval/internal/server/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLifecycle struct {
	actor string
	err   error
}

func (f *fakeLifecycle) Submit(ctx context.Context, ev *models.Evaluation, docs []*models.Document, actor string) (*models.Revision, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &models.Revision{EvaluationID: "e1", Seq: 1, Status: models.StatusSubmitted, Actor: actor}, nil
}

func (f *fakeLifecycle) Transition(ctx context.Context, id string, target models.Status, actor string, note *string) (*models.Revision, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &models.Revision{EvaluationID: id, Seq: 2, Status: target, Actor: actor, Note: note}, nil
}

func (f *fakeLifecycle) Assign(ctx context.Context, id, evaluator, actor string) (*models.Assignment, error) {
	f.actor = actor
	return &models.Assignment{EvaluationID: id, AssignedTo: evaluator, AssignedBy: actor}, f.err
}

type fakeLedger struct {
	history []*models.Revision
	owner   string
}

func (f *fakeLedger) Evaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	if id != "e1" {
		return nil, common.ErrorNotFound
	}
	return &models.Evaluation{ID: id, StudentID: f.owner}, nil
}

func (f *fakeLedger) CurrentStatus(ctx context.Context, id string) (models.Status, error) {
	return models.Latest(f.history).Status, nil
}

func (f *fakeLedger) History(ctx context.Context, id string) ([]*models.Revision, error) {
	return f.history, nil
}

type fakeProjector struct {
	events []timeline.Event
}

func (f *fakeProjector) Project(ctx context.Context, id string) (iter.Seq[timeline.Event], error) {
	return slices.Values(f.events), nil
}

type fakeIngestor struct {
	calls int
	err   error
}

func (f *fakeIngestor) IngestDocument(ctx context.Context, id string) (*models.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Document{ID: id, ParsedData: &models.ParsedData{Content: "x", PageCount: 1}}, nil
}

type fakePublisher struct {
	jobs []queue.Job
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, job queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeResolver struct {
	invalidated []string
}

func (f *fakeResolver) Resolve(ctx context.Context, code string) (rules.ParsedRules, error) {
	if code != "DE" {
		return rules.ParsedRules{}, rules.ErrUnknownCountry
	}
	return rules.ParsedRules{CountryCode: code, EducationSystem: "dual"}, nil
}

func (f *fakeResolver) Invalidate(ctx context.Context, code string) error {
	f.invalidated = append(f.invalidated, code)
	return nil
}

type fixture struct {
	svc       *EvaluationService
	lifecycle *fakeLifecycle
	ingestor  *fakeIngestor
	publisher *fakePublisher
	resolver  *fakeResolver
}

func newFixture() *fixture {
	f := &fixture{
		lifecycle: &fakeLifecycle{},
		ingestor:  &fakeIngestor{},
		publisher: &fakePublisher{},
		resolver:  &fakeResolver{},
	}
	l := &fakeLedger{owner: "stu", history: []*models.Revision{{ID: "r1", Seq: 1, Status: models.StatusSubmitted}}}
	p := &fakeProjector{events: []timeline.Event{{ID: "r1", Kind: timeline.KindRevision}}}
	f.svc = NewEvaluationService(f.lifecycle, l, p, f.ingestor, f.publisher, f.resolver, logging.Nop())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func as(name string, role auth.Role) context.Context {
	return auth.WithActor(context.Background(), auth.Actor{Name: name, Role: role})
}

func TestRequiresActor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.History(ctx, "e1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = f.svc.Transition(ctx, "e1", models.StatusInReview, nil)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRoles(t *testing.T) {
	tests := []struct {
		name string
		role auth.Role
		call func(s *EvaluationService, ctx context.Context) error
		ok   bool
	}{
		{"student transition", auth.RoleStudent, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.Transition(ctx, "e1", models.StatusInReview, nil)
			return err
		}, false},
		{"evaluator transition", auth.RoleEvaluator, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.Transition(ctx, "e1", models.StatusInReview, nil)
			return err
		}, true},
		{"evaluator assign", auth.RoleEvaluator, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.Assign(ctx, "e1", "bob")
			return err
		}, false},
		{"admin assign", auth.RoleAdmin, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.Assign(ctx, "e1", "bob")
			return err
		}, true},
		{"student ingest", auth.RoleStudent, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.Ingest(ctx, "d1", false)
			return err
		}, false},
		{"evaluator invalidate", auth.RoleEvaluator, func(s *EvaluationService, ctx context.Context) error {
			return s.InvalidateRules(ctx, "DE")
		}, false},
		{"admin invalidate", auth.RoleAdmin, func(s *EvaluationService, ctx context.Context) error {
			return s.InvalidateRules(ctx, "DE")
		}, true},
		{"other student history", auth.RoleStudent, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.History(ctx, "e1")
			return err
		}, false},
		{"other student timeline", auth.RoleStudent, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.Timeline(ctx, "e1")
			return err
		}, false},
		{"other student status", auth.RoleStudent, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.CurrentStatus(ctx, "e1")
			return err
		}, false},
		{"evaluator history", auth.RoleEvaluator, func(s *EvaluationService, ctx context.Context) error {
			_, err := s.History(ctx, "e1")
			return err
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			err := tt.call(f.svc, as("u", tt.role))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrorForbidden)
			}
		})
	}
}

func TestSubmit_Student(t *testing.T) {
	f := newFixture()

	ev := &models.Evaluation{CountryCode: "DE"}
	rev, err := f.svc.Submit(as("stu-1", auth.RoleStudent), ev, nil)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", ev.StudentID)
	assert.Equal(t, "stu-1", rev.Actor)

	_, err = f.svc.Submit(as("stu-1", auth.RoleStudent), &models.Evaluation{StudentID: "stu-2"}, nil)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.svc.Submit(as("ops", auth.RoleAdmin), &models.Evaluation{StudentID: "stu-2"}, nil)
	assert.NoError(t, err)
}

func TestTransition_PassesActor(t *testing.T) {
	f := newFixture()
	note := "looks fine"

	rev, err := f.svc.Transition(as("rita", auth.RoleEvaluator), "e1", models.StatusInReview, &note)
	require.NoError(t, err)
	assert.Equal(t, "rita", f.lifecycle.actor)
	assert.Equal(t, &note, rev.Note)
}

func TestIngest_Sync(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Ingest(as("rita", auth.RoleEvaluator), "d1", false)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, 1, f.ingestor.calls)
	assert.Empty(t, f.publisher.jobs)
	assert.Equal(t, 1, res.Document.ParsedData.PageCount)
}

func TestIngest_Async(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Ingest(as("rita", auth.RoleEvaluator), "d1", true)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Zero(t, f.ingestor.calls)
	require.Len(t, f.publisher.jobs, 1)
	assert.Equal(t, queue.Job{
		DocumentID:  "d1",
		RequestedBy: "rita",
		EnqueuedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, f.publisher.jobs[0])
}

func TestIngest_PublishError(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("channel closed")

	_, err := f.svc.Ingest(as("rita", auth.RoleEvaluator), "d1", true)
	assert.ErrorContains(t, err, "channel closed")
}

func TestIngest_EmptyID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest(as("rita", auth.RoleEvaluator), " ", false)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestReads(t *testing.T) {
	f := newFixture()
	ctx := as("stu", auth.RoleStudent)

	st, err := f.svc.CurrentStatus(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, st)

	events, err := f.svc.Timeline(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	r, err := f.svc.Rules(ctx, "DE")
	require.NoError(t, err)
	assert.Equal(t, "dual", r.EducationSystem)

	_, err = f.svc.Rules(ctx, "XX")
	assert.ErrorIs(t, err, rules.ErrUnknownCountry)

	history, err := f.svc.History(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.History(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestInvalidateRules(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.InvalidateRules(as("ops", auth.RoleAdmin), "DE"))
	assert.Equal(t, []string{"DE"}, f.resolver.invalidated)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{&lifecycle.TransitionError{From: models.StatusSubmitted, To: models.StatusCompleted}, KindPrecondition},
		{fmt.Errorf("%w: %w", lifecycle.ErrUnresolvedRules, rules.ErrUnknownCountry), KindPrecondition},
		{&lifecycle.IncompleteDocumentsError{DocumentIDs: []string{"d1"}}, KindPrecondition},
		{fmt.Errorf("transition e1: %w", common.ErrConcurrentTransition), KindConflict},
		{common.ErrorNotFound, KindNotFound},
		{rules.ErrUnknownCountry, KindNotFound},
		{ingest.ConversionFailed(1, context.DeadlineExceeded), KindPrecondition},
		{ingest.ErrStorageUnavailable, KindUnavailable},
		{ingest.ErrUnsupportedType, KindInvalid},
		{common.ErrTokenExpired, KindUnauthenticated},
		{common.ErrorForbidden, KindForbidden},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
