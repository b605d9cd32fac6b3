package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/assignments"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/documents"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/evaluations"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/revisions"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
)

// store is an in-memory stand-in for the database shared by all fakes.
// Like the real table, revisions reject a duplicate (evaluation, seq).
type store struct {
	mu          sync.Mutex
	evaluations map[string]*models.Evaluation
	revisions   []*models.Revision
	documents   []*models.Document
	assignments []*models.Assignment
	progress    map[string]int
	updateErr   error
}

func newStore() *store {
	return &store{evaluations: map[string]*models.Evaluation{}, progress: map[string]int{}}
}

type fakeEvaluations struct {
	evaluations.Repository
	s *store
}

func (f *fakeEvaluations) Create(ctx context.Context, e *models.Evaluation) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.evaluations[e.ID]; ok {
		return common.ErrorAlreadyExists
	}
	cp := *e
	f.s.evaluations[e.ID] = &cp
	return nil
}

func (f *fakeEvaluations) GetForUpdate(ctx context.Context, id string) (*models.Evaluation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	e, ok := f.s.evaluations[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvaluations) UpdateProgress(ctx context.Context, id string, progress int, closedAt *time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.updateErr != nil {
		return f.s.updateErr
	}
	f.s.progress[id] = progress
	e := f.s.evaluations[id]
	e.Progress = &progress
	if e.ClosedAt == nil {
		e.ClosedAt = closedAt
	}
	return nil
}

func (f *fakeEvaluations) UpdateAssignee(ctx context.Context, id string, assignedTo string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.evaluations[id].AssignedTo = assignedTo
	return nil
}

type fakeRevisions struct {
	revisions.Repository
	s *store
}

func (f *fakeRevisions) Append(ctx context.Context, r *models.Revision) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, x := range f.s.revisions {
		if x.EvaluationID == r.EvaluationID && x.Seq == r.Seq {
			return common.ErrConcurrentTransition
		}
	}
	f.s.revisions = append(f.s.revisions, r)
	return nil
}

func (f *fakeRevisions) Last(ctx context.Context, id string) (*models.Revision, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var mine []*models.Revision
	for _, r := range f.s.revisions {
		if r.EvaluationID == id {
			mine = append(mine, r)
		}
	}
	if cur := models.Latest(mine); cur != nil {
		return cur, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRevisions) List(ctx context.Context, id string) ([]*models.Revision, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var mine []*models.Revision
	for _, r := range f.s.revisions {
		if r.EvaluationID == id {
			mine = append(mine, r)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Seq < mine[j].Seq })
	return mine, nil
}

type fakeDocuments struct {
	documents.Repository
	s   *store
	err error
}

func (f *fakeDocuments) ListByEvaluation(ctx context.Context, id string) ([]*models.Document, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Document
	for _, d := range f.s.documents {
		if d.EvaluationRequestID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) Create(ctx context.Context, d *models.Document) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.documents = append(f.s.documents, d)
	return nil
}

type fakeAssignments struct {
	assignments.Repository
	s *store
}

func (f *fakeAssignments) Create(ctx context.Context, a *models.Assignment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.assignments = append(f.s.assignments, a)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	s    *store
	docs *fakeDocuments
}

func newRepoManager(s *store) *fakeRepoManager {
	return &fakeRepoManager{s: s, docs: &fakeDocuments{s: s}}
}

func (m *fakeRepoManager) Evaluations(dbx.DBTX) evaluations.Repository { return &fakeEvaluations{s: m.s} }
func (m *fakeRepoManager) Revisions(dbx.DBTX) revisions.Repository     { return &fakeRevisions{s: m.s} }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository     { return m.docs }
func (m *fakeRepoManager) Assignments(dbx.DBTX) assignments.Repository { return &fakeAssignments{s: m.s} }

type fakeResolver struct {
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, code string) (rules.ParsedRules, error) {
	f.calls++
	if f.err != nil {
		return rules.ParsedRules{}, f.err
	}
	return rules.ParsedRules{CountryCode: code}, nil
}

// seed stores an evaluation whose current status is status, with one
// ingested document.
func (s *store) seed(id string, status models.Status, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations[id] = &models.Evaluation{ID: id, StudentID: "s-" + id, CountryCode: "DE", SubmittedAt: at}
	s.revisions = append(s.revisions, &models.Revision{
		ID: fmt.Sprintf("%s-r1", id), EvaluationID: id, Seq: 1, Status: status, Actor: "seed", Timestamp: at,
	})
	s.documents = append(s.documents, &models.Document{
		ID: id + "-d1", EvaluationRequestID: id, ParsedData: &models.ParsedData{Content: "transcript"},
	})
}
