// Package timeline derives a read-only, time-ordered view of everything
// that happened to an evaluation.
package timeline

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/server/ledger"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/repomanager"
)

type Kind string

const (
	KindRevision   Kind = "revision"
	KindIngestion  Kind = "ingestion"
	KindAssignment Kind = "assignment"
)

type Event struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	// Status is set for revision events only.
	Status      models.Status `json:"status,omitempty"`
	Date        time.Time     `json:"date"`
	User        string        `json:"user"`
	Description string        `json:"description,omitempty"`
	Note        *string       `json:"note,omitempty"`

	seq int64
}

type Projector struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      *ledger.Ledger
}

func NewProjector(db *sql.DB, m repomanager.RepositoryManager, l *ledger.Ledger) *Projector {
	return &Projector{db: db, repomanager: m, ledger: l}
}

// Project returns the evaluation's events ordered by date, ties broken by
// id, except that revisions sharing a date keep their ledger order. The sequence can be ranged over any number of times.
func (p *Projector) Project(ctx context.Context, evaluationID string) (iter.Seq[Event], error) {
	history, err := p.ledger.History(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	docs, err := p.repomanager.Documents(p.db).ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("timeline documents: %w", err)
	}
	assignments, err := p.repomanager.Assignments(p.db).ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("timeline assignments: %w", err)
	}

	return Build(history, docs, assignments), nil
}

// Build merges the three sources into one ordered sequence.
func Build(history []*models.Revision, docs []*models.Document, assignments []*models.Assignment) iter.Seq[Event] {
	events := make([]Event, 0, len(history)+len(docs)+len(assignments))

	for _, r := range history {
		events = append(events, Event{
			ID:     r.ID,
			Kind:   KindRevision,
			Status: r.Status,
			Date:   r.Timestamp,
			User:   r.Actor,
			Note:   r.Note,
			seq:    r.Seq,
		})
	}
	for _, d := range docs {
		if d.ParsedData == nil {
			continue
		}
		events = append(events, Event{
			ID:          d.ID,
			Kind:        KindIngestion,
			Date:        d.ParsedData.ParsedAt,
			User:        common.ActorSystem,
			Description: fmt.Sprintf("%s ingested (%d pages)", d.OriginalName, d.ParsedData.PageCount),
		})
	}
	for _, a := range assignments {
		events = append(events, Event{
			ID:          a.ID,
			Kind:        KindAssignment,
			Date:        a.AssignedAt,
			User:        a.AssignedBy,
			Description: "assigned to " + a.AssignedTo,
		})
	}

	slices.SortFunc(events, func(a, b Event) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	orderRevisionTies(events)

	return func(yield func(Event) bool) {
		for _, e := range events {
			if !yield(e) {
				return
			}
		}
	}
}

// orderRevisionTies reorders revisions sharing a date by ledger seq, keeping
// the slots they occupy. Clamped timestamps make such ties common.
func orderRevisionTies(events []Event) {
	for start := 0; start < len(events); {
		end := start + 1
		for end < len(events) && events[end].Date.Equal(events[start].Date) {
			end++
		}

		var slots []int
		var revs []Event
		for i := start; i < end; i++ {
			if events[i].Kind == KindRevision {
				slots = append(slots, i)
				revs = append(revs, events[i])
			}
		}
		if len(revs) > 1 {
			slices.SortStableFunc(revs, func(a, b Event) int { return cmp.Compare(a.seq, b.seq) })
			for j, i := range slots {
				events[i] = revs[j]
			}
		}
		start = end
	}
}

// Collect materializes a sequence.
func Collect(seq iter.Seq[Event]) []Event {
	return slices.Collect(seq)
}
