package services

import (
	"fmt"

	"github.com/dmitrijs2005/credeval/internal/api"
	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/rules"
	"github.com/dmitrijs2005/credeval/internal/server/timeline"
)

// Conversions between stored records and the wire messages shared by the
// gRPC and HTTP layers.

func RevisionView(r *models.Revision) api.Revision {
	return api.Revision{
		ID:           r.ID,
		EvaluationID: r.EvaluationID,
		Seq:          r.Seq,
		Status:       r.Status.String(),
		Actor:        r.Actor,
		Timestamp:    r.Timestamp,
		Note:         r.Note,
	}
}

func RevisionViews(history []*models.Revision) []api.Revision {
	out := make([]api.Revision, 0, len(history))
	for _, r := range history {
		out = append(out, RevisionView(r))
	}
	return out
}

func AssignmentView(a *models.Assignment) api.Assignment {
	return api.Assignment{
		ID:           a.ID,
		EvaluationID: a.EvaluationID,
		AssignedTo:   a.AssignedTo,
		AssignedBy:   a.AssignedBy,
		AssignedAt:   a.AssignedAt,
	}
}

func DocumentView(d *models.Document) api.Document {
	v := api.Document{
		ID:           d.ID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		Path:         d.Path,
		Type:         d.Type,
		Mimetype:     d.Mimetype,
		Size:         d.Size,
		Ingested:     d.Ingested(),
	}
	if pd := d.ParsedData; pd != nil {
		parsedAt := pd.ParsedAt
		v.PageCount = pd.PageCount
		v.Checksum = pd.Checksum
		v.ParsedAt = &parsedAt
	}
	return v
}

func EventViews(events []timeline.Event) []api.Event {
	out := make([]api.Event, 0, len(events))
	for _, e := range events {
		v := api.Event{
			ID:          e.ID,
			Kind:        string(e.Kind),
			Date:        e.Date,
			User:        e.User,
			Description: e.Description,
			Note:        e.Note,
		}
		if e.Kind == timeline.KindRevision {
			v.Status = e.Status.String()
		}
		out = append(out, v)
	}
	return out
}

func RulesView(r rules.ParsedRules) api.Rules {
	v := api.Rules{
		CountryCode:     r.CountryCode,
		EducationSystem: r.EducationSystem,
	}
	if gs := r.GradingScale; gs != nil {
		v.GradingScale = api.GradingScale{
			Min:         gs.Min,
			Max:         gs.Max,
			Passing:     gs.Passing,
			Descending:  gs.Descending,
			Description: gs.Description,
		}
	}
	for _, e := range r.DegreeEquivalence {
		v.DegreeEquivalence = append(v.DegreeEquivalence, api.Equivalence{Local: e.Local, Equivalent: e.Equivalent})
	}
	return v
}

// FromSubmitRequest builds the records Submit stores.
func FromSubmitRequest(req *api.SubmitRequest) (*models.Evaluation, []*models.Document) {
	ev := &models.Evaluation{
		StudentID:               req.StudentID,
		CountryCode:             req.CountryCode,
		EvaluationType:          req.EvaluationType,
		Institution:             req.Institution,
		Program:                 req.Program,
		AssignedTo:              req.AssignedTo,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
		Notes:                   req.Notes,
	}
	docs := make([]*models.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, &models.Document{
			Filename:     d.Filename,
			OriginalName: d.OriginalName,
			Path:         d.Path,
			Type:         d.Type,
			Mimetype:     d.Mimetype,
			Size:         d.Size,
		})
	}
	return ev, docs
}

// ParseTarget reads a status name from a request.
func ParseTarget(name string) (models.Status, error) {
	s, err := models.ParseStatus(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}
	return s, nil
}
