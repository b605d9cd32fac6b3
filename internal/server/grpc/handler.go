package grpc

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/api"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/services"
)

type handler struct {
	evaluations services.Evaluations
	logger      logging.Logger
}

func (h *handler) Submit(ctx context.Context, req *api.SubmitRequest) (*api.SubmitResponse, error) {
	ev, docs := services.FromSubmitRequest(req)
	rev, err := h.evaluations.Submit(ctx, ev, docs)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Submit", err)
	}

	resp := &api.SubmitResponse{EvaluationID: ev.ID, Revision: services.RevisionView(rev)}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, services.DocumentView(d))
	}
	return resp, nil
}

func (h *handler) Transition(ctx context.Context, req *api.TransitionRequest) (*api.TransitionResponse, error) {
	target, err := services.ParseTarget(req.Status)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Transition", err)
	}
	rev, err := h.evaluations.Transition(ctx, req.EvaluationID, target, req.Note)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Transition", err)
	}
	return &api.TransitionResponse{Revision: services.RevisionView(rev)}, nil
}

func (h *handler) Assign(ctx context.Context, req *api.AssignRequest) (*api.AssignResponse, error) {
	a, err := h.evaluations.Assign(ctx, req.EvaluationID, req.Evaluator)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Assign", err)
	}
	return &api.AssignResponse{Assignment: services.AssignmentView(a)}, nil
}

func (h *handler) History(ctx context.Context, req *api.HistoryRequest) (*api.HistoryResponse, error) {
	history, err := h.evaluations.History(ctx, req.EvaluationID)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "History", err)
	}
	resp := &api.HistoryResponse{Revisions: services.RevisionViews(history)}
	if cur := models.Latest(history); cur != nil {
		resp.Current = cur.Status.String()
	}
	return resp, nil
}

func (h *handler) Timeline(ctx context.Context, req *api.TimelineRequest) (*api.TimelineResponse, error) {
	events, err := h.evaluations.Timeline(ctx, req.EvaluationID)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Timeline", err)
	}
	return &api.TimelineResponse{Events: services.EventViews(events)}, nil
}

func (h *handler) Ingest(ctx context.Context, req *api.IngestRequest) (*api.IngestResponse, error) {
	res, err := h.evaluations.Ingest(ctx, req.DocumentID, req.Async)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Ingest", err)
	}
	resp := &api.IngestResponse{DocumentID: res.DocumentID, Queued: res.Queued}
	if res.Document != nil {
		d := services.DocumentView(res.Document)
		resp.Document = &d
	}
	return resp, nil
}

func (h *handler) Rules(ctx context.Context, req *api.RulesRequest) (*api.RulesResponse, error) {
	r, err := h.evaluations.Rules(ctx, req.CountryCode)
	if err != nil {
		return nil, toStatus(ctx, h.logger, "Rules", err)
	}
	return &api.RulesResponse{Rules: services.RulesView(r)}, nil
}

func (h *handler) InvalidateRules(ctx context.Context, req *api.InvalidateRulesRequest) (*api.Empty, error) {
	if err := h.evaluations.InvalidateRules(ctx, req.CountryCode); err != nil {
		return nil, toStatus(ctx, h.logger, "InvalidateRules", err)
	}
	return &api.Empty{}, nil
}
