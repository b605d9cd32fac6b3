package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/credeval/internal/api"
	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/models"
	"github.com/dmitrijs2005/credeval/internal/server/services"
	"github.com/gin-gonic/gin"
)

type handler struct {
	evaluations services.Evaluations
	logger      logging.Logger
}

var kindStatus = map[services.Kind]int{
	services.KindInvalid:         http.StatusBadRequest,
	services.KindNotFound:        http.StatusNotFound,
	services.KindPrecondition:    http.StatusUnprocessableEntity,
	services.KindConflict:        http.StatusConflict,
	services.KindUnavailable:     http.StatusServiceUnavailable,
	services.KindUnauthenticated: http.StatusUnauthorized,
	services.KindForbidden:       http.StatusForbidden,
	services.KindCanceled:        499,
	services.KindTimeout:         http.StatusGatewayTimeout,
}

func (h *handler) fail(c *gin.Context, err error) {
	if code, ok := kindStatus[services.Classify(err)]; ok {
		c.JSON(code, api.ErrorResponse{Error: err.Error()})
		return
	}
	h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
}

func (h *handler) submit(c *gin.Context) {
	var req api.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ev, docs := services.FromSubmitRequest(&req)
	rev, err := h.evaluations.Submit(c.Request.Context(), ev, docs)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := api.SubmitResponse{EvaluationID: ev.ID, Revision: services.RevisionView(rev)}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, services.DocumentView(d))
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) status(c *gin.Context) {
	st, err := h.evaluations.CurrentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluationId": c.Param("id"), "status": st.String(), "progress": st.Progress()})
}

func (h *handler) history(c *gin.Context) {
	history, err := h.evaluations.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := api.HistoryResponse{Revisions: services.RevisionViews(history)}
	if cur := models.Latest(history); cur != nil {
		resp.Current = cur.Status.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) timeline(c *gin.Context) {
	events, err := h.evaluations.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.TimelineResponse{Events: services.EventViews(events)})
}

func (h *handler) transition(c *gin.Context) {
	var req api.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	target, err := services.ParseTarget(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}

	rev, err := h.evaluations.Transition(c.Request.Context(), c.Param("id"), target, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, api.TransitionResponse{Revision: services.RevisionView(rev)})
}

func (h *handler) assign(c *gin.Context) {
	var req api.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	a, err := h.evaluations.Assign(c.Request.Context(), c.Param("id"), req.Evaluator)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, api.AssignResponse{Assignment: services.AssignmentView(a)})
}

// ingest runs synchronously unless ?async=true, in which case the job is
// queued and 202 is returned.
func (h *handler) ingest(c *gin.Context) {
	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))

	res, err := h.evaluations.Ingest(c.Request.Context(), c.Param("id"), async)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := api.IngestResponse{DocumentID: res.DocumentID, Queued: res.Queued}
	if res.Queued {
		c.JSON(http.StatusAccepted, resp)
		return
	}
	if res.Document != nil {
		d := services.DocumentView(res.Document)
		resp.Document = &d
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) rules(c *gin.Context) {
	r, err := h.evaluations.Rules(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.RulesResponse{Rules: services.RulesView(r)})
}

func (h *handler) invalidateRules(c *gin.Context) {
	if err := h.evaluations.InvalidateRules(c.Request.Context(), c.Param("code")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
