package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// TargetsResponse lists the states the caller may move a lead to
type TargetsResponse struct {
	From    workflow.State   `json:"from"`
	Targets []workflow.State `json:"targets"`
}

// CreateLead handles POST /api/v1/leads
func (h *Handlers) CreateLead(c *gin.Context) {
	var fields entity.LeadFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	lead, err := h.services.Leads.CreateLead(c.Request.Context(), actorFrom(c), fields)
	if err != nil {
		h.fail(c, "create lead", err)
		return
	}
	setETag(c, lead.Version)
	respond(c, http.StatusCreated, lead)
}

// ListLeads handles GET /api/v1/leads
func (h *Handlers) ListLeads(c *gin.Context) {
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	leads, err := h.services.Leads.ListLeads(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list leads", err)
		return
	}
	respond(c, http.StatusOK, leads)
}

// GetLead handles GET /api/v1/leads/:id
func (h *Handlers) GetLead(c *gin.Context) {
	lead, err := h.services.Leads.GetLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get lead", err)
		return
	}
	setETag(c, lead.Version)
	respond(c, http.StatusOK, lead)
}

// UpdateLead handles PUT /api/v1/leads/:id
func (h *Handlers) UpdateLead(c *gin.Context) {
	var fields entity.LeadFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	lead, err := h.services.Leads.UpdateLead(c.Request.Context(), c.Param("id"), actorFrom(c), fields)
	if err != nil {
		h.fail(c, "update lead", err)
		return
	}
	setETag(c, lead.Version)
	respond(c, http.StatusOK, lead)
}

// LeadTargets handles GET /api/v1/leads/:id/transitions
func (h *Handlers) LeadTargets(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	lead, err := h.services.Leads.GetLead(ctx, id)
	if err != nil {
		h.fail(c, "get lead", err)
		return
	}
	targets, err := h.services.Leads.AvailableTargets(ctx, id, actorFrom(c).Role)
	if err != nil {
		h.fail(c, "lead targets", err)
		return
	}
	if targets == nil {
		targets = []workflow.State{}
	}
	respond(c, http.StatusOK, TargetsResponse{From: lead.Status, Targets: targets})
}

// TransitionLead handles POST /api/v1/leads/:id/transitions
func (h *Handlers) TransitionLead(c *gin.Context) {
	in, ok := h.bindTransition(c)
	if !ok {
		return
	}

	lead, err := h.services.Leads.TransitionLead(c.Request.Context(), c.Param("id"), actorFrom(c), in)
	if err != nil {
		h.fail(c, "transition lead", err)
		return
	}
	setETag(c, lead.Version)
	respond(c, http.StatusOK, lead)
}

// ClaimLead handles POST /api/v1/leads/:id/claim
func (h *Handlers) ClaimLead(c *gin.Context) {
	version, ok := expectedVersion(c)
	if !ok {
		return
	}

	lead, err := h.services.Leads.ClaimLead(c.Request.Context(), c.Param("id"), version, actorFrom(c))
	if err != nil {
		h.fail(c, "claim lead", err)
		return
	}
	setETag(c, lead.Version)
	respond(c, http.StatusOK, lead)
}

// ReleaseLead handles POST /api/v1/leads/:id/release
func (h *Handlers) ReleaseLead(c *gin.Context) {
	version, ok := expectedVersion(c)
	if !ok {
		return
	}

	lead, err := h.services.Leads.ReleaseLead(c.Request.Context(), c.Param("id"), version, actorFrom(c))
	if err != nil {
		h.fail(c, "release lead", err)
		return
	}
	setETag(c, lead.Version)
	respond(c, http.StatusOK, lead)
}
