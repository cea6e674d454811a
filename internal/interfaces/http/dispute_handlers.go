package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/service"
)

// OpenDispute handles POST /api/v1/disputes
func (h *Handlers) OpenDispute(c *gin.Context) {
	var in service.OpenDisputeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	dispute, err := h.services.Disputes.OpenDispute(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, "open dispute", err)
		return
	}
	respond(c, http.StatusCreated, dispute)
}

// ListDisputes handles GET /api/v1/disputes
func (h *Handlers) ListDisputes(c *gin.Context) {
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	disputes, err := h.services.Disputes.ListDisputes(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list disputes", err)
		return
	}
	respond(c, http.StatusOK, disputes)
}

// GetDispute handles GET /api/v1/disputes/:id
func (h *Handlers) GetDispute(c *gin.Context) {
	dispute, err := h.services.Disputes.GetDispute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get dispute", err)
		return
	}
	respond(c, http.StatusOK, dispute)
}

// TransitionDispute handles POST /api/v1/disputes/:id/transitions
func (h *Handlers) TransitionDispute(c *gin.Context) {
	in, ok := h.bindTransition(c)
	if !ok {
		return
	}

	dispute, err := h.services.Disputes.TransitionDispute(c.Request.Context(), c.Param("id"), actorFrom(c), in)
	if err != nil {
		h.fail(c, "transition dispute", err)
		return
	}
	respond(c, http.StatusOK, dispute)
}
