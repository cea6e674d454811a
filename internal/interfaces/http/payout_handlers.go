package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/service"
)

// RequestPayout handles POST /api/v1/payouts
func (h *Handlers) RequestPayout(c *gin.Context) {
	var in service.RequestPayoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	payout, err := h.services.Payouts.RequestPayout(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, "request payout", err)
		return
	}
	respond(c, http.StatusCreated, payout)
}

// ListPayouts handles GET /api/v1/payouts
func (h *Handlers) ListPayouts(c *gin.Context) {
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	payouts, err := h.services.Payouts.ListPayouts(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list payouts", err)
		return
	}
	respond(c, http.StatusOK, payouts)
}

// GetPayout handles GET /api/v1/payouts/:id
func (h *Handlers) GetPayout(c *gin.Context) {
	payout, err := h.services.Payouts.GetPayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get payout", err)
		return
	}
	respond(c, http.StatusOK, payout)
}

// TransitionPayout handles POST /api/v1/payouts/:id/transitions
func (h *Handlers) TransitionPayout(c *gin.Context) {
	in, ok := h.bindTransition(c)
	if !ok {
		return
	}

	payout, err := h.services.Payouts.TransitionPayout(c.Request.Context(), c.Param("id"), actorFrom(c), in)
	if err != nil {
		h.fail(c, "transition payout", err)
		return
	}
	respond(c, http.StatusOK, payout)
}
