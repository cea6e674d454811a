package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/service"
	"github.com/garyjia/coselection/internal/domain/permission"
)

// RecordTransaction handles POST /api/v1/transactions
func (h *Handlers) RecordTransaction(c *gin.Context) {
	var in service.RecordTransactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	txn, err := h.services.Earnings.RecordTransaction(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, "record transaction", err)
		return
	}
	respond(c, http.StatusCreated, txn)
}

// ListTransactions handles GET /api/v1/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	filter, ok := h.bindList(c)
	if !ok {
		return
	}
	txns, err := h.services.Earnings.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list transactions", err)
		return
	}
	respond(c, http.StatusOK, txns)
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *Handlers) GetTransaction(c *gin.Context) {
	txn, err := h.services.Earnings.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get transaction", err)
		return
	}
	respond(c, http.StatusOK, txn)
}

// TransitionTransaction handles POST /api/v1/transactions/:id/transitions
func (h *Handlers) TransitionTransaction(c *gin.Context) {
	in, ok := h.bindTransition(c)
	if !ok {
		return
	}

	out, err := h.services.Earnings.TransitionTransaction(c.Request.Context(), c.Param("id"), actorFrom(c), in)
	if err != nil {
		h.fail(c, "transition transaction", err)
		return
	}
	status := http.StatusOK
	if out.Adjustment != nil {
		status = http.StatusCreated
	}
	respond(c, status, out)
}

// RunSweep handles POST /api/v1/transactions/sweep. Only System may trigger it.
func (h *Handlers) RunSweep(c *gin.Context) {
	if !permission.IsAllowed(actorFrom(c).Role, permission.ActionTransactionRelease) {
		abort(c, http.StatusForbidden, "permission_denied", permission.DenialReason(permission.ActionTransactionRelease))
		return
	}
	if h.services.Sweeper == nil {
		abort(c, http.StatusServiceUnavailable, "unavailable", "sweeper is not configured")
		return
	}

	summary, err := h.services.Sweeper.RunOnce(c.Request.Context())
	if err != nil {
		h.fail(c, "run sweep", err)
		return
	}
	respond(c, http.StatusOK, summary)
}
