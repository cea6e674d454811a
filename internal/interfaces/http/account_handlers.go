package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/service"
	"github.com/garyjia/coselection/internal/domain/entity"
)

// VerificationRequest is the body of PUT /accounts/:id/verification
type VerificationRequest struct {
	Status entity.VerificationStatus `json:"status"`
}

// RegisterAccount handles POST /api/v1/accounts
func (h *Handlers) RegisterAccount(c *gin.Context) {
	var in service.RegisterAccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	account, err := h.services.Accounts.RegisterAccount(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, "register account", err)
		return
	}
	respond(c, http.StatusCreated, account)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *Handlers) GetAccount(c *gin.Context) {
	account, err := h.services.Accounts.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get account", err)
		return
	}
	respond(c, http.StatusOK, account)
}

// SetVerification handles PUT /api/v1/accounts/:id/verification
func (h *Handlers) SetVerification(c *gin.Context) {
	var req VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	account, err := h.services.Accounts.SetVerification(c.Request.Context(), c.Param("id"), actorFrom(c), req.Status)
	if err != nil {
		h.fail(c, "set verification", err)
		return
	}
	respond(c, http.StatusOK, account)
}
