package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message, Code: code})
}

// statusFor maps a service error to its HTTP status and stable code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrAlreadyClaimed):
		return http.StatusConflict, workflow.ErrorCode(err)
	case errors.Is(err, workflow.ErrPermissionDenied):
		return http.StatusForbidden, workflow.ErrorCode(err)
	case errors.Is(err, workflow.ErrGuardNotSatisfied):
		return http.StatusUnprocessableEntity, workflow.ErrorCode(err)
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest, workflow.ErrorCode(err)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// fail writes the error envelope. Internal errors are logged and their text withheld.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status, code := statusFor(err)
	resp := Response{Success: false, Code: code, Error: err.Error()}

	var typed *workflow.Error
	if errors.As(err, &typed) {
		resp.Fields = typed.Fields
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err)
		resp.Error = "internal server error"
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, "validation_error", message)
}
