package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/application/service"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListRequest represents query parameters for list endpoints
type ListRequest struct {
	Status    string `form:"status"`
	OwnerID   string `form:"owner_id"`
	AccountID string `form:"account_id"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

func (r ListRequest) filter() port.ListFilter {
	if r.Limit <= 0 || r.Limit > 100 {
		r.Limit = 20
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	return port.ListFilter{
		Status:    workflow.State(r.Status),
		OwnerID:   r.OwnerID,
		AccountID: r.AccountID,
		Limit:     r.Limit,
		Offset:    r.Offset,
	}
}

// VersionRequest carries the expected lead version when If-Match is not sent
type VersionRequest struct {
	Version int64 `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respond(c, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

func (h *Handlers) bindList(c *gin.Context) (port.ListFilter, bool) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return port.ListFilter{}, false
	}
	return req.filter(), true
}

func (h *Handlers) bindTransition(c *gin.Context) (service.TransitionInput, bool) {
	var in service.TransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return in, false
	}
	if in.To == "" {
		abortFields(c, "target state is required", "to")
		return in, false
	}
	return in, true
}

// expectedVersion reads the lead version from If-Match, falling back to the body
func expectedVersion(c *gin.Context) (int64, bool) {
	if tag := c.GetHeader("If-Match"); tag != "" {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		v, err := strconv.ParseInt(strings.Trim(tag, `"`), 10, 64)
		if err != nil {
			badRequest(c, "If-Match must carry a lead version")
			return 0, false
		}
		return v, true
	}

	var req VersionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Version <= 0 {
		abortFields(c, "an If-Match header or a version is required", "version")
		return 0, false
	}
	return req.Version, true
}

// setETag exposes the ownership version. Status and field changes leave it as is.
func setETag(c *gin.Context, version int64) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

func abortFields(c *gin.Context, message string, fields ...string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
		Code:    "validation_error",
		Fields:  fields,
	})
}

// ListReasons handles GET /api/v1/reference/reasons
func (h *Handlers) ListReasons(c *gin.Context) {
	respond(c, http.StatusOK, workflow.ReasonTable())
}

// ListPermissions handles GET /api/v1/reference/permissions
func (h *Handlers) ListPermissions(c *gin.Context) {
	respond(c, http.StatusOK, permission.Table())
}

// MachineResponse describes one entity lifecycle
type MachineResponse struct {
	Kind     workflow.Kind       `json:"kind"`
	Initial  workflow.State      `json:"initial"`
	States   []workflow.State    `json:"states"`
	Terminal []workflow.State    `json:"terminal"`
	Edges    []workflow.EdgeInfo `json:"edges"`
}

// ListMachines handles GET /api/v1/reference/machines
func (h *Handlers) ListMachines(c *gin.Context) {
	machines := make([]MachineResponse, 0, len(workflow.Kinds()))
	for _, kind := range workflow.Kinds() {
		m := workflow.MustMachine(kind)
		resp := MachineResponse{
			Kind:     kind,
			Initial:  m.Initial(),
			States:   m.States(),
			Terminal: []workflow.State{},
			Edges:    m.Edges(),
		}
		for _, s := range resp.States {
			if m.IsTerminal(s) {
				resp.Terminal = append(resp.Terminal, s)
			}
		}
		machines = append(machines, resp)
	}
	respond(c, http.StatusOK, machines)
}
