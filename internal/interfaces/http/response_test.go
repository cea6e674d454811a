package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

type nopLogger struct{ errors int }

func (l *nopLogger) Info(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Error(msg string, keysAndValues ...interface{}) {
	l.errors++
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("get lead: %w", port.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid transition", &workflow.Error{Code: workflow.ErrInvalidTransition}, http.StatusConflict, "invalid_transition"},
		{"already claimed", &workflow.Error{Code: workflow.ErrAlreadyClaimed}, http.StatusConflict, "already_claimed"},
		{"permission denied", &workflow.Error{Code: workflow.ErrPermissionDenied}, http.StatusForbidden, "permission_denied"},
		{"guard", &workflow.Error{Code: workflow.ErrGuardNotSatisfied}, http.StatusUnprocessableEntity, "guard_not_satisfied"},
		{"validation", &workflow.Error{Code: workflow.ErrValidation}, http.StatusBadRequest, "validation_error"},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(err error) (*httptest.ResponseRecorder, Response, *nopLogger) {
		logger := &nopLogger{}
		h := NewHandlers(Services{}, logger)
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		h.fail(c, "test op", err)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return rec, resp, logger
	}

	rec, resp, logger := run(errors.New("constraint failed: secret table name"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, 1, logger.errors)

	rec, resp, logger = run(&workflow.Error{
		Code:    workflow.ErrValidation,
		Kind:    workflow.KindLead,
		Message: "missing required fields",
		Fields:  []string{"contact_email"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, []string{"contact_email"}, resp.Fields)
	assert.Contains(t, resp.Error, "missing required fields")
	assert.Zero(t, logger.errors)
}
