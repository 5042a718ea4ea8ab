package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

func run(t *testing.T, err error) (int, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	Error(c, err)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorMapsAppErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.ErrEscrowNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperror.InvalidState("escrow", "disputed", "release"), http.StatusConflict, "INVALID_STATE"},
		{apperror.Validation("amount must be positive"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperror.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{apperror.Upstream(errors.New("dial tcp"), "payment provider unavailable"), http.StatusBadGateway, "UPSTREAM_FAILURE"},
	}
	for _, tt := range tests {
		status, body := run(t, tt.err)
		assert.Equal(t, tt.status, status)
		assert.False(t, body.Success)
		assert.Equal(t, tt.code, body.Error.Code)
	}
}

func TestErrorMasksInternalDetail(t *testing.T) {
	status, body := run(t, errors.New("pq: password authentication failed for user postgres"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)

	_, body = run(t, apperror.Wrap(errors.New("tx aborted"), apperror.ErrCodeDatabaseError, "failed to update escrow"))
	assert.Equal(t, "internal server error", body.Error.Message)
}
