package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "rid-1")
	h(c)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSuccessMergesData(t *testing.T) {
	w, body := run(t, func(c *gin.Context) {
		Success(c, http.StatusCreated, "created", gin.H{"userId": "u1", "status": "ignored"})
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, "rid-1", body["request_id"])
}

func TestErrorWithDetails(t *testing.T) {
	w, body := run(t, func(c *gin.Context) {
		Error(c, 0, "bad", map[string]string{"email": "is required"})
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, map[string]any{"email": "is required"}, body["errors"])
}

func TestAbortStopsChain(t *testing.T) {
	w, body := run(t, func(c *gin.Context) {
		Abort(c, http.StatusUnauthorized, "no")
		assert.True(t, c.IsAborted())
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, has := body["errors"]
	assert.False(t, has)
}
