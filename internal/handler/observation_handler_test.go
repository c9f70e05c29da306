package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
	"github.com/sped-tools/iep-progress-api/pkg/response"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestObservationHandlerRejectIsImmutable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewObservationHandler(nil, nil)

	c, w := newGinContext(http.MethodPut, "/observations/obs-1", []byte(`{"progress_value":"90"}`))
	c.Params = gin.Params{{Key: "id", Value: "obs-1"}}

	handler.Reject(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrImmutable.Code, envelope.Error.Code)
}

func TestMetricsHandlerHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil)

	c, w := newGinContext(http.MethodGet, "/health", nil)
	handler.Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
