package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/infrastructure/http/v1/middleware"
)

func newEngine(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Trace(), middleware.ErrorHandler(), middleware.Recovery())
	r.GET("/x", h)
	return r
}

func serve(r *gin.Engine, headers map[string]string) (*httptest.ResponseRecorder, middleware.ErrorResponse) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body middleware.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(apperror.NewInsufficientStock("p-1", 5, 2))
	})

	w, body := serve(r, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, body.Code)
	assert.Equal(t, apperror.KindIntegrity, body.Kind)
	assert.EqualValues(t, 5, body.Details["requested"])
	assert.EqualValues(t, 2, body.Details["available"])
}

func TestErrorHandler_HidesInternalCauses(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection refused to 10.0.0.5"))
	})

	w, body := serve(r, map[string]string{middleware.HeaderRequestID: "req-7"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, "req-7", body.Details["request_id"])
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestRecovery_TurnsPanicInto500(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		panic("boom")
	})

	w, body := serve(r, nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderTraceID))
}

func TestTrace_EchoesIncomingIDs(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("trace_id"))
	})

	w, _ := serve(r, map[string]string{middleware.HeaderTraceID: "trace-1", middleware.HeaderRequestID: "req-1"})

	assert.Equal(t, "trace-1", w.Body.String())
	assert.Equal(t, "trace-1", w.Header().Get(middleware.HeaderTraceID))
	assert.Equal(t, "req-1", w.Header().Get(middleware.HeaderRequestID))
}
