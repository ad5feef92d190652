package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideCallCountsByResult(t *testing.T) {
	okBefore := testutil.ToFloat64(sideCalls.WithLabelValues("test_call", "ok"))
	errBefore := testutil.ToFloat64(sideCalls.WithLabelValues("test_call", "error"))

	SideCall("test_call", nil, time.Millisecond)
	SideCall("test_call", errors.New("boom"), time.Millisecond)
	SideCall("test_call", errors.New("boom"), time.Millisecond)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(sideCalls.WithLabelValues("test_call", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(sideCalls.WithLabelValues("test_call", "error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `claims_portal_http_requests_total{method="GET",route="/api/health",status="204"}`))
}
