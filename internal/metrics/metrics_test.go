package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-twk/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.JobStarted()
		m.JobFinished("simulate", "completed", time.Second)
		m.Unit("ok")
		m.FormulaFailed()
		m.Payment("paid")
	})
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	require.NoError(t, m.Register())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ping", "204")))

	m.JobStarted()
	m.JobFinished("execute", "completed", 2*time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.JobsActive))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `twk_job_finished_total{kind="execute",status="completed"} 1`)
}
