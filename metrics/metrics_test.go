package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveOperation("add", "ok", 20*time.Millisecond)
	c.ObserveOperation("add", "degraded", 5*time.Millisecond)
	c.ObserveOperation("add", "invalid", 0)
	c.SetProjectCount(4)
	c.RecordReadFallback(errors.New("timeout"))
	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordLogin(false)
	c.RecordHTTPStatus(http.StatusCreated)
	c.SetRemote(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("add", "degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("add", "invalid")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.projects))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.readFallback))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpStatus.WithLabelValues("201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.remote))
	assert.Equal(t, 1, testutil.CollectAndCount(c.opLatency))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.SetProjectCount(3)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "studio_projects 3")
}
