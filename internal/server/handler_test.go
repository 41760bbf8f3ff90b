package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okProbe(context.Context) error { return nil }

func TestRunChecks(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks []Check
		want   string
	}{
		{name: "no checks", want: StatusOK},
		{name: "all pass", checks: []Check{{Name: "a", Critical: true, Probe: okProbe}}, want: StatusOK},
		{name: "optional failure", checks: []Check{
			{Name: "client", Critical: true, Probe: okProbe},
			{Name: "redis", Probe: down},
		}, want: StatusDegraded},
		{name: "critical failure", checks: []Check{
			{Name: "client", Critical: true, Probe: down},
			{Name: "redis", Probe: down},
		}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := RunChecks(context.Background(), tt.checks, time.Second)
			assert.Equal(t, tt.want, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
		})
	}
}

func TestRunChecks_Timeout(t *testing.T) {
	slow := Check{Name: "slow", Critical: true, Probe: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	status := RunChecks(context.Background(), []Check{slow}, 10*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"])
}

func TestOpsHandler_Health(t *testing.T) {
	h := NewOpsHandler(HandlerOptions{
		Checks:  []Check{{Name: "redis", Probe: func(context.Context) error { return errors.New("down") }}},
		Details: func() any { return map[string]int64{"remaining": 42} },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Details map[string]int64  `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Equal(t, "down", body.Checks["redis"])
	assert.Equal(t, int64(42), body.Details["remaining"])
}

func TestOpsHandler_Unhealthy(t *testing.T) {
	h := NewOpsHandler(HandlerOptions{
		Checks: []Check{{Name: "client", Critical: true, Probe: func(context.Context) error { return errors.New("unavailable") }}},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpsHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "relay_test_total", Help: "test"}).Inc()

	h := NewOpsHandler(HandlerOptions{Gatherer: reg})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "relay_test_total 1"))
}

func TestOpsHandler_NoMetricsWithoutGatherer(t *testing.T) {
	h := NewOpsHandler(HandlerOptions{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpsHandler_RequestObserver(t *testing.T) {
	var got []string
	h := NewOpsHandler(HandlerOptions{
		RequestObserver: func(method, path string, status int, _ time.Duration) {
			got = append(got, method+" "+path+" "+http.StatusText(status))
		},
	})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, []string{"GET /health OK", "GET /missing Not Found"}, got)
}
