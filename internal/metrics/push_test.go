package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush(t *testing.T) {
	var (
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_runs_total", Help: "runs"})
	reg.MustRegister(runs)
	runs.Inc()

	require.NoError(t, Push(context.Background(), srv.URL, reg))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/"+PushJob, path)
	assert.True(t, strings.Contains(body, "test_runs_total"), "pushed body should carry the counter")
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Push(context.Background(), srv.URL, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}
