package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("list_accounts", "ok", 20*time.Millisecond)
	m.ObserveRequest("list_accounts", "ok", 30*time.Millisecond)
	m.ObserveRequest("delete_account", "error", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("list_accounts", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("delete_account", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.latency))
}

func TestPollerCounters(t *testing.T) {
	m := New()

	m.ResponseDiscarded("accounts")
	m.TickSkipped("metrics")
	m.TickSkipped("metrics")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.discarded.WithLabelValues("accounts")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues("metrics")))
}

func TestHandler_ExposesPrefixedNames(t *testing.T) {
	m := New()
	m.ObserveRequest("system_stats", "ok", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `v2dash_api_requests_total{op="system_stats",outcome="ok"} 1`)
	assert.Contains(t, string(body), "v2dash_api_request_duration_seconds_bucket")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr, logger.Noop()) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + addr + MetricsPath)
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_BadAddress(t *testing.T) {
	err := New().Serve(context.Background(), "256.0.0.1:bad", logger.Noop())
	assert.Error(t, err)
}
