package watch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsBody = `{"cpu":{"percent":12.34},"memory":{"percent":50},"disk":{"percent":75}}`

func newServer(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.New(srv.URL, api.WithTimeout(2*time.Second))
}

func TestRun_PrintsFrame(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/stats/system":
			fmt.Fprint(w, statsBody)
		case "/api/users":
			fmt.Fprint(w, `[{"id":"a1","name":"alice","alter_id":64,"traffic_limit":100,"traffic_used":90}]`)
		default:
			http.NotFound(w, r)
		}
	})

	var out bytes.Buffer
	err := Run(context.Background(), Options{
		Source: client, Out: &out, Count: 1, Plain: true,
		MetricsInterval: time.Hour, AccountsInterval: time.Hour,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "NAME")
	assert.NotContains(t, text, clearScreen)
	assert.NotContains(t, text, console.LoadingMessage)
}

func TestRun_AccountFailurePlaceholder(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"detail":"Config file not found"}`)
			return
		}
		fmt.Fprint(w, statsBody)
	})

	var out bytes.Buffer
	err := Run(context.Background(), Options{
		Source: client, Out: &out, Count: 1,
		MetricsInterval: time.Hour, AccountsInterval: time.Hour,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), console.LoadErrorMessage)
	assert.Contains(t, out.String(), "Config file not found")
}

func TestRun_NewFrameOnlyWhenChanged(t *testing.T) {
	var listed atomic.Int64
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			n := listed.Add(1)
			// The first two fetches return the same data.
			used := 1
			if n > 2 {
				used = 2048
			}
			fmt.Fprintf(w, `[{"id":"a1","name":"alice","traffic_used":%d}]`, used)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	var out bytes.Buffer
	err := Run(context.Background(), Options{
		Source: client, Out: &out, Count: 2, Plain: true,
		MetricsInterval: time.Hour, AccountsInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "alice"))
	assert.Contains(t, text, "1 B")
	assert.Contains(t, text, "2.00 KB")
	assert.GreaterOrEqual(t, listed.Load(), int64(3))
}

func TestRun_StopsOnCancel(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := Run(ctx, Options{
		Source: client, Out: &out,
		MetricsInterval: 10 * time.Millisecond, AccountsInterval: 10 * time.Millisecond,
	})
	assert.NoError(t, err)
	// Failed account fetches still count as loaded and print a placeholder.
	assert.Contains(t, out.String(), console.LoadErrorMessage)
	assert.Equal(t, 1, strings.Count(out.String(), console.LoadErrorMessage), "unchanged frames are not reprinted")
}

func TestRun_RequiresSource(t *testing.T) {
	assert.Error(t, Run(context.Background(), Options{}))
}
