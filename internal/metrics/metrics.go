// Package metrics exposes client-side prometheus instrumentation: request
// counts and latency per gateway operation, plus poller bookkeeping
// (stale responses dropped, ticks skipped while a fetch was pending).
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rileyhilliard/v2dash/internal/logger"
)

// Namespace prefixes every metric name.
const Namespace = "v2dash_"

// MetricsPath is where Serve exposes the registry.
const MetricsPath = "/metrics"

// Metrics owns a private registry so tests and multiple clients never
// collide on the global one.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	discarded *prometheus.CounterVec
	skipped   *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	reg := prometheus.WrapRegistererWithPrefix(Namespace, registry)

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Backend API requests by operation and outcome",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Backend API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_stale_responses_total",
			Help: "Poll responses dropped because a newer request had already been applied",
		}, []string{"poller"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_skipped_ticks_total",
			Help: "Timer ticks that issued no request because a fetch was still pending",
		}, []string{"poller"}),
	}

	reg.MustRegister(m.requests, m.latency, m.discarded, m.skipped)
	return m
}

// ObserveRequest implements api.Recorder.
func (m *Metrics) ObserveRequest(op, outcome string, d time.Duration) {
	m.requests.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(d.Seconds())
}

// ResponseDiscarded counts a stale poll response.
func (m *Metrics) ResponseDiscarded(poller string) {
	m.discarded.WithLabelValues(poller).Inc()
}

// TickSkipped counts a tick that found a fetch still in flight.
func (m *Metrics) TickSkipped(poller string) {
	m.skipped.WithLabelValues(poller).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting metrics server listen=%s path=%s", addr, MetricsPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
