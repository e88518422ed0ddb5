package console

import (
	"context"
	"time"

	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/logger"
)

// Poller names, used in logs and metrics labels.
const (
	PollerMetrics  = "metrics"
	PollerAccounts = "accounts"
)

// DefaultHighlightRatio is the used/limit ratio above which traffic is emphasized.
const DefaultHighlightRatio = 0.8

// Source is what the pollers read from. api.Client implements it.
type Source interface {
	SystemStats(ctx context.Context) (*api.SystemStats, error)
	ListAccounts(ctx context.Context) ([]api.Account, error)
}

// Backend is everything a front end needs from the gateway.
type Backend interface {
	Source
	Gateway
}

// Observer is told about poller bookkeeping. metrics.Metrics implements it.
type Observer interface {
	ResponseDiscarded(poller string)
	TickSkipped(poller string)
}

type nopObserver struct{}

func (nopObserver) ResponseDiscarded(string) {}
func (nopObserver) TickSkipped(string)       {}

// MetricsSnapshot is the latest applied system stats. Stats is nil until
// the first successful fetch; failures never clear it.
type MetricsSnapshot struct {
	Stats     *api.SystemStats
	UpdatedAt time.Time
	LastErr   error
}

// AccountsSnapshot is the outcome of the latest applied account fetch.
// Exactly one of Accounts and Err is meaningful once Loaded is true.
type AccountsSnapshot struct {
	Loaded    bool
	Accounts  []api.Account
	Err       error
	UpdatedAt time.Time
}

// Engine owns the poller state.
type Engine struct {
	log            logger.Logger
	observer       Observer
	now            func() time.Time
	highlightRatio float64

	metricsSeq  Sequence
	accountsSeq Sequence

	metrics  MetricsSnapshot
	accounts AccountsSnapshot
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger used for poll failures.
func WithEngineLogger(l logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithObserver sets the poller bookkeeping observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithHighlightRatio overrides DefaultHighlightRatio.
func WithHighlightRatio(r float64) EngineOption {
	return func(e *Engine) {
		if r > 0 {
			e.highlightRatio = r
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine with nothing loaded.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:            logger.Noop(),
		observer:       nopObserver{},
		now:            time.Now,
		highlightRatio: DefaultHighlightRatio,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BeginMetrics reserves a sequence number for a metrics fetch. It returns
// false, and the caller must not fetch, while an earlier one is pending.
func (e *Engine) BeginMetrics() (uint64, bool) {
	if e.metricsSeq.Pending() {
		e.observer.TickSkipped(PollerMetrics)
		e.log.Debug("metrics tick skipped, fetch %d still pending", e.metricsSeq.Issued())
		return 0, false
	}
	return e.metricsSeq.Issue(), true
}

// ApplyMetrics records the result of metrics fetch seq. A failure is
// logged and leaves the gauges as they were. Returns false when the
// response was stale and dropped.
func (e *Engine) ApplyMetrics(seq uint64, stats *api.SystemStats, err error) bool {
	if !e.metricsSeq.Accept(seq) {
		e.observer.ResponseDiscarded(PollerMetrics)
		e.log.Debug("discarded stale metrics response seq=%d applied=%d", seq, e.metricsSeq.Applied())
		return false
	}

	if err != nil || stats == nil {
		if err == nil {
			err = errEmptyResponse
		}
		e.metrics.LastErr = err
		e.log.Warn("error fetching system stats: %v", err)
		return true
	}

	e.metrics = MetricsSnapshot{Stats: stats, UpdatedAt: e.now()}
	return true
}

// BeginAccounts reserves a sequence number for an account fetch. Forced
// fetches always proceed; timer ticks are skipped while a fetch is pending.
func (e *Engine) BeginAccounts(forced bool) (uint64, bool) {
	if !forced && e.accountsSeq.Pending() {
		e.observer.TickSkipped(PollerAccounts)
		e.log.Debug("accounts tick skipped, fetch %d still pending", e.accountsSeq.Issued())
		return 0, false
	}
	seq := e.accountsSeq.Issue()
	if forced {
		e.log.Debug("forced accounts refresh seq=%d", seq)
	}
	return seq, true
}

// ApplyAccounts replaces the account snapshot with the result of fetch
// seq. Returns false when the response was stale and dropped.
func (e *Engine) ApplyAccounts(seq uint64, accounts []api.Account, err error) bool {
	if !e.accountsSeq.Accept(seq) {
		e.observer.ResponseDiscarded(PollerAccounts)
		e.log.Debug("discarded stale accounts response seq=%d applied=%d", seq, e.accountsSeq.Applied())
		return false
	}

	if err != nil {
		e.log.Warn("error loading accounts: %v", err)
		e.accounts = AccountsSnapshot{Loaded: true, Err: err, UpdatedAt: e.now()}
		return true
	}

	if accounts == nil {
		accounts = []api.Account{}
	}
	e.accounts = AccountsSnapshot{Loaded: true, Accounts: accounts, UpdatedAt: e.now()}
	return true
}

// Metrics returns the current metrics snapshot.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics
}

// Accounts returns the current account snapshot.
func (e *Engine) Accounts() AccountsSnapshot {
	return e.accounts
}

// HighlightRatio returns the configured highlight threshold.
func (e *Engine) HighlightRatio() float64 {
	return e.highlightRatio
}

// GaugeView renders the current metrics snapshot.
func (e *Engine) GaugeView() GaugeView {
	return RenderGauges(e.metrics)
}

// TableView renders the current account snapshot.
func (e *Engine) TableView() TableView {
	return RenderTable(e.accounts, e.highlightRatio)
}

// Account looks up an account in the current snapshot by id.
func (e *Engine) Account(id string) (api.Account, bool) {
	for _, a := range e.accounts.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return api.Account{}, false
}
