// Package watch is the line-mode console: the same pollers as the
// dashboard, printed as plain frames. It is what runs when stdout is not a
// terminal.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"github.com/rileyhilliard/v2dash/internal/ui"
)

const clearScreen = "\033[H\033[2J"

// Options configures Run.
type Options struct {
	Source console.Source
	Engine *console.Engine // created when nil
	Out    io.Writer       // os.Stdout when nil
	Logger logger.Logger

	MetricsInterval  time.Duration
	AccountsInterval time.Duration

	// Count stops after this many frames. Zero runs until ctx is done.
	Count int

	// Plain prints frames one after another instead of redrawing the screen.
	Plain bool
}

// result is a finished fetch on its way back to the loop.
type result struct {
	poller   string
	seq      uint64
	stats    *api.SystemStats
	accounts []api.Account
	err      error
}

// Run polls until ctx is done or Count frames were printed. Fetches run on
// their own goroutines; only the loop goroutine touches the engine, so
// responses are applied one at a time in arrival order and the sequence
// guard drops stale ones.
func Run(ctx context.Context, opts Options) error {
	if opts.Source == nil {
		return fmt.Errorf("watch: no source")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	engine := opts.Engine
	if engine == nil {
		engine = console.NewEngine(console.WithEngineLogger(log))
	}
	metricsEvery := opts.MetricsInterval
	if metricsEvery <= 0 {
		metricsEvery = 5 * time.Second
	}
	accountsEvery := opts.AccountsInterval
	if accountsEvery <= 0 {
		accountsEvery = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result)
	send := func(r result) {
		select {
		case results <- r:
		case <-ctx.Done():
		}
	}

	pollMetrics := func() {
		seq, ok := engine.BeginMetrics()
		if !ok {
			return
		}
		go func() {
			stats, err := opts.Source.SystemStats(ctx)
			send(result{poller: console.PollerMetrics, seq: seq, stats: stats, err: err})
		}()
	}
	pollAccounts := func() {
		seq, ok := engine.BeginAccounts(false)
		if !ok {
			return
		}
		go func() {
			accounts, err := opts.Source.ListAccounts(ctx)
			send(result{poller: console.PollerAccounts, seq: seq, accounts: accounts, err: err})
		}()
	}

	metricsTicker := time.NewTicker(metricsEvery)
	defer metricsTicker.Stop()
	accountsTicker := time.NewTicker(accountsEvery)
	defer accountsTicker.Stop()

	pollMetrics()
	pollAccounts()

	redraw := !opts.Plain && ui.IsTerminal(out)
	barWidth := 10
	if ui.TerminalWidth(out, 120) < 120 {
		barWidth = 6
	}

	var last string
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-metricsTicker.C:
			pollMetrics()

		case <-accountsTicker.C:
			pollAccounts()

		case r := <-results:
			var applied bool
			if r.poller == console.PollerMetrics {
				applied = engine.ApplyMetrics(r.seq, r.stats, r.err)
			} else {
				applied = engine.ApplyAccounts(r.seq, r.accounts, r.err)
			}
			if !applied || !engine.Accounts().Loaded {
				continue
			}

			frame := Frame(engine, barWidth)
			if frame == last {
				continue
			}
			last = frame

			if redraw {
				frame = clearScreen + frame
			} else if frames > 0 {
				frame = "\n" + frame
			}
			if _, err := io.WriteString(out, frame); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			frames++
			if opts.Count > 0 && frames >= opts.Count {
				return nil
			}
		}
	}
}

// Frame renders the gauges and the account table.
func Frame(engine *console.Engine, barWidth int) string {
	var b strings.Builder
	b.WriteString(ui.RenderGaugeLine(engine.GaugeView(), barWidth))
	b.WriteString("\n\n")
	b.WriteString(ui.RenderAccountTable(engine.TableView(), -1))
	return b.String()
}
