package cli

import (
	"context"
	"os"

	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/dashboard"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"github.com/rileyhilliard/v2dash/internal/ui"
	"github.com/rileyhilliard/v2dash/internal/watch"
	"github.com/spf13/cobra"
)

// Flag variables for the long-running commands
var (
	watchCount int
	watchPlain bool
)

// dashboardCmd is the explicit form of running v2dash without a subcommand.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "ui"},
	Short:   "Full-screen operations dashboard",
	Long: `Open the full-screen dashboard.

Host CPU, memory and disk gauges refresh on refresh.metrics; the account
table refreshes on refresh.accounts. Press ? inside for the key list.

When stdout is not a terminal the plain watch output is printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}

// watchCmd prints the dashboard as plain text frames.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print gauges and accounts whenever they change",
	Long: `Poll the backend and print the gauges and the account table each time
either changes. Useful over a pipe, in tmux status panes, or for logging.

Examples:
  v2dash watch                 # redraw in place until interrupted
  v2dash watch --plain         # append frames instead of redrawing
  v2dash watch --count 1       # print one complete frame and exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchCount < 0 {
			return errors.New(errors.ErrInput,
				"--count can't be negative",
				"Use 0 to run until interrupted.")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runWatch(ctx, cmd, a, watchCount, watchPlain)
		})
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for v2dash.

Examples:
  # Bash
  v2dash completion bash > /etc/bash_completion.d/v2dash

  # Zsh
  v2dash completion zsh > "${fpath[1]}/_v2dash"

  # Fish
  v2dash completion fish > ~/.config/fish/completions/v2dash.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrInput,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "exit after this many frames (0 runs until interrupted)")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "append frames instead of redrawing the screen")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(completionCmd)
}

// runDashboard opens the TUI, or falls back to watch output when stdout
// is not a terminal.
func runDashboard(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if !ui.IsTerminal(os.Stdout) {
			a.log.Info("stdout is not a terminal, falling back to watch")
			return runWatch(ctx, cmd, a, 0, true)
		}

		a.serveMetrics(ctx)
		metricsEvery, accountsEvery := a.refreshIntervals()

		dispatcher := console.NewDispatcher(a.client, logger.With(a.log, "dispatch"))
		dispatcher.SetDefaultAlterID(a.cfg.Display.DefaultAlterID)

		a.log.Info("dashboard starting api=%s", a.cfg.API.URL)
		return dashboard.Run(ctx, dashboard.Options{
			Backend:          a.client,
			Engine:           a.newEngine(),
			Dispatcher:       dispatcher,
			MetricsInterval:  metricsEvery,
			AccountsInterval: accountsEvery,
			Logger:           logger.With(a.log, "dashboard"),
			BaseURL:          a.cfg.API.URL,
			Version:          formatVersion(version),
		})
	})
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, count int, plain bool) error {
	a.serveMetrics(ctx)
	metricsEvery, accountsEvery := a.refreshIntervals()
	return watch.Run(ctx, watch.Options{
		Source:           a.client,
		Engine:           a.newEngine(),
		Out:              cmd.OutOrStdout(),
		Logger:           logger.With(a.log, "watch"),
		MetricsInterval:  metricsEvery,
		AccountsInterval: accountsEvery,
		Count:            count,
		Plain:            plain,
	})
}

func (a *app) newEngine() *console.Engine {
	return console.NewEngine(
		console.WithEngineLogger(logger.With(a.log, "engine")),
		console.WithObserver(a.metrics),
		console.WithHighlightRatio(a.cfg.Display.HighlightRatio),
	)
}
