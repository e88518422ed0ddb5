package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/config"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"github.com/rileyhilliard/v2dash/internal/metrics"
	"github.com/rileyhilliard/v2dash/internal/tunnel"
	"github.com/rileyhilliard/v2dash/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile    string
	apiURLFlag string
	sshFlag    string
	timeoutRaw string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "v2dash",
	Short: "Operations console for a V2Ray user-management backend",
	Long: `v2dash watches a V2Ray user-management backend and manages its accounts.

Run without a subcommand to open the full-screen dashboard: host gauges up
top, the account table below, and keys for creating, deleting and resetting
accounts or showing an account's QR code.

Examples:
  v2dash                                  # dashboard against the configured backend
  v2dash --api-url http://10.0.0.5:8000   # point at another backend
  v2dash --ssh vpn-box                    # reach a backend bound to localhost over SSH
  v2dash users list
  v2dash users create --name alice --limit 50GiB`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .v2dash.yaml or ~/.config/v2dash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "backend base URL, overrides api.url")
	rootCmd.PersistentFlags().StringVar(&sshFlag, "ssh", "", "SSH host or alias to tunnel through, overrides api.ssh")
	rootCmd.PersistentFlags().StringVar(&timeoutRaw, "timeout", "", "request timeout (e.g., 5s, 1m), overrides api.timeout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if name := extractUnknownCommand(err); name != "" {
			if suggestion := closestMatch(name, commandNames(rootCmd)); suggestion != "" {
				fmt.Fprintf(os.Stderr, "\nDid you mean '%s'?\n", suggestion)
			}
		}
		fmt.Fprintln(os.Stderr, "Run 'v2dash --help' for usage.")
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, err.Error())
	if !strings.HasSuffix(err.Error(), "\n") {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(1)
}

// isUnknownCommandError reports whether cobra rejected the command line itself.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "v2dash"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func commandNames(cmd *cobra.Command) []string {
	var names []string
	for _, c := range cmd.Commands() {
		if c.Hidden {
			continue
		}
		names = append(names, c.Name())
		names = append(names, c.Aliases...)
	}
	return names
}

// closestMatch returns the candidate within edit distance 2 of s, or "".
// Ties go to the alphabetically first candidate.
func closestMatch(s string, candidates []string) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", 3
	lower := strings.ToLower(s)
	for _, c := range sorted {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// app is everything a command needs to talk to the backend.
type app struct {
	cfg     *config.Config
	cfgPath string
	log     logger.Logger
	metrics *metrics.Metrics
	client  *api.Client
	tunnel  *tunnel.Tunnel
	closers []io.Closer
	errOut  io.Writer
}

// newApp loads config, applies flag overrides and builds the client. The
// caller must Close it.
func newApp(component string) (*app, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	colorMode := cfg.Output.Color
	if noColor {
		colorMode = ui.ColorNever
	}
	ui.ApplyColorMode(colorMode, os.Stdout)

	a := &app{cfg: cfg, cfgPath: path, metrics: metrics.New()}

	logPath := cfg.Log.File
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	log, closer, err := logger.NewFile(logPath, cfg.Log.Level, component)
	if err != nil {
		// Logging is best effort; the console works without it.
		ui.PrintWarning(fmt.Sprintf("Logging disabled: %v", err))
		log = logger.Noop()
	} else {
		a.closers = append(a.closers, closer)
	}
	a.log = log
	logger.SetDefault(log)

	if path != "" {
		log.Debug("loaded config path=%s", path)
	}

	opts := []api.Option{
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger.With(log, "api")),
		api.WithRecorder(a.metrics),
	}
	if cfg.API.SSH != "" {
		a.tunnel = tunnel.New(tunnel.Options{
			Host:                  cfg.API.SSH,
			Timeout:               cfg.API.Timeout,
			StrictHostKeyChecking: cfg.API.StrictHostKeyChecking,
			Logger:                logger.With(log, "tunnel"),
		})
		a.closers = append(a.closers, a.tunnel)
		opts = append(opts, api.WithDialer(a.tunnel.DialContext))
		log.Info("tunneling api=%s via ssh=%s", cfg.API.URL, cfg.API.SSH)
	}
	a.client = api.New(cfg.API.URL, opts...)
	return a, nil
}

// applyOverrides layers the global flags over the loaded config.
func applyOverrides(cfg *config.Config) error {
	if apiURLFlag != "" {
		cfg.API.URL = strings.TrimRight(strings.TrimSpace(apiURLFlag), "/")
	}
	if sshFlag != "" {
		cfg.API.SSH = sshFlag
	}
	timeout, err := ParseTimeout(timeoutRaw)
	if err != nil {
		return err
	}
	if timeout > 0 {
		cfg.API.Timeout = timeout
	}
	return nil
}

// serveMetrics starts the prometheus endpoint when metrics.listen is set.
// It stops with ctx.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Listen == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.cfg.Metrics.Listen, a.log); err != nil {
			a.log.Error("metrics server: %v", err)
		}
	}()
}

// requestContext bounds a one-shot command. The client timeout still
// applies per request; this also covers the SSH handshake.
func (a *app) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.API.Timeout+tunnel.DefaultTimeout)
}

// Close releases the tunnel and the log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// withApp builds an app for the command, runs fn and closes the app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd.Name())
	if err != nil {
		return err
	}
	defer a.Close()
	a.errOut = cmd.ErrOrStderr()
	return fn(commandContext(cmd), a)
}

// startSpinner animates label on stderr until the returned stop is called
// with the result. Nothing is drawn when stderr is not a terminal.
func (a *app) startSpinner(label string) (stop func(ok bool)) {
	if a.errOut == nil || !ui.IsTerminal(a.errOut) {
		return func(bool) {}
	}
	s := ui.NewSpinner(label)
	s.SetOutput(a.errOut)
	s.Start()
	return func(ok bool) {
		if ok {
			s.Stop()
		} else {
			s.Fail()
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// apiError turns a gateway failure into a structured error with a hint.
func apiError(err error, what string) error {
	f, ok := api.AsFailure(err)
	if !ok {
		return errors.Wrap(err, what)
	}

	if f.IsNetwork() {
		suggestion := "Check the backend is running and --api-url (or api.url) points at it."
		var sshErr *errors.Error
		if stderrors.As(f.Cause, &sshErr) && sshErr.Code == errors.ErrSSH {
			return sshErr
		}
		if isTimeout(f.Cause) {
			suggestion = "The backend didn't answer in time. Raise --timeout or check the network."
		}
		return errors.WrapWithCode(f.Cause, errors.ErrNetwork, what+": backend unreachable", suggestion)
	}

	msg := what
	if f.HasDetail() {
		msg += ": " + f.Detail
	} else {
		msg += fmt.Sprintf(": %d %s", f.Status, f.Message())
	}
	var suggestion string
	switch f.Status {
	case 404:
		suggestion = "Check the id with 'v2dash users list'."
	case 401, 403:
		suggestion = "The backend refused the request. Check its access settings."
	case 500, 502, 503, 504:
		suggestion = "The backend failed. Its own logs should say why."
	}
	return errors.WrapWithCode(err, errors.ErrAPI, msg, suggestion)
}

func isTimeout(err error) bool {
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

// refreshIntervals returns the configured poll intervals.
func (a *app) refreshIntervals() (metrics, accounts time.Duration) {
	return a.cfg.Refresh.Metrics, a.cfg.Refresh.Accounts
}
