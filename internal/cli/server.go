package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Flag variables for server subcommands
var (
	healthOutput    OutputFlags
	containerOutput OutputFlags
	configJSON      bool
	applyConfirm    ConfirmFlags
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Inspect the backend and its V2Ray configuration",
	Long: `Inspect the backend and the V2Ray server it manages.

Examples:
  v2dash server health
  v2dash server container
  v2dash server config > v2ray.yaml
  v2dash server config apply v2ray.yaml`,
}

var serverHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backend is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runServerHealth(ctx, cmd.OutOrStdout(), a, healthOutput.JSON)
		})
	},
}

var serverContainerCmd = &cobra.Command{
	Use:   "container",
	Short: "Show the V2Ray container status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runServerContainer(ctx, cmd.OutOrStdout(), a, containerOutput.JSON)
		})
	},
}

var serverConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the V2Ray configuration",
	Long: `Print the V2Ray configuration the backend manages, as YAML by default.

--json prints the bare document, so the output can be edited and sent back
with 'v2dash server config apply'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runServerConfig(ctx, cmd.OutOrStdout(), a, configJSON)
		})
	},
}

var serverConfigApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Replace the V2Ray configuration with a YAML or JSON file",
	Long: `Replace the V2Ray configuration with the document in file. Files ending in
.json are read as JSON, anything else as YAML. The backend restarts V2Ray
with the new document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runServerConfigApply(ctx, cmd.OutOrStdout(), a, args[0], applyConfirm.Yes)
		})
	},
}

func init() {
	AddOutputFlags(serverHealthCmd, &healthOutput)
	AddOutputFlags(serverContainerCmd, &containerOutput)
	serverConfigCmd.Flags().BoolVar(&configJSON, "json", false, "print the document as JSON instead of YAML")
	AddConfirmFlags(serverConfigApplyCmd, &applyConfirm)

	serverConfigCmd.AddCommand(serverConfigApplyCmd)
	serverCmd.AddCommand(serverHealthCmd, serverContainerCmd, serverConfigCmd)
}

func runServerHealth(ctx context.Context, out io.Writer, a *app, asJSON bool) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	health, err := a.client.Health(reqCtx)
	if err != nil {
		return outputError(out, asJSON, apiError(err, "Backend health check failed"))
	}
	if asJSON {
		return WriteJSONSuccess(out, health)
	}

	status := health.Status
	if status == "" {
		status = "ok"
	}
	ui.PrintSuccess(out, fmt.Sprintf("%s is %s", a.cfg.API.URL, status))
	return nil
}

func runServerContainer(ctx context.Context, out io.Writer, a *app, asJSON bool) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	cs, err := a.client.ContainerStats(reqCtx)
	if err != nil {
		return outputError(out, asJSON, apiError(err, "Couldn't fetch container status"))
	}
	if cs.Error != "" {
		return outputError(out, asJSON, errors.New(errors.ErrAPI,
			"V2Ray container: "+cs.Error,
			"Check the container is running on the backend host."))
	}
	if asJSON {
		return WriteJSONSuccess(out, cs)
	}

	status := cs.Status
	if status == "" {
		status = "unknown"
	}
	statusStyle := ui.WarningStyle()
	if status == "running" {
		statusStyle = ui.InfoStyle()
	}
	fmt.Fprintf(out, "%s %s\n", ui.MutedStyle().Render("status"), statusStyle.Render(status))
	if used, limit, ok := cs.MemoryUsage(); ok {
		fmt.Fprintf(out, "%s %s / %s\n", ui.MutedStyle().Render("memory"), humanize.Bytes(used), humanize.Bytes(limit))
	}
	return nil
}

func runServerConfig(ctx context.Context, out io.Writer, a *app, asJSON bool) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	cfg, err := a.client.ServerConfig(reqCtx)
	if err != nil {
		return apiError(err, "Couldn't fetch the V2Ray config")
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]interface{}(cfg)); err != nil {
		return errors.Wrap(err, "Couldn't encode the V2Ray config as YAML")
	}
	return enc.Close()
}

func runServerConfigApply(ctx context.Context, out io.Writer, a *app, path string, yes bool) error {
	cfg, err := readServerConfig(path)
	if err != nil {
		return err
	}

	ok, err := confirmApply(path, cfg, yes)
	if err != nil {
		return err
	}
	if !ok {
		ui.PrintMuted(out, "Canceled.")
		return nil
	}

	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	stop := a.startSpinner("Applying " + filepath.Base(path))
	ack, err := a.client.UpdateServerConfig(reqCtx, cfg)
	stop(err == nil)
	if err != nil {
		return apiError(err, "Couldn't apply "+path)
	}
	msg := "V2Ray config updated"
	if ack != nil && ack.Message != "" {
		msg = ack.Message
	}
	ui.PrintSuccess(out, msg)
	return nil
}

func confirmApply(path string, cfg api.ServerConfig, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !canPrompt() {
		return false, errors.New(errors.ErrInput,
			"Confirmation required to replace the V2Ray config",
			"Pass --yes to skip the prompt when running without a terminal.")
	}
	return confirmPrompt(
		fmt.Sprintf("Replace the V2Ray config with %s?", filepath.Base(path)),
		"Top-level keys: "+strings.Join(configKeys(cfg), ", "))
}

// readServerConfig loads a config document, JSON by extension, YAML otherwise.
func readServerConfig(path string) (api.ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInput,
			"Couldn't read "+path,
			"Check the path is correct.")
	}

	var doc map[string]interface{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInput,
			path+" isn't a valid config document",
			"Fix the syntax, or export a fresh copy with 'v2dash server config'.")
	}
	if len(doc) == 0 {
		return nil, errors.New(errors.ErrInput,
			path+" is empty",
			"Refusing to replace the V2Ray config with an empty document.")
	}
	return api.ServerConfig(doc), nil
}

func configKeys(cfg api.ServerConfig) []string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
