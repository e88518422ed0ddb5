package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/ui"
	"github.com/spf13/cobra"
)

var statsOutput OutputFlags

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show host CPU, memory and disk usage once",
	Long: `Fetch the backend host's resource usage once and print it.

Examples:
  v2dash stats
  v2dash stats --json | jq .data.cpu.percent`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runStats(ctx, cmd.OutOrStdout(), a, statsOutput.JSON)
		})
	},
}

func init() {
	AddOutputFlags(statsCmd, &statsOutput)
}

func runStats(ctx context.Context, out io.Writer, a *app, asJSON bool) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	stats, err := a.client.SystemStats(reqCtx)
	if err != nil {
		return outputError(out, asJSON, apiError(err, "Couldn't fetch system stats"))
	}
	if asJSON {
		return WriteJSONSuccess(out, stats)
	}

	view := console.RenderGauges(console.MetricsSnapshot{Stats: stats, UpdatedAt: time.Now()})
	fmt.Fprint(out, ui.RenderHeader(ui.HeaderInfo{Version: formatVersion(version), Backend: a.cfg.API.URL}))
	fmt.Fprintln(out, ui.RenderGaugeLine(view, 10))

	var rows [][]string
	for _, g := range view.All() {
		if g.Detail != "" {
			rows = append(rows, []string{g.Label, g.Text, g.Detail})
		}
	}
	if table := ui.RenderSimpleTable(statsColumns, rows); table != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, table)
	}
	return nil
}

var statsColumns = []ui.TableColumn{
	{Title: "RESOURCE", Width: 9},
	{Title: "USAGE", Width: 8},
	{Title: "DETAIL", Width: 40},
}
