package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/dashboard"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"github.com/rileyhilliard/v2dash/internal/ui"
	"github.com/spf13/cobra"
)

// Flag variables for users subcommands
var (
	usersListOutput OutputFlags

	createName    string
	createAlterID string
	createLimit   string
	createOutput  OutputFlags

	deleteConfirm ConfirmFlags
	resetConfirm  ConfirmFlags

	qrOutputFile string
	qrDataURI    bool
)

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user", "accounts"},
	Short:   "List and manage proxy accounts",
	Long: `List and manage the proxy accounts on the backend.

Accounts are addressed by id or by exact name.

Examples:
  v2dash users list
  v2dash users create --name alice --alter-id 64 --limit 50GiB
  v2dash users reset alice
  v2dash users delete alice --yes
  v2dash users qr alice -o alice.png`,
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts with their traffic counters",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runUsersList(ctx, cmd.OutOrStdout(), a, usersListOutput.JSON)
		})
	},
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long: `Create an account. The alter id defaults to display.default_alter_id and
the traffic limit to 0 (unlimited). The limit takes a byte count or a size
such as 500MB or 50GiB.

Without --name on a terminal, a form asks for the fields.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runUsersCreate(ctx, cmd.OutOrStdout(), a)
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:     "delete <id|name>",
	Aliases: []string{"rm"},
	Short:   "Delete an account",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runConfirmedAction(ctx, cmd.OutOrStdout(), a, console.ActionDelete, args[0], deleteConfirm.Yes)
		})
	},
}

var usersResetCmd = &cobra.Command{
	Use:   "reset <id|name>",
	Short: "Reset an account's traffic counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runConfirmedAction(ctx, cmd.OutOrStdout(), a, console.ActionResetStats, args[0], resetConfirm.Yes)
		})
	},
}

var usersQRCmd = &cobra.Command{
	Use:   "qr <id|name>",
	Short: "Show an account's share QR code",
	Long: `Fetch the account's share QR code and draw it in the terminal.

Examples:
  v2dash users qr alice             # draw it here
  v2dash users qr alice -o a.png    # save the PNG
  v2dash users qr alice --data-uri  # print a data: URI for a browser`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runUsersQR(ctx, cmd.OutOrStdout(), a, args[0])
		})
	},
}

func init() {
	AddOutputFlags(usersListCmd, &usersListOutput)

	usersCreateCmd.Flags().StringVar(&createName, "name", "", "account name")
	usersCreateCmd.Flags().StringVar(&createAlterID, "alter-id", "", "VMess alter id (default: display.default_alter_id)")
	usersCreateCmd.Flags().StringVar(&createLimit, "limit", "0", "traffic limit in bytes or a size like 50GiB, 0 for unlimited")
	AddOutputFlags(usersCreateCmd, &createOutput)

	AddConfirmFlags(usersDeleteCmd, &deleteConfirm)
	AddConfirmFlags(usersResetCmd, &resetConfirm)

	usersQRCmd.Flags().StringVarP(&qrOutputFile, "output", "o", "", "write the PNG to this file")
	usersQRCmd.Flags().BoolVar(&qrDataURI, "data-uri", false, "print the image as a data: URI")

	usersCmd.AddCommand(usersListCmd, usersCreateCmd, usersDeleteCmd, usersResetCmd, usersQRCmd)
}

func runUsersList(ctx context.Context, out io.Writer, a *app, asJSON bool) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	accounts, err := a.client.ListAccounts(reqCtx)
	if err != nil {
		return outputError(out, asJSON, apiError(err, "Couldn't list accounts"))
	}
	if asJSON {
		return WriteJSONSuccess(out, accounts)
	}

	view := console.RenderTable(console.AccountsSnapshot{Loaded: true, Accounts: accounts}, a.cfg.Display.HighlightRatio)
	fmt.Fprint(out, ui.RenderAccountTable(view, -1))
	if len(accounts) > 0 {
		ui.PrintMuted(out, fmt.Sprintf("%d account%s", len(accounts), plural(len(accounts))))
	}
	return nil
}

func runUsersCreate(ctx context.Context, out io.Writer, a *app) error {
	values := console.CreateForm{
		Name:         createName,
		AlterID:      createAlterID,
		TrafficLimit: createLimit,
	}
	if values.AlterID == "" {
		values.AlterID = strconv.Itoa(a.cfg.Display.DefaultAlterID)
	}

	if strings.TrimSpace(values.Name) == "" && !createOutput.JSON && canPrompt() {
		if err := createPrompt(&values); err != nil {
			ui.PrintMuted(out, "Canceled.")
			return nil
		}
	}

	in, err := console.ParseCreateInput(values.Name, values.AlterID, values.TrafficLimit)
	if err != nil {
		return outputError(out, createOutput.JSON, err)
	}

	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	dispatcher := console.NewDispatcher(a.client, logger.With(a.log, "dispatch"))
	stop := a.startSpinner(console.ActionCreate.Label())
	outcome := dispatcher.Create(reqCtx, in)
	stop(outcome.OK)
	if !outcome.OK {
		return outputError(out, createOutput.JSON, apiError(outcome.Err, "Couldn't create account"))
	}

	if createOutput.JSON {
		return WriteJSONSuccess(out, map[string]interface{}{
			"id":            outcome.AccountID,
			"name":          in.Name,
			"alter_id":      in.AlterID,
			"traffic_limit": in.TrafficLimit,
		})
	}

	msg := fmt.Sprintf("%s %s", outcome.Message, in.Name)
	if outcome.AccountID != "" {
		msg += " " + ui.MutedStyle().Render("("+outcome.AccountID+")")
	}
	ui.PrintSuccess(out, msg)
	return nil
}

// runConfirmedAction resolves ref, asks, and runs a delete or reset.
func runConfirmedAction(ctx context.Context, out io.Writer, a *app, action console.Action, ref string, yes bool) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	acct, err := resolveAccount(reqCtx, a.client, ref)
	if err != nil {
		return err
	}
	subject := accountLabel(acct)

	ok, err := confirmAction(action, subject, yes)
	if err != nil {
		return err
	}
	if !ok {
		ui.PrintMuted(out, "Canceled.")
		return nil
	}

	dispatcher := console.NewDispatcher(a.client, logger.With(a.log, "dispatch"))
	answer := func(string) bool { return true }

	stop := a.startSpinner(action.Label())
	var outcome console.Outcome
	switch action {
	case console.ActionResetStats:
		outcome = dispatcher.ResetStats(reqCtx, acct.ID, answer)
	default:
		outcome = dispatcher.Delete(reqCtx, acct.ID, answer)
	}
	stop(outcome.OK)
	if !outcome.OK {
		return apiError(outcome.Err, fmt.Sprintf("Couldn't %s %s", actionVerb(action), subject))
	}

	ui.PrintSuccess(out, fmt.Sprintf("%s: %s", outcome.Message, subject))
	return nil
}

func runUsersQR(ctx context.Context, out io.Writer, a *app, ref string) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	acct, err := resolveAccount(reqCtx, a.client, ref)
	if err != nil {
		return err
	}

	dispatcher := console.NewDispatcher(a.client, logger.With(a.log, "dispatch"))
	stop := a.startSpinner(console.ActionCredential.Label())
	outcome := dispatcher.FetchCredential(reqCtx, acct.ID)
	stop(outcome.OK)
	if !outcome.OK {
		return apiError(outcome.Err, "Couldn't fetch QR code for "+accountLabel(acct))
	}
	cred := outcome.Credential

	switch {
	case qrOutputFile != "":
		if err := os.WriteFile(qrOutputFile, cred.PNG, 0o600); err != nil {
			return errors.WrapWithCode(err, errors.ErrInput,
				"Couldn't write "+qrOutputFile,
				"Check the directory exists and is writable.")
		}
		ui.PrintSuccess(out, fmt.Sprintf("Wrote %s (%s)", qrOutputFile, humanize.Bytes(uint64(len(cred.PNG)))))
		return nil
	case qrDataURI:
		fmt.Fprintln(out, cred.Source)
		return nil
	}

	lines, err := dashboard.RenderQR(cred.PNG)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAPI,
			"Couldn't draw the QR code",
			"Save it with -o file.png and open it in an image viewer.")
	}
	fmt.Fprintln(out, accountLabel(acct))
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

// resolveAccount finds the account whose id or name is exactly ref.
func resolveAccount(ctx context.Context, client *api.Client, ref string) (api.Account, error) {
	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return api.Account{}, apiError(err, "Couldn't list accounts")
	}
	return findAccount(accounts, ref)
}

// findAccount matches ids first, then names. A name shared by several
// accounts is ambiguous and must be given as an id.
func findAccount(accounts []api.Account, ref string) (api.Account, error) {
	for _, acct := range accounts {
		if acct.ID == ref {
			return acct, nil
		}
	}

	var matches []api.Account
	for _, acct := range accounts {
		if acct.Name == ref {
			matches = append(matches, acct)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return api.Account{}, errors.New(errors.ErrInput,
			fmt.Sprintf("%d accounts are named %q", len(matches), ref),
			"Use the id instead: "+strings.Join(ids, ", "))
	}

	names := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		if acct.Name != "" {
			names = append(names, acct.Name)
		}
	}
	suggestion := "Run 'v2dash users list' to see the accounts."
	if best := closestMatch(ref, names); best != "" {
		suggestion = fmt.Sprintf("Did you mean '%s'?", best)
	}
	return api.Account{}, errors.New(errors.ErrAPI,
		fmt.Sprintf("No account with id or name %q", ref),
		suggestion)
}

func accountLabel(acct api.Account) string {
	if acct.Name == "" {
		return acct.ID
	}
	return acct.Name
}

// outputError reports err as a JSON envelope when asJSON is set.
func outputError(out io.Writer, asJSON bool, err error) error {
	if !asJSON {
		return err
	}
	if werr := WriteJSONFromError(out, err); werr != nil {
		return werr
	}
	return errors.NewExitError(1)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
