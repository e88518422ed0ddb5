package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/ui"
)

// Swapped out in tests.
var (
	canPrompt     = func() bool { return ui.IsTerminal(os.Stdin) && ui.IsTerminal(os.Stdout) }
	confirmPrompt = runConfirm
	createPrompt  = runCreateForm
)

// runConfirm asks a yes/no question. Aborting the form counts as no.
func runConfirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeCharm())
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// runCreateForm fills in the missing fields of values interactively.
func runCreateForm(values *console.CreateForm) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&values.Name).
				Validate(func(s string) error {
					_, err := console.ParseCreateInput(s, "0", "0")
					return plainError(err)
				}),
			huh.NewInput().
				Title("Alter ID").
				Value(&values.AlterID).
				Validate(func(s string) error {
					_, err := console.ParseCreateInput("x", s, "0")
					return plainError(err)
				}),
			huh.NewInput().
				Title("Traffic limit").
				Description("Bytes or a size like 50GiB. 0 means unlimited.").
				Value(&values.TrafficLimit).
				Validate(func(s string) error {
					_, err := console.ParseTrafficLimit(s)
					return plainError(err)
				}),
		).Title("New account"),
	).WithTheme(huh.ThemeCharm())
	return form.Run()
}

// plainError strips a structured error down to its message for inline
// form validation.
func plainError(err error) error {
	if e, ok := err.(*errors.Error); ok {
		return fmt.Errorf("%s", e.Message)
	}
	return err
}

// confirmAction decides whether a destructive action may go ahead.
// yes skips the prompt; without a terminal the action is refused.
func confirmAction(action console.Action, subject string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !canPrompt() {
		return false, errors.New(errors.ErrInput,
			fmt.Sprintf("Confirmation required to %s %s", actionVerb(action), subject),
			"Pass --yes to skip the prompt when running without a terminal.")
	}
	return confirmPrompt(console.ConfirmPrompt(action, subject), "This cannot be undone.")
}

func actionVerb(action console.Action) string {
	switch action {
	case console.ActionDelete:
		return "delete account"
	case console.ActionResetStats:
		return "reset traffic stats of"
	default:
		return string(action)
	}
}
