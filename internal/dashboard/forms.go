package dashboard

import (
	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/v2dash/internal/console"
)

type dialogKind int

const (
	dialogCreate dialogKind = iota
	dialogConfirm
)

// dialog is an embedded huh form. The form writes straight into heap
// values so copies of Model share them.
type dialog struct {
	kind      dialogKind
	form      *huh.Form
	action    console.Action
	accountID string
	answer    *bool
}

func validateName(s string) error {
	_, err := console.ParseCreateInput(s, "", "")
	return err
}

func validateAlterID(s string) error {
	_, err := console.ParseCreateInput("-", s, "")
	return err
}

func validateTrafficLimit(s string) error {
	_, err := console.ParseTrafficLimit(s)
	return err
}

// newCreateForm builds the account form on top of values, so whatever the
// operator typed survives a failed submission.
func newCreateForm(values *console.CreateForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("alice").
				Value(&values.Name).
				Validate(validateName),
			huh.NewInput().
				Title("Alter ID").
				Value(&values.AlterID).
				Validate(validateAlterID),
			huh.NewInput().
				Title("Traffic limit").
				Description("Bytes or a size like 10GB. 0 is unlimited.").
				Value(&values.TrafficLimit).
				Validate(validateTrafficLimit),
		).Title("New account"),
	).WithShowHelp(false).WithTheme(huh.ThemeCharm())
}

func newConfirmForm(prompt string, answer *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(answer),
		),
	).WithShowHelp(false).WithTheme(huh.ThemeCharm())
}
