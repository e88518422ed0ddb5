package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/spf13/cobra"
)

// OutputFlags holds the flags shared by commands that can print JSON.
type OutputFlags struct {
	JSON bool
}

// AddOutputFlags registers --json on a command.
func AddOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print a JSON envelope instead of a table")
}

// ConfirmFlags holds the flags of commands that change server state.
type ConfirmFlags struct {
	Yes bool
}

// AddConfirmFlags registers --yes on a command.
func AddConfirmFlags(cmd *cobra.Command, flags *ConfirmFlags) {
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false, "skip the confirmation prompt")
}

// ParseTimeout parses a timeout string into a duration.
// Returns zero duration if the flag is empty.
func ParseTimeout(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrInput,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration <= 0 {
		return 0, errors.New(errors.ErrInput,
			fmt.Sprintf("Timeout must be positive, got %s", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}
