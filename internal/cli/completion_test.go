package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionBashGeneration(t *testing.T) {
	out, err := runCLI(t, "", "completion", "bash")
	require.NoError(t, err)

	assert.Contains(t, out, "# bash completion")
	assert.Contains(t, out, "__v2dash_debug")
}

func TestCompletionZshGeneration(t *testing.T) {
	out, err := runCLI(t, "", "completion", "zsh")
	require.NoError(t, err)

	assert.Contains(t, out, "#compdef v2dash")
	assert.Contains(t, out, "_v2dash()")
}

func TestCompletionFishGeneration(t *testing.T) {
	out, err := runCLI(t, "", "completion", "fish")
	require.NoError(t, err)

	assert.Contains(t, out, "complete -c v2dash")
}

func TestCompletionPowershellGeneration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, rootCmd.GenPowerShellCompletion(&buf))

	assert.Contains(t, strings.ToLower(buf.String()), "powershell completion")
	assert.Contains(t, buf.String(), "Register-ArgumentCompleter")
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	_, err := runCLI(t, "", "completion", "tcsh")
	require.Error(t, err)
}
