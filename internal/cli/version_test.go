package cli

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withBuildInfo swaps the injected build info for the length of a test.
func withBuildInfo(t *testing.T, v, c, d string) {
	t.Helper()
	prevVersion, prevCommit, prevDate := version, commit, date
	t.Cleanup(func() { SetVersionInfo(prevVersion, prevCommit, prevDate) })
	SetVersionInfo(v, c, d)
}

func TestVersionCommand(t *testing.T) {
	withBuildInfo(t, "0.4.0", "9f1c2ab", "2026-03-02T08:00:00Z")

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "v2dash v0.4.0", lines[0])
	assert.Equal(t, "commit: 9f1c2ab", lines[1])
	assert.Equal(t, "built: 2026-03-02T08:00:00Z", lines[2])
	assert.Equal(t, "go: "+runtime.Version(), lines[3])
	assert.Equal(t, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH, lines[4])
}

func TestVersionCommand_Short(t *testing.T) {
	withBuildInfo(t, "0.4.0", "9f1c2ab", "unknown")

	out, err := runCLI(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "0.4.0\n", out, "short output is the raw injected version")
}

func TestVersionCommand_DevBuild(t *testing.T) {
	withBuildInfo(t, "dev", "none", "unknown")

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "v2dash dev\n"))
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	_, err := runCLI(t, "", "version", "extra")
	assert.Error(t, err)
}

func TestFormatVersion(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"dev":        "dev",
		"0.4.0":      "v0.4.0",
		"v0.4.0":     "v0.4.0",
		"1.0.0-rc.2": "v1.0.0-rc.2",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatVersion(in), "formatVersion(%q)", in)
	}
}

func TestStatsHeaderCarriesVersion(t *testing.T) {
	withBuildInfo(t, "0.4.0", "9f1c2ab", "unknown")
	_, srv := newFakeBackend(t)

	out, err := runCLI(t, srv.URL, "stats")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "v2dash v0.4.0\n"), "got %q", out)
}
