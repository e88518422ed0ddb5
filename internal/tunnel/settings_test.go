package tunnel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".ssh")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte(content), 0o600))
}

func TestResolveSettings_Literal(t *testing.T) {
	t.Setenv("USER", "operator")
	home := t.TempDir()

	tests := []struct {
		host     string
		hostname string
		port     string
		user     string
	}{
		{"vpn.example.com", "vpn.example.com", "22", "operator"},
		{"admin@vpn.example.com", "vpn.example.com", "22", "admin"},
		{"admin@10.0.0.5:2222", "10.0.0.5", "2222", "admin"},
		{"host:notaport", "host:notaport", "22", "operator"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			s := resolveSettings(tt.host, home)
			assert.Equal(t, tt.hostname, s.hostname)
			assert.Equal(t, tt.port, s.port)
			assert.Equal(t, tt.user, s.user)
			assert.False(t, s.fromConfig)
		})
	}
}

func TestResolveSettings_FromConfig(t *testing.T) {
	home := t.TempDir()
	writeSSHConfig(t, home, `
Host proxybox
    HostName 203.0.113.7
    Port 2200
    User deploy
    IdentityFile ~/.ssh/proxy_key
`)

	s := resolveSettings("proxybox", home)
	assert.True(t, s.fromConfig)
	assert.Equal(t, "203.0.113.7", s.hostname)
	assert.Equal(t, "2200", s.port)
	assert.Equal(t, "deploy", s.user)
	assert.Equal(t, filepath.Join(home, ".ssh", "proxy_key"), s.identityFile)
	assert.Equal(t, "203.0.113.7:2200", s.address())
}

func TestResolveSettings_MatchBlockHidesLaterHosts(t *testing.T) {
	home := t.TempDir()
	writeSSHConfig(t, home, `Host early
    HostName 192.0.2.1

Match host *.internal
    User nobody

Host late
    HostName 192.0.2.2
`)

	early := resolveSettings("early", home)
	assert.Equal(t, "192.0.2.1", early.hostname)
	assert.Equal(t, 4, early.matchLine)

	late := resolveSettings("late", home)
	assert.Equal(t, "late", late.hostname)
	assert.False(t, late.fromConfig)
}

func TestPreprocessConfig_Missing(t *testing.T) {
	_, _, err := preprocessConfig(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, os.IsNotExist(err))
}
