package tunnel

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// settings holds resolved SSH connection parameters.
type settings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string // keys that exist but need a passphrase
	matchLine     int      // line of the first Match block in ssh config, 0 if none
	fromConfig    bool
}

// address returns the host:port string for dialing.
func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses host ("alias", "host", "user@host", "host:port")
// and fills in the rest from the ssh config in home.
func resolveSettings(host, home string) *settings {
	s := &settings{
		port: "22",
		user: currentUser(),
	}

	if at := strings.Index(host, "@"); at != -1 {
		s.user = host[:at]
		host = host[at+1:]
	}

	if colon := strings.LastIndex(host, ":"); colon != -1 {
		if port := host[colon+1:]; port != "" && allDigits(port) {
			s.port = port
			host = host[:colon]
		}
	}
	s.hostname = host

	content, matchLine, err := preprocessConfig(filepath.Join(home, ".ssh", "config"))
	if err != nil {
		return s
	}
	s.matchLine = matchLine

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	if v, _ := cfg.Get(host, "HostName"); v != "" {
		s.hostname = v
		s.fromConfig = true
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		s.port = v
		s.fromConfig = true
	}
	if v, _ := cfg.Get(host, "User"); v != "" {
		s.user = v
		s.fromConfig = true
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v, home)
		s.fromConfig = true
	}
	return s
}

// preprocessConfig returns the ssh config up to the first Match directive,
// which ssh_config can't parse, and that directive's 1-based line.
func preprocessConfig(path string) ([]byte, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
