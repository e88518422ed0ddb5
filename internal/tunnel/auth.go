package tunnel

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rileyhilliard/v2dash/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// clientConfig builds the SSH client config: agent keys first, then the
// configured identity, then the default key files.
func (t *Tunnel) clientConfig(s *settings) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	tryKeyFile := func(path string) {
		auth, err := keyFileAuth(path)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				s.encryptedKeys = append(s.encryptedKeys, path)
			}
			return
		}
		methods = append(methods, auth)
	}

	if auth := t.agentAuth(); auth != nil {
		methods = append(methods, auth)
	}
	if s.identityFile != "" {
		tryKeyFile(s.identityFile)
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		path := filepath.Join(t.home, ".ssh", name)
		if path != s.identityFile {
			tryKeyFile(path)
		}
	}

	if len(methods) == 0 {
		msg := "No SSH auth methods available"
		suggestion := "Check your keys are loaded: ssh-add -l"
		if len(s.encryptedKeys) > 0 {
			msg = fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(s.encryptedKeys, ", "))
			suggestion = addKeysSuggestion("Add your key(s) to the agent:", s.encryptedKeys)
		}
		return nil, errors.New(errors.ErrSSH, msg, suggestion)
	}

	verify := ssh.InsecureIgnoreHostKey() //nolint:gosec // strict checking explicitly disabled
	if t.opts.StrictHostKeyChecking {
		cb, err := hostKeyCallback(filepath.Join(t.home, ".ssh", "known_hosts"))
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Couldn't load known_hosts",
				"Check ~/.ssh/known_hosts is readable")
		}
		verify = cb
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            methods,
		HostKeyCallback: verify,
		Timeout:         t.opts.Timeout,
	}, nil
}

// agentAuth returns agent-backed auth, or nil when no agent with keys is
// running. The agent connection lives as long as the tunnel.
func (t *Tunnel) agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	if t.agent == nil {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil
		}
		t.agentConn = conn
		t.agent = agent.NewClient(conn)
	}

	// An empty agent placed before key files makes auth fail early.
	signers, err := t.agent.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(t.agent.Signers)
}

// keyFileAuth loads a private key. It returns *EncryptedKeyError when the
// key needs a passphrase.
func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED"))
}

// hostKeyCallback verifies hosts against known_hosts, creating an empty
// file when there is none, and turns key mismatches into
// *HostKeyMismatchError.
func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
			return nil, fmt.Errorf("create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, nil, 0o600); err != nil {
			return nil, fmt.Errorf("create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}

func addKeysSuggestion(lead string, keys []string) string {
	var sb strings.Builder
	sb.WriteString(lead + "\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			sb.WriteString(fmt.Sprintf("  ssh-add --apple-use-keychain %s\n", key))
		} else {
			sb.WriteString(fmt.Sprintf("  ssh-add %s\n", key))
		}
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is SSH running on that box? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	default:
		return "Make sure the host is reachable: ping <host>"
	}
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encryptedKeys) > 0 {
			return addKeysSuggestion("Your key(s) are encrypted. Add them to the agent:", encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Try connecting manually first: ssh <host>"
	default:
		return "Something went wrong during SSH setup. Try: ssh <host>"
	}
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError is returned when known_hosts has a different key.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that fix the mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var want []string
	for _, k := range e.Want {
		want = append(want, k.Key.Type())
	}
	wantStr := "unknown"
	if len(want) > 0 {
		wantStr = strings.Join(want, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  To update known_hosts with all key types:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s\n\n"+
			"  Or remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host, e.KnownHosts, host)
}
