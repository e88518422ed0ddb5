// Package tunnel reaches a backend that only listens on the far side of an
// SSH connection. A Tunnel's DialContext plugs into api.WithDialer, so
// every HTTP request is carried over a direct-tcpip channel.
//
// Hosts resolve the way ssh(1) does for the common cases: ~/.ssh/config
// aliases (HostName, Port, User, IdentityFile), then agent keys, then the
// default key files. Host keys are checked against ~/.ssh/known_hosts
// unless strict checking is turned off.
package tunnel

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// DefaultTimeout bounds the TCP connect and SSH handshake.
const DefaultTimeout = 10 * time.Second

// Options configures a Tunnel.
type Options struct {
	// Host is an ssh config alias, "host", "user@host" or "host:port".
	Host string

	Timeout               time.Duration
	StrictHostKeyChecking bool

	// HomeDir overrides the directory holding .ssh, for tests.
	HomeDir string

	Logger logger.Logger
}

// Tunnel is a lazily connected SSH client. It reconnects once when the
// connection has dropped.
type Tunnel struct {
	opts Options
	home string
	log  logger.Logger

	mu        sync.Mutex
	client    *ssh.Client
	address   string
	agentConn net.Conn
	agent     agent.ExtendedAgent
}

// New creates a tunnel. No connection is made until the first dial.
func New(opts Options) *Tunnel {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	home := opts.HomeDir
	if home == "" {
		home = homeDir()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	return &Tunnel{opts: opts, home: home, log: log}
}

// DialContext opens a connection to addr from the SSH server's side.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := client.DialContext(ctx, network, addr)
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	// The SSH connection may have died under us; reconnect once.
	t.log.Debug("tunnel dial %s failed, reconnecting: %v", addr, err)
	t.reset(client)
	client, rErr := t.connect(ctx)
	if rErr != nil {
		return nil, rErr
	}
	return client.DialContext(ctx, network, addr)
}

// Address returns the resolved host:port of the SSH server, empty before
// the first connection.
func (t *Tunnel) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address
}

// Close closes the SSH connection and the agent connection.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.client != nil {
		err = t.client.Close()
		t.client = nil
	}
	if t.agentConn != nil {
		t.agentConn.Close()
		t.agentConn = nil
		t.agent = nil
	}
	return err
}

func (t *Tunnel) reset(stale *ssh.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == stale {
		t.client.Close()
		t.client = nil
	}
}

func (t *Tunnel) connect(ctx context.Context) (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}

	host := t.opts.Host
	s := resolveSettings(host, t.home)
	if s.matchLine > 0 && !s.fromConfig {
		t.log.Warn("host %q not found in ssh config; a Match block at line %d may hide later entries", host, s.matchLine)
	}

	config, err := t.clientConfig(s)
	if err != nil {
		var structured *errors.Error
		if stderrors.As(err, &structured) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := s.address()
	dialer := net.Dialer{Timeout: t.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, s.encryptedKeys))
	}

	t.log.Info("ssh tunnel up host=%s address=%s user=%s", host, address, s.user)
	t.client = ssh.NewClient(sshConn, chans, reqs)
	t.address = address
	return t.client, nil
}
