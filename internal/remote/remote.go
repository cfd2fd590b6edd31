// Package remote runs command lines on cluster members over SSH.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/jbweber/herd/internal/naming"
)

// Config configures a Client.
type Config struct {
	User    string
	KeyFile string
	Port    int
	// HostTemplate maps a member name to the host to dial; Placeholder in it
	// is replaced by the name.
	HostTemplate string
	Placeholder  string
	UseAgent     bool
	Timeout      time.Duration

	Stdout io.Writer
	Stderr io.Writer
}

// Client dials one SSH connection per Run. Host keys are not verified.
type Client struct {
	cfg       Config
	sshConfig *ssh.ClientConfig
	agentConn net.Conn
}

// New builds a Client, loading the key file and connecting to ssh-agent as
// configured. At least one authentication method must be available.
func New(cfg Config) (*Client, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = naming.DefaultPlaceholder
	}
	if cfg.HostTemplate == "" {
		cfg.HostTemplate = cfg.Placeholder
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	c := &Client{cfg: cfg}
	var methods []ssh.AuthMethod

	if cfg.KeyFile != "" {
		signer, err := loadSigner(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				log.Debug().Err(err).Str("socket", sock).Msg("ssh-agent not reachable")
			} else {
				c.agentConn = conn
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			}
		}
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH authentication available: set ssh.key_file or run ssh-agent")
	}

	c.sshConfig = &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
	}
	return c, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("ssh key %s is passphrase protected; load it into ssh-agent instead", path)
		}
		return nil, fmt.Errorf("failed to parse ssh key %s: %w", path, err)
	}
	return signer, nil
}

// Close releases the ssh-agent connection, if any.
func (c *Client) Close() error {
	if c.agentConn != nil {
		return c.agentConn.Close()
	}
	return nil
}

// Address returns host:port dialled for member id.
func (c *Client) Address(id string) string {
	host := naming.Expand(c.cfg.HostTemplate, c.cfg.Placeholder, id)
	return net.JoinHostPort(host, strconv.Itoa(c.cfg.Port))
}

// Run executes line on member id with a PTY attached and streams its output.
// A non-zero remote exit status is returned as an error.
func (c *Client) Run(ctx context.Context, id, line string) error {
	addr := c.Address(id)
	logger := log.With().Str("vm", id).Str("addr", addr).Logger()

	client, err := c.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session on %s: %w", addr, err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, 120, modes); err != nil {
		return fmt.Errorf("failed to request pty on %s: %w", addr, err)
	}
	session.Stdout = c.cfg.Stdout
	session.Stderr = c.cfg.Stderr

	logger.Debug().Str("command", line).Msg("Running remote command")

	done := make(chan error, 1)
	go func() { done <- session.Run(line) }()

	select {
	case <-ctx.Done():
		client.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("remote command exited with status %d", exitErr.ExitStatus())
		}
		if err != nil {
			return fmt.Errorf("remote command failed: %w", err)
		}
		return nil
	}
}

func (c *Client) dial(ctx context.Context, addr string) (*ssh.Client, error) {
	d := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if c.cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.Timeout))
	}

	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, c.sshConfig)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sc, chans, reqs), nil
}
