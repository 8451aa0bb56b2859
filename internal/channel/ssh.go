package channel

import (
	"context"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/invlite/invlite/internal/config"
	"github.com/invlite/invlite/internal/inventory"
)

// SSH is the alternative remote-execution channel, for hosts that
// expose PowerShell over an SSH server instead of WinRM.
type SSH struct {
	target string
	addr   string
	config *ssh.ClientConfig
}

// NewSSH creates an SSH runner with password or key auth.
func NewSSH(target string, cfg config.ChannelConfig) (*SSH, error) {
	if err := ValidateCredentials(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", inventory.ErrChannel, err)
	}

	var authMethods []ssh.AuthMethod

	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}

	if cfg.PrivateKey != "" {
		var key ssh.Signer
		var err error

		if cfg.Passphrase != "" {
			key, err = ssh.ParsePrivateKeyWithPassphrase([]byte(cfg.PrivateKey), []byte(cfg.Passphrase))
		} else {
			key, err = ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse private key: %v", inventory.ErrChannel, err)
		}

		authMethods = append(authMethods, ssh.PublicKeys(key))
	}

	return &SSH{
		target: target,
		addr:   net.JoinHostPort(target, fmt.Sprintf("%d", cfg.Port)),
		config: &ssh.ClientConfig{
			User:            cfg.Username,
			Auth:            authMethods,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // validation happens at connection time
			Timeout:         cfg.GetTimeout(),
		},
	}, nil
}

// Run dials the remote host, executes the script through PowerShell and
// returns the trimmed stdout. The connection is per-call; cancelling
// the context closes it and aborts the in-flight command.
func (s *SSH) Run(ctx context.Context, script string) (string, error) {
	client, err := ssh.Dial("tcp", s.addr, s.config)
	if err != nil {
		return "", fmt.Errorf("%w: SSH handshake failed: %v", inventory.ErrChannel, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: failed to open SSH session: %v", inventory.ErrChannel, err)
	}
	defer session.Close()

	psCmd := fmt.Sprintf("powershell.exe -NoProfile -NonInteractive -Command \"%s\"",
		strings.ReplaceAll(script, "\"", "`\""))

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.Output(psCmd)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		client.Close()
		return "", fmt.Errorf("%w: %v", inventory.ErrChannel, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: SSH execution failed: %v", inventory.ErrChannel, res.err)
		}
		return strings.TrimSpace(string(res.out)), nil
	}
}

// Target returns the target hostname/IP
func (s *SSH) Target() string {
	return s.target
}
