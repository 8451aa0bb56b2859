package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/masterzen/winrm"

	"github.com/invlite/invlite/internal/config"
	"github.com/invlite/invlite/internal/inventory"
)

// WinRM is the default remote-execution channel. It wraps the WinRM
// client and runs probe scripts through remote PowerShell.
type WinRM struct {
	client *winrm.Client
	target string
}

// NewWinRM creates a WinRM runner for the target based on the channel config
// - If domain is empty, uses Basic Auth
// - If domain is provided, uses NTLM Auth
// - If use_https is true, uses HTTPS endpoint (typically port 5986)
func NewWinRM(target string, cfg config.ChannelConfig) (*WinRM, error) {
	if err := ValidateCredentials(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", inventory.ErrChannel, err)
	}

	endpoint := winrm.NewEndpoint(
		target,
		cfg.Port,
		cfg.UseHTTPS,
		true, // insecure - skip certificate verification
		nil,  // CA certificate
		nil,  // client certificate
		nil,  // client key
		cfg.GetTimeout(),
	)

	var client *winrm.Client
	var err error

	if cfg.Domain != "" {
		// NTLM authentication with domain
		params := winrm.DefaultParameters
		params.TransportDecorator = func() winrm.Transporter {
			return &winrm.ClientNTLM{}
		}
		client, err = winrm.NewClientWithParameters(
			endpoint,
			fmt.Sprintf("%s\\%s", cfg.Domain, cfg.Username),
			cfg.Password,
			params,
		)
	} else {
		// Basic authentication
		client, err = winrm.NewClient(endpoint, cfg.Username, cfg.Password)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to create WinRM client: %v", inventory.ErrChannel, err)
	}

	return &WinRM{
		client: client,
		target: target,
	}, nil
}

// Run executes a PowerShell script on the remote host and returns the
// stdout output.
func (c *WinRM) Run(ctx context.Context, script string) (string, error) {
	psCmd := fmt.Sprintf("powershell.exe -NoProfile -NonInteractive -Command \"%s\"",
		strings.ReplaceAll(script, "\"", "`\""))

	stdout, stderr, exitCode, err := c.client.RunWithContextWithString(ctx, psCmd, "")
	if err != nil {
		return "", fmt.Errorf("%w: WinRM execution failed: %v", inventory.ErrChannel, err)
	}

	if exitCode != 0 {
		return "", fmt.Errorf("%w: remote command failed (exit code %d): %s",
			inventory.ErrChannel, exitCode, strings.TrimSpace(stderr))
	}

	return strings.TrimSpace(stdout), nil
}

// Target returns the target hostname/IP
func (c *WinRM) Target() string {
	return c.target
}
