// Package channel provides the execution runners behind the fan-out
// collector: an in-process runner for the local host and
// remote-execution channels (WinRM, SSH) for everything else. Probe
// logic only hands a script to a Runner; it never knows where the
// script executes.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/invlite/invlite/internal/config"
	"github.com/invlite/invlite/internal/inventory"
)

// Runner executes a PowerShell script on the host it is bound to and
// returns its stdout.
type Runner interface {
	Run(ctx context.Context, script string) (string, error)
	Target() string
}

// Factory selects a runner per target: local in-process execution when
// the target is the configured host identity, a remote channel
// otherwise. The strategy is chosen once per target, not per call.
type Factory struct {
	identity string
	cfg      config.ChannelConfig
	logger   *slog.Logger
}

// NewFactory creates a runner factory bound to the local host identity.
func NewFactory(identity string, cfg config.ChannelConfig, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		identity: identity,
		cfg:      cfg,
		logger:   logger.With("component", "channel"),
	}
}

// RunnerFor returns the runner for a target. Remote targets get a TCP
// liveness precheck first, so unreachable hosts fail fast instead of
// stalling on the channel handshake.
func (f *Factory) RunnerFor(target string) (Runner, error) {
	if strings.EqualFold(target, f.identity) || strings.EqualFold(target, "localhost") {
		return NewLocal(target), nil
	}

	if err := checkPort(target, f.cfg.Port, f.cfg.GetTimeout()); err != nil {
		return nil, fmt.Errorf("%w: %v", inventory.ErrChannel, err)
	}

	switch f.cfg.Kind {
	case "ssh":
		return NewSSH(target, f.cfg)
	default:
		return NewWinRM(target, f.cfg)
	}
}

// checkPort dials the channel port with a bounded timeout.
func checkPort(target string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(target, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return fmt.Errorf("target %s unreachable on port %d: %v", target, port, err)
	}
	conn.Close()
	return nil
}
