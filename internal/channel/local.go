package channel

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/invlite/invlite/internal/inventory"
)

// Local runs scripts in-process through the host's own PowerShell.
// Failures here are probe errors (the local system API is
// unavailable), not channel errors.
type Local struct {
	target string
	shell  string
}

// NewLocal creates a runner for the current host.
func NewLocal(target string) *Local {
	return &Local{target: target, shell: "powershell.exe"}
}

// Run executes the script and returns the trimmed stdout.
func (l *Local) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, l.shell, "-NoProfile", "-NonInteractive", "-Command", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%w: %v: %s", inventory.ErrProbe, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%w: %v", inventory.ErrProbe, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Target returns the target hostname this runner is bound to.
func (l *Local) Target() string {
	return l.target
}
