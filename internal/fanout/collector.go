// Package fanout implements the fan-out query protocol: dispatch one
// probe to N targets, tolerate partial failure per target, and merge
// the outcomes into one ordered record set.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invlite/invlite/internal/inventory"
)

// Probe runs one inventory query against one target. Implementations
// decide how the target is reached (in-process, WinRM, SSH, SNMP);
// the collector only sees records or an error.
type Probe interface {
	Entity() string
	Collect(ctx context.Context, target string) (inventory.RecordSet, error)
}

// targetPattern is the conservative hostname syntax: alphanumeric
// start, then alphanumeric, hyphen or dot, bounded at 254 characters.
var targetPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]{0,253}$`)

// ValidateTarget checks a target identifier against the allowed
// syntax. IP literals, IPv6 included, are accepted as parsed;
// anything else must match the hostname pattern. Everything outside
// both is rejected before it can reach a channel.
func ValidateTarget(target string) error {
	if _, err := netip.ParseAddr(target); err == nil {
		return nil
	}
	if !targetPattern.MatchString(target) {
		return fmt.Errorf("%w: %q", inventory.ErrInvalidTarget, target)
	}
	return nil
}

// Collector fans one probe out across a target list. Stateless across
// calls; safe for concurrent use.
type Collector struct {
	timeout    time.Duration
	maxWorkers int
	logger     *slog.Logger
}

// New creates a collector. maxWorkers bounds concurrent target
// dispatch; 1 runs targets strictly sequentially. timeout bounds each
// target's probe, so one unresponsive host cannot stall the fan-out.
func New(timeout time.Duration, maxWorkers int, logger *slog.Logger) *Collector {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		timeout:    timeout,
		maxWorkers: maxWorkers,
		logger:     logger.With("component", "fanout"),
	}
}

// outcome holds one target's result in its input slot, so concurrent
// execution needs no shared aggregate and no lock.
type outcome struct {
	records inventory.RecordSet
	failure *inventory.Failure
}

// Collect runs the probe against every target and returns the merged
// records plus the per-target failures. The record order is exactly
// the input target order, then the probe's own emission order within
// one target. A failing target is logged, reported in the failure
// list, and absent from the records; it never aborts the fan-out or
// cancels another target's in-flight call.
//
// Every record is stamped with its target identifier so records stay
// traceable after merging.
func (c *Collector) Collect(ctx context.Context, targets []string, probe Probe) (inventory.RecordSet, []inventory.Failure) {
	outcomes := make([]outcome, len(targets))

	if c.maxWorkers == 1 {
		for i, target := range targets {
			outcomes[i] = c.runOne(ctx, target, probe)
		}
	} else {
		g := &errgroup.Group{}
		g.SetLimit(c.maxWorkers)
		for i, target := range targets {
			g.Go(func() error {
				outcomes[i] = c.runOne(ctx, target, probe)
				return nil
			})
		}
		// runOne never returns an error; failures are data
		_ = g.Wait()
	}

	var records inventory.RecordSet
	var failures []inventory.Failure
	for _, o := range outcomes {
		if o.failure != nil {
			failures = append(failures, *o.failure)
			continue
		}
		records = append(records, o.records...)
	}
	return records, failures
}

func (c *Collector) runOne(ctx context.Context, target string, probe Probe) outcome {
	if err := ValidateTarget(target); err != nil {
		return c.fail(target, probe, err)
	}

	tctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	records, err := probe.Collect(tctx, target)
	if err != nil {
		return c.fail(target, probe, err)
	}

	for _, rec := range records {
		rec.SetFront("ComputerName", target)
	}
	return outcome{records: records}
}

// fail reports the per-target failure to the log at the moment it
// occurs, so operators see partial failures even when the caller only
// inspects the aggregate.
func (c *Collector) fail(target string, probe Probe, err error) outcome {
	c.logger.Warn("target collection failed",
		"entity", probe.Entity(),
		"target", target,
		"error", err,
	)
	return outcome{failure: &inventory.Failure{Target: target, Cause: err}}
}
