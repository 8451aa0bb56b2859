package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/invlite/invlite/internal/channel"
	"github.com/invlite/invlite/internal/config"
	"github.com/invlite/invlite/internal/export"
	"github.com/invlite/invlite/internal/fanout"
	"github.com/invlite/invlite/internal/probe"
	"github.com/invlite/invlite/internal/snmp"
	"github.com/invlite/invlite/internal/targets"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := rootCommand()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	commands := []*cli.Command{}
	for _, kind := range probe.Kinds() {
		commands = append(commands, probeCommand(kind))
	}
	commands = append(commands, deviceCommand())

	return &cli.Command{
		Name:  "invlite",
		Usage: "Collect hardware and software inventory from local or remote hosts",
		Description: `invlite queries machine facts (motherboard, disk, OS, CPU, BIOS,
GPU, installed software) from one or many hosts and optionally exports
the aggregated records to CSV, JSON, TXT, XML or HTML.

Targets equal to the local host identity are probed in-process; all
other targets are reached over the configured remote-execution channel
(WinRM by default, SSH optional). Network devices without a shell can
be inventoried over SNMP with the device command.`,
		Commands: commands,
	}
}

func probeCommand(kind probe.Kind) *cli.Command {
	def, ok := probe.Lookup(kind)
	if !ok {
		panic(fmt.Sprintf("no probe definition for kind %q", kind))
	}
	return &cli.Command{
		Name:  string(kind),
		Usage: fmt.Sprintf("Collect %s inventory", def.Entity()),
		Flags: collectorFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Logging)

			runners := channel.NewFactory(cfg.Identity.Hostname, cfg.Channel, logger)
			bound := probe.Bind(def, cmd.Bool("raw"), runners)
			return runCollection(ctx, cmd, cfg, logger, bound, kind == probe.KindSoftware)
		},
	}
}

func deviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "Collect network device facts over SNMP",
		Flags: collectorFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Logging)
			return runCollection(ctx, cmd, cfg, logger, snmp.NewProbe(cfg.SNMP), false)
		},
	}
}

func collectorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "computer-name",
			Aliases: []string{"n"},
			Usage:   "target host(s); hostname, IP, CIDR block or IP range (default: local host)",
		},
		&cli.StringFlag{
			Name:    "export-format",
			Aliases: []string{"f"},
			Usage:   "export format: " + strings.Join(export.SupportedFormats(), ", ") + " (default: print to stdout)",
		},
		&cli.StringFlag{
			Name:    "export-path",
			Aliases: []string{"p"},
			Usage:   "export file or directory (default: system temp directory)",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "return unprocessed platform facts, bypassing normalization and export",
		},
		&cli.StringFlag{
			Name:    "config",
			Sources: cli.EnvVars("INVLITE_CONFIG"),
			Usage:   "config file path (default: built-in defaults)",
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if path := cmd.String("config"); path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

// runCollection drives the shared flow: expand targets, fan the probe
// out, then print or export. Per-target failures are non-fatal unless
// every target failed.
func runCollection(ctx context.Context, cmd *cli.Command, cfg *config.Config, logger *slog.Logger, p fanout.Probe, annotate bool) error {
	names := cmd.StringSlice("computer-name")
	if len(names) == 0 {
		names = []string{cfg.Identity.Hostname}
	}
	hosts, err := targets.ExpandAll(names)
	if err != nil {
		return err
	}

	collector := fanout.New(cfg.Fanout.GetTargetTimeout(), cfg.Fanout.MaxWorkers, logger)
	records, failures := collector.Collect(ctx, hosts, p)

	if len(hosts) > 0 && len(failures) == len(hosts) {
		return fmt.Errorf("collection failed for all %d targets", len(hosts))
	}

	format := cmd.String("export-format")
	if format == "" || cmd.Bool("raw") {
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render records: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	req := export.Request{
		Entity:   p.Entity(),
		Format:   format,
		PathHint: cmd.String("export-path"),
	}
	if annotate {
		req.Annotation = "Computers: " + strings.Join(hosts, ", ")
	}

	pipeline := export.New(cfg.Export.DefaultDir, logger)
	path, err := pipeline.Export(ctx, records, req)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Records go to stdout, logs to stderr
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
