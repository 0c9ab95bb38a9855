package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/executor"
	"vigil/internal/notify"
	"vigil/internal/state"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the supervisor loop in the foreground",
	Long: `Run the supervisor loop in the foreground until interrupted.

The loop picks up the instruction queued with 'vigil prompt' (or one queued
later while it idles) and keeps invoking the agent until the task signals
completion or exhausts its time budget. SIGINT and SIGTERM stop the loop at
the next iteration boundary; an invocation already in flight is allowed to
finish.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	info, err := os.Stat(cfg.Workspace)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("workspace %s is not an accessible directory\n\nHint: create it or point --workspace at an existing one", cfg.Workspace)
	}

	store := state.NewStore(cfg.Workspace, logger)
	dockerExec := executor.NewDockerExecutor(cfg.Container, cfg.AgentCmd, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !dockerExec.CheckContainer(ctx) {
		return fmt.Errorf("container %q is not running\n\nHint: start it first, e.g.\n  docker start %s", cfg.Container, cfg.Container)
	}

	reporter, closeSinks, err := buildReporter(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	daemon.New(cfg, store, dockerExec, reporter, logger).Run(ctx)
	return nil
}

// buildReporter assembles the notification sinks the configuration enables.
// A NATS connection failure is fatal here; once running, sinks never fail
// loudly.
func buildReporter(cfg *config.Config, logger *slog.Logger) (*notify.Reporter, func(), error) {
	var sinks []notify.Sink
	closeSinks := func() {}

	if cfg.Zulip.Valid() {
		sinks = append(sinks, notify.NewZulipSink(cfg.Zulip.Site, cfg.Zulip.Email, cfg.Zulip.APIKey, cfg.Zulip.Stream, logger))
		logger.Info("zulip notifications enabled", "stream", cfg.Zulip.Stream)
	}

	if cfg.NATS.URL != "" {
		sink, err := notify.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		sinks = append(sinks, sink)
		closeSinks = sink.Close
		logger.Info("nats notifications enabled", "subject", cfg.NATS.Subject)
	}

	if len(sinks) == 0 {
		logger.Info("no notification sinks configured")
	}

	return notify.NewReporter(sinks...), closeSinks, nil
}
