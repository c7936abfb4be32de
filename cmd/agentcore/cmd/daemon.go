package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"agentcore/internal/bus"
	"agentcore/internal/config"
	"agentcore/internal/coordinator"
	"agentcore/internal/executor"
	"agentcore/internal/profiles"
	"agentcore/internal/rooms"
	"agentcore/internal/router"
	"agentcore/internal/store"
	"agentcore/internal/tools"
)

// teamName identifies the bot team whose profiles are registered onto
// the bus at startup; the coordination core runs a single team.
const teamName = "agentcore"

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the coordination core: router calibration and scheduled job dispatch",
	RunE:  runDaemon,
}

// noopAgentRunner answers every routine with a log line. Wiring a real
// assistant entry point (conversation model, tool loop) is outside
// this package's scope; the daemon still exercises the full dispatch
// path against it.
type noopAgentRunner struct{}

func (noopAgentRunner) Process(ctx context.Context, sessionKey, channel, chatID, message string) (string, error) {
	slog.Info("daemon: routine message (no agent runtime wired)", "session", sessionKey, "channel", channel, "chat", chatID, "message", message)
	return "", nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromDefaultPath()
	if err != nil {
		return err
	}
	if err := config.EnsureDir(cfg.Paths.Workspace); err != nil {
		return err
	}

	s, err := store.Open(cfg.Store.DBPath, cfg.Store.CacheTTL, cfg.Store.CacheCapacity)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := router.New(s, nil)
	if err != nil {
		return err
	}

	roomReg, err := rooms.Open(cfg.Paths.RoomsDir)
	if err != nil {
		return err
	}

	b := bus.New(s, cfg.Bus.GlobalLogCapacity, cfg.Bus.InboxCapacity)
	for role, profile := range profiles.BuildAllProfiles(teamName, cfg.Paths.Workspace) {
		b.Register(role, profile.BotName, role)
	}

	coord := coordinator.New(s, cfg.Coordinator.HeartbeatTimeout, cfg.Coordinator.MonitorInterval, cfg.Coordinator.CompletedTaskGCAfter, cfg.Coordinator.ConsensusThreshold, nil, b)

	ecfg := executor.Config{
		TickInterval:          cfg.Executor.TickInterval,
		MaxConcLLM:            cfg.Executor.MaxConcLLM,
		MaxConcDefault:        cfg.Executor.MaxConcDefault,
		LockPath:              cfg.Executor.LockPath,
		CalibrationMinRecords: cfg.Router.CalibrationMinSamples,
	}
	exec := executor.New(ecfg, r, coord, noopAgentRunner{}, nil, roomReg, tools.NewCompactor(s))

	jobPath, err := jobFilePath()
	if err != nil {
		return err
	}
	jobs, err := executor.LoadJobFile(jobPath)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		exec.Register(job)
	}
	color.Cyan("loaded %d scheduled job(s) from %s", len(jobs), jobPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := coord.RunLivenessMonitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("daemon: liveness monitor stopped", "error", err)
		}
	}()

	color.Green("agentcore daemon running (tick every %s)", cfg.Executor.TickInterval)
	err = exec.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
