package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kohaku-io/agora/internal/agent"
	"github.com/kohaku-io/agora/internal/config"
	"github.com/kohaku-io/agora/internal/daemon"
	"github.com/kohaku-io/agora/internal/janitor"
	"github.com/kohaku-io/agora/internal/runtime"

	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the agent daemon",
	Long:  `Runs the turn scheduler for one agent: it watches active discussions, takes its turns, and appends responses until stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			return fmt.Errorf("--name is required (known: claude, codex)")
		}

		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		rtCfg, err := runtime.ParseConfig(cfg)
		if err != nil {
			return fmt.Errorf("parse runtime config: %w", err)
		}

		profile, err := agent.Resolve(name, rtCfg.InvokeTimeout)
		if err != nil {
			return err
		}

		store, err := newStore()
		if err != nil {
			return fmt.Errorf("open discussion store: %w", err)
		}

		daemonMgr, err := daemon.NewDaemon(profile.Name, cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		daemonMgr.AddComponent(runtime.New(profile, store, rtCfg))

		if cfg.Janitor.Enabled {
			lockOpts, err := lockOptionsFromConfig()
			if err != nil {
				return err
			}
			archiveAfter, err := config.DurationOrDefault(cfg.Janitor.ArchiveAfter, "0s")
			if err != nil {
				return fmt.Errorf("parse janitor archive_after: %w", err)
			}
			daemonMgr.AddComponent(janitor.New(store, janitor.Config{
				Schedule:     cfg.Janitor.SweepSchedule,
				LockStaleTTL: lockOpts.StaleTTL,
				ArchiveAfter: archiveAfter,
			}))
		}

		slog.Info("Agent daemon starting up...", "agent", profile.Name, "base_dir", store.BaseDir())
		err = daemonMgr.Start(context.Background())
		if err != nil {
			// signal-driven cancellation is the normal way to stop
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Agent daemon stopped gracefully", "agent", profile.Name)
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Agent daemon stopped gracefully", "agent", profile.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.Flags().StringP("name", "n", "", "Agent to run as (claude, codex)")
}
