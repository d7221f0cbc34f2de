package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicare/medicare/internal/agent"
	"github.com/medicare/medicare/internal/config"
	"github.com/medicare/medicare/internal/platform/clock"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medicare-agent",
		Short: "Device-side reminder agent",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(nextCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync reminders and schedule notifications until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AgentUsername == "" {
				return fmt.Errorf("AGENT_USERNAME is required")
			}
			if cfg.APITimeoutSeconds < 5 || cfg.APITimeoutSeconds > 30 {
				return fmt.Errorf("API_TIMEOUT_SECONDS must be between 5 and 30, got %d", cfg.APITimeoutSeconds)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			clk := clock.New()
			notifier := agent.NewLogNotifier(logger)
			scheduler := agent.NewScheduler(notifier, clk, logger)
			api := agent.NewAPIClient(cfg.APIBaseURL, time.Duration(cfg.APITimeoutSeconds)*time.Second)
			sync := agent.NewSyncClient(api, scheduler, clk, logger, cfg.AgentUsername)

			logger.Info().
				Str("backend", cfg.APIBaseURL).
				Str("username", cfg.AgentUsername).
				Int("interval_seconds", cfg.RefreshIntervalSeconds).
				Msg("agent starting")

			sync.Run(ctx, time.Duration(cfg.RefreshIntervalSeconds)*time.Second)
			logger.Info().Msg("agent stopped")
			return nil
		},
	}
}

func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Print the next upcoming dose and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.Nop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AgentUsername == "" {
				return fmt.Errorf("AGENT_USERNAME is required")
			}

			clk := clock.New()
			notifier := agent.NewLogNotifier(logger)
			scheduler := agent.NewScheduler(notifier, clk, logger)
			api := agent.NewAPIClient(cfg.APIBaseURL, time.Duration(cfg.APITimeoutSeconds)*time.Second)
			sync := agent.NewSyncClient(api, scheduler, clk, logger, cfg.AgentUsername)

			if err := sync.Refresh(cmd.Context()); err != nil {
				return err
			}

			next := sync.Next()
			if next == nil {
				fmt.Println("No upcoming doses in the next week.")
				return nil
			}
			fmt.Printf("%s at %s\n", next.Reminder.Name, next.At.Format("Mon 15:04"))
			return nil
		},
	}
}
