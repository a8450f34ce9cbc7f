package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/storage"
)

func newTriageCmd() *cobra.Command {
	var maxEmails int

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Run one triage pass over the unread inbox",
		Long: `Run one triage pass: list unread messages, evaluate every enabled rule
against each one and execute the actions of matching rules. Rules that need
the full message body defer until it is fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(maxEmails)
		},
	}

	cmd.Flags().IntVar(&maxEmails, "max-emails", 0, "Maximum number of unread messages to process (overrides the configured value)")

	return cmd
}

func runTriage(maxEmails int) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxEmails > 0 {
		cfg.Triage.MaxEmails = maxEmails
	}
	logger := newLogger(cfg)

	store, err := storage.Open(cfg.Storage.DatabasePath,
		storage.WithLogger(logger),
		storage.WithDebugRetention(cfg.Triage.DebugRetentionDays))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	sc, err := server.NewServerContext(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sc.Shutdown() }()

	runner, err := sc.Runner()
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Triage pass finished in %s.\n", report.Duration.Round(time.Millisecond))
	fmt.Printf("Processed %d message(s): %d matched, %d unmatched, %d deferred, %d failed.\n",
		report.Processed, report.Matched, report.Unmatched, report.Deferred, report.Failed)
	return nil
}
