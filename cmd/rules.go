package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inboxpilot/inboxpilot/internal/rules"
	"github.com/inboxpilot/inboxpilot/internal/storage"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage triage rules",
	}

	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesAddCmd())
	cmd.AddCommand(newRulesSeedCmd())
	cmd.AddCommand(newRulesToggleCmd("enable", true))
	cmd.AddCommand(newRulesToggleCmd("disable", false))
	cmd.AddCommand(newRulesDeleteCmd())

	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all triage rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *storage.Store) error {
				list, err := store.ListRules(ctx)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Println("No rules defined.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tENABLED\tEXECUTIONS")
				for _, r := range list {
					fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", r.ID, r.Name, r.Enabled, r.ExecutionCount)
				}
				return w.Flush()
			})
		},
	}
}

func newRulesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <rule.json>",
		Short: "Add a rule from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rule file: %w", err)
			}
			var rule rules.Rule
			if err := json.Unmarshal(data, &rule); err != nil {
				return fmt.Errorf("invalid rule JSON: %w", err)
			}
			if rule.Name == "" {
				return fmt.Errorf("rule must have a name")
			}

			return withStore(func(ctx context.Context, store *storage.Store) error {
				if err := store.SaveRule(ctx, &rule); err != nil {
					return err
				}
				fmt.Printf("Saved rule %q with id %s.\n", rule.Name, rule.ID)
				return nil
			})
		},
	}
}

func newRulesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the example starter rules",
		Long: `Install the example starter rules into an empty rule set. Does nothing
when rules already exist, so it is safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *storage.Store) error {
				existing, err := store.ListRules(ctx)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					fmt.Printf("Rule set is not empty (%d rule(s)); nothing seeded.\n", len(existing))
					return nil
				}

				seeds := rules.SeedRules()
				for i := range seeds {
					if err := store.SaveRule(ctx, &seeds[i]); err != nil {
						return err
					}
				}
				fmt.Printf("Seeded %d example rule(s).\n", len(seeds))
				return nil
			})
		},
	}
}

func newRulesToggleCmd(use string, enabled bool) *cobra.Command {
	short := "Disable a rule without deleting it"
	if enabled {
		short = "Enable a rule so the next pass evaluates it"
	}
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *storage.Store) error {
				if err := store.SetRuleEnabled(ctx, args[0], enabled); err != nil {
					return err
				}
				fmt.Printf("Rule %s %sd.\n", args[0], use)
				return nil
			})
		},
	}
}

func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *storage.Store) error {
				if err := store.DeleteRule(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Rule %s deleted.\n", args[0])
				return nil
			})
		},
	}
}

// withStore loads the configuration, opens the store and runs fn with it.
func withStore(fn func(ctx context.Context, store *storage.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DatabasePath,
		storage.WithLogger(newLogger(cfg)),
		storage.WithDebugRetention(cfg.Triage.DebugRetentionDays))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	return fn(context.Background(), store)
}
