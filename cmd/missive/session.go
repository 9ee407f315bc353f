package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/missive/internal/cli"
	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversations",
	Long:  `List, inspect, and remove conversations kept by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store ports.ConversationStore) error {
			sessions, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			fmt.Fprintln(out, "Sessions:")
			for _, s := range sessions {
				fmt.Fprintln(out, "- "+s)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store ports.ConversationStore) error {
			conv, err := store.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(conv, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store ports.ConversationStore) error {
			ids := args
			if all, _ := cmd.Flags().GetBool("all"); all {
				var err error
				if ids, err = store.List(ctx); err != nil {
					return fmt.Errorf("listing sessions: %w", err)
				}
			}

			var errs []error
			for _, id := range ids {
				if err := store.Delete(ctx, id); err != nil {
					errs = append(errs, fmt.Errorf("removing '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}

func withStore(cmd *cobra.Command, fn func(context.Context, ports.ConversationStore) error) error {
	cfg, err := cli.LoadConfig(cliOptions(cmd))
	if err != nil {
		return err
	}
	store, closeStore, err := cli.OpenStore(cmd.Context(), cfg, discardLogger())
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(cmd.Context(), store)
}

func discardLogger() *slog.Logger {
	return logging.NewNop()
}
