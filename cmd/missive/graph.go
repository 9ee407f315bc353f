package main

import (
	"fmt"

	"github.com/aretw0/missive"
	"github.com/aretw0/missive/internal/cli"
	"github.com/aretw0/missive/internal/presentation/graph"
	"github.com/aretw0/missive/pkg/adapters/script"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the orchestrator topology as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph TD) of the turn state machine.
With --session, the path taken by that session's last turn is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The topology does not depend on the model: an empty script never answers.
		engine, err := missive.New(script.New(&script.Script{}))
		if err != nil {
			return err
		}
		nodes := engine.Inspect()

		var overlay *graph.Overlay
		if id, _ := cmd.Flags().GetString("session"); id != "" {
			cfg, err := cli.LoadConfig(cliOptions(cmd))
			if err != nil {
				return err
			}
			store, closeStore, err := cli.OpenStore(cmd.Context(), cfg, discardLogger())
			if err != nil {
				return err
			}
			defer closeStore()

			conv, err := store.Load(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", id, err)
			}
			overlay = graph.LastTurnOverlay(nodes, conv.Messages)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(nodes, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the last turn of this session")
}
