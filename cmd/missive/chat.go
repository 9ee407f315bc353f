package main

import (
	"fmt"
	"os"

	"github.com/aretw0/missive/internal/cli"
	"github.com/aretw0/missive/internal/presentation/tui"
	"github.com/aretw0/missive/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Starts an interactive conversation. Type /new for a fresh session,
/reset to clear the current one and /quit to leave.

With --json, every input line is a JSON object {"text": "..."} and every
turn is answered with one JSON object on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		sessionID, _ := cmd.Flags().GetString("session")
		showTools, _ := cmd.Flags().GetBool("tools")

		opts := cliOptions(cmd)
		opts.Quiet = jsonMode && !opts.Debug
		app, err := cli.Build(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer app.Close()

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			textOpts := []runner.TextHandlerOption{runner.WithToolTrace(showTools)}
			if tui.IsInteractive(os.Stdout) {
				textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer(tui.Width(os.Stdout, 80))))
				hint := "Ask about your inbox or calendar. /quit to leave."
				if app.Auth == nil {
					hint = "Mail and calendar are not configured. /quit to leave."
				}
				tui.PrintBanner(os.Stdout, hint)
			}
			handler = runner.NewTextHandler(os.Stdin, os.Stdout, textOpts...)
		}

		r := runner.New(app.Sessions,
			runner.WithHandler(handler),
			runner.WithSessionID(sessionID),
			runner.WithLogger(app.Logger),
		)
		if app.Auth != nil && !jsonMode {
			connected, err := app.Auth.Connected(cmd.Context(), r.SessionID())
			if err == nil && !connected {
				fmt.Printf(">>> Session %s is not connected to Google. Run: missive auth url --session %s\n", r.SessionID(), r.SessionID())
			}
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("json", false, "Line-delimited JSON input and output")
	chatCmd.Flags().String("session", "", "Resume this session id (default: a new session)")
	chatCmd.Flags().Bool("tools", true, "Show tool calls as they happen")
}
