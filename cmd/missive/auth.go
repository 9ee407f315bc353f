package main

import (
	"fmt"

	"github.com/aretw0/missive/internal/cli"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect a session to a Google account",
	Long: `Runs the OAuth consent flow for Gmail and Google Calendar. Open the URL
printed by 'auth url', approve access, then pass the code from the redirect to
'auth exchange'. Tokens are stored per session in the configured store.`,
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the consent URL for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		cfg, err := cli.LoadConfig(cliOptions(cmd))
		if err != nil {
			return err
		}
		auth, closeAuth, err := cli.OpenAuth(cmd.Context(), cfg, discardLogger())
		if err != nil {
			return err
		}
		defer closeAuth()

		fmt.Fprintln(cmd.OutOrStdout(), auth.AuthURL(sessionID))
		return nil
	},
}

var authExchangeCmd = &cobra.Command{
	Use:   "exchange <code>",
	Short: "Exchange an authorization code and store the token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		cfg, err := cli.LoadConfig(cliOptions(cmd))
		if err != nil {
			return err
		}
		auth, closeAuth, err := cli.OpenAuth(cmd.Context(), cfg, discardLogger())
		if err != nil {
			return err
		}
		defer closeAuth()

		if err := auth.Exchange(cmd.Context(), sessionID, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session '%s' connected.\n", sessionID)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a session is connected",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		cfg, err := cli.LoadConfig(cliOptions(cmd))
		if err != nil {
			return err
		}
		auth, closeAuth, err := cli.OpenAuth(cmd.Context(), cfg, discardLogger())
		if err != nil {
			return err
		}
		defer closeAuth()

		connected, err := auth.Connected(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		status := "not connected"
		if connected {
			status = "connected"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session '%s': %s\n", sessionID, status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	for _, c := range []*cobra.Command{authURLCmd, authExchangeCmd, authStatusCmd} {
		c.Flags().String("session", "", "Session to connect")
		_ = c.MarkFlagRequired("session")
		authCmd.AddCommand(c)
	}
}
