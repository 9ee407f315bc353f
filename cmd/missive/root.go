package main

import (
	"fmt"
	"os"

	"github.com/aretw0/missive/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "missive",
	Short: "Missive is a conversational assistant for your email and calendar",
	Long: `Missive answers in natural language and acts on Gmail and Google Calendar:
searching and summarizing mail, drafting and (after confirmation) sending
emails, and scheduling events from plain-language requests.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./missive.yaml or $HOME/.config/missive/missive.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("script", "", "Replay a YAML-scripted model instead of calling Gemini")
}

// cliOptions collects the persistent flags.
func cliOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	script, _ := cmd.Flags().GetString("script")
	return cli.Options{ConfigPath: configPath, Debug: debug, Script: script}
}
