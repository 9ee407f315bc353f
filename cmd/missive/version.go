package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/missive"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of missive",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "missive version %s\n", strings.TrimSpace(missive.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
