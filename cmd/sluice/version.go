package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sluice"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sluice",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sluice version %s\n", strings.TrimSpace(sluice.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
