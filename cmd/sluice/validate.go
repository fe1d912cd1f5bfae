package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and pipeline ordering",
	Long: `Loads the configuration, resolves every contributor and finalizes the
pipeline. Reports unknown capabilities, bad options and ordering cycles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		defer rt.Engine.Close()

		steps, err := rt.Engine.Steps()
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pipeline is valid: %d steps\n", len(steps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
