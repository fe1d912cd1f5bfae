package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage parked runs",
	Long:  `List, inspect and remove runs parked in the configured store.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List parked runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Engine.Close()

		ids, err := rt.Manager.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No parked runs found.")
			return nil
		}
		fmt.Fprintln(out, "Parked runs:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var runsInspectCmd = &cobra.Command{
	Use:               "inspect <run-id>",
	Short:             "Show the stored snapshot of a run",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: runIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Engine.Close()

		snap, err := rt.Manager.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load run %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var runsRmCmd = &cobra.Command{
	Use:               "rm <run-id>...",
	Short:             "Remove one or more parked runs",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: runIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Engine.Close()

		var errs []error
		for _, id := range args {
			if err := rt.Manager.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd, runsInspectCmd, runsRmCmd)
}
