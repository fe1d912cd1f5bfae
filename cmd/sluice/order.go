package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/aretw0/sluice/internal/presentation/tui"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the finalized pipeline order",
	Long: `Finalizes the pipeline and prints its step order as a list, a Mermaid
flowchart, a Graphviz digraph or a Markdown table. With --run, the progress of
a parked run is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		runID, _ := cmd.Flags().GetString("run")

		rt, err := buildRuntime(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer rt.Engine.Close()

		steps, err := rt.Engine.Steps()
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if runID != "" {
			snap, err := rt.Manager.Load(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("load run %q: %w", runID, err)
			}
			overlay = graph.OverlayFor(steps, snap.Run)
		}

		out := cmd.OutOrStdout()
		switch format {
		case "list":
			for _, s := range steps {
				marker := " "
				if s.Stage {
					marker = "#"
				}
				fmt.Fprintf(out, "%3d %s %s\n", s.Position, marker, s.ID)
			}
		case "mermaid":
			fmt.Fprint(out, graph.GenerateMermaid(steps, overlay))
		case "dot":
			dot, err := graph.GenerateDOT(rt.Config.Pipeline.Name, steps, overlay)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, dot)
		case "markdown":
			md := graph.GenerateMarkdown(title(rt.Config.Pipeline.Name), steps, overlay)
			rendered, err := tui.NewRenderer(out == os.Stdout && tui.IsTerminal(os.Stdout))(md)
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
		default:
			return fmt.Errorf("unknown format %q: use list, mermaid, dot or markdown", format)
		}
		return nil
	},
}

func title(name string) string {
	if name == "" {
		return "Pipeline order"
	}
	return fmt.Sprintf("%s order", name)
}

// runIDs completes --run with the parked run IDs.
func runIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	rt, err := buildRuntime(cmd.Context(), cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer rt.Engine.Close()
	ids, _ := rt.Manager.List(cmd.Context())
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.Flags().StringP("format", "f", "list", "Output format: list, mermaid, dot or markdown")
	orderCmd.Flags().String("run", "", "Highlight the progress of a parked run")
	_ = orderCmd.RegisterFlagCompletionFunc("run", runIDs)
}
