package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/stagegate/internal/presentation/graph"
)

// stagesCmd represents the stages command
var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Show the stage rules",
	Long: `Prints the allowed and forbidden actions of every stage. With --mermaid it
outputs a Mermaid diagram (graph TD) instead; --session highlights the path a
stored session has taken.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mermaid, _ := cmd.Flags().GetBool("mermaid")
		sessionID, _ := cmd.Flags().GetString("session")

		a, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer a.rt.Close()

		rules := a.rt.Engine.Stages()
		out := cmd.OutOrStdout()

		if mermaid {
			var overlay *graph.GraphOverlay
			if sessionID != "" {
				sc, err := a.rt.Engine.Session(cmd.Context(), sessionID)
				if err != nil {
					return fmt.Errorf("error loading session '%s': %w", sessionID, err)
				}
				overlay = graph.OverlayFor(sc)
			}
			fmt.Fprint(out, graph.GenerateMermaid(rules, overlay))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STAGE\tPRICES\tQUESTIONS\tCONSENT\tALLOWED\tFORBIDDEN")
		for _, r := range rules {
			fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%s\t%s\n",
				r.Stage, r.CanShowPrices, r.MaxQuestions,
				joinOr(r.RequiresConsent), joinOr(r.AllowedActions), joinOr(r.ForbiddenActions))
		}
		return tw.Flush()
	},
}

func joinOr[T ~string](items []T) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = string(it)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(stagesCmd)
	stagesCmd.Flags().Bool("mermaid", false, "Output a Mermaid diagram")
	stagesCmd.Flags().String("session", "", "Highlight the path of a stored session (with --mermaid)")
}
