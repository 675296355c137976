package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialogue tree",
	Long:  `Outputs the dialogue tree as a Mermaid diagram (graph TD), or as JSON with --format json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		c, err := catalog.Load(cmd.Context(), newLoader(cfg, logger), catalog.WithEntryNode(cfg.EntryNode))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "mermaid":
			_, err = fmt.Fprint(out, graph.GenerateMermaid(c.Nodes(), c.EntryNodeID(), nil))
			return err
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(c.Nodes())
		}
		return fmt.Errorf("unknown format %q (want mermaid or json)", format)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("format", "mermaid", "Output format: mermaid or json")
}
