package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [graph]",
	Short: "Export the story graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the story: nodes shaped by kind, edges labelled by choice or branch.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if err := cli.Mermaid(cmd.Context(), os.Stdout, cfg, graphArg(args)); err != nil {
			fmt.Printf("Error exporting graph: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
