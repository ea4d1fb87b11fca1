package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph]",
	Short: "Check the graph for consistency",
	Long: `Reports structural errors (missing entry node, dangling edges, duplicate IDs)
and authoring warnings (unwired choices, unknown variables, unreachable nodes).
Exits non-zero when errors are found.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		report, err := cli.Validate(cmd.Context(), os.Stdout, cfg, graphArg(args))
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if report.HasErrors() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
