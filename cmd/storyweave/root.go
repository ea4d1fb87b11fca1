package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyweave",
	Short: "Storyweave plays branching visual-novel story graphs",
	Long: `Storyweave walks story graphs of dialogue, choices, conditions and variable
assignments. Play them in the terminal, serve them over HTTP or hand them to
AI agents through MCP.

Settings come from flags, STORYWEAVE_* environment variables and an optional
storyweave.yaml in the story directory, in that order of precedence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the story graphs")
	rootCmd.PersistentFlags().String("source", config.SourceFile, "Graph source: file or loam")
	rootCmd.PersistentFlags().String("entry", "start", "Node sessions start from")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
}

// loadConfig resolves the configuration for cmd, exiting on failure.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// graphArg returns the optional graph name argument.
func graphArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
