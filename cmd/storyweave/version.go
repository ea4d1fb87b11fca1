package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/storyweave"
	"github.com/aretw0/storyweave/internal/presentation/tui"
	"github.com/aretw0/storyweave/pkg/runner"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of storyweave",
	Run: func(cmd *cobra.Command, args []string) {
		if runner.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(storyweave.Version))
			return
		}
		fmt.Printf("storyweave version %s\n", strings.TrimSpace(storyweave.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
