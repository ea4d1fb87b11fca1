package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/cli"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a starter story graph",
	Long:  `Writes <name>.json into the story directory: a short scene using every node kind, ready to play and edit.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		path, err := cli.Scaffold(cfg.Dir, args[0], cfg.Entry)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created %s\nTry: storyweave play %s --dir %s\n", path, args[0], cfg.Dir)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
