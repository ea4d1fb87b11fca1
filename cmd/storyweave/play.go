package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/cli"
	"github.com/aretw0/storyweave/internal/config"
	"github.com/aretw0/storyweave/pkg/runner"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [graph]",
	Short: "Play a story graph in the terminal",
	Long: `Plays a story graph interactively. Press Enter to continue dialogue, type a
number to pick a choice and 'q' to quit.

With --json the session speaks NDJSON instead: one view per line out, one
command per line in, e.g. {"advance":true} or {"choose":0}.

A named --session is saved after every step and resumed on the next run.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		jsonMode, _ := cmd.Flags().GetBool("json")
		debug, _ := cmd.Flags().GetBool("debug")
		watch, _ := cmd.Flags().GetBool("watch")
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		vars, _ := cmd.Flags().GetStringToString("vars")

		if watch && jsonMode {
			fmt.Println("Error: --watch and --json cannot be used together.")
			os.Exit(1)
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		err := cli.Play(sigCtx, cfg, cli.PlayOptions{
			Graph:     graphArg(args),
			JSON:      jsonMode,
			Debug:     debug,
			Watch:     watch,
			SessionID: sessionID,
			Fresh:     fresh,
			Vars:      vars,
		})
		if err != nil && !(errors.Is(err, context.Canceled) && sigCtx.Signal() != nil) {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	playCmd.Flags().Bool("debug", false, "Log lifecycle events to stderr and show the variables panel")
	playCmd.Flags().BoolP("watch", "w", false, "Reload the graph on file changes, keeping the session")
	playCmd.Flags().String("session", "", "Persist and resume the session under this ID")
	playCmd.Flags().Bool("fresh", false, "Discard the saved session before playing")
	playCmd.Flags().StringToString("vars", nil, "Initial variable values by name, e.g. --vars gold=10,name=Ana")
	playCmd.Flags().Duration("delay", runner.DefaultAutoDelay, "Pause before stepping past automatic nodes")
	playCmd.Flags().String("store", config.StoreMemory, "Session store for --session: file, redis or sqlite (memory means file here)")

	// Make 'play' the default if no command is provided.
	rootCmd.Run = playCmd.Run
	rootCmd.Args = playCmd.Args
	rootCmd.Flags().AddFlagSet(playCmd.Flags())
}
