package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/cli"
	"github.com/aretw0/storyweave/internal/config"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long: `List, inspect, and remove sessions kept by the configured store.
The memory store does not outlive a process, so it reads .storyweave/sessions instead.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		defer store.Close()
		if err := cli.ListSessions(cmd.Context(), os.Stdout, store); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		defer store.Close()
		if err := cli.InspectSession(cmd.Context(), os.Stdout, store, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")
		store := getStore(cmd)
		defer store.Close()
		if err := cli.RemoveSessions(cmd.Context(), os.Stdout, store, args, all); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionCmd.PersistentFlags().String("store", config.StoreFile, "Session store: file, redis or sqlite")
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}

func getStore(cmd *cobra.Command) *cli.Store {
	cfg := loadConfig(cmd)
	if cfg.Store == config.StoreMemory {
		cfg.Store = config.StoreFile
	}
	store, err := cli.OpenStore(cfg)
	if err != nil {
		fmt.Printf("Error opening session store: %v\n", err)
		os.Exit(1)
	}
	return store
}
