package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storyweave/internal/cli"
	"github.com/aretw0/storyweave/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [graph]",
	Short: "Start the HTTP server",
	Long: `Serves a story graph over a JSON API. Sessions live in the configured store
(memory, file, redis or sqlite); with redis, replicas share sessions and
serialise access to each one through a distributed lock.

Progress is streamed to subscribers as Server-Sent Events on /events and
/sessions/{id}/events.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		watch, _ := cmd.Flags().GetBool("watch")
		metrics, _ := cmd.Flags().GetBool("metrics")
		strict, _ := cmd.Flags().GetBool("strict")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		err := cli.Serve(sigCtx, cfg, cli.ServeOptions{
			Graph:   graphArg(args),
			Watch:   watch,
			Metrics: metrics,
			Strict:  strict,
		})
		if err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Storyweave server stopped gracefully")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("store", config.StoreMemory, "Session store: memory, file, redis or sqlite")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address for --store redis")
	serveCmd.Flags().String("sqlite-path", ".storyweave/sessions.db", "Database file for --store sqlite")
	serveCmd.Flags().Duration("session-ttl", 0, "Expire idle redis sessions after this long (default 24h)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the graph on changes without dropping sessions")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().Bool("strict", false, "Refuse to serve graphs with validation errors")
}
