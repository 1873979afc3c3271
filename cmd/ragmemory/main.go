// Package main implements the ragmemory CLI: ingest conversation exports,
// search them, keep them fresh and expose them to MCP clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// logLevel overrides logging.level from the config file.
	logLevel string
	// version information
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragmemory",
	Short: "Semantic search over exported ChatGPT and Claude conversations",
	Long: `ragmemory indexes conversation exports from ChatGPT and Claude into a
vector store and answers natural-language queries against them.

Exports are parsed, split into overlapping-free chunks of consecutive
messages, embedded locally and written to Qdrant (or an embedded chromem
database). The same index is served over MCP, an HTTP API and this CLI.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/ragmemory/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
