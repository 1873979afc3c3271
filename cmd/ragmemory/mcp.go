package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragmemory/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpCmd serves the search tools to MCP clients over stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing:

  search_memory     semantic search over a collection
  list_collections  collections and their point counts

Register it with an MCP client, for example:
  {"command": "ragmemory", "args": ["mcp"]}

Logs go to stderr; stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		svc, err := a.searchService()
		if err != nil {
			return err
		}
		srv, err := mcp.NewServer(&mcp.Config{
			Version:           version,
			DefaultCollection: a.cfg.Search.DefaultCollection,
			DefaultTopK:       a.cfg.Search.DefaultTopK,
			MaxTopK:           a.cfg.Search.MaxTopK,
			SnippetChars:      a.cfg.Search.SnippetChars,
			Logger:            a.logger.Named("mcp").Underlying(),
		}, svc)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}
