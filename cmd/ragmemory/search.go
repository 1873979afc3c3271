package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragmemory/internal/search"
)

// previewChars bounds the chunk text printed per result.
const previewChars = 200

var (
	searchCollection string
	searchTopK       int
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search (default: search.default_collection)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default: search.default_top_k)")
}

// searchCmd runs one semantic query
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed conversations",
	Long: `Embed a natural-language query and print the closest chunks, best first.

Examples:
  ragmemory search "how did we configure the retry backoff"
  ragmemory search -c claude_conversations -k 5 "rust lifetimes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	query := strings.Join(args, " ")
	collection := searchCollection
	if collection == "" {
		collection = a.cfg.Search.DefaultCollection
	}
	topK := searchTopK
	if topK == 0 {
		topK = a.cfg.Search.DefaultTopK
	}

	results, err := svc.Search(ctx, query, collection, topK)
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), query, collection, results)
	return nil
}

func printResults(w io.Writer, query, collection string, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No results found for '%s' in %s\n", query, collection)
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%.4f] %s (chunk %d, %s)\n", i+1, r.Score, r.Chunk.ConversationTitle, r.Chunk.Index, r.ID)
		fmt.Fprintf(w, "   %s\n\n", preview(r.Chunk.Text, previewChars))
	}
}

// preview flattens whitespace and cuts text to n runes.
func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "..."
}
