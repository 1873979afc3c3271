package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
)

var (
	ingestCollection string
	ingestSource     string
	ingestChunkSize  int
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default: per-source collection from config)")
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "auto", "export format: chatgpt, claude or auto")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "messages per chunk (default: 2 for chatgpt, 3 for claude)")
}

// ingestCmd rebuilds one collection from an export file
var ingestCmd = &cobra.Command{
	Use:   "ingest <export.json>",
	Short: "Index a ChatGPT or Claude conversation export",
	Long: `Parse a conversation export, chunk it, embed every chunk and rebuild the
target collection. Any existing collection with that name is replaced.

Examples:
  # Detect the format and use the configured collection
  ragmemory ingest ~/Downloads/conversations.json

  # Claude export into a custom collection with 4 messages per chunk
  ragmemory ingest --source claude --collection work_chats --chunk-size 4 claude.json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, err := conversation.ParseSource(ingestSource)
	if err != nil {
		return err
	}
	if ingestChunkSize < 0 {
		return fmt.Errorf("%w: chunk size must be positive", ingest.ErrInvalidConfig)
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	p, err := a.pipelineFor(src)
	if err != nil {
		return err
	}

	collection := ingestCollection
	if collection == "" {
		collection = a.defaultCollection(resolveSource(args[0], src))
	}

	report, err := p.Ingest(ctx, args[0], collection, ingestChunkSize)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

// resolveSource detects the format of an auto-detected export. Read and
// parse failures are left for the pipeline to report.
func resolveSource(path string, src conversation.Source) conversation.Source {
	if src != conversation.SourceUnknown {
		return src
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return src
	}
	detected, err := conversation.DetectSource(data)
	if err != nil {
		return src
	}
	return detected
}

// defaultCollection picks the configured collection for a source. Unknown
// formats fall back to the ChatGPT collection, matching the search default.
func (a *app) defaultCollection(src conversation.Source) string {
	if src == conversation.SourceClaude {
		return a.cfg.Ingest.ClaudeCollection
	}
	return a.cfg.Ingest.ChatGPTCollection
}

func printReport(w io.Writer, r *ingest.Report) {
	fmt.Fprintf(w, "Ingested %s into %q (%s)\n", r.Path, r.Collection, r.Source)
	fmt.Fprintf(w, "  conversations: %d (skipped %d, empty %d)\n", r.Conversations, r.SkippedConversations, r.DroppedConversations)
	fmt.Fprintf(w, "  messages:      %d\n", r.Messages)
	fmt.Fprintf(w, "  chunks:        %d (size %d)\n", r.ChunksCreated, r.ChunkSize)
	fmt.Fprintf(w, "  batches:       %d/%d\n", r.BatchesCompleted, r.Batches)
	fmt.Fprintf(w, "  points:        %d\n", r.PointsUpserted)
	fmt.Fprintf(w, "  duration:      %s\n", r.Duration.Round(1e6))
}
