package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragmemory/internal/search"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

const (
	toolSearchMemory    = "search_memory"
	toolListCollections = "list_collections"
)

type searchMemoryInput struct {
	Query      string `json:"query,omitempty" jsonschema:"Search query (required)"`
	TopK       *int   `json:"top_k,omitempty" jsonschema:"Number of results, 1-10 (default: 3)"`
	Collection string `json:"collection,omitempty" jsonschema:"Collection to search (default: chatgpt_conversations)"`
}

type listCollectionsInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSearchMemory,
		Description: "Search the RAG memory of past ChatGPT and Claude conversations",
	}, s.handleSearchMemory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolListCollections,
		Description: "List memory collections with their point counts",
	}, s.handleListCollections)
}

// handleSearchMemory never returns a protocol error: every failure is
// rendered as text in the tool result.
func (s *Server) handleSearchMemory(ctx context.Context, _ *mcp.CallToolRequest, args searchMemoryInput) (*mcp.CallToolResult, any, error) {
	var err error
	s.metrics.IncrementActive(ctx, toolSearchMemory)
	defer s.metrics.track(ctx, toolSearchMemory, time.Now(), &err)

	collection := args.Collection
	if collection == "" {
		collection = s.config.DefaultCollection
	}
	topK := s.clampTopK(args.TopK)

	var results []search.Result
	results, err = s.search.Search(ctx, args.Query, collection, topK)
	if err != nil {
		s.logger.Warn("search_memory failed",
			zap.String("collection", collection),
			zap.Int("top_k", topK),
			zap.Error(err))
		return errorResult(err), nil, nil
	}

	s.logger.Debug("search_memory",
		zap.String("collection", collection),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))

	if len(results) == 0 {
		return textResult(fmt.Sprintf("No results found for '%s'", args.Query)), nil, nil
	}
	return textResult(formatResults(results, s.config.SnippetChars)), nil, nil
}

func (s *Server) handleListCollections(ctx context.Context, _ *mcp.CallToolRequest, _ listCollectionsInput) (*mcp.CallToolResult, any, error) {
	var err error
	s.metrics.IncrementActive(ctx, toolListCollections)
	defer s.metrics.track(ctx, toolListCollections, time.Now(), &err)

	var infos []vectorstore.CollectionInfo
	infos, err = s.search.Collections(ctx)
	if err != nil {
		s.logger.Warn("list_collections failed", zap.Error(err))
		return errorResult(err), nil, nil
	}
	return textResult(formatCollections(infos)), nil, nil
}

// clampTopK applies the default and bounds top_k to [1, MaxTopK].
func (s *Server) clampTopK(topK *int) int {
	if topK == nil {
		return s.config.DefaultTopK
	}
	return max(1, min(*topK, s.config.MaxTopK))
}

// formatResults renders a numbered list, one truncated chunk per entry.
func formatResults(results []search.Result, snippetChars int) string {
	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf("%d. %s", i+1, truncate(r.Chunk.Text, snippetChars))
	}
	return strings.Join(entries, "\n\n")
}

func formatCollections(infos []vectorstore.CollectionInfo) string {
	if len(infos) == 0 {
		return "No collections found"
	}
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %d points", info.Name, info.PointCount)
	}
	return b.String()
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(err error) *mcp.CallToolResult {
	msg := err.Error()
	if errors.Is(err, search.ErrEmptyQuery) {
		msg = "query is required"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + msg}},
		IsError: true,
	}
}
