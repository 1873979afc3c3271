package mcp

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/embeddings"
	"github.com/fyrsmithlabs/ragmemory/internal/search"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

const testDim = 64

// newTestService seeds collection with one chunk per text.
func newTestService(t *testing.T, collection string, texts ...string) (*search.Service, vectorstore.Index) {
	t.Helper()
	ctx := context.Background()
	emb := embeddings.NewHashEmbedder(testDim)
	idx, err := vectorstore.NewChromemIndex(vectorstore.ChromemConfig{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.CreateCollection(ctx, collection, testDim))
	if len(texts) > 0 {
		vectors, err := emb.EmbedDocuments(ctx, texts)
		require.NoError(t, err)
		points := make([]vectorstore.Point, len(texts))
		for i, text := range texts {
			chunk := conversation.Chunk{Text: text, ConversationID: "c", ConversationTitle: "Test", Index: i}
			points[i] = vectorstore.Point{ID: vectorstore.NumID(uint64(i)), Vector: vectors[i], Payload: chunk.Payload()}
		}
		require.NoError(t, idx.Upsert(ctx, collection, points))
	}

	svc, err := search.NewService(emb, idx, nil)
	require.NoError(t, err)
	return svc, idx
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text, res.IsError
}

func TestNewServer(t *testing.T) {
	svc, _ := newTestService(t, "chatgpt_conversations")

	t.Run("nil config uses defaults", func(t *testing.T) {
		srv, err := NewServer(nil, svc)
		require.NoError(t, err)
		assert.Equal(t, 3, srv.config.DefaultTopK)
		assert.Equal(t, 10, srv.config.MaxTopK)
		assert.Equal(t, 300, srv.config.SnippetChars)
	})

	t.Run("partial config is completed", func(t *testing.T) {
		srv, err := NewServer(&Config{MaxTopK: 5, DefaultTopK: 8}, svc)
		require.NoError(t, err)
		assert.Equal(t, 5, srv.config.DefaultTopK)
		assert.Equal(t, "chatgpt_conversations", srv.config.DefaultCollection)
	})

	t.Run("search service required", func(t *testing.T) {
		_, err := NewServer(nil, nil)
		assert.Error(t, err)
	})
}

func TestServer_ListsTools(t *testing.T) {
	svc, _ := newTestService(t, "chatgpt_conversations")
	srv, err := NewServer(nil, svc)
	require.NoError(t, err)
	cs := connect(t, srv)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_memory", "list_collections"}, names)
}

func TestSearchMemory_NumberedList(t *testing.T) {
	long := "USER: " + strings.Repeat("goroutine ", 60)
	svc, _ := newTestService(t, "chatgpt_conversations",
		"USER: goroutine basics",
		long,
		"USER: pasta sauce",
	)
	srv, err := NewServer(nil, svc)
	require.NoError(t, err)
	cs := connect(t, srv)

	text, isErr := callText(t, cs, "search_memory", map[string]any{"query": "goroutine", "top_k": 2})
	assert.False(t, isErr)

	entries := strings.Split(text, "\n\n")
	require.Len(t, entries, 2)
	assert.True(t, strings.HasPrefix(entries[0], "1. "))
	assert.True(t, strings.HasPrefix(entries[1], "2. "))
	for _, e := range entries {
		body := strings.TrimPrefix(strings.TrimPrefix(e, "1. "), "2. ")
		assert.LessOrEqual(t, len(strings.TrimSuffix(body, "...")), 300)
	}
	assert.Contains(t, text, "...")
}

func TestSearchMemory_DefaultTopK(t *testing.T) {
	texts := make([]string, 6)
	for i := range texts {
		texts[i] = fmt.Sprintf("USER: memory entry %d", i)
	}
	svc, _ := newTestService(t, "chatgpt_conversations", texts...)
	srv, err := NewServer(nil, svc)
	require.NoError(t, err)
	cs := connect(t, srv)

	text, _ := callText(t, cs, "search_memory", map[string]any{"query": "memory entry"})
	assert.Len(t, strings.Split(text, "\n\n"), 3)
}

func TestSearchMemory_NoResults(t *testing.T) {
	svc, _ := newTestService(t, "chatgpt_conversations")
	srv, err := NewServer(nil, svc)
	require.NoError(t, err)
	cs := connect(t, srv)

	text, isErr := callText(t, cs, "search_memory", map[string]any{"query": "anything", "top_k": 3})
	assert.False(t, isErr)
	assert.Equal(t, "No results found for 'anything'", text)
}

func TestSearchMemory_ErrorsRenderAsText(t *testing.T) {
	svc, _ := newTestService(t, "chatgpt_conversations", "USER: hello")
	srv, err := NewServer(nil, svc)
	require.NoError(t, err)
	cs := connect(t, srv)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing query", args: map[string]any{}, want: "Error: query is required"},
		{name: "missing collection", args: map[string]any{"query": "hello", "collection": "absent"}, want: "collection not found"},
		{name: "invalid collection", args: map[string]any{"query": "hello", "collection": "../etc"}, want: "Error: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callText(t, cs, "search_memory", tt.args)
			assert.True(t, isErr)
			assert.True(t, strings.HasPrefix(text, "Error: "), text)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestListCollections(t *testing.T) {
	svc, idx := newTestService(t, "claude_conversations", "a", "b")
	require.NoError(t, idx.CreateCollection(context.Background(), "chatgpt_conversations", testDim))
	srv, err := NewServer(nil, svc)
	require.NoError(t, err)
	cs := connect(t, srv)

	text, isErr := callText(t, cs, "list_collections", map[string]any{})
	assert.False(t, isErr)
	assert.Equal(t, "chatgpt_conversations: 0 points\nclaude_conversations: 2 points", text)
}

func TestClampTopK(t *testing.T) {
	srv := &Server{config: *DefaultConfig()}
	intp := func(v int) *int { return &v }

	tests := []struct {
		name string
		in   *int
		want int
	}{
		{name: "absent", in: nil, want: 3},
		{name: "zero", in: intp(0), want: 1},
		{name: "negative", in: intp(-4), want: 1},
		{name: "in range", in: intp(7), want: 7},
		{name: "upper bound", in: intp(10), want: 10},
		{name: "above max", in: intp(50), want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, srv.clampTopK(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 300))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "héé...", truncate("hééllo", 3), "cuts on rune boundaries")
	exact := strings.Repeat("x", 300)
	assert.Equal(t, exact, truncate(exact, 300))
}

func TestFormatCollections_Empty(t *testing.T) {
	assert.Equal(t, "No collections found", formatCollections(nil))
}
