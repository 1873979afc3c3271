package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragmemory/internal/config"
	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/search"
	"github.com/fyrsmithlabs/ragmemory/internal/updater"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	t.Fatalf("%s command not found in rootCmd", name)
	return nil
}

func TestRootCmd_Commands(t *testing.T) {
	for _, name := range []string{"ingest", "search", "collections", "update", "serve", "mcp", "version"} {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(t, name)
			assert.NotEmpty(t, cmd.Short, "command should have Short description")
			assert.True(t, cmd.RunE != nil || cmd.Run != nil)
		})
	}
}

func TestRootCmd_Flags(t *testing.T) {
	tests := []struct {
		cmd   string
		flags []string
	}{
		{cmd: "ingest", flags: []string{"collection", "source", "chunk-size"}},
		{cmd: "search", flags: []string{"collection", "top-k"}},
		{cmd: "update", flags: []string{"once", "schedule", "watch", "data-dir", "metrics-addr"}},
		{cmd: "serve", flags: []string{"addr"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			cmd := findCommand(t, tt.cmd)
			for _, f := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(f), "missing --%s", f)
			}
		})
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestIngestCmd_Args(t *testing.T) {
	cmd := findCommand(t, "ingest")
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"export.json"}))
	assert.Error(t, cmd.Args(cmd, []string{"a.json", "b.json"}))
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, "ragmemory dev\n", buf.String())
}

// isolateConfig points config loading at an empty home and an embedded
// chromem store.
func isolateConfig(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RAGMEMORY_VECTORSTORE_PROVIDER", "chromem")
	t.Setenv("RAGMEMORY_VECTORSTORE_CHROMEM_PATH", filepath.Join(home, "db"))
	return home
}

func TestCollectionsCmd_Empty(t *testing.T) {
	isolateConfig(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"collections"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, "No collections found\n", buf.String())
}

func TestLoadConfig_LogLevelOverride(t *testing.T) {
	isolateConfig(t)
	logLevel = "debug"
	t.Cleanup(func() { logLevel = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
}

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	claude := filepath.Join(dir, "claude.json")
	require.NoError(t, os.WriteFile(claude, []byte(`[{"uuid":"c","chat_messages":[]}]`), 0o600))
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o600))

	tests := []struct {
		name string
		path string
		src  conversation.Source
		want conversation.Source
	}{
		{name: "explicit source wins", path: claude, src: conversation.SourceChatGPT, want: conversation.SourceChatGPT},
		{name: "detected", path: claude, src: conversation.SourceUnknown, want: conversation.SourceClaude},
		{name: "unreadable", path: filepath.Join(dir, "missing.json"), src: conversation.SourceUnknown, want: conversation.SourceUnknown},
		{name: "malformed", path: broken, src: conversation.SourceUnknown, want: conversation.SourceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveSource(tt.path, tt.src))
		})
	}
}

func TestDefaultCollection(t *testing.T) {
	a := &app{cfg: config.Default()}
	assert.Equal(t, "claude_conversations", a.defaultCollection(conversation.SourceClaude))
	assert.Equal(t, "chatgpt_conversations", a.defaultCollection(conversation.SourceChatGPT))
	assert.Equal(t, "chatgpt_conversations", a.defaultCollection(conversation.SourceUnknown))
}

func TestUpdaterConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Updater.DataDir = "/srv/exports"
	cfg.Updater.Schedule = "0 3 * * *"

	got := updaterConfig(&app{cfg: cfg})
	assert.Equal(t, "/srv/exports", got.DataDir)
	assert.Equal(t, "0 3 * * *", got.Schedule)
	assert.Equal(t, "claude_conversations", got.ClaudeCollection)
	assert.Equal(t, 2*time.Second, got.Debounce)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "short", text: "USER: hi", n: 10, want: "USER: hi"},
		{name: "flattens whitespace", text: "USER: hi\n\nASSISTANT: hello", n: 100, want: "USER: hi ASSISTANT: hello"},
		{name: "truncates runes", text: "héllo wörld", n: 5, want: "héllo..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preview(tt.text, tt.n))
		})
	}
}

func TestPrintResults(t *testing.T) {
	t.Run("no results", func(t *testing.T) {
		var buf bytes.Buffer
		printResults(&buf, "pasta", "chatgpt_conversations", nil)
		assert.Equal(t, "No results found for 'pasta' in chatgpt_conversations\n", buf.String())
	})

	t.Run("ranked", func(t *testing.T) {
		var buf bytes.Buffer
		printResults(&buf, "go", "chatgpt_conversations", []search.Result{
			{ID: vectorstore.NumID(4), Score: 0.91, Chunk: conversation.Chunk{Text: "USER: goroutines", ConversationTitle: "Go", Index: 2}},
			{ID: vectorstore.NumID(7), Score: 0.5, Chunk: conversation.Chunk{Text: "USER: channels", ConversationTitle: "Go", Index: 0}},
		})
		out := buf.String()
		assert.Contains(t, out, "1. [0.9100] Go (chunk 2, 4)\n   USER: goroutines\n")
		assert.Contains(t, out, "2. [0.5000] Go (chunk 0, 7)")
	})
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &ingest.Report{
		Path:           "export.json",
		Collection:     "claude_conversations",
		Source:         conversation.SourceClaude,
		Conversations:  2,
		Messages:       9,
		ChunkSize:      3,
		ChunksCreated:  4,
		Batches:        1,
		PointsUpserted: 4,
	})
	out := buf.String()
	assert.Contains(t, out, `Ingested export.json into "claude_conversations" (claude)`)
	assert.Contains(t, out, "chunks:        4 (size 3)")
	assert.Contains(t, out, "points:        4")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &updater.Summary{
		Trigger: "manual",
		Sources: []updater.SourceResult{
			{Source: conversation.SourceChatGPT, Collection: "chatgpt_conversations", Report: &ingest.Report{PointsUpserted: 12}},
			{Source: conversation.SourceClaude, Err: errors.New("missing"), Error: "missing"},
		},
		Collections: []vectorstore.CollectionInfo{{Name: "chatgpt_conversations", PointCount: 12}},
	})
	out := buf.String()
	assert.Contains(t, out, "Update (manual) finished in 0s: 1/2 sources succeeded")
	assert.Contains(t, out, `12 points in "chatgpt_conversations"`)
	assert.Contains(t, out, "FAILED missing")
	assert.Contains(t, out, "chatgpt_conversations: 12 points")
}
