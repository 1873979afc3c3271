package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/embeddings"
	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/logging"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

type ingestCall struct {
	path       string
	collection string
}

type fakeIngester struct {
	mu    sync.Mutex
	calls []ingestCall
	errs  map[string]error
	// block, when set, holds every call until closed.
	block chan struct{}
}

func (f *fakeIngester) Ingest(_ context.Context, path, collection string, _ int) (*ingest.Report, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ingestCall{path: path, collection: collection})
	report := &ingest.Report{Path: path, Collection: collection, PointsUpserted: 3}
	if err := f.errs[collection]; err != nil {
		return report, err
	}
	return report, nil
}

func (f *fakeIngester) Calls() []ingestCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingestCall(nil), f.calls...)
}

type fakeLister struct {
	infos []vectorstore.CollectionInfo
	err   error
}

func (f fakeLister) ListCollections(context.Context) ([]vectorstore.CollectionInfo, error) {
	return f.infos, f.err
}

func testConfig(dir string) Config {
	return Config{
		DataDir:           dir,
		ChatGPTFile:       "chatgpt_conversations.json",
		ClaudeFile:        "claude_conversations.json",
		ChatGPTCollection: "chatgpt_conversations",
		ClaudeCollection:  "claude_conversations",
		Debounce:          20 * time.Millisecond,
	}
}

func writeLatest(t *testing.T, dir, name, content string) string {
	t.Helper()
	latest := filepath.Join(dir, LatestDir)
	require.NoError(t, os.MkdirAll(latest, 0o755))
	path := filepath.Join(latest, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfig_Sources(t *testing.T) {
	srcs := testConfig("/data").Sources()
	require.Len(t, srcs, 2)
	assert.Equal(t, Source{Name: conversation.SourceChatGPT, Path: "/data/latest/chatgpt_conversations.json", Collection: "chatgpt_conversations"}, srcs[0])
	assert.Equal(t, Source{Name: conversation.SourceClaude, Path: "/data/latest/claude_conversations.json", Collection: "claude_conversations"}, srcs[1])
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig(t.TempDir())
	_, err := New(nil, fakeLister{}, cfg, nil)
	assert.Error(t, err)
	_, err = New(&fakeIngester{}, nil, cfg, nil)
	assert.Error(t, err)
	cfg.ClaudeCollection = ""
	_, err = New(&fakeIngester{}, fakeLister{}, cfg, nil)
	assert.Error(t, err)
}

func TestRunOnce_BothSources(t *testing.T) {
	dir := t.TempDir()
	chatgpt := writeLatest(t, dir, "chatgpt_conversations.json", "[]")
	claude := writeLatest(t, dir, "claude_conversations.json", "[]")

	ing := &fakeIngester{}
	lister := fakeLister{infos: []vectorstore.CollectionInfo{{Name: "chatgpt_conversations", PointCount: 3}}}
	u, err := New(ing, lister, testConfig(dir), nil)
	require.NoError(t, err)
	assert.Nil(t, u.Last())

	summary, err := u.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ingestCall{
		{path: chatgpt, collection: "chatgpt_conversations"},
		{path: claude, collection: "claude_conversations"},
	}, ing.Calls())
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, lister.infos, summary.Collections)
	assert.Equal(t, "success", outcome(summary))
	assert.Same(t, summary, u.Last())
}

func TestRunOnce_MissingExportFailsOnlyItsSource(t *testing.T) {
	dir := t.TempDir()
	writeLatest(t, dir, "chatgpt_conversations.json", "[]")

	logger := logging.NewRecorder()
	ing := &fakeIngester{}
	u, err := New(ing, fakeLister{}, testConfig(dir), logger.Logger)
	require.NoError(t, err)

	summary, err := u.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingExport)

	require.Len(t, summary.Sources, 2)
	assert.True(t, summary.Sources[0].OK())
	assert.False(t, summary.Sources[1].OK())
	assert.Contains(t, summary.Sources[1].Error, "claude_conversations.json")
	assert.Len(t, ing.Calls(), 1)
	assert.Equal(t, "partial", outcome(summary))
	assert.True(t, logger.Logged(zapcore.WarnLevel, "export missing"), "warnings: %v", logger.Messages(zapcore.WarnLevel))
}

func TestRunOnce_IngestFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	writeLatest(t, dir, "chatgpt_conversations.json", "[]")
	writeLatest(t, dir, "claude_conversations.json", "[]")

	boom := errors.New("index down")
	ing := &fakeIngester{errs: map[string]error{"chatgpt_conversations": boom}}
	u, err := New(ing, fakeLister{err: errors.New("list failed")}, testConfig(dir), nil)
	require.NoError(t, err)

	summary, err := u.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ing.Calls(), 2, "claude still ingested after chatgpt failed")
	assert.Equal(t, 1, summary.Succeeded())
	assert.NotNil(t, summary.Sources[0].Report)
	assert.Nil(t, summary.Collections)
}

func TestRunOnce_RejectsConcurrentRun(t *testing.T) {
	dir := t.TempDir()
	writeLatest(t, dir, "chatgpt_conversations.json", "[]")

	ing := &fakeIngester{block: make(chan struct{})}
	u, err := New(ing, fakeLister{}, testConfig(dir), nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = u.RunOnce(context.Background())
	}()

	assert.Eventually(t, func() bool {
		_, err := u.RunOnce(context.Background())
		return errors.Is(err, ErrRunInProgress)
	}, time.Second, 5*time.Millisecond)

	close(ing.block)
	<-done
}

func TestRun_WithoutScheduleRunsOnce(t *testing.T) {
	dir := t.TempDir()
	writeLatest(t, dir, "chatgpt_conversations.json", "[]")
	writeLatest(t, dir, "claude_conversations.json", "[]")

	ing := &fakeIngester{}
	u, err := New(ing, fakeLister{}, testConfig(dir), nil)
	require.NoError(t, err)

	require.NoError(t, u.Run(context.Background()))
	assert.Len(t, ing.Calls(), 2)
	assert.Equal(t, "startup", u.Last().Trigger)
}

func TestRun_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Schedule = "not a cron"
	u, err := New(&fakeIngester{}, fakeLister{}, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, u.Run(ctx))
}

func TestRun_WatchReingestsOnChange(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Watch = true

	ing := &fakeIngester{}
	u, err := New(ing, fakeLister{}, cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- u.Run(ctx) }()

	// The startup run finds no exports; wait for the watcher to create the
	// latest directory.
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, LatestDir))
		return err == nil && u.Last() != nil
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, ing.Calls())

	for i := 0; i < 3; i++ {
		writeLatest(t, dir, "claude_conversations.json", "[]")
	}
	writeLatest(t, dir, "unrelated.txt", "ignored")

	require.Eventually(t, func() bool {
		last := u.Last()
		return last != nil && last.Trigger == "watch"
	}, 2*time.Second, 10*time.Millisecond)
	calls := ing.Calls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.Equal(t, ingestCall{
			path:       filepath.Join(dir, LatestDir, "claude_conversations.json"),
			collection: "claude_conversations",
		}, c)
	}

	cancel()
	assert.NoError(t, <-errCh)
}

func TestRunOnce_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeLatest(t, dir, "claude_conversations.json", `[{"uuid": "c1", "name": "Test", "chat_messages": [
		{"uuid": "m1", "sender": "human", "text": "hello"},
		{"uuid": "m2", "sender": "assistant", "text": "hi there"},
		{"uuid": "m3", "sender": "human", "text": "bye"}]}]`)
	writeLatest(t, dir, "chatgpt_conversations.json", `[{"id": "g1", "title": "Test", "mapping": {
		"root": {"id": "root", "message": null, "parent": null, "children": ["u"]},
		"u": {"id": "u", "parent": "root", "children": ["a"], "message": {"id": "u", "author": {"role": "user"}, "content": {"parts": ["question"]}}},
		"a": {"id": "a", "parent": "u", "children": [], "message": {"id": "a", "author": {"role": "assistant"}, "content": {"parts": ["answer"]}}}}}]`)

	idx, err := vectorstore.NewChromemIndex(vectorstore.ChromemConfig{}, nil)
	require.NoError(t, err)
	defer idx.Close()
	pipeline, err := ingest.New(embeddings.NewHashEmbedder(32), idx, ingest.Config{Dimension: 32}, nil)
	require.NoError(t, err)

	u, err := New(pipeline, idx, testConfig(dir), nil)
	require.NoError(t, err)

	summary, err := u.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, conversation.SourceChatGPT, summary.Sources[0].Report.Source)
	assert.Equal(t, 1, summary.Sources[0].Report.PointsUpserted)
	assert.Equal(t, conversation.SourceClaude, summary.Sources[1].Report.Source)
	assert.Equal(t, 1, summary.Sources[1].Report.PointsUpserted)

	counts := map[string]int{}
	for _, info := range summary.Collections {
		counts[info.Name] = info.PointCount
	}
	assert.Equal(t, map[string]int{"chatgpt_conversations": 1, "claude_conversations": 1}, counts)
}
