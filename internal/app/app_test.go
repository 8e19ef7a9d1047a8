package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kb_rag/internal/config"
	"kb_rag/internal/loader"
)

var keywords = []string{"jane", "nina", "acme", "history", "summary", "terms", "skills"}

// keywordEmbedder - вектор из вхождений ключевых слов плюс постоянная компонента
type keywordEmbedder struct{ calls int }

func (k *keywordEmbedder) Model() string { return "test/keywords" }

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(keywords)+1)
		for j, kw := range keywords {
			if strings.Contains(lower, kw) {
				vec[j] = 1
			}
		}
		vec[len(keywords)] = 0.1
		out[i] = vec
	}
	return out, nil
}

type echoModel struct {
	calls  int
	system string
}

func (e *echoModel) Name() string { return "test/echo" }

func (e *echoModel) Complete(_ context.Context, system, user string) (string, error) {
	e.calls++
	e.system = system
	return "answer to: " + user, nil
}

func writeKB(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"employees/Jane-Doe.md":   "# HR Record\n\n# Jane Doe\n\n## Summary\nClaims lead\n\n## History\nJoined in 2019",
		"employees/Nina Patel.md": "## Summary\nAnalyst\n## Skills\nSQL",
		"contracts/Acme.md":       "## Terms\nNet 30",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	kb := filepath.Join(dir, "knowledge-base")
	writeKB(t, kb)

	cfg := &config.Config{
		KnowledgeDir: kb,
		DataDir:      filepath.Join(dir, "data"),
		ManifestFile: filepath.Join(dir, "data", "manifest.json"),
		TopK:         2,
	}
	cfg.Index = config.IndexConfig{Backend: config.BackendChromem, Dir: filepath.Join(dir, "data", "vector_db"), Collection: "knowledge"}
	cfg.Retry = config.RetryConfig{MinDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxAttempts: 2}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) (*App, *echoModel) {
	t.Helper()
	model := &echoModel{}
	opts = append([]Option{WithEmbedder(&keywordEmbedder{}), WithChatModel(model)}, opts...)
	a, err := New(context.Background(), cfg, zap.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, model
}

func TestIngestAndAsk(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a, model := newTestApp(t, cfg)

	manifest, err := a.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, manifest.Documents)
	assert.Equal(t, 5, manifest.Chunks)
	assert.Equal(t, "test/keywords", manifest.EmbeddingModel)

	ans, err := a.Ask(ctx, "What is Jane's history?")
	require.NoError(t, err)
	assert.Equal(t, "answer to: What is Jane's history?", ans.Text)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "Jane Doe", ans.Sources[0].Chunk.EntityID)
	assert.Equal(t, "History", ans.Sources[0].Chunk.SectionTitle)
	assert.Contains(t, model.system, "Jane Doe's History:\nJoined in 2019")
}

func TestIngest_TwiceDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a, _ := newTestApp(t, cfg)

	_, err := a.Ingest(ctx)
	require.NoError(t, err)
	_, err = a.Ingest(ctx)
	require.NoError(t, err)

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Count)
	require.NotNil(t, st.Manifest)
	assert.Equal(t, 5, st.Manifest.Chunks)
	assert.Len(t, st.Manifest.Files, 3)
}

func TestIngest_MissingKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.KnowledgeDir = filepath.Join(t.TempDir(), "absent")
	a, _ := newTestApp(t, cfg)

	manifest, err := a.Ingest(ctx)
	require.NoError(t, err)
	assert.Zero(t, manifest.Chunks)

	ans, err := a.Ask(ctx, "anything")
	require.NoError(t, err)
	assert.Empty(t, ans.Sources)
}

func TestIngest_EmptyKnowledgeBaseWarnsBeforeWipe(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	core, logs := observer.New(zapcore.WarnLevel)
	a, err := New(ctx, cfg, zap.New(core), WithEmbedder(&keywordEmbedder{}), WithChatModel(&echoModel{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Ingest(ctx)
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("no documents loaded, the index will be emptied").Len())

	typo := filepath.Join(t.TempDir(), "knowlege-base")
	cfg.KnowledgeDir = typo
	a.loader = loader.New(typo, a.log)
	_, err = a.Ingest(ctx)
	require.NoError(t, err)

	warned := logs.FilterMessage("no documents loaded, the index will be emptied").All()
	require.Len(t, warned, 1)
	fields := warned[0].ContextMap()
	assert.Equal(t, typo, fields["root"])
	assert.EqualValues(t, 5, fields["indexed_chunks"])
}

func TestStatus_BeforeIngest(t *testing.T) {
	var out bytes.Buffer
	a, _ := newTestApp(t, testConfig(t), WithIO(strings.NewReader(""), &out))

	require.NoError(t, a.PrintStatus(context.Background()))
	assert.Contains(t, out.String(), "Indexed chunks: 0")
	assert.Contains(t, out.String(), "No ingestion manifest")
}

func TestStatus_AfterIngest(t *testing.T) {
	var out bytes.Buffer
	a, _ := newTestApp(t, testConfig(t), WithIO(strings.NewReader(""), &out))

	_, err := a.Ingest(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.PrintStatus(context.Background()))

	assert.Contains(t, out.String(), "Indexed chunks: 5")
	assert.Contains(t, out.String(), "employees: 2 files")
	assert.NotContains(t, out.String(), "Warning")
}

func TestRun_AnswersEachLine(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	a, model := newTestApp(t, cfg, WithIO(strings.NewReader("Nina skills?\n\n   \nAcme terms?\n"), &out))

	_, err := a.Ingest(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, 2, model.calls)
	assert.Contains(t, out.String(), "answer to: Nina skills?")
	assert.Contains(t, out.String(), "answer to: Acme terms?")
	assert.Contains(t, out.String(), "Nina Patel / Skills")
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	var out bytes.Buffer
	a, model := newTestApp(t, testConfig(t), WithIO(strings.NewReader("q\n"), &out))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))
	assert.Zero(t, model.calls)
}

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.json")

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Nil(t, m)

	want := &Manifest{Documents: 1, Chunks: 2, Files: []FileInfo{{Path: "kb/a.md", Category: "kb", Chunks: 2}}}
	require.NoError(t, saveManifest(path, want))

	got, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, want.Chunks, got.Chunks)
	assert.Equal(t, want.Files, got.Files)
}
