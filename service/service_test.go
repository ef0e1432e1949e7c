package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecrag/embeddings/simple"
	"github.com/viant/vecrag/llm"
	"github.com/viant/vecrag/logging"
	"github.com/viant/vecrag/schema"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"intro.txt":     "vector databases store embeddings",
		"guide/rag.md":  "retrieval augmented generation",
		"guide/ops.txt": "backups run nightly",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

type chatRecorder struct {
	messages []llm.Message
}

func (c *chatRecorder) model() llm.ChatFunc {
	return func(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
		c.messages = messages
		return &llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: "nightly"}}}}, nil
	}
}

func newTestService(t *testing.T, driver string, chat llm.ChatModel) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Store.Driver = driver
	cfg.Store.DSN = filepath.Join(t.TempDir(), "vecrag.sqlite")
	cfg.Embedder.Provider = "simple"
	cfg.Embedder.Dim = 16
	svc, err := New(context.Background(), cfg,
		WithEmbedder(simple.New(16)),
		WithChat(chat),
		WithLogger(logging.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_IngestSearchAsk(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			recorder := &chatRecorder{}
			svc := newTestService(t, driver, recorder.model())
			ctx := context.Background()

			stats, err := svc.Ingest(ctx, IngestRequest{Location: writeCorpus(t), Namespace: "kb"})
			require.NoError(t, err)
			assert.Equal(t, 3, stats.Files)
			assert.Equal(t, 3, stats.Fragments)

			docs, err := svc.Search(ctx, SearchRequest{Query: "backups run nightly", K: 2, Namespace: "kb", NoThreshold: true})
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "backups run nightly", docs[0].PageContent)

			threshold := 0.9999
			docs, err = svc.Search(ctx, SearchRequest{Query: "backups run nightly", K: 3, Namespace: "kb", ScoreThreshold: &threshold})
			require.NoError(t, err)
			assert.Equal(t, []string{"backups run nightly"}, texts(docs))

			answer, err := svc.Ask(ctx, AskRequest{Question: "backups run nightly", K: 3, Namespace: "kb", ScoreThreshold: &threshold})
			require.NoError(t, err)
			assert.Equal(t, "nightly", answer.Response.CompletionText())
			assert.Equal(t, "backups run nightly", answer.Context)
			require.Len(t, recorder.messages, 1)
			assert.Equal(t, llm.RoleUser, recorder.messages[0].Role)
			assert.Equal(t, "Context:\nbackups run nightly\n---\nQuestion: backups run nightly\n---\nAnswer:", recorder.messages[0].Content)

			docs, err = svc.Search(ctx, SearchRequest{Query: "backups run nightly", K: 3, Namespace: "other", NoThreshold: true})
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestService_AskEmptyContext(t *testing.T) {
	recorder := &chatRecorder{}
	svc := newTestService(t, "memory", recorder.model())
	ctx := context.Background()
	_, err := svc.Ingest(ctx, IngestRequest{Location: writeCorpus(t)})
	require.NoError(t, err)

	threshold := 1.5
	answer, err := svc.Ask(ctx, AskRequest{Question: "anything", ScoreThreshold: &threshold})
	require.NoError(t, err)
	assert.Empty(t, answer.Documents)
	assert.Equal(t, "", answer.Context)
	require.Len(t, recorder.messages, 1)
	assert.Equal(t, "Context:\n\n---\nQuestion: anything\n---\nAnswer:", recorder.messages[0].Content)
}

func TestService_Validation(t *testing.T) {
	svc := newTestService(t, "memory", llm.ChatFunc(func(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
		return nil, nil
	}))
	ctx := context.Background()
	_, err := svc.Search(ctx, SearchRequest{})
	assert.Error(t, err)
	_, err = svc.Ask(ctx, AskRequest{Question: " "})
	assert.Error(t, err)
	_, err = svc.Ingest(ctx, IngestRequest{})
	assert.Error(t, err)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = "mysql"
	_, err := New(context.Background(), cfg, WithEmbedder(simple.New(4)), WithLogger(logging.Nop()))
	assert.Error(t, err)
}

func TestNewEmbedder_VertexAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/proj/locations/us-east1/publishers/google/models/text-embedding-005:predict", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.5,0.5]}}]}`))
	}))
	defer server.Close()

	embedder, err := newEmbedder(EmbedderConfig{
		Provider: "vertexai",
		Project:  "proj",
		Location: "us-east1",
		Model:    "text-embedding-005",
		BaseURL:  server.URL,
		APIKey:   "access-token",
	})
	require.NoError(t, err)
	vec, err := embedder.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func texts(docs []schema.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.PageContent)
	}
	return out
}
