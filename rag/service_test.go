package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecrag/embeddings"
	"github.com/viant/vecrag/llm"
	"github.com/viant/vecrag/logging"
	"github.com/viant/vecrag/retriever"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type searchCall struct {
	query     string
	k         int
	threshold *float64
}

type fakeSearcher struct {
	docs  []schema.Document
	err   error
	calls []searchCall
	// during is invoked inside Search.
	during func()
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int, opts ...vectorstores.Option) ([]schema.Document, error) {
	options := vectorstores.Apply(opts...)
	f.calls = append(f.calls, searchCall{query: query, k: k, threshold: options.ScoreThreshold})
	if f.during != nil {
		f.during()
	}
	return f.docs, f.err
}

type recordingChat struct {
	messages [][]llm.Message
	resp     *llm.ChatResponse
	err      error
	during   func()
}

func (r *recordingChat) Chat(ctx context.Context, messages []llm.Message) (*llm.ChatResponse, error) {
	r.messages = append(r.messages, messages)
	if r.during != nil {
		r.during()
	}
	return r.resp, r.err
}

func answer(text string) *llm.ChatResponse {
	return &llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: text}}}}
}

func TestService_Ask(t *testing.T) {
	searcher := &fakeSearcher{docs: []schema.Document{
		{ID: "1", PageContent: "Vector 1"},
		{ID: "2", PageContent: "Vector 2"},
	}}
	chat := &recordingChat{resp: answer("Mocked answer")}
	var prompts [][2]string
	prompt := func(question, context string) string {
		prompts = append(prompts, [2]string{question, context})
		return "Mocked prompt"
	}

	resp, err := New(searcher, chat, WithPrompt(prompt)).Ask(context.Background(), "question", 4, vectorstores.WithScoreThreshold(0.5))
	require.NoError(t, err)

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, "question", searcher.calls[0].query)
	assert.Equal(t, 4, searcher.calls[0].k)
	require.NotNil(t, searcher.calls[0].threshold)
	assert.Equal(t, 0.5, *searcher.calls[0].threshold)

	assert.Equal(t, [][2]string{{"question", "Vector 1\n---\nVector 2"}}, prompts)
	assert.Equal(t, [][]llm.Message{{{Role: "user", Content: "Mocked prompt"}}}, chat.messages)
	assert.Same(t, chat.resp, resp)
	assert.Equal(t, "Mocked answer", resp.CompletionText())
}

func TestService_AskContextFollowsResultOrder(t *testing.T) {
	embedder := embeddings.QueryFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	})
	store := &orderedStore{candidates: []vectordb.Candidate{{ID: "2", Score: 0.3}, {ID: "1", Score: 0.4}, {ID: "3", Score: 0.9}}}
	chat := &recordingChat{resp: answer("ok")}
	filter := retriever.New(store, retriever.WithEmbedder(embedder))

	out, err := New(filter, chat).AskDetailed(context.Background(), "question", 4, vectorstores.WithScoreThreshold(0.5))
	require.NoError(t, err)
	assert.Equal(t, "Vector 1\n---\nVector 2", out.Context)
	assert.Equal(t, "Context:\nVector 1\n---\nVector 2\n---\nQuestion: question\n---\nAnswer:", out.Prompt)
	assert.Equal(t, []string{"1", "2"}, schema.IDs(out.Documents))
	assert.Equal(t, [][]string{{"2", "1"}}, store.byIDsCalls)
}

func TestService_AskThresholdRejectsAll(t *testing.T) {
	embedder := embeddings.QueryFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	})
	store := &orderedStore{candidates: []vectordb.Candidate{{ID: "1", Score: 0.8}, {ID: "2", Score: 0.9}}}
	chat := &recordingChat{resp: answer("I don't know")}
	var contexts []string
	prompt := func(question, context string) string {
		contexts = append(contexts, context)
		return DefaultPrompt(question, context)
	}
	filter := retriever.New(store, retriever.WithEmbedder(embedder))

	resp, err := New(filter, chat, WithPrompt(prompt)).Ask(context.Background(), "question", 4, vectorstores.WithScoreThreshold(0.5))
	require.NoError(t, err)
	assert.Equal(t, "I don't know", resp.CompletionText())
	assert.Equal(t, []string{""}, contexts)
	assert.Empty(t, store.byIDsCalls)
	require.Len(t, chat.messages, 1)
	assert.Equal(t, "Context:\n\n---\nQuestion: question\n---\nAnswer:", chat.messages[0][0].Content)
}

func TestService_AskSilencesRetrievalOnly(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	silencer := logging.NewSilencer(level)

	var searchLevel, chatLevel zapcore.Level
	searcher := &fakeSearcher{during: func() { searchLevel = level.Level() }}
	chat := &recordingChat{resp: answer("ok"), during: func() { chatLevel = level.Level() }}

	_, err := New(searcher, chat, WithSilencer(silencer)).Ask(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, searchLevel)
	assert.Equal(t, zapcore.DebugLevel, chatLevel)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	searcher.err = errors.New("store down")
	_, err = New(searcher, chat, WithSilencer(silencer)).Ask(context.Background(), "q", 2)
	assert.Equal(t, searcher.err, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestService_AskErrors(t *testing.T) {
	storeErr := errors.New("relation does not exist")
	searcher := &fakeSearcher{err: storeErr}
	chat := &recordingChat{resp: answer("unused")}
	resp, err := New(searcher, chat).Ask(context.Background(), "q", 4)
	assert.Nil(t, resp)
	assert.Equal(t, storeErr, err)
	assert.Empty(t, chat.messages)

	chatErr := &llm.Error{Provider: "openai", Message: "overloaded", StatusCode: 503}
	searcher = &fakeSearcher{docs: []schema.Document{{ID: "1", PageContent: "x"}}}
	chat = &recordingChat{err: chatErr}
	resp, err = New(searcher, chat).Ask(context.Background(), "q", 4)
	assert.Nil(t, resp)
	assert.Same(t, chatErr, err)

	embedErr := &embeddings.Error{Provider: "openai", Message: "quota"}
	store := &orderedStore{}
	filter := retriever.New(store, retriever.WithEmbedder(embeddings.QueryFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, embedErr
	})))
	chat = &recordingChat{resp: answer("unused")}
	_, err = New(filter, chat).Ask(context.Background(), "q", 4)
	assert.Same(t, embedErr, err)
	assert.Empty(t, store.nearestCalls)
	assert.Empty(t, chat.messages)
}

func TestNewTemplate(t *testing.T) {
	tmpl := NewTemplate("Q={question} C={context} Q2={question}")
	assert.Equal(t, "Q=why C=because Q2=why", tmpl("why", "because"))
}
