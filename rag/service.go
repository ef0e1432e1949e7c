// Package rag answers questions by retrieving context records and
// conditioning a chat completion on them.
package rag

import (
	"context"

	"github.com/viant/vecrag/llm"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
)

// Searcher retrieves up to k records for a text query.
type Searcher interface {
	Search(ctx context.Context, query string, k int, opts ...vectorstores.Option) ([]schema.Document, error)
}

// Silencer suppresses store diagnostics until restore is called.
type Silencer interface {
	Silence() (restore func())
}

type nopSilencer struct{}

func (nopSilencer) Silence() func() { return func() {} }

// Answer carries a completion along with what produced it.
type Answer struct {
	Response  *llm.ChatResponse
	Documents []schema.Document
	Context   string
	Prompt    string
}

// Service composes retrieval, prompt rendering and chat completion.
type Service struct {
	searcher Searcher
	chat     llm.ChatModel
	prompt   PromptTemplate
	silencer Silencer
	logger   *zap.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithPrompt sets the prompt template.
func WithPrompt(prompt PromptTemplate) Option {
	return func(s *Service) {
		if prompt != nil {
			s.prompt = prompt
		}
	}
}

// WithSilencer sets the log suppression applied around retrieval.
func WithSilencer(silencer Silencer) Option {
	return func(s *Service) {
		if silencer != nil {
			s.silencer = silencer
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service.
func New(searcher Searcher, chat llm.ChatModel, opts ...Option) *Service {
	s := &Service{
		searcher: searcher,
		chat:     chat,
		prompt:   DefaultPrompt,
		silencer: nopSilencer{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask retrieves up to k records for question and returns the chat model's
// completion unchanged.
func (s *Service) Ask(ctx context.Context, question string, k int, opts ...vectorstores.Option) (*llm.ChatResponse, error) {
	answer, err := s.AskDetailed(ctx, question, k, opts...)
	if err != nil {
		return nil, err
	}
	return answer.Response, nil
}

// AskDetailed is Ask that also returns the retrieved documents and prompt.
func (s *Service) AskDetailed(ctx context.Context, question string, k int, opts ...vectorstores.Option) (*Answer, error) {
	docs, err := s.retrieve(ctx, question, k, opts)
	if err != nil {
		return nil, err
	}
	contextText := schema.JoinText(docs)
	prompt := s.prompt(question, contextText)
	s.logger.Debug("rag prompt", zap.Int("documents", len(docs)), zap.Int("contextBytes", len(contextText)))

	resp, err := s.chat.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}
	return &Answer{Response: resp, Documents: docs, Context: contextText, Prompt: prompt}, nil
}

func (s *Service) retrieve(ctx context.Context, question string, k int, opts []vectorstores.Option) ([]schema.Document, error) {
	restore := s.silencer.Silence()
	defer restore()
	return s.searcher.Search(ctx, question, k, opts...)
}
