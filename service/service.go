package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/vecrag/embeddings"
	"github.com/viant/vecrag/embeddings/ollama"
	embopenai "github.com/viant/vecrag/embeddings/openai"
	"github.com/viant/vecrag/embeddings/simple"
	"github.com/viant/vecrag/embeddings/vertexai"
	"github.com/viant/vecrag/ingest"
	"github.com/viant/vecrag/llm"
	chatopenai "github.com/viant/vecrag/llm/openai"
	"github.com/viant/vecrag/logging"
	"github.com/viant/vecrag/rag"
	"github.com/viant/vecrag/retriever"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectordb/memstore"
	"github.com/viant/vecrag/vectordb/pgvector"
	"github.com/viant/vecrag/vectordb/sqlitevec"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Option configures the Service.
type Option func(*Service)

// WithStore sets the vector store instead of opening one from config.
func WithStore(store vectordb.VectorStore) Option {
	return func(s *Service) { s.store = store }
}

// WithEmbedder sets the embedder instead of building one from config.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = embedder }
}

// WithChat sets the chat model instead of building one from config.
func WithChat(chat llm.ChatModel) Option {
	return func(s *Service) { s.chat = chat }
}

// WithLogger sets the root logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service exposes search, ask and ingest over a configured vector store.
type Service struct {
	config    *Config
	logger    *logging.Logger
	storeLog  *logging.Logger
	store     vectordb.VectorStore
	ownsStore bool
	embedder  embeddings.Embedder
	chat      llm.ChatModel
	filter    *retriever.Filter
	rag       *rag.Service
}

// New builds a Service from config.
func New(ctx context.Context, config *Config, opts ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Service{config: config}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		logger, err := logging.New(config.Log.Level, config.Log.Format)
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}
	s.storeLog = s.logger.Child("store")
	if s.embedder == nil {
		embedder, err := newEmbedder(config.Embedder)
		if err != nil {
			return nil, err
		}
		s.embedder = embedder
	}
	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.ownsStore = true
	}
	if s.chat == nil {
		chat, err := newChat(config.Chat)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.chat = chat
	}

	filterOpts := []retriever.Option{
		retriever.WithEmbedder(s.embedder),
		retriever.WithLogger(s.logger.Named("retriever").Logger),
	}
	switch config.Retrieval.Direction {
	case "distance":
		filterOpts = append(filterOpts, retriever.WithDirection(vectordb.Distance))
	case "similarity":
		filterOpts = append(filterOpts, retriever.WithDirection(vectordb.Similarity))
	}
	s.filter = retriever.New(s.store, filterOpts...)

	ragOpts := []rag.Option{
		rag.WithSilencer(logging.NewSilencer(s.storeLog.Level)),
		rag.WithLogger(s.logger.Named("rag").Logger),
	}
	if config.Chat.Prompt != "" {
		ragOpts = append(ragOpts, rag.WithPrompt(rag.NewTemplate(config.Chat.Prompt)))
	}
	s.rag = rag.New(s.filter, s.chat, ragOpts...)
	return s, nil
}

// Store returns the underlying vector store.
func (s *Service) Store() vectordb.VectorStore { return s.store }

// Close releases an owned store and flushes logs.
func (s *Service) Close() error {
	var err error
	if s.ownsStore && s.store != nil {
		err = s.store.Close()
	}
	_ = s.logger.Sync()
	return err
}

// Search returns up to k records for the query.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]schema.Document, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	k, opts := s.retrievalOptions(req.K, req.ScoreThreshold, req.NoThreshold, req.Namespace)
	s.logger.Debug("search", zap.String("query", req.Query), zap.Int("k", k))
	return s.filter.Search(ctx, req.Query, k, opts...)
}

// Ask answers the question from retrieved context.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*rag.Answer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	k, opts := s.retrievalOptions(req.K, req.ScoreThreshold, req.NoThreshold, req.Namespace)
	return s.rag.AskDetailed(ctx, req.Question, k, opts...)
}

// Ingest splits the files at location into records and writes them.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*ingest.Stats, error) {
	if strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("location is required")
	}
	cfg := s.config.Ingest
	include := append(append([]string{}, cfg.Include...), req.Include...)
	exclude := append(append([]string{}, cfg.Exclude...), req.Exclude...)
	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = cfg.ChunkSize
	}
	ingester := ingest.New(s.store,
		ingest.WithChunkSize(chunkSize),
		ingest.WithBatchSize(cfg.BatchSize),
		ingest.WithMatcher(ingest.NewMatcher(include, exclude, cfg.MaxSizeBytes)),
		ingest.WithLogger(s.logger.Named("ingest").Logger),
	)
	return ingester.Ingest(ctx, req.Location, s.namespaceOptions(req.Namespace)...)
}

func (s *Service) retrievalOptions(k int, threshold *float64, noThreshold bool, namespace string) (int, []vectorstores.Option) {
	if k <= 0 {
		k = s.config.Retrieval.K
	}
	opts := s.namespaceOptions(namespace)
	if noThreshold {
		return k, opts
	}
	if threshold == nil {
		threshold = s.config.Retrieval.ScoreThreshold
	}
	return k, append(opts, vectorstores.WithOptionalScoreThreshold(threshold))
}

func (s *Service) namespaceOptions(namespace string) []vectorstores.Option {
	if namespace == "" {
		namespace = s.config.Store.Namespace
	}
	if namespace == "" {
		return nil
	}
	return []vectorstores.Option{vectorstores.WithNameSpace(namespace)}
}

func (s *Service) openStore(ctx context.Context) (vectordb.VectorStore, error) {
	cfg := s.config.Store
	logger := s.storeLog.Logger
	switch cfg.Driver {
	case "memory":
		return memstore.New(memstore.WithEmbedder(s.embedder), memstore.WithLogger(logger)), nil
	case "sqlite":
		opts := []sqlitevec.Option{
			sqlitevec.WithDSN(cfg.DSN),
			sqlitevec.WithEmbedder(s.embedder),
			sqlitevec.WithEmbeddingModel(s.config.Embedder.Model),
			sqlitevec.WithEmbedBatchSize(s.config.Embedder.BatchSize),
			sqlitevec.WithLogger(logger),
		}
		if cfg.Table != "" {
			opts = append(opts, sqlitevec.WithVTable(cfg.Table))
		}
		return sqlitevec.NewStore(opts...)
	case "postgres":
		opts := []pgvector.Option{
			pgvector.WithDimension(cfg.Dimension),
			pgvector.WithEmbedder(s.embedder),
			pgvector.WithLogger(logger),
		}
		if cfg.Table != "" {
			opts = append(opts, pgvector.WithTable(cfg.Table))
		}
		if cfg.Distance != "" {
			op, err := pgvector.ParseOperator(cfg.Distance)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pgvector.WithOperator(op))
		}
		store, err := pgvector.Open(ctx, cfg.DSN, opts...)
		if err != nil {
			return nil, err
		}
		if cfg.Dimension > 0 {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

func newEmbedder(cfg EmbedderConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case "simple":
		return simple.New(cfg.Dim), nil
	case "ollama":
		return &ollama.Embedder{C: ollama.NewClient(cfg.Model, ollama.WithBaseURL(cfg.BaseURL))}, nil
	case "vertexai":
		opts := []vertexai.ClientOption{vertexai.WithLocation(cfg.Location), vertexai.WithBaseURL(cfg.BaseURL)}
		if cfg.APIKey != "" {
			// a pre-issued access token, e.g. from gcloud auth print-access-token
			opts = append(opts, vertexai.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})))
		}
		return vertexai.NewEmbedder(cfg.Project, cfg.Model, opts...), nil
	case "", "openai":
		return &embopenai.Embedder{C: embopenai.NewClient(cfg.APIKey, cfg.Model, embopenai.WithBaseURL(cfg.BaseURL))}, nil
	}
	return nil, fmt.Errorf("unsupported embedder provider %q", cfg.Provider)
}

func newChat(cfg ChatConfig) (llm.ChatModel, error) {
	switch cfg.Provider {
	case "", "openai":
		opts := []chatopenai.ClientOption{chatopenai.WithBaseURL(cfg.BaseURL)}
		if cfg.Temperature != nil {
			opts = append(opts, chatopenai.WithTemperature(*cfg.Temperature))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, chatopenai.WithMaxTokens(cfg.MaxTokens))
		}
		return chatopenai.NewClient(cfg.APIKey, cfg.Model, opts...), nil
	}
	return nil, fmt.Errorf("unsupported chat provider %q", cfg.Provider)
}
