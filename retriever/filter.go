// Package retriever implements threshold-aware top-k similarity search over a
// nearest-neighbor store that natively supports only top-k.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/vecrag/embeddings"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
)

// OverFetchMargin is the number of extra neighbors requested when a score
// threshold is applied.
const OverFetchMargin = 5

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("retriever: k must be positive")

// Filter runs similarity searches against a NearestNeighborStore.
type Filter struct {
	store     vectordb.NearestNeighborStore
	embedder  embeddings.Embedder
	direction vectordb.Direction
	logger    *zap.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithEmbedder sets the embedder used by Search.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(f *Filter) { f.embedder = e }
}

// WithDirection overrides the store's score direction.
func WithDirection(d vectordb.Direction) Option {
	return func(f *Filter) { f.direction = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Filter over store.
func New(store vectordb.NearestNeighborStore, opts ...Option) *Filter {
	f := &Filter{store: store, direction: store.Direction(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Search embeds query and returns up to k matching records.
func (f *Filter) Search(ctx context.Context, query string, k int, opts ...vectorstores.Option) ([]schema.Document, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	options := vectorstores.Apply(opts...)
	emb := options.Embedder
	if emb == nil {
		emb = f.embedder
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	vector, err := emb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return f.SearchByVector(ctx, vector, k, opts...)
}

// SearchByVector returns up to k records for embedding.
//
// Without a score threshold the store's top k are returned nearest-first.
// With a threshold, k+OverFetchMargin neighbors are fetched, those meeting
// the threshold are kept in nearest-first order and truncated to k, then the
// records are re-fetched by id and returned in the store's identifier order,
// not similarity order.
func (f *Filter) SearchByVector(ctx context.Context, embedding []float32, k int, opts ...vectorstores.Option) ([]schema.Document, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	options := vectorstores.Apply(opts...)
	if !options.HasThreshold() {
		candidates, err := f.store.Nearest(ctx, embedding, k, opts...)
		if err != nil {
			return nil, err
		}
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		return f.hydrate(ctx, candidates, opts)
	}

	threshold := *options.ScoreThreshold
	candidates, err := f.store.Nearest(ctx, embedding, k+OverFetchMargin, opts...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, k)
	scores := make(map[string]float64, k)
	for _, candidate := range candidates {
		if len(ids) == k {
			break
		}
		if f.direction.Accept(candidate.Score, threshold) {
			ids = append(ids, candidate.ID)
			scores[candidate.ID] = candidate.Score
		}
	}
	f.logger.Debug("threshold filter",
		zap.Int("k", k),
		zap.Float64("threshold", threshold),
		zap.String("direction", f.direction.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("accepted", len(ids)))
	if len(ids) == 0 {
		return []schema.Document{}, nil
	}
	docs, err := f.store.ByIDs(ctx, ids, opts...)
	if err != nil {
		return nil, err
	}
	// ByIDs records carry no score; restore the one the candidate passed with.
	for i := range docs {
		docs[i].Score = scores[docs[i].ID]
	}
	return docs, nil
}

// hydrate returns candidate documents in candidate order. Stores are expected
// to fill Candidate.Document; any candidate without one costs a ByIDs round trip.
func (f *Filter) hydrate(ctx context.Context, candidates []vectordb.Candidate, opts []vectorstores.Option) ([]schema.Document, error) {
	out := make([]schema.Document, len(candidates))
	var missing []string
	for i, candidate := range candidates {
		if candidate.Document == nil {
			missing = append(missing, candidate.ID)
			continue
		}
		out[i] = *candidate.Document
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := f.store.ByIDs(ctx, missing, opts...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]schema.Document, len(fetched))
	for _, doc := range fetched {
		byID[doc.ID] = doc
	}
	result := out[:0]
	for i, candidate := range candidates {
		if candidate.Document != nil {
			result = append(result, out[i])
			continue
		}
		doc, ok := byID[candidate.ID]
		if !ok {
			continue
		}
		doc.Score = candidate.Score
		result = append(result, doc)
	}
	return result, nil
}
