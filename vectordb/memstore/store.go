package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/viant/vecrag/embeddings"
	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectordb/meta"
	"github.com/viant/vecrag/vectorstores"
	"go.uber.org/zap"
)

const defaultNamespace = "default"

type entry struct {
	doc    schema.Document
	vector []float32
}

// Store is a brute-force in-memory vector store scored by cosine similarity.
// It is intended for tests and small local datasets.
type Store struct {
	mu       sync.RWMutex
	spaces   map[string]map[string]*entry
	dim      int
	seq      int
	embedder embeddings.Embedder
	logger   *zap.Logger
	closed   bool
}

// Option configures the in-memory store.
type Option func(*Store)

// WithEmbedder sets the default embedder for AddDocuments.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{spaces: map[string]map[string]*entry{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Direction reports cosine similarity scoring.
func (s *Store) Direction() vectordb.Direction { return vectordb.Similarity }

// Put stores doc with a precomputed vector.
func (s *Store) Put(namespace string, doc schema.Document, vector []float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(namespace, doc, vector)
}

func (s *Store) put(namespace string, doc schema.Document, vector []float32) (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	if s.dim == 0 {
		s.dim = len(vector)
	}
	if len(vector) != s.dim {
		return "", fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dim)
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	if doc.ID == "" {
		doc.ID = meta.GetString(doc.Metadata, meta.FragmentID)
	}
	if doc.ID == "" {
		s.seq++
		doc.ID = strconv.Itoa(s.seq)
	}
	space := s.spaces[namespace]
	if space == nil {
		space = map[string]*entry{}
		s.spaces[namespace] = space
	}
	doc.Score = 0
	vec := make([]float32, len(vector))
	copy(vec, vector)
	space[doc.ID] = &entry{doc: doc, vector: vec}
	return doc.ID, nil
}

// AddDocuments embeds and stores docs.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, opts ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	options := vectorstores.Apply(opts...)
	emb := options.Embedder
	if emb == nil {
		emb = s.embedder
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].PageContent
	}
	vecs, err := embeddings.Batch(ctx, emb, texts, 0)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(docs))
	for i, doc := range docs {
		if ids[i], err = s.put(options.NameSpace, doc, vecs[i]); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Nearest returns up to limit candidates by descending cosine similarity.
func (s *Store) Nearest(ctx context.Context, vector []float32, limit int, opts ...vectorstores.Option) ([]vectordb.Candidate, error) {
	options := vectorstores.Apply(opts...)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	space := s.spaces[namespaceOf(options)]
	if len(space) == 0 || limit <= 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dim)
	}
	out := make([]vectordb.Candidate, 0, len(space))
	for id, e := range space {
		doc := e.doc
		doc.Metadata = copyMeta(e.doc.Metadata)
		doc.Score = cosine(vector, e.vector)
		out = append(out, vectordb.Candidate{ID: id, Score: doc.Score, Document: &doc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return CompareIDs(out[i].ID, out[j].ID) < 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	s.logger.Debug("nearest", zap.String("namespace", namespaceOf(options)), zap.Int("limit", limit), zap.Int("candidates", len(out)))
	return out, nil
}

// ByIDs returns stored records for ids ordered by identifier; unknown ids are skipped.
func (s *Store) ByIDs(ctx context.Context, ids []string, opts ...vectorstores.Option) ([]schema.Document, error) {
	options := vectorstores.Apply(opts...)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	space := s.spaces[namespaceOf(options)]
	seen := map[string]bool{}
	out := make([]schema.Document, 0, len(ids))
	for _, id := range ids {
		e, ok := space[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		doc := e.doc
		doc.Metadata = copyMeta(e.doc.Metadata)
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return CompareIDs(out[i].ID, out[j].ID) < 0 })
	s.logger.Debug("by ids", zap.Strings("ids", ids), zap.Int("records", len(out)))
	return out, nil
}

// Remove deletes a record by id.
func (s *Store) Remove(ctx context.Context, id string, opts ...vectorstores.Option) error {
	options := vectorstores.Apply(opts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.spaces[namespaceOf(options)], id)
	return nil
}

// Len returns the number of records in namespace.
func (s *Store) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if namespace == "" {
		namespace = defaultNamespace
	}
	return len(s.spaces[namespace])
}

// Close marks the store as closed. Further ops return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.spaces = map[string]map[string]*entry{}
	return nil
}

// CompareIDs orders identifiers numerically when both are integers, lexically otherwise.
func CompareIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func namespaceOf(options vectorstores.Options) string {
	if options.NameSpace == "" {
		return defaultNamespace
	}
	return options.NameSpace
}

func copyMeta(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
