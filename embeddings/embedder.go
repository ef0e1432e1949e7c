package embeddings

import (
	"context"
	"fmt"
)

// Embedder is a minimal interface for computing vector embeddings
// for documents and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryFunc adapts a function to Embedder; documents are embedded one at a time.
type QueryFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedQuery calls f.
func (f QueryFunc) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// EmbedDocuments calls f for every doc.
func (f QueryFunc) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, doc := range docs {
		v, err := f(ctx, doc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Batch embeds texts in batches of batchSize and checks the vector count.
func Batch(ctx context.Context, emb Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = 64
	}
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := emb.EmbedDocuments(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-i {
			return nil, fmt.Errorf("embedder returned %d vectors for %d docs", len(vecs), end-i)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
