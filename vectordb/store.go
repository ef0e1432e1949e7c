package vectordb

import (
	"context"

	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectorstores"
)

// Direction defines how a store's candidate score relates to similarity.
type Direction int

const (
	// Distance scores are lower for more similar records.
	Distance Direction = iota
	// Similarity scores are higher for more similar records.
	Similarity
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Similarity {
		return "similarity"
	}
	return "distance"
}

// Accept reports whether score meets threshold in this direction.
func (d Direction) Accept(score, threshold float64) bool {
	if d == Similarity {
		return score >= threshold
	}
	return score <= threshold
}

// Candidate is a record identifier with its store-defined score.
type Candidate struct {
	ID    string
	Score float64
	// Document is the hydrated record. Stores should fill it: the unthresholded
	// search path only falls back to ByIDs for candidates that lack it.
	Document *schema.Document
}

// NearestNeighborStore is a top-k vector index with a by-identifier re-fetch.
type NearestNeighborStore interface {
	// Nearest returns up to limit candidates nearest-first, each with its
	// Document set.
	Nearest(ctx context.Context, vector []float32, limit int, opts ...vectorstores.Option) ([]Candidate, error)
	// ByIDs returns the records with the given ids ordered by identifier.
	ByIDs(ctx context.Context, ids []string, opts ...vectorstores.Option) ([]schema.Document, error)
	// Direction reports how candidate scores compare.
	Direction() Direction
}

// Writer stores and removes documents.
type Writer interface {
	AddDocuments(ctx context.Context, docs []schema.Document, opts ...vectorstores.Option) ([]string, error)
	Remove(ctx context.Context, id string, opts ...vectorstores.Option) error
}

// VectorStore is a NearestNeighborStore that also accepts writes.
type VectorStore interface {
	NearestNeighborStore
	Writer
	Close() error
}
