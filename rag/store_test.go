package rag

import (
	"context"
	"sort"

	"github.com/viant/vecrag/schema"
	"github.com/viant/vecrag/vectordb"
	"github.com/viant/vecrag/vectorstores"
)

// orderedStore is a distance store whose re-fetch returns ascending ids.
type orderedStore struct {
	candidates   []vectordb.Candidate
	nearestCalls []int
	byIDsCalls   [][]string
}

func (s *orderedStore) Direction() vectordb.Direction { return vectordb.Distance }

func (s *orderedStore) Nearest(ctx context.Context, vector []float32, limit int, opts ...vectorstores.Option) ([]vectordb.Candidate, error) {
	s.nearestCalls = append(s.nearestCalls, limit)
	out := s.candidates
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *orderedStore) ByIDs(ctx context.Context, ids []string, opts ...vectorstores.Option) ([]schema.Document, error) {
	s.byIDsCalls = append(s.byIDsCalls, append([]string{}, ids...))
	out := make([]schema.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, schema.Document{ID: id, PageContent: "Vector " + id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
