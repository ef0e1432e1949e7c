package vectorstores

import (
	"github.com/viant/vecrag/embeddings"
)

// Option applies configuration to Options.
type Option func(*Options)

// Options collects optional parameters for vector store operations.
type Options struct {
	Embedder  embeddings.Embedder
	NameSpace string
	// ScoreThreshold is the soft similarity cutoff; nil means plain top-k.
	ScoreThreshold *float64
}

// Apply builds Options from opts.
func Apply(opts ...Option) Options {
	options := Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// HasThreshold reports whether a score threshold was supplied.
func (o *Options) HasThreshold() bool {
	return o.ScoreThreshold != nil
}

// WithEmbedder sets the embedder to use.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(o *Options) { o.Embedder = e }
}

// WithNameSpace sets the logical namespace to operate on.
func WithNameSpace(ns string) Option {
	return func(o *Options) { o.NameSpace = ns }
}

// WithScoreThreshold rejects candidates whose score does not meet threshold.
// Comparison direction is defined by the store's metric.
func WithScoreThreshold(threshold float64) Option {
	return func(o *Options) {
		v := threshold
		o.ScoreThreshold = &v
	}
}

// WithOptionalScoreThreshold sets the threshold only when threshold is non-nil.
func WithOptionalScoreThreshold(threshold *float64) Option {
	return func(o *Options) {
		if threshold == nil {
			return
		}
		v := *threshold
		o.ScoreThreshold = &v
	}
}
