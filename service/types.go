package service

// SearchRequest defines inputs for a similarity search.
type SearchRequest struct {
	Query string
	// K defaults to the configured retrieval.k.
	K int
	// ScoreThreshold overrides the configured threshold when set.
	ScoreThreshold *float64
	// NoThreshold disables any configured threshold.
	NoThreshold bool
	Namespace   string
}

// AskRequest defines inputs for a retrieval-augmented question.
type AskRequest struct {
	Question       string
	K              int
	ScoreThreshold *float64
	NoThreshold    bool
	Namespace      string
}

// IngestRequest defines inputs for ingesting a location.
type IngestRequest struct {
	Location  string
	Namespace string
	Include   []string
	Exclude   []string
	ChunkSize int
}
