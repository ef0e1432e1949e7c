package meta

// Metadata keys written by ingestion and read back by stores.
const (
	DocumentID = "docId"
	FragmentID = "fragmentId"
	PathKey    = "path"
	StartKey   = "start"
	EndKey     = "end"
	ModelKey   = "embedding_model"
)
