package schema

import "strings"

// ContextSeparator joins document projections when building LLM context.
const ContextSeparator = "\n---\n"

// Document represents a stored record: a text chunk with optional metadata and score.
type Document struct {
	ID          string                 `json:"id"`
	PageContent string                 `json:"page_content"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	// Score is optional and populated by similarity search.
	Score float64 `json:"score,omitempty"`
}

// Text returns the textual projection used to build LLM context.
func (d *Document) Text() string {
	return d.PageContent
}

// JoinText joins the textual projections of docs in slice order.
func JoinText(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text()
	}
	return strings.Join(texts, ContextSeparator)
}

// IDs returns document identifiers in slice order.
func IDs(docs []Document) []string {
	out := make([]string, len(docs))
	for i := range docs {
		out[i] = docs[i].ID
	}
	return out
}
