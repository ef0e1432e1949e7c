package rag

import "strings"

// PromptTemplate renders the final prompt from a question and retrieved context.
type PromptTemplate func(question, context string) string

const defaultTemplate = "Context:\n{context}\n---\nQuestion: {question}\n---\nAnswer:"

// DefaultPrompt renders the default RAG prompt.
func DefaultPrompt(question, context string) string {
	return NewTemplate(defaultTemplate)(question, context)
}

// NewTemplate returns a PromptTemplate substituting {question} and {context} in text.
func NewTemplate(text string) PromptTemplate {
	return func(question, context string) string {
		return strings.NewReplacer("{question}", question, "{context}", context).Replace(text)
	}
}
