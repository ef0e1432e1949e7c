// Package service wires configuration into a vector store, embedder,
// threshold-aware retriever and RAG orchestrator, and exposes search, ask and
// ingest operations for embedding into other programs without the CLI.
package service
