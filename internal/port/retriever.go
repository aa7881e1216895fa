package port

import (
	"context"

	"ragkit/internal/domain"
)

// SearchStore is the corpus surface the retrieval engine depends on.
type SearchStore interface {
	// SimilaritySearch returns the topK chunks most similar to the query, in
	// non-increasing score order with ties broken by insertion order. It
	// degrades to keyword search when embeddings are unavailable and never
	// fails for an empty corpus.
	SimilaritySearch(ctx context.Context, query string, topK int) ([]domain.Chunk, error)
}
