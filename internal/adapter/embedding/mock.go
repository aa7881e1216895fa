package embedding

import (
	"context"

	"ragkit/internal/domain"
)

// MockEmbedder produces deterministic embeddings for tests and offline use.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 768
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embedOne(text), nil
}

func (e *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = e.embedOne(t)
	}
	return vecs, nil
}

func (e *MockEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	for j, r := range text {
		if j >= e.dimension {
			break
		}
		vec[j] = float32(r) / 1000.0
	}
	return vec
}

func (e *MockEmbedder) Dimension(_ context.Context) (int, error) {
	return e.dimension, nil
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// FailingEmbedder always reports an unreachable backend. It exercises the
// keyword-only fallback paths in the store and engine.
type FailingEmbedder struct{}

func NewFailingEmbedder() *FailingEmbedder {
	return &FailingEmbedder{}
}

func (e *FailingEmbedder) initError() error {
	return &domain.EmbeddingInitError{Attempts: 3, Err: context.DeadlineExceeded}
}

func (e *FailingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, e.initError()
}

func (e *FailingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, e.initError()
}

func (e *FailingEmbedder) Dimension(context.Context) (int, error) {
	return 0, e.initError()
}

func (e *FailingEmbedder) ModelName() string {
	return "failing"
}
