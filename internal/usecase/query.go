package usecase

import (
	"context"
	"strings"

	"ragkit/internal/domain"
	"ragkit/internal/engine"
)

// QueryUseCase answers user questions with ranked corpus context.
type QueryUseCase struct {
	engine *engine.Engine
}

func NewQueryUseCase(eng *engine.Engine) *QueryUseCase {
	return &QueryUseCase{engine: eng}
}

// Answer runs the retrieval pipeline for query. Blank queries short-circuit
// to an empty result.
func (u *QueryUseCase) Answer(ctx context.Context, query string, topK int) domain.QueryResult {
	if strings.TrimSpace(query) == "" {
		return domain.QueryResult{
			Context:    "No relevant information found.",
			Confidence: domain.ConfidenceNone,
		}
	}
	return u.engine.Query(ctx, query, topK)
}
