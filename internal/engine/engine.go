// Package engine issues multiple retrieval strategies against the vector
// store, merges and deduplicates their candidates, applies intent-aware
// score boosting, assesses result confidence, and formats the final ranked
// context. The engine is stateless per query and never fails a query: any
// internal error degrades to a smaller (possibly empty) result set.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ragkit/config"
	"ragkit/internal/adapter/analyzer"
	"ragkit/internal/domain"
	"ragkit/internal/port"
)

// Strategy score bases: each retrieval strategy assigns initial relevance in
// its own range so semantic hits outrank keyword-only hits before boosting.
const (
	semanticBase     = 1.0
	entityBase       = 0.8
	entityMatchBonus = 0.2
	keywordBase      = 0.6
	maxKeywordTerms  = 5
	minOverlapTerms  = 2
)

// Engine is the multi-strategy retrieval/ranking pipeline.
type Engine struct {
	store     port.SearchStore
	cfg       config.RetrievalConfig
	tokenizer *analyzer.Tokenizer
	logger    *slog.Logger
}

func New(store port.SearchStore, cfg config.RetrievalConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.PoolMultiplier <= 0 {
		cfg.PoolMultiplier = 3
	}
	if cfg.MaxContextChunks <= 0 {
		cfg.MaxContextChunks = 12
	}
	return &Engine{
		store:     store,
		cfg:       cfg,
		tokenizer: analyzer.NewTokenizer(),
		logger:    logger,
	}
}

// Query runs the full pipeline for a user query. It always returns a result:
// strategy failures shrink the candidate pool, and a fully unavailable store
// yields an empty ranked list rather than an error.
func (e *Engine) Query(ctx context.Context, userQuery string, topK int) domain.QueryResult {
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	candidates := e.retrieve(ctx, userQuery, topK)
	if len(candidates) == 0 {
		return domain.QueryResult{
			Context:    "No relevant information found.",
			Confidence: domain.ConfidenceNone,
		}
	}

	merged := dedupe(candidates)
	e.boost(userQuery, merged)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Relevance > merged[j].Relevance
	})

	confidence := assessConfidence(merged)
	selected := e.selectForContext(merged, confidence)

	return domain.QueryResult{
		Context:    formatContext(selected),
		Sources:    extractSources(selected),
		Confidence: confidence,
		Chunks:     selected,
	}
}

// retrieve runs the three strategies concurrently and joins them. A failing
// strategy contributes nothing; it never cancels the others. When every
// strategy comes back empty a single plain similarity search is the last
// resort.
func (e *Engine) retrieve(ctx context.Context, query string, topK int) []domain.RetrievedChunk {
	pool := topK * e.cfg.PoolMultiplier
	results := make([][]domain.RetrievedChunk, 3)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results[0] = e.semanticSearch(gctx, query, pool)
		return nil
	})
	g.Go(func() error {
		results[1] = e.entitySearch(gctx, query, pool)
		return nil
	})
	g.Go(func() error {
		results[2] = e.keywordSearch(gctx, query, pool)
		return nil
	})
	g.Wait()

	var merged []domain.RetrievedChunk
	for _, r := range results {
		merged = append(merged, r...)
	}
	if len(merged) > 0 {
		return merged
	}

	// Every strategy declined or failed. One plain search decides whether
	// anything at all is retrievable.
	return e.semanticSearch(ctx, query, topK)
}

func (e *Engine) semanticSearch(ctx context.Context, query string, pool int) []domain.RetrievedChunk {
	chunks, err := e.store.SimilaritySearch(ctx, query, pool)
	if err != nil {
		e.logger.Warn("semantic strategy failed", "error", err)
		return nil
	}
	return scoreByRank(chunks, semanticBase)
}

// entitySearch re-issues the search with domain entities appended when the
// query carries an interrogative or contact-seeking cue, boosting chunks
// that literally mention one of the entities.
func (e *Engine) entitySearch(ctx context.Context, query string, pool int) []domain.RetrievedChunk {
	if !hasEntityCue(query, e.cfg.EntityCues) {
		return nil
	}
	entities := entitiesIn(query, e.cfg.Entities)
	if len(entities) == 0 {
		return nil
	}

	expanded := query + " " + strings.Join(entities, " ")
	chunks, err := e.store.SimilaritySearch(ctx, expanded, pool)
	if err != nil {
		e.logger.Warn("entity strategy failed", "error", err)
		return nil
	}

	scored := scoreByRank(chunks, entityBase)
	for i := range scored {
		lower := strings.ToLower(scored[i].Content)
		for _, entity := range entities {
			if strings.Contains(lower, strings.ToLower(entity)) {
				scored[i].Relevance += entityMatchBonus
				break
			}
		}
	}
	return scored
}

// keywordSearch concatenates up to five non-stopword query terms and issues
// a similarity search on them.
func (e *Engine) keywordSearch(ctx context.Context, query string, pool int) []domain.RetrievedChunk {
	terms := e.tokenizer.QueryTerms(query, maxKeywordTerms)
	if len(terms) == 0 {
		return nil
	}

	chunks, err := e.store.SimilaritySearch(ctx, strings.Join(terms, " "), pool)
	if err != nil {
		e.logger.Warn("keyword strategy failed", "error", err)
		return nil
	}
	return scoreByRank(chunks, keywordBase)
}

// scoreByRank assigns linearly decaying scores from base down the ranking.
func scoreByRank(chunks []domain.Chunk, base float64) []domain.RetrievedChunk {
	n := len(chunks)
	if n == 0 {
		return nil
	}
	scored := make([]domain.RetrievedChunk, n)
	for i, ch := range chunks {
		scored[i] = domain.RetrievedChunk{
			Content:   ch.Content,
			Metadata:  ch.Metadata,
			Relevance: base * (1.0 - float64(i)/float64(n)),
		}
	}
	return scored
}

// dedupe keys chunks by a content hash and keeps the highest-scoring
// instance when the same chunk surfaces from multiple strategies.
func dedupe(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	best := make(map[string]int, len(chunks))
	var out []domain.RetrievedChunk

	for _, ch := range chunks {
		key := contentKey(ch.Content)
		if i, seen := best[key]; seen {
			if ch.Relevance > out[i].Relevance {
				out[i] = ch
			}
			continue
		}
		best[key] = len(out)
		out = append(out, ch)
	}
	return out
}

func contentKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16])
}

// boost applies additive intent-aware bonuses. Nothing is filtered out;
// matching chunks only move up.
func (e *Engine) boost(query string, chunks []domain.RetrievedChunk) {
	intents := detectIntents(query, e.cfg.Intents)
	queryTerms := e.tokenizer.QueryTerms(query, 0)

	boostStructured := false
	for _, m := range intents {
		if m.rule.BoostStructured {
			boostStructured = true
			break
		}
	}

	for i := range chunks {
		ch := &chunks[i]

		if boostStructured && structuredSection(ch.Metadata.SectionType) {
			ch.Relevance += e.cfg.StructuredBonus
		}

		for _, m := range intents {
			min := m.rule.MinSignals
			if min <= 0 {
				min = 1
			}
			if signalCount(ch.Content, m.rule.Signals) >= min {
				ch.Relevance += m.rule.Bonus
			}
		}

		if len(queryTerms) >= minOverlapTerms &&
			e.tokenizer.Overlap(queryTerms, ch.Content) >= minOverlapTerms {
			ch.Relevance += e.cfg.TermOverlapBonus
		}
	}
}

// assessConfidence buckets the result set by max and mean score.
func assessConfidence(chunks []domain.RetrievedChunk) domain.Confidence {
	if len(chunks) == 0 {
		return domain.ConfidenceNone
	}

	max := chunks[0].Relevance
	var sum float64
	for _, ch := range chunks {
		if ch.Relevance > max {
			max = ch.Relevance
		}
		sum += ch.Relevance
	}
	avg := sum / float64(len(chunks))

	switch {
	case max >= 0.8 && avg >= 0.6:
		return domain.ConfidenceHigh
	case max >= 0.6 && avg >= 0.4:
		return domain.ConfidenceMedium
	case max >= 0.4:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceVeryLow
	}
}

// selectForContext picks up to MaxContextChunks chunks, favoring
// high-scoring ones. High-confidence result sets get a 10/3/1 split across
// the high/medium/low score bands, everything else 8/4/2.
func (e *Engine) selectForContext(ranked []domain.RetrievedChunk, confidence domain.Confidence) []domain.RetrievedChunk {
	quotaHigh, quotaMed, quotaLow := 8, 4, 2
	if confidence == domain.ConfidenceHigh {
		quotaHigh, quotaMed, quotaLow = 10, 3, 1
	}

	var selected []domain.RetrievedChunk
	nHigh, nMed, nLow := 0, 0, 0
	for _, ch := range ranked {
		if len(selected) >= e.cfg.MaxContextChunks {
			break
		}
		switch {
		case ch.Relevance >= 0.6:
			if nHigh >= quotaHigh {
				continue
			}
			nHigh++
		case ch.Relevance >= 0.4:
			if nMed >= quotaMed {
				continue
			}
			nMed++
		default:
			if nLow >= quotaLow {
				continue
			}
			nLow++
		}
		selected = append(selected, ch)
	}
	return selected
}

// formatContext renders each chunk as an attributed block.
func formatContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return "No relevant information found."
	}

	blocks := make([]string, len(chunks))
	for i, ch := range chunks {
		source := ch.Metadata.Source
		if source == "" {
			source = "Unknown"
		}
		blocks[i] = fmt.Sprintf("[Document: %s, Section: %d]\n%s", source, ch.Metadata.ChunkIndex, ch.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// extractSources deduplicates by source in first-seen (highest-rank) order,
// rounding relevance to two decimals.
func extractSources(chunks []domain.RetrievedChunk) []domain.Source {
	seen := make(map[string]struct{})
	var sources []domain.Source
	for _, ch := range chunks {
		title := ch.Metadata.Source
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		sources = append(sources, domain.Source{
			Title:     title,
			Path:      ch.Metadata.FilePath,
			Type:      ch.Metadata.FileType,
			Relevance: round2(ch.Relevance),
		})
	}
	return sources
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
