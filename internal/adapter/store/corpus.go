// Package store owns the corpus: an aligned pair of embedding matrix and
// document list, guarded by a reader-writer lock, persisted as a dual-file
// pair after every successful mutation, and degrading to keyword search when
// embeddings are unavailable.
package store

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"ragkit/internal/adapter/analyzer"
	"ragkit/internal/domain"
	"ragkit/internal/port"
)

// Corpus is a cosine-similarity vector store. The documents slice and the
// embedding matrix are index-aligned at all times: docs[i] corresponds to
// matrix[i], and insertion is always an append.
type Corpus struct {
	embedder  port.Embedder
	persister *FilePersister // nil disables durability
	tokenizer *analyzer.Tokenizer
	cache     *queryCache
	logger    *slog.Logger

	mu          sync.RWMutex
	matrix      [][]float32
	docs        []domain.Chunk
	keywordOnly bool
}

// NewCorpus creates a corpus, loading persisted state when a persister is
// configured. A load failure is logged and the corpus starts empty; it keeps
// serving without durability rather than failing startup.
func NewCorpus(embedder port.Embedder, persister *FilePersister, logger *slog.Logger) *Corpus {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Corpus{
		embedder:  embedder,
		persister: persister,
		tokenizer: analyzer.NewTokenizer(),
		cache:     newQueryCache(100, 5*time.Minute),
		logger:    logger,
	}

	if persister != nil {
		matrix, docs, err := persister.Load()
		if err != nil {
			logger.Warn("corpus load failed, starting empty", "error", err)
		} else if len(docs) > 0 {
			c.matrix = matrix
			c.docs = docs
			c.keywordOnly = len(matrix) == 0
			logger.Info("corpus loaded",
				"documents", len(docs), "vectors", len(matrix), "keyword_only", c.keywordOnly)
		}
	}
	return c
}

// Count returns the number of stored chunks.
func (c *Corpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// KeywordOnly reports whether the corpus is operating without vectors.
func (c *Corpus) KeywordOnly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keywordOnly
}

// AddDocuments embeds the chunks in batches, L2-normalizes the vectors,
// appends both structures in order, and persists. It returns false on a
// transient embedding failure without committing any partial mutation. When
// the embedding backend never initialized it stores the chunks without
// vectors so keyword search keeps working.
func (c *Corpus) AddDocuments(ctx context.Context, chunks []domain.Chunk) bool {
	if len(chunks) == 0 {
		return true
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		var initErr *domain.EmbeddingInitError
		if errors.As(err, &initErr) {
			c.logger.Warn("embedding backend unavailable, storing without vectors", "error", err)
			return c.appendAndPersist(nil, chunks, true)
		}
		c.logger.Error("embedding documents failed, batch not added", "error", err, "chunks", len(chunks))
		return false
	}
	if len(vectors) != len(chunks) {
		c.logger.Error("embedding count mismatch, batch not added",
			"vectors", len(vectors), "chunks", len(chunks))
		return false
	}

	for _, v := range vectors {
		Normalize(v)
	}
	return c.appendAndPersist(vectors, chunks, false)
}

func (c *Corpus) appendAndPersist(vectors [][]float32, chunks []domain.Chunk, keywordOnly bool) bool {
	c.mu.Lock()
	sticky := c.keywordOnly && !keywordOnly
	if keywordOnly || c.keywordOnly {
		// Keyword mode is corpus-wide and sticky: earlier chunks have no
		// vectors, so a partial matrix cannot stay aligned with the document
		// list. New vectors are dropped until the collection is rebuilt.
		c.keywordOnly = true
		c.matrix = nil
	} else {
		c.matrix = append(c.matrix, vectors...)
	}
	c.docs = append(c.docs, chunks...)
	matrix, docs := c.matrix, c.docs
	c.mu.Unlock()

	c.cache.invalidate()

	if sticky {
		c.logger.Warn("corpus is keyword-only, new vectors dropped", "chunks", len(chunks))
	}
	if c.persister != nil {
		if err := c.persister.Save(matrix, docs); err != nil {
			// In-memory state stays valid; only durability is lost.
			c.logger.Warn("corpus persist failed", "error", err)
		}
	}
	c.logger.Info("documents added", "added", len(chunks), "total", len(docs))
	return true
}

// SimilaritySearch embeds the query, scores every stored row by dot product
// (cosine similarity over unit vectors), and returns the topK chunks in
// non-increasing score order with insertion-order tie-breaks. It falls back
// to keyword search whenever no embeddings are available or the query cannot
// be embedded.
func (c *Corpus) SimilaritySearch(ctx context.Context, query string, topK int) ([]domain.Chunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	if cached, hit := c.cache.get(query, topK); hit {
		return cached, nil
	}

	c.mu.RLock()
	empty := len(c.docs) == 0
	vectorless := c.keywordOnly || len(c.matrix) == 0
	c.mu.RUnlock()

	if empty {
		return nil, nil
	}

	var results []domain.Chunk
	if vectorless {
		results = c.fallbackKeywordSearch(query, topK)
	} else {
		q, err := c.embedder.EmbedQuery(ctx, query)
		if err != nil {
			// Transient failure: serve the keyword fallback uncached so the
			// next call retries the embedder instead of pinning degraded
			// results for the cache TTL.
			c.logger.Warn("query embedding failed, using keyword fallback", "error", err)
			return c.fallbackKeywordSearch(query, topK), nil
		}
		Normalize(q)
		results = c.vectorSearch(q, topK)
	}

	c.cache.put(query, topK, results)
	return results, nil
}

func (c *Corpus) vectorSearch(q []float32, topK int) []domain.Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(c.matrix))
	for i, row := range c.matrix {
		scores[i] = scored{idx: i, score: dot(row, q)}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.Chunk, topK)
	for i := 0; i < topK; i++ {
		results[i] = c.docs[scores[i].idx]
	}
	return results
}

// fallbackKeywordSearch ranks chunks by how many distinct query terms their
// content contains, descending, ties by insertion order.
func (c *Corpus) fallbackKeywordSearch(query string, topK int) []domain.Chunk {
	terms := c.tokenizer.Terms(query)
	if len(terms) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type scored struct {
		idx     int
		matches int
	}
	var scores []scored
	for i, doc := range c.docs {
		if n := c.tokenizer.Overlap(terms, doc.Content); n > 0 {
			scores = append(scores, scored{idx: i, matches: n})
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].matches > scores[j].matches
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.Chunk, topK)
	for i := 0; i < topK; i++ {
		results[i] = c.docs[scores[i].idx]
	}
	return results
}

// DeleteCollection resets the corpus to empty and removes the persisted
// files. The reset is all-or-nothing: when file removal fails, memory is
// left untouched and false is returned.
func (c *Corpus) DeleteCollection() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persister != nil {
		if err := c.persister.Remove(); err != nil {
			c.logger.Error("collection delete failed", "error", err)
			return false
		}
	}

	c.matrix = nil
	c.docs = nil
	c.keywordOnly = false
	c.cache.invalidate()
	c.logger.Info("collection deleted")
	return true
}

// Warmup touches every stored row with a self-dot-product so lazily loaded
// pages are resident before the first query.
func (c *Corpus) Warmup() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sink float64
	for _, row := range c.matrix {
		sink += dot(row, row)
	}
	_ = sink
}

// Normalize scales v to unit length in place. A zero vector is left as-is:
// the norm is treated as 1 so the division is safe.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
