package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"ragkit/internal/adapter/embedding"
	"ragkit/internal/domain"
)

func chunksOf(contents ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = domain.Chunk{
			Content:  content,
			Metadata: domain.ChunkMetadata{Source: "test.txt", ChunkIndex: i + 1},
		}
	}
	return chunks
}

func TestAddAndSearchExactMatchFirst(t *testing.T) {
	c := NewCorpus(embedding.NewMockEmbedder(16), nil, nil)
	ctx := context.Background()

	if !c.AddDocuments(ctx, chunksOf("alpha beta", "gamma delta", "omega psi")) {
		t.Fatal("add failed")
	}
	if c.Count() != 3 {
		t.Fatalf("count %d, want 3", c.Count())
	}

	results, err := c.SimilaritySearch(ctx, "gamma delta", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Content != "gamma delta" {
		t.Errorf("exact match not first: %q", results[0].Content)
	}
}

func TestSearchTopKIsPrefix(t *testing.T) {
	c := NewCorpus(embedding.NewMockEmbedder(16), nil, nil)
	ctx := context.Background()

	c.AddDocuments(ctx, chunksOf("one fish", "two fish", "red fish", "blue fish"))

	small, err := c.SimilaritySearch(ctx, "red fish", 2)
	if err != nil {
		t.Fatal(err)
	}
	large, err := c.SimilaritySearch(ctx, "red fish", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(small) != 2 || len(large) != 4 {
		t.Fatalf("sizes %d/%d", len(small), len(large))
	}
	for i := range small {
		if small[i].Content != large[i].Content {
			t.Errorf("rank %d differs: %q vs %q", i, small[i].Content, large[i].Content)
		}
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	c := NewCorpus(embedding.NewMockEmbedder(16), nil, nil)

	results, err := c.SimilaritySearch(context.Background(), "anything", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestKeywordFallbackOnInitFailure(t *testing.T) {
	c := NewCorpus(embedding.NewFailingEmbedder(), nil, nil)
	ctx := context.Background()

	ok := c.AddDocuments(ctx, chunksOf(
		"vacation policy grants twenty days per year",
		"the cafeteria serves lunch from noon",
		"vacation carryover requires manager approval",
	))
	if !ok {
		t.Fatal("expected chunks to be stored without vectors")
	}
	if !c.KeywordOnly() {
		t.Fatal("corpus should be in keyword-only mode")
	}

	results, err := c.SimilaritySearch(ctx, "vacation policy days", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Three term matches beat one.
	if results[0].Content != "vacation policy grants twenty days per year" {
		t.Errorf("best keyword match not first: %q", results[0].Content)
	}
}

func TestPersistReload(t *testing.T) {
	p := tempPersister(t)
	embedder := embedding.NewMockEmbedder(16)
	ctx := context.Background()

	first := NewCorpus(embedder, p, nil)
	first.AddDocuments(ctx, chunksOf("alpha", "beta"))
	first.AddDocuments(ctx, chunksOf("gamma"))

	second := NewCorpus(embedder, p, nil)
	if second.Count() != 3 {
		t.Fatalf("reloaded count %d, want 3", second.Count())
	}
	if second.KeywordOnly() {
		t.Error("reloaded corpus should keep its vectors")
	}

	results, err := second.SimilaritySearch(ctx, "gamma", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Content != "gamma" {
		t.Errorf("search after reload: %+v", results)
	}
}

func TestKeywordOnlyPersistReload(t *testing.T) {
	p := tempPersister(t)
	ctx := context.Background()

	first := NewCorpus(embedding.NewFailingEmbedder(), p, nil)
	first.AddDocuments(ctx, chunksOf("handbook section on parental leave"))

	second := NewCorpus(embedding.NewFailingEmbedder(), p, nil)
	if second.Count() != 1 {
		t.Fatalf("reloaded count %d, want 1", second.Count())
	}
	if !second.KeywordOnly() {
		t.Error("vector-less corpus should reload in keyword-only mode")
	}
}

func TestDeleteCollection(t *testing.T) {
	p := tempPersister(t)
	ctx := context.Background()

	c := NewCorpus(embedding.NewMockEmbedder(16), p, nil)
	c.AddDocuments(ctx, chunksOf("a", "b"))

	if !c.DeleteCollection() {
		t.Fatal("delete failed")
	}
	if c.Count() != 0 {
		t.Errorf("count %d after delete", c.Count())
	}

	reloaded := NewCorpus(embedding.NewMockEmbedder(16), p, nil)
	if reloaded.Count() != 0 {
		t.Errorf("deleted corpus reloaded %d chunks", reloaded.Count())
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("norm %v, want 1", math.Sqrt(sum))
	}

	zero := []float32{0, 0, 0}
	Normalize(zero)
	for i, x := range zero {
		if x != 0 {
			t.Errorf("zero vector changed at %d: %v", i, x)
		}
	}
}

// flakyQueryEmbedder embeds documents normally but fails the first query
// embedding with a transient error.
type flakyQueryEmbedder struct {
	*embedding.MockEmbedder
	failures int
}

func (f *flakyQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.failures > 0 {
		f.failures--
		return nil, &domain.EmbeddingCallError{Err: errors.New("backend timeout")}
	}
	return f.MockEmbedder.EmbedQuery(ctx, text)
}

func TestKeywordOnlyStickyAfterReopen(t *testing.T) {
	p := tempPersister(t)
	ctx := context.Background()

	first := NewCorpus(embedding.NewFailingEmbedder(), p, nil)
	if !first.AddDocuments(ctx, chunksOf("remote work policy")) {
		t.Fatal("keyword-only add failed")
	}

	// The backend is healthy again, but the stored chunks have no vectors:
	// the corpus must stay in keyword mode instead of growing a matrix that
	// no longer lines up with the document list.
	second := NewCorpus(embedding.NewMockEmbedder(16), p, nil)
	if !second.AddDocuments(ctx, chunksOf("expense reports are due monthly", "travel booking guidelines")) {
		t.Fatal("add after reopen failed")
	}
	if !second.KeywordOnly() {
		t.Error("corpus left keyword-only mode while unvectored chunks remain")
	}
	if second.Count() != 3 {
		t.Fatalf("count %d, want 3", second.Count())
	}

	third := NewCorpus(embedding.NewMockEmbedder(16), p, nil)
	if third.Count() != 3 {
		t.Fatalf("reloaded count %d, want 3", third.Count())
	}
	results, err := third.SimilaritySearch(ctx, "expense reports", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Content != "expense reports are due monthly" {
		t.Errorf("keyword search after reopen: %+v", results)
	}
}

func TestTransientQueryFailureNotCached(t *testing.T) {
	embedder := &flakyQueryEmbedder{MockEmbedder: embedding.NewMockEmbedder(16), failures: 1}
	c := NewCorpus(embedder, nil, nil)
	ctx := context.Background()

	c.AddDocuments(ctx, chunksOf("vacation policy grants twenty days", "lunch menu"))

	// The first query falls back to keyword search. That result must not be
	// cached, or it would shadow vector results until the TTL expires.
	if _, err := c.SimilaritySearch(ctx, "vacation days", 1); err != nil {
		t.Fatal(err)
	}
	if _, hit := c.cache.get("vacation days", 1); hit {
		t.Fatal("fallback result was cached")
	}

	// Once the backend recovers, the vector result is served and cached.
	if _, err := c.SimilaritySearch(ctx, "vacation days", 1); err != nil {
		t.Fatal(err)
	}
	if _, hit := c.cache.get("vacation days", 1); !hit {
		t.Error("vector result was not cached")
	}
}
