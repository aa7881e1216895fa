package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"ragkit/internal/domain"
)

func embeddingServer(t *testing.T, dim int, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := embeddingResponse{Data: make([]embeddingData, len(req.Input))}
		for i, text := range req.Input {
			vec := make([]float32, dim)
			for j, r := range text {
				if j >= dim {
					break
				}
				vec[j] = float32(r)
			}
			// Reversed order exercises index-based reassembly.
			resp.Data[len(req.Input)-1-i] = embeddingData{Embedding: vec, Index: i}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(t *testing.T, baseURL string, batchSize, maxAttempts int) *OpenAIEmbedder {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "test-key")
	e, err := NewOpenAIEmbedder(Options{
		Model:       "test-model",
		BaseURL:     baseURL,
		APIKeyEnv:   "TEST_EMBED_KEY",
		BatchSize:   batchSize,
		MaxAttempts: maxAttempts,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedderMissingKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	if _, err := NewOpenAIEmbedder(Options{APIKeyEnv: "TEST_EMBED_KEY"}, nil); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestOpenAIEmbedderProbeAndQuery(t *testing.T) {
	srv := embeddingServer(t, 8, nil)
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 16, 1)
	ctx := context.Background()

	dim, err := e.Dimension(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if dim != 8 {
		t.Errorf("dimension %d, want 8", dim)
	}

	vec, err := e.EmbedQuery(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 8 {
		t.Fatalf("vector length %d", len(vec))
	}
	if vec[0] != float32('a') || vec[1] != float32('b') {
		t.Errorf("unexpected vector head %v", vec[:3])
	}
}

func TestOpenAIEmbedderBatchOrder(t *testing.T) {
	srv := embeddingServer(t, 4, nil)
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 2, 1)

	texts := []string{"aa", "bb", "cc", "dd", "ee"}
	vecs, err := e.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(rune(text[0])) {
			t.Errorf("vector %d out of order: %v", i, vecs[i][:2])
		}
	}
}

func TestOpenAIEmbedderInitFailureIsSticky(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, 16, 1)
	ctx := context.Background()

	_, err := e.EmbedQuery(ctx, "hello")
	var initErr *domain.EmbeddingInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("got %T, want *EmbeddingInitError", err)
	}
	if initErr.Attempts != 1 {
		t.Errorf("attempts %d", initErr.Attempts)
	}

	before := calls.Load()
	if _, err := e.EmbedQuery(ctx, "again"); !errors.As(err, &initErr) {
		t.Fatalf("second call: got %T", err)
	}
	if calls.Load() != before {
		t.Error("sticky init error still hit the backend")
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()

	a, _ := e.EmbedQuery(ctx, "same text")
	b, _ := e.EmbedQuery(ctx, "same text")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at %d", i)
		}
	}

	c, _ := e.EmbedQuery(ctx, "different")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}
