package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"ragkit/internal/domain"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. The backend
// connection is verified lazily on first use with bounded retries, and the
// true vector dimension is probed once with a sentinel embed and cached.
type OpenAIEmbedder struct {
	apiKey      string
	model       string
	baseURL     string
	batchSize   int
	maxAttempts int
	client      *http.Client
	logger      *slog.Logger

	mu        sync.Mutex
	ready     bool
	dimension int
	initErr   error
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Options configures an OpenAIEmbedder.
type Options struct {
	Model       string
	BaseURL     string
	APIKeyEnv   string
	BatchSize   int
	MaxAttempts int
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible backend.
// No connection is made until the first embed call.
func NewOpenAIEmbedder(opts Options, logger *slog.Logger) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 16
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIEmbedder{
		apiKey:      apiKey,
		model:       opts.Model,
		baseURL:     baseURL,
		batchSize:   batch,
		maxAttempts: attempts,
		client:      &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}, nil
}

// ensureReady establishes the backend connection on first use, retrying with
// exponential backoff, and probes the vector dimension with a sentinel embed.
// A failed init is sticky: later calls fail fast with the same error.
func (e *OpenAIEmbedder) ensureReady(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		return nil
	}
	if e.initErr != nil {
		return e.initErr
	}

	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		probe, err := e.embedBatch(ctx, []string{"ragkit dimension probe"})
		if err == nil && len(probe) == 1 && len(probe[0]) > 0 {
			e.dimension = len(probe[0])
			e.ready = true
			e.logger.Debug("embedding backend ready",
				"model", e.model, "dimension", e.dimension, "attempt", attempt)
			return nil
		}
		if err == nil {
			err = fmt.Errorf("probe returned no embedding")
		}
		lastErr = err
		e.logger.Warn("embedding backend init attempt failed",
			"attempt", attempt, "error", err)

		if attempt < e.maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}

	e.initErr = &domain.EmbeddingInitError{Attempts: e.maxAttempts, Err: lastErr}
	return e.initErr
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}
	vecs, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, &domain.EmbeddingCallError{Err: err}
	}
	if len(vecs) != 1 {
		return nil, &domain.EmbeddingCallError{Err: fmt.Errorf("expected 1 embedding, got %d", len(vecs))}
	}
	return vecs[0], nil
}

// EmbedDocuments embeds texts in fixed-size batches, sequentially, and
// concatenates the results in input order.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, &domain.EmbeddingCallError{Err: err}
		}
		all = append(all, vecs...)
	}
	return all, nil
}

// Dimension returns the probed vector dimension, initializing if needed.
func (e *OpenAIEmbedder) Dimension(ctx context.Context) (int, error) {
	if err := e.ensureReady(ctx); err != nil {
		return 0, err
	}
	return e.dimension, nil
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{Input: texts, Model: e.model}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("parse response (body: %s): %w", truncate(string(body), 200), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	return embeddings, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
