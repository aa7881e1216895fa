package cli

import (
	"fmt"
	"log/slog"

	"ragkit/config"
	"ragkit/internal/adapter/embedding"
	"ragkit/internal/adapter/store"
	"ragkit/internal/port"
)

// newEmbedder builds the configured embedding backend. The "ollama" provider
// speaks the same OpenAI-compatible wire format at a different base URL.
func newEmbedder(cfg *config.Config, logger *slog.Logger) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "openai", "ollama", "":
		return embedding.NewOpenAIEmbedder(embedding.Options{
			Model:       ec.Model,
			BaseURL:     ec.BaseURL,
			APIKeyEnv:   ec.APIKeyEnv,
			BatchSize:   ec.BatchSize,
			MaxAttempts: ec.MaxAttempts,
		}, logger)
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}
}

// openCorpus loads (or creates) the persisted corpus for the configured
// collection.
func openCorpus(cfg *config.Config, logger *slog.Logger) (*store.Corpus, error) {
	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	persister := store.NewFilePersister(cfg.EmbeddingFilePath(), cfg.DocumentFilePath())
	return store.NewCorpus(embedder, persister, logger), nil
}

func openManifest(cfg *config.Config) (*store.Manifest, error) {
	m, err := store.OpenManifest(cfg.ManifestPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open ingest manifest: %w", err)
	}
	return m, nil
}
