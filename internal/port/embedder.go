package port

import "context"

// Embedder converts text into fixed-dimension float vectors. Both methods may
// block on a remote backend; callers running inside a cooperative scheduler
// must offload accordingly. The backend connection is established lazily on
// first use, so any method may return an init error.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of texts, returning one vector per input
	// in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the true vector dimension, probing the backend on
	// first call if necessary.
	Dimension(ctx context.Context) (int, error)

	// ModelName returns the name of the embedding model.
	ModelName() string
}
