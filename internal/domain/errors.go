package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat marks a file whose extension has no registered
// extractor. Callers skip the file with a warning rather than failing a batch.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrStoreUnavailable marks a persistence failure. Corpus operations continue
// in memory without durability; the condition is logged, never fatal.
var ErrStoreUnavailable = errors.New("vector store storage unavailable")

// ExtractionError is a file-scoped extraction failure. It fails the single
// file, not the batch it belongs to.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingInitError means the embedding backend stayed unreachable after all
// connection attempts. The vector store reacts by switching to keyword-only
// mode instead of crashing.
type EmbeddingInitError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingInitError) Error() string {
	return fmt.Sprintf("embedding backend init failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *EmbeddingInitError) Unwrap() error { return e.Err }

// EmbeddingCallError is a transient failure mid-batch. The whole AddDocuments
// call is reported failed and no partial corpus mutation is committed.
type EmbeddingCallError struct {
	Err error
}

func (e *EmbeddingCallError) Error() string {
	return fmt.Sprintf("embedding call failed: %v", e.Err)
}

func (e *EmbeddingCallError) Unwrap() error { return e.Err }

// QueryProcessingError is an unexpected failure inside the retrieval
// pipeline. It is surfaced as an empty result set, never as a crash.
type QueryProcessingError struct {
	Stage string
	Err   error
}

func (e *QueryProcessingError) Error() string {
	return fmt.Sprintf("query processing failed at %s: %v", e.Stage, e.Err)
}

func (e *QueryProcessingError) Unwrap() error { return e.Err }
