package port

import "ragkit/internal/domain"

// Chunker splits raw text into ordered, metadata-tagged chunks. The base
// metadata is copied into every chunk; ChunkIndex and TotalChunks are stamped
// across the whole document after splitting.
type Chunker interface {
	Chunk(text string, base domain.ChunkMetadata) []domain.Chunk
}
