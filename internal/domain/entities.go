package domain

import "time"

// SectionType classifies the structural origin of a chunk.
type SectionType string

const (
	SectionText     SectionType = "text"
	SectionTable    SectionType = "table"
	SectionList     SectionType = "list"
	SectionListPart SectionType = "list_part"
	SectionHeader   SectionType = "header"
)

// Priority marks how strongly a chunk should be favored during ranking.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ChunkMetadata carries source attribution and structural tags for a chunk.
type ChunkMetadata struct {
	Source      string      `json:"source"`
	FilePath    string      `json:"file_path"`
	FileType    string      `json:"file_type"`
	DocHash     string      `json:"doc_hash"`
	ProcessedAt time.Time   `json:"processed_at"`
	CharCount   int         `json:"char_count"`
	WordCount   int         `json:"word_count"`
	ChunkIndex  int         `json:"chunk_index"`
	TotalChunks int         `json:"total_chunks"`
	SectionType SectionType `json:"section_type"`
	Priority    Priority    `json:"priority"`
}

// Chunk is one retrievable unit of document text. Chunks are immutable once
// created; ChunkIndex is 1-based and dense within a document, and TotalChunks
// is identical across all chunks of the same document.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RetrievedChunk is a transient query-time view of a chunk with its
// relevance score. Never persisted.
type RetrievedChunk struct {
	Content   string
	Metadata  ChunkMetadata
	Relevance float64
}

// Source is an attribution record emitted alongside a query result,
// deduplicated by title in highest-rank-first order.
type Source struct {
	Title     string  `json:"title"`
	Path      string  `json:"path"`
	Type      string  `json:"type"`
	Relevance float64 `json:"relevance"`
}

// Confidence summarizes retrieval result quality so callers can decide how
// to degrade gracefully.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
	ConfidenceNone    Confidence = "none"
)

// QueryResult is the final output of the retrieval engine: a formatted
// context block, attributed sources, and a confidence bucket.
type QueryResult struct {
	Context    string           `json:"context"`
	Sources    []Source         `json:"sources"`
	Confidence Confidence       `json:"confidence"`
	Chunks     []RetrievedChunk `json:"-"`
}
