// Package chunker splits extracted document text into ordered,
// metadata-tagged chunks. Chunking is structure-aware: tables, lists, and
// headers are detected first and chunked under their own policies, and only
// free-flowing text goes through the sliding character window.
package chunker

import (
	"regexp"
	"strings"

	"ragkit/config"
	"ragkit/internal/domain"
)

// StructureChunker implements the two-phase structure-aware algorithm.
type StructureChunker struct {
	chunkSize         int
	overlap           int
	completeSentences bool
	maxDocChars       int
}

func NewStructureChunker(cfg config.ChunkingConfig) *StructureChunker {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 1000
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	maxChars := cfg.MaxDocChars
	if maxChars <= 0 {
		maxChars = 1_000_000
	}
	return &StructureChunker{
		chunkSize:         size,
		overlap:           overlap,
		completeSentences: cfg.EnsureCompleteSentences,
		maxDocChars:       maxChars,
	}
}

// segment is a contiguous run of lines sharing one structural type.
type segment struct {
	kind  domain.SectionType
	lines []string
}

var (
	listMarker = regexp.MustCompile(`^\s*([-*•]|\d+[.)]|[a-zA-Z][.)])\s+`)
)

// Chunk splits text into chunks, copying base into each chunk's metadata and
// stamping ChunkIndex/TotalChunks across the whole document afterwards.
func (c *StructureChunker) Chunk(text string, base domain.ChunkMetadata) []domain.Chunk {
	if len(text) > c.maxDocChars {
		text = text[:c.maxDocChars]
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []domain.Chunk
	for _, seg := range segmentize(text) {
		switch seg.kind {
		case domain.SectionTable:
			chunks = append(chunks, c.newChunk(strings.Join(seg.lines, "\n"), base, domain.SectionTable))
		case domain.SectionList:
			chunks = append(chunks, c.chunkList(seg.lines, base)...)
		case domain.SectionHeader:
			chunks = append(chunks, c.newChunk(strings.Join(seg.lines, "\n"), base, domain.SectionHeader))
		default:
			chunks = append(chunks, c.chunkText(strings.Join(seg.lines, "\n"), base)...)
		}
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Metadata.ChunkIndex = i + 1
		chunks[i].Metadata.TotalChunks = total
	}
	return chunks
}

// segmentize classifies contiguous line runs. A run ends when the structural
// type of the next non-blank line changes; blank lines continue the current
// run.
func segmentize(text string) []segment {
	var segments []segment
	var current *segment

	flush := func() {
		if current != nil && len(current.lines) > 0 {
			trimTrailingBlanks(current)
			if len(current.lines) > 0 {
				segments = append(segments, *current)
			}
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if current != nil {
				current.lines = append(current.lines, line)
			}
			continue
		}

		kind := classifyLine(line)
		if current == nil || current.kind != kind {
			flush()
			current = &segment{kind: kind}
		}
		current.lines = append(current.lines, line)
	}
	flush()

	return segments
}

func trimTrailingBlanks(s *segment) {
	for len(s.lines) > 0 && strings.TrimSpace(s.lines[len(s.lines)-1]) == "" {
		s.lines = s.lines[:len(s.lines)-1]
	}
}

func classifyLine(line string) domain.SectionType {
	trimmed := strings.TrimSpace(line)
	if strings.Contains(trimmed, "|") {
		return domain.SectionTable
	}
	if isHeaderLine(trimmed) {
		return domain.SectionHeader
	}
	if listMarker.MatchString(line) {
		return domain.SectionList
	}
	return domain.SectionText
}

func isHeaderLine(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	for _, marker := range []string{"===", "---"} {
		if strings.HasPrefix(trimmed, marker) && strings.HasSuffix(trimmed, marker) {
			return true
		}
	}
	return false
}

// chunkList keeps a list whole when it fits in 1.5x the target size;
// otherwise it accumulates lines up to the chunk size, carrying the last two
// lines forward as overlap context.
func (c *StructureChunker) chunkList(lines []string, base domain.ChunkMetadata) []domain.Chunk {
	whole := strings.Join(lines, "\n")
	if len(whole) <= c.chunkSize*3/2 {
		return []domain.Chunk{c.newChunk(whole, base, domain.SectionList)}
	}

	var chunks []domain.Chunk
	var buf []string
	size := 0
	carried := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, c.newChunk(strings.Join(buf, "\n"), base, domain.SectionListPart))
		// Carry the tail forward so split lists keep local context.
		carry := 2
		if carry > len(buf) {
			carry = len(buf)
		}
		buf = append([]string(nil), buf[len(buf)-carry:]...)
		carried = len(buf)
		size = 0
		for _, l := range buf {
			size += len(l) + 1
		}
	}

	for _, line := range lines {
		if size+len(line) > c.chunkSize && len(buf) > carried {
			flush()
		}
		buf = append(buf, line)
		size += len(line) + 1
	}
	if len(buf) > carried || len(chunks) == 0 {
		chunks = append(chunks, c.newChunk(strings.Join(buf, "\n"), base, domain.SectionListPart))
	}
	return chunks
}

// chunkText runs the classic sliding character window with optional sentence
// boundary alignment.
func (c *StructureChunker) chunkText(text string, base domain.ChunkMetadata) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			end = len(text)
		} else if c.completeSentences {
			end = c.alignSentence(text, start, end)
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, c.newChunk(piece, base, domain.SectionText))
		}

		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// alignSentence moves the window end to a sentence boundary: forward up to
// 100 characters first, then backward as long as the window keeps at least
// 70% of the target size.
func (c *StructureChunker) alignSentence(text string, start, end int) int {
	limit := end + 100
	if limit > len(text) {
		limit = len(text)
	}
	for i := end; i < limit; i++ {
		if isSentenceEnd(text[i]) {
			return endOfPunctuationRun(text, i)
		}
	}

	floor := start + c.chunkSize*7/10
	for i := end - 1; i > floor; i-- {
		if isSentenceEnd(text[i]) {
			return endOfPunctuationRun(text, i)
		}
	}
	return end
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func endOfPunctuationRun(text string, i int) int {
	for i < len(text) && isSentenceEnd(text[i]) {
		i++
	}
	return i
}

func (c *StructureChunker) newChunk(content string, base domain.ChunkMetadata, kind domain.SectionType) domain.Chunk {
	meta := base
	meta.SectionType = kind
	meta.Priority = priorityFor(kind)
	return domain.Chunk{Content: content, Metadata: meta}
}

func priorityFor(kind domain.SectionType) domain.Priority {
	switch kind {
	case domain.SectionTable:
		return domain.PriorityHigh
	case domain.SectionHeader:
		return domain.PriorityLow
	default:
		return domain.PriorityNormal
	}
}
