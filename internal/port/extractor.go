package port

// Extractor turns a document file into raw text with page/structure hints
// embedded as markers. Implementations are registered per file extension.
type Extractor interface {
	// Extract reads the file at path and returns its text content.
	Extract(path string) (string, error)

	// Extensions lists the lowercase file extensions this extractor handles,
	// including the leading dot.
	Extensions() []string
}
