// Package extract turns document files into raw text with page and structure
// hints. Each supported file family has its own extractor; unknown extensions
// are reported as unsupported so callers can skip them without failing a
// batch.
package extract

import (
	"path/filepath"
	"sort"
	"strings"

	"ragkit/internal/domain"
	"ragkit/internal/port"
)

// Registry dispatches extraction by file extension.
type Registry struct {
	byExt map[string]port.Extractor
}

// NewRegistry creates a registry with the given extractors.
func NewRegistry(extractors ...port.Extractor) *Registry {
	r := &Registry{byExt: make(map[string]port.Extractor)}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			r.byExt[strings.ToLower(ext)] = e
		}
	}
	return r
}

// DefaultRegistry wires the standard extractor set.
func DefaultRegistry(recoveryKeywords []string) *Registry {
	return NewRegistry(
		NewTextExtractor(),
		NewPDFExtractor(recoveryKeywords),
		NewDocxExtractor(),
	)
}

// Extract extracts text from the file at path, choosing the extractor by
// extension. Returns domain.ErrUnsupportedFormat for unknown extensions and
// a *domain.ExtractionError when the chosen extractor fails.
func (r *Registry) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", domain.ErrUnsupportedFormat
	}
	text, err := e.Extract(path)
	if err != nil {
		return "", &domain.ExtractionError{Path: path, Err: err}
	}
	return text, nil
}

// Supported reports whether the extension has a registered extractor.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
