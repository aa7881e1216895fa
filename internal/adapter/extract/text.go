package extract

import (
	"os"
	"strings"
	"unicode/utf8"
)

// TextExtractor reads plain and simple structured text files whole. Files
// that are not valid UTF-8 are re-decoded permissively as Latin-1 so a legacy
// export never fails extraction outright.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extensions() []string {
	return []string{".txt", ".md", ".csv"}
}

func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	return decodeLatin1(data), nil
}

// decodeLatin1 maps each byte to its Unicode code point. Every byte sequence
// is a valid Latin-1 string, so this never fails.
func decodeLatin1(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}
