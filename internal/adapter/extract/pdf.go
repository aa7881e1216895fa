package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page-oriented documents in three passes per page:
// tables as pipe-delimited rows, layout-preserving body text, and a recovery
// pass that salvages lines present in the naive flat extraction but missing
// from the structured result. Pages are concatenated with explicit markers.
type PDFExtractor struct {
	recoveryKeywords []string
}

func NewPDFExtractor(recoveryKeywords []string) *PDFExtractor {
	return &PDFExtractor{recoveryKeywords: recoveryKeywords}
}

func (e *PDFExtractor) Extensions() []string {
	return []string{".pdf"}
}

func (e *PDFExtractor) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		structured := e.extractStructured(page)
		recovered := e.recoverMissed(page, structured)

		text := structured
		if recovered != "" {
			text = strings.TrimRight(text, "\n") + "\n" + recovered
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, fmt.Sprintf("=== PAGE %d ===\n%s", i, strings.TrimRight(text, "\n")))
	}

	return strings.Join(pages, "\n\n"), nil
}

// extractStructured walks the page row by row, emitting multi-column rows as
// pipe-delimited table lines and single-column rows as body text.
func (e *PDFExtractor) extractStructured(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, row := range rows {
		cells := groupCells(row.Content)
		if len(cells) == 0 {
			continue
		}
		if len(cells) >= 2 {
			b.WriteString(strings.Join(cells, " | "))
		} else {
			b.WriteString(cells[0])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// groupCells merges a row's positioned text fragments into cells, starting a
// new cell whenever the horizontal gap to the previous fragment exceeds the
// font size. Rows whose fragments are contiguous collapse into one cell.
func groupCells(texts pdf.TextHorizontal) []string {
	var cells []string
	var cell strings.Builder
	prevEnd := -1.0

	for _, t := range texts {
		s := strings.TrimSpace(t.S)
		if s == "" {
			continue
		}

		gap := t.X - prevEnd
		threshold := t.FontSize
		if threshold <= 0 {
			threshold = 10
		}
		if prevEnd >= 0 && gap > threshold {
			if cell.Len() > 0 {
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			}
		} else if cell.Len() > 0 {
			cell.WriteString(" ")
		}
		cell.WriteString(s)
		prevEnd = t.X + t.W
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return cells
}

// recoverMissed compares a naive flat extraction against the structured
// result and keeps missed lines that mention a configured domain keyword.
func (e *PDFExtractor) recoverMissed(page pdf.Page, structured string) string {
	if len(e.recoveryKeywords) == 0 {
		return ""
	}

	flat, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}

	structuredLower := strings.ToLower(structured)
	var recovered []string
	for _, line := range strings.Split(flat, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(structuredLower, strings.ToLower(line)) {
			continue
		}
		if e.matchesKeyword(line) {
			recovered = append(recovered, line)
		}
	}
	return strings.Join(recovered, "\n")
}

func (e *PDFExtractor) matchesKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range e.recoveryKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
