package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DocxExtractor extracts text from compressed-XML office documents. The main
// body part is parsed paragraph by paragraph; every other XML part under
// word/ is scanned for stray text runs so headers and footers are not lost.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Extensions() []string {
	return []string{".docx"}
}

var blankRuns = regexp.MustCompile(`\n{2,}`)

func (e *DocxExtractor) Extract(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx container: %w", err)
	}
	defer zr.Close()

	var paragraphs []string

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		body, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("read document body: %w", err)
		}
		paragraphs, err = parseParagraphs(body)
		if err != nil {
			return "", fmt.Errorf("parse document body: %w", err)
		}
	}

	// Headers, footers, footnotes: any other XML part may hold text runs.
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "word/") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		if f.Name == "word/document.xml" {
			continue
		}
		body, err := readZipFile(f)
		if err != nil {
			continue
		}
		runs, err := collectTextRuns(body)
		if err != nil {
			continue
		}
		paragraphs = append(paragraphs, runs...)
	}

	text := strings.Join(paragraphs, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return text, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseParagraphs streams the body XML, joining the text runs of each w:p
// element into one paragraph line.
func parseParagraphs(data []byte) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph && strings.TrimSpace(current.String()) != "" {
					paragraphs = append(paragraphs, current.String())
				}
				inParagraph = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && inParagraph {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}

// collectTextRuns pulls every w:t run out of an auxiliary XML part.
func collectTextRuns(data []byte) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var runs []string
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				if s := string(t); strings.TrimSpace(s) != "" {
					runs = append(runs, s)
				}
			}
		}
	}

	return runs, nil
}
