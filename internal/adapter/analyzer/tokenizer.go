package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase terms with stopword removal. It backs
// the keyword retrieval strategy, the keyword fallback search, and the
// query/chunk term-overlap boost.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new Tokenizer with the default English stopword set.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: defaultStopwords()}
}

// Terms returns the non-stopword terms of text, lowercased, in order.
func (t *Tokenizer) Terms(text string) []string {
	words := splitWords(text)
	terms := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		terms = append(terms, word)
	}

	return terms
}

// QueryTerms returns up to max distinct non-stopword terms of a query.
func (t *Tokenizer) QueryTerms(text string, max int) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, term := range t.Terms(text) {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
		if max > 0 && len(terms) == max {
			break
		}
	}
	return terms
}

// Overlap counts how many distinct query terms occur in content.
func (t *Tokenizer) Overlap(queryTerms []string, content string) int {
	lower := strings.ToLower(content)
	count := 0
	for _, term := range queryTerms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return count
}

// splitWords splits text into words using unicode word boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
