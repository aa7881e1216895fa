package engine

import (
	"strings"

	"ragkit/config"
	"ragkit/internal/domain"
)

// intentMatch is one detected query intent with its boosting rule.
type intentMatch struct {
	rule config.IntentRule
}

// detectIntents returns the rules whose query cues appear in the query.
// Detection is keyword membership, deterministic and tunable through
// configuration.
func detectIntents(query string, rules []config.IntentRule) []intentMatch {
	lower := strings.ToLower(query)
	var matches []intentMatch
	for _, rule := range rules {
		for _, cue := range rule.Cues {
			if strings.Contains(lower, strings.ToLower(cue)) {
				matches = append(matches, intentMatch{rule: rule})
				break
			}
		}
	}
	return matches
}

// signalCount counts how many of the rule's content signals occur in content.
func signalCount(content string, signals []string) int {
	lower := strings.ToLower(content)
	count := 0
	for _, s := range signals {
		if strings.Contains(lower, strings.ToLower(s)) {
			count++
		}
	}
	return count
}

// structuredSection reports whether a chunk came from structured content.
func structuredSection(t domain.SectionType) bool {
	switch t {
	case domain.SectionTable, domain.SectionList, domain.SectionListPart:
		return true
	}
	return false
}

// entitiesIn returns the configured domain entities present in the query.
func entitiesIn(query string, entities []string) []string {
	lower := strings.ToLower(query)
	var found []string
	for _, e := range entities {
		if strings.Contains(lower, strings.ToLower(e)) {
			found = append(found, e)
		}
	}
	return found
}

// hasEntityCue reports whether the query carries an interrogative or
// contact-seeking cue that makes entity-aware search worthwhile.
func hasEntityCue(query string, cues []string) bool {
	lower := strings.ToLower(query)
	for _, cue := range cues {
		if strings.Contains(lower, strings.ToLower(cue)) {
			return true
		}
	}
	return false
}
