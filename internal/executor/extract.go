package executor

import (
	"regexp"
	"strings"
)

// Shared-context keys written by signal extraction and consumed by
// trigger rules and later prompts.
const (
	SharedKeyLocation     = "location"
	SharedKeyWaterFeature = "water_feature"
	SharedKeyNature       = "nature_feature"
)

// locationRe captures a capitalized place name after a locative
// preposition, e.g. "weather in Paris" or "hiking near Lake Bled".
var locationRe = regexp.MustCompile(`\b(?:in|near|at|around|to)\s+((?:[A-Z][a-zA-Z'-]+)(?:\s+[A-Z][a-zA-Z'-]+){0,2})`)

var waterTerms = []string{"lake", "river", "waterfall", "ocean", "sea", "coast", "backwater", "pond", "dam"}

var natureTerms = []string{"forest", "jungle", "woodland", "wildlife", "national park", "rainforest"}

// extractSignals mines a successful result for facts that later agents
// in the same run can use: a detected location from the query, and
// nearby-feature signals from the response text. Writes go into the
// run's shared scratch context, never into the descriptor.
func extractSignals(query, response string, shared map[string]string) {
	if shared == nil {
		return
	}
	if _, ok := shared[SharedKeyLocation]; !ok {
		if loc := extractLocation(query); loc != "" {
			shared[SharedKeyLocation] = loc
		}
	}

	lowered := strings.ToLower(response)
	if term := firstTerm(lowered, waterTerms); term != "" {
		shared[SharedKeyWaterFeature] = term
	}
	if term := firstTerm(lowered, natureTerms); term != "" {
		shared[SharedKeyNature] = term
	}
}

// extractLocation pulls the most likely place name out of a query.
// Returns "" when nothing resembling a location is present.
func extractLocation(query string) string {
	m := locationRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	loc := strings.TrimSpace(m[1])
	// A single stopword-like capture ("in The", "at My") is noise.
	switch strings.ToLower(loc) {
	case "the", "my", "a", "an", "this", "that":
		return ""
	}
	return loc
}

func firstTerm(text string, terms []string) string {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return t
		}
	}
	return ""
}
