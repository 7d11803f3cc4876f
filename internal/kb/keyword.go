package kb

import "strings"

// MinKeywordConfidence is the acceptance floor for a keyword match.
const MinKeywordConfidence = 0.5

// KeywordMatch is the best-scoring entry for a query, or nothing
// (Found == false) when no entry reaches the acceptance floor.
type KeywordMatch struct {
	EntryID    uint64
	Answer     string
	Confidence float64
	Found      bool
}

// MatchKeyword scores query against every entry and keeps the best result
// across all rules:
//
//	containment (query in question or question in query)  -> 0.9
//	word overlap   -> 0.6 + 0.3 * shared distinct tokens / question tokens
//	keyword overlap -> 0.5 + 0.2 * matched keywords / total keywords
//
// Equal scores resolve to the lower entry id so the result is deterministic.
func MatchKeyword(query string, entries []Entry) KeywordMatch {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return KeywordMatch{}
	}
	queryWords := tokenSet(queryLower)

	var best KeywordMatch
	for i := range entries {
		e := &entries[i]
		score := scoreEntry(queryLower, queryWords, e)
		if score <= 0 {
			continue
		}
		if score > best.Confidence || (score == best.Confidence && best.Found && e.ID < best.EntryID) {
			best = KeywordMatch{EntryID: e.ID, Answer: e.Answer, Confidence: score, Found: true}
		}
	}

	if !best.Found || best.Confidence < MinKeywordConfidence {
		return KeywordMatch{}
	}
	if best.Confidence > 1 {
		best.Confidence = 1
	}
	return best
}

func scoreEntry(queryLower string, queryWords map[string]struct{}, e *Entry) float64 {
	questionLower := strings.ToLower(e.Question)

	var best float64

	// Direct containment either way.
	if questionLower != "" && (strings.Contains(queryLower, questionLower) || strings.Contains(questionLower, queryLower)) {
		best = 0.9
	}

	// Word overlap over distinct question tokens.
	questionWords := strings.Fields(questionLower)
	if len(questionWords) > 0 {
		seen := make(map[string]struct{}, len(questionWords))
		matched, total := 0, 0
		for _, w := range questionWords {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			total++
			if _, ok := queryWords[w]; ok {
				matched++
			}
		}
		if matched > 0 {
			if s := 0.6 + 0.3*float64(matched)/float64(total); s > best {
				best = s
			}
		}
	}

	// Keyword-list overlap.
	if len(e.Keywords) > 0 {
		matched := 0
		for _, kw := range e.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(queryLower, strings.ToLower(kw)) {
				matched++
			}
		}
		if matched > 0 {
			if s := 0.5 + 0.2*float64(matched)/float64(len(e.Keywords)); s > best {
				best = s
			}
		}
	}

	return best
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
