package kb

import "strings"

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "been", "be",
		"have", "has", "do", "does", "did", "will", "would", "could", "should",
		"can", "may", "might", "must", "shall", "if", "else", "this", "that",
		"which", "who", "what", "when", "where", "why", "how", "all", "each",
		"every", "both", "either", "neither", "some", "any", "no", "not",
	} {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords picks up to maxKeywords distinct non-stopword tokens
// longer than 3 characters, in order of first appearance.
func ExtractKeywords(text string, maxKeywords int) []string {
	if maxKeywords <= 0 {
		maxKeywords = 5
	}

	seen := make(map[string]struct{})
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
