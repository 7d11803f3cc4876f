package kb

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Defaults for semantic FAQ retrieval.
const (
	DefaultTopK          = 3
	DefaultMinSimilarity = 0.3
)

// SemanticMatch pairs an entry with its similarity to the query.
type SemanticMatch struct {
	Entry      *Entry
	Similarity float64
}

// CosineSimilarity returns dot(a,b)/(|a||b|) clamped to [0,1]. A zero-norm
// vector or mismatched dimensions yield 0 rather than an error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// SearchSimilar ranks entries by cosine similarity to queryEmbedding,
// skipping entries without an embedding, dropping scores below
// minSimilarity, and truncating to topK. Ordering is similarity descending
// with ties broken by ascending entry id.
func SearchSimilar(queryEmbedding []float64, entries []Entry, topK int, minSimilarity float64) []SemanticMatch {
	if topK <= 0 {
		topK = DefaultTopK
	}

	matches := make([]SemanticMatch, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if len(e.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(queryEmbedding, e.Embedding)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, SemanticMatch{Entry: e, Similarity: sim})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entry.ID < matches[j].Entry.ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// FAQContext is the concatenated Q/A block for the top semantic matches,
// with the mean similarity as a confidence proxy.
type FAQContext struct {
	Text       string
	EntryIDs   []uint64
	Confidence float64
}

// BuildFAQContext renders matches into a prompt-ready context block.
func BuildFAQContext(matches []SemanticMatch) FAQContext {
	if len(matches) == 0 {
		return FAQContext{}
	}

	parts := make([]string, 0, len(matches))
	ids := make([]uint64, 0, len(matches))
	var sum float64
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", m.Entry.Question, m.Entry.Answer))
		ids = append(ids, m.Entry.ID)
		sum += m.Similarity
	}

	return FAQContext{
		Text:       strings.Join(parts, "\n\n---\n\n"),
		EntryIDs:   ids,
		Confidence: sum / float64(len(matches)),
	}
}
