package kb

import (
	"math"
	"strings"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: expected 1, got %v", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors: expected 0, got %v", got)
	}
	// Negative similarity clamps to 0.
	if got := CosineSimilarity([]float64{1, 0}, []float64{-1, 0}); got != 0 {
		t.Fatalf("opposite vectors: expected 0, got %v", got)
	}
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("zero-norm vector: expected 0, got %v", got)
	}
	if got := CosineSimilarity([]float64{1, 0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("dimension mismatch: expected 0, got %v", got)
	}
}

func TestSearchSimilar(t *testing.T) {
	entries := []Entry{
		{ID: 1, Question: "q1", Answer: "a1", Embedding: []float64{1, 0}},
		{ID: 2, Question: "q2", Answer: "a2", Embedding: []float64{0, 1}},
		{ID: 3, Question: "q3", Answer: "a3", Embedding: []float64{0.6, 0.8}},
		{ID: 4, Question: "q4", Answer: "a4"}, // no embedding, skipped
	}

	matches := SearchSimilar([]float64{1, 0}, entries, 3, 0.3)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Entry.ID != 1 || matches[1].Entry.ID != 3 {
		t.Fatalf("unexpected order: %d, %d", matches[0].Entry.ID, matches[1].Entry.ID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Fatalf("expected descending similarity")
	}
}

func TestSearchSimilar_TopKAndTies(t *testing.T) {
	entries := []Entry{
		{ID: 2, Question: "q2", Answer: "a2", Embedding: []float64{1, 0}},
		{ID: 1, Question: "q1", Answer: "a1", Embedding: []float64{1, 0}},
	}

	matches := SearchSimilar([]float64{1, 0}, entries, 3, 0)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Entry.ID != 1 {
		t.Fatalf("expected tie to order entry 1 first, got %d", matches[0].Entry.ID)
	}

	matches = SearchSimilar([]float64{1, 0}, entries, 1, 0)
	if len(matches) != 1 {
		t.Fatalf("expected topK to truncate to 1, got %d", len(matches))
	}
}

func TestBuildFAQContext(t *testing.T) {
	entries := []Entry{
		{ID: 1, Question: "How do I pay?", Answer: "By card.", Embedding: []float64{1, 0}},
		{ID: 2, Question: "How do I cancel?", Answer: "In settings.", Embedding: []float64{0.6, 0.8}},
	}
	matches := SearchSimilar([]float64{1, 0}, entries, 3, 0.3)

	fc := BuildFAQContext(matches)
	if len(fc.EntryIDs) != 2 || fc.EntryIDs[0] != 1 || fc.EntryIDs[1] != 2 {
		t.Fatalf("unexpected entry ids: %v", fc.EntryIDs)
	}
	if !strings.Contains(fc.Text, "Q: How do I pay?\nA: By card.") {
		t.Fatalf("missing first pair in context: %q", fc.Text)
	}
	if !strings.Contains(fc.Text, "\n\n---\n\n") {
		t.Fatalf("missing separator in context: %q", fc.Text)
	}

	want := (1.0 + 0.6) / 2
	if math.Abs(fc.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %v, got %v", want, fc.Confidence)
	}

	if empty := BuildFAQContext(nil); empty.Text != "" || empty.Confidence != 0 {
		t.Fatalf("expected zero context for no matches")
	}
}
