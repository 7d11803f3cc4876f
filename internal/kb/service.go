package kb

import (
	"context"
	"errors"
	"log"

	"github.com/gopherdesk/supportbot/internal/ai"
)

// ErrNoPairs reports import text with no recognizable Q/A pairs. It is a
// caller-actionable format problem, not an internal fault.
var ErrNoPairs = errors.New("no question/answer pairs detected")

const (
	maxQuestionLen = 1000
	maxAnswerLen   = 5000
	maxKeywords    = 5
)

// Service owns knowledge-base ingestion and lifecycle. Every mutation ends
// with a snapshot reload so in-flight matching never observes a partial set.
type Service struct {
	repo     *Repo
	cache    *Cache
	embedder ai.Embedder
}

func NewService(repo *Repo, cache *Cache, embedder ai.Embedder) *Service {
	return &Service{repo: repo, cache: cache, embedder: embedder}
}

func (s *Service) Cache() *Cache { return s.cache }

// Import parses Q:/A: formatted text, normalizes and embeds each pair, and
// replaces the active set with the new batch. Returns the number of entries
// stored.
func (s *Service) Import(ctx context.Context, text, source string) (int, error) {
	pairs := ParseQA(text)
	if len(pairs) == 0 {
		return 0, ErrNoPairs
	}

	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		if p.Question == "" || p.Answer == "" {
			continue
		}
		question := truncate(p.Question, maxQuestionLen)
		answer := truncate(p.Answer, maxAnswerLen)

		embedding, err := s.embedder.Embed(ctx, question+" "+answer)
		if err != nil {
			log.Printf("kb embed failed source=%s err=%v", source, err)
			embedding = ai.ZeroEmbedding()
		}

		entries = append(entries, Entry{
			Question:  question,
			Answer:    answer,
			Category:  p.Category,
			Keywords:  ExtractKeywords(question+" "+answer, maxKeywords),
			Embedding: embedding,
			Source:    source,
			IsActive:  true,
		})
	}
	if len(entries) == 0 {
		return 0, ErrNoPairs
	}

	deactivated, err := s.repo.ReplaceActive(ctx, entries)
	if err != nil {
		return 0, err
	}
	if _, err := s.cache.Reload(ctx); err != nil {
		return 0, err
	}

	log.Printf("kb import source=%s stored=%d replaced=%d", source, len(entries), deactivated)
	return len(entries), nil
}

func (s *Service) ListActive(ctx context.Context) ([]Entry, error) {
	return s.repo.ListActive(ctx)
}

// Deactivate soft-deletes one entry and swaps the snapshot.
func (s *Service) Deactivate(ctx context.Context, id uint64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	_, err := s.cache.Reload(ctx)
	return err
}

// DeactivateAll soft-deletes the whole active set and swaps the snapshot.
func (s *Service) DeactivateAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateAll(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := s.cache.Reload(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// SearchSemantic embeds the query and ranks the current snapshot.
func (s *Service) SearchSemantic(ctx context.Context, query string, topK int, minSimilarity float64) ([]SemanticMatch, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	snap := s.cache.Snapshot()
	return SearchSimilar(embedding, snap.Entries, topK, minSimilarity), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
