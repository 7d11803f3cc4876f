package chat

import (
	"context"
	"strings"
)

// ContextBuilder renders a bounded window of prior turns for prompts.
// It never loads the full session history.
type ContextBuilder struct {
	repo       *Repo
	windowSize int
}

func NewContextBuilder(repo *Repo, windowSize int) *ContextBuilder {
	if windowSize <= 0 || windowSize > 100 {
		windowSize = 5
	}
	return &ContextBuilder{repo: repo, windowSize: windowSize}
}

// Build returns the last N messages in chronological order, each rendered
// as "Customer: ..." or "Support: ...". Empty string for a fresh session.
func (b *ContextBuilder) Build(ctx context.Context, sessionID string) (string, error) {
	recentDesc, err := b.repo.ListRecentMessagesDesc(ctx, sessionID, b.windowSize)
	if err != nil {
		return "", err
	}
	if len(recentDesc) == 0 {
		return "", nil
	}

	// reverse to ASC (oldest -> newest)
	parts := make([]string, 0, len(recentDesc))
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		role := "Support"
		if m.Sender == SenderUser {
			role = "Customer"
		}
		parts = append(parts, role+": "+m.Content)
	}
	return strings.Join(parts, "\n"), nil
}
