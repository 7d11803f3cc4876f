package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gopherdesk/supportbot/internal/ai"
)

// Summarize generates a short summary of the conversation and stores it on
// the session.
func (s *Service) Summarize(ctx context.Context, sessionID string) (string, error) {
	session, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	messages, err := s.repo.ListMessagesAsc(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "No messages in this conversation.", nil
	}

	var b strings.Builder
	for i := range messages {
		fmt.Fprintf(&b, "%s: %s\n", messages[i].Sender, messages[i].Content)
	}

	prompt := fmt.Sprintf(`Summarize the following customer support conversation in 2-3 sentences,
highlighting the main issue and whether it was resolved:

%s

Summary:`, b.String())

	summary, err := ai.GenerateWithRetry(ctx, s.provider, s.retry, ai.GenerateRequest{
		Prompt:      prompt,
		Temperature: 0.5,
		MaxTokens:   150,
	})
	if err != nil {
		log.Printf("summary generation failed session=%s err=%v", sessionID, err)
		return "Unable to generate summary", nil
	}
	summary = strings.TrimSpace(summary)

	if err := s.repo.UpdateSessionSummary(ctx, session.SessionID, summary); err != nil {
		return "", err
	}
	return summary, nil
}

// NextActions is the suggested follow-up for the support team.
type NextActions struct {
	Actions             []string `json:"actions"`
	Confidence          float64  `json:"confidence"`
	RecommendEscalation bool     `json:"recommend_escalation"`
}

// SuggestNextActions asks the provider for follow-up actions over the
// recent conversation. Provider and parse failures degrade to an empty
// suggestion, never an error to the caller.
func (s *Service) SuggestNextActions(ctx context.Context, sessionID string) (*NextActions, error) {
	if _, err := s.repo.GetSessionBySessionID(ctx, sessionID); err != nil {
		return nil, err
	}
	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, sessionID, 10)
	if err != nil {
		return nil, err
	}
	if len(recentDesc) == 0 {
		return &NextActions{Actions: []string{}}, nil
	}

	var b strings.Builder
	for i := len(recentDesc) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%s: %s\n", recentDesc[i].Sender, recentDesc[i].Content)
	}

	prompt := fmt.Sprintf(`Based on this customer support conversation, suggest 2-3 specific next actions
the support team should take. Consider: was the issue resolved? Does it need escalation?
Are there any follow-ups needed?

Conversation:
%s

Provide your response as a JSON object with "actions" as a list of strings and "recommend_escalation" as boolean.`, b.String())

	raw, err := ai.GenerateWithRetry(ctx, s.provider, s.retry, ai.GenerateRequest{
		Prompt:      prompt,
		Temperature: 0.5,
		MaxTokens:   200,
	})
	if err != nil {
		log.Printf("next-actions generation failed session=%s err=%v", sessionID, err)
		return &NextActions{Actions: []string{}}, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return &NextActions{Actions: []string{"Continue monitoring the conversation"}, Confidence: 0.5}, nil
	}

	var parsed struct {
		Actions             []string `json:"actions"`
		RecommendEscalation bool     `json:"recommend_escalation"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return &NextActions{Actions: []string{"Continue monitoring the conversation"}, Confidence: 0.5}, nil
	}

	return &NextActions{
		Actions:             parsed.Actions,
		Confidence:          0.8,
		RecommendEscalation: parsed.RecommendEscalation,
	}, nil
}
