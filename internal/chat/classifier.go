package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gopherdesk/supportbot/internal/ai"
)

// Verdict is the relevance classification for one query. The zero value is
// the fail-closed default: not related, no confidence.
type Verdict struct {
	IsRelated  bool    `json:"is_related"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

const classifierSystem = "You are an AI that classifies customer support questions. Respond ONLY with valid JSON."

const classifierPromptFmt = `Analyze if this customer question is related to product/service support and FAQs.

Customer Question: %s

Previous Conversation:
%s

Respond in this exact JSON format:
{"is_related": true/false, "category": "category_name", "confidence": 0.0-1.0, "reason": "brief reason"}

Only respond with the JSON, no other text.

Guidelines:
- is_related: true if question is about product features, account, billing, passwords, features, technical support
- is_related: false if question is about unrelated topics (politics, personal advice, jokes, etc.)
- category: probable FAQ category if related, empty string if not
- confidence: how confident you are (0.5-1.0)
`

// Classifier decides whether a query belongs to the support domain by
// delegating to the generation provider. Provider or parse failures degrade
// to the zero Verdict rather than returning an error, so the escalation
// path stays a normal data flow.
type Classifier struct {
	provider ai.Provider
	retry    ai.RetryConfig
}

func NewClassifier(provider ai.Provider, retry ai.RetryConfig) *Classifier {
	return &Classifier{provider: provider, retry: retry}
}

func (c *Classifier) Classify(ctx context.Context, query, conversationContext string) Verdict {
	if conversationContext == "" {
		conversationContext = "No previous conversation"
	}

	raw, err := ai.GenerateWithRetry(ctx, c.provider, c.retry, ai.GenerateRequest{
		Prompt:      fmt.Sprintf(classifierPromptFmt, query, conversationContext),
		System:      classifierSystem,
		Temperature: 0.3,
		MaxTokens:   150,
	})
	if err != nil {
		log.Printf("classifier provider error: %v", err)
		return Verdict{}
	}

	v, ok := parseVerdict(raw)
	if !ok {
		log.Printf("classifier parse failed raw=%q", truncateForLog(raw))
		return Verdict{}
	}
	return v
}

// parseVerdict extracts the substring between the first '{' and the last
// '}' and parses it. The provider's text is not trusted to be pure JSON.
func parseVerdict(raw string) (Verdict, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var v Verdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return Verdict{}, false
	}
	return v, true
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
