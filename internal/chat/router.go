package chat

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/gopherdesk/supportbot/internal/ai"
	"github.com/gopherdesk/supportbot/internal/common"
	"github.com/gopherdesk/supportbot/internal/kb"
)

const (
	maxMessageLen = 5000

	// RelevanceThreshold gates the generated-answer branch.
	RelevanceThreshold = 0.6

	// AIGeneratedConfidence is fixed: the classifier's confidence says the
	// question is on-topic, not that the unverified generated answer is
	// correct, so it is not propagated.
	AIGeneratedConfidence = 0.65
)

// EventPublisher receives post-turn events. A nil publisher disables
// publishing without changing routing behavior.
type EventPublisher interface {
	PublishMetricsJob(ctx context.Context, sessionID string) error
	PublishTicketNotice(ctx context.Context, ticketID string) error
}

// Reply is the outcome of one routed chat turn.
type Reply struct {
	SessionID          string    `json:"session_id"`
	UserMessage        string    `json:"user_message"`
	BotResponse        string    `json:"bot_response"`
	Confidence         float64   `json:"confidence_score"`
	ResponseType       string    `json:"response_type"`
	RequiresEscalation bool      `json:"requires_escalation"`
	TicketID           string    `json:"ticket_id,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Service is the response router: it turns each incoming customer message
// into exactly one of a FAQ answer, a generated answer, or an escalation.
type Service struct {
	repo       *Repo
	cache      *kb.Cache
	embedder   ai.Embedder
	provider   ai.Provider
	classifier *Classifier
	contexts   *ContextBuilder
	locker     SessionLocker
	publisher  EventPublisher
	retry      ai.RetryConfig
}

func NewService(repo *Repo, cache *kb.Cache, embedder ai.Embedder, provider ai.Provider, locker SessionLocker, contextWindowSize int) *Service {
	retry := ai.DefaultRetryConfig()
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Service{
		repo:       repo,
		cache:      cache,
		embedder:   embedder,
		provider:   provider,
		classifier: NewClassifier(provider, retry),
		contexts:   NewContextBuilder(repo, contextWindowSize),
		locker:     locker,
		retry:      retry,
	}
}

// SetPublisher attaches the optional post-turn event publisher.
func (s *Service) SetPublisher(p EventPublisher) { s.publisher = p }

// SetRetryConfig overrides the provider retry policy (tests use short delays).
func (s *Service) SetRetryConfig(cfg ai.RetryConfig) {
	s.retry = cfg
	s.classifier = NewClassifier(s.provider, cfg)
}

const supportSystem = "You are a professional customer support representative. Provide helpful and accurate responses to customer inquiries."

const supportPromptFmt = `You are a helpful customer support assistant. Answer this customer question accurately and professionally based on your knowledge about common product/service support topics.

Customer Question: %s

Previous Context: %s

Related FAQ entries:
%s

Provide a helpful, clear, and concise answer. If you're not completely sure about something, acknowledge it and suggest they contact the support team for clarification.`

const outOfScopeResponse = "I'm here to help with questions about our products and services. " +
	"Your question doesn't seem to be related to our offerings.\n\n" +
	"If you have any product or service-related questions, I'd be happy to help!\n\n" +
	"For other inquiries, you can contact our support team at support@example.com"

func escalatedResponse(ticketID string) string {
	return fmt.Sprintf("Thank you for your question! We're connecting you to our support team now. "+
		"A specialist will be with you shortly to assist with your inquiry.\n\n"+
		"Ticket ID: %s\n\n"+
		"Please stay in this chat and someone from our team will respond shortly.", ticketID)
}

// HandleMessage routes one customer message. Decision order, short-circuit:
//
//  1. keyword match accepted          -> stored FAQ answer
//  2. related per classifier, >= 0.6  -> generated answer; on provider
//     failure after retries           -> normal-priority ticket
//  3. otherwise                       -> low-priority ticket, out of scope
//
// The whole turn holds the session lock so context windows and ticket
// creation cannot interleave with a concurrent turn for the same session.
func (s *Service) HandleMessage(ctx context.Context, sessionID, customerID, content string) (*Reply, error) {
	if utf8.RuneCountInString(content) == 0 {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.repo.GetOrCreateUser(ctx, customerID)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.GetOrCreateSession(ctx, sessionID, user.ID, "")
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertMessage(ctx, &Message{
		SessionID: session.SessionID,
		Sender:    SenderUser,
		Content:   content,
	}); err != nil {
		return nil, err
	}

	conversationContext, err := s.contexts.Build(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}

	var reply *Reply
	var newTicketID string

	// Step 1: keyword match against the current knowledge snapshot.
	snap := s.cache.Snapshot()
	if match := kb.MatchKeyword(content, snap.Entries); match.Found {
		confidence := match.Confidence
		if err := s.repo.InsertMessage(ctx, &Message{
			SessionID:    session.SessionID,
			Sender:       SenderBot,
			Content:      match.Answer,
			ResponseType: ResponseFAQ,
			Confidence:   &confidence,
			EntryIDs:     []uint64{match.EntryID},
		}); err != nil {
			return nil, err
		}

		log.Printf("chat route=faq session=%s entry=%d confidence=%.2f", session.SessionID, match.EntryID, match.Confidence)
		reply = &Reply{
			SessionID:    session.SessionID,
			UserMessage:  content,
			BotResponse:  match.Answer,
			Confidence:   match.Confidence,
			ResponseType: ResponseFAQ,
			Timestamp:    time.Now().UTC(),
		}
	} else {
		// Step 2: no match; ask the classifier whether this is our domain.
		verdict := s.classifier.Classify(ctx, content, conversationContext)

		if verdict.IsRelated && verdict.Confidence >= RelevanceThreshold {
			answer, genErr := s.generateAnswer(ctx, content, conversationContext)
			if genErr == nil {
				confidence := AIGeneratedConfidence
				if err := s.repo.InsertMessage(ctx, &Message{
					SessionID:    session.SessionID,
					Sender:       SenderBot,
					Content:      answer,
					ResponseType: ResponseAIGenerated,
					Confidence:   &confidence,
				}); err != nil {
					return nil, err
				}

				log.Printf("chat route=ai_generated session=%s relevance=%.2f", session.SessionID, verdict.Confidence)
				reply = &Reply{
					SessionID:    session.SessionID,
					UserMessage:  content,
					BotResponse:  answer,
					Confidence:   AIGeneratedConfidence,
					ResponseType: ResponseAIGenerated,
					Timestamp:    time.Now().UTC(),
				}
			} else {
				log.Printf("chat generation failed session=%s err=%v", session.SessionID, genErr)
				reason := fmt.Sprintf("Customer question related to %q - AI generation failed", verdict.Category)
				reply, newTicketID, err = s.escalate(ctx, session, user, content, conversationContext,
					reason, PriorityNormal, ResponseEscalated)
				if err != nil {
					return nil, err
				}
			}
		} else {
			reply, newTicketID, err = s.escalate(ctx, session, user, content, conversationContext,
				"Off-topic question - not related to products/services", PriorityLow, ResponseOutOfScope)
			if err != nil {
				return nil, err
			}
		}
	}

	s.publishTurnEvents(ctx, session.SessionID, newTicketID)
	return reply, nil
}

func (s *Service) generateAnswer(ctx context.Context, query, conversationContext string) (string, error) {
	faqContext := s.faqContext(ctx, query)
	if faqContext == "" {
		faqContext = "No relevant FAQ found"
	}
	if conversationContext == "" {
		conversationContext = "No previous conversation"
	}

	return ai.GenerateWithRetry(ctx, s.provider, s.retry, ai.GenerateRequest{
		Prompt:      fmt.Sprintf(supportPromptFmt, query, conversationContext, faqContext),
		System:      supportSystem,
		Temperature: 0.7,
		MaxTokens:   500,
	})
}

// faqContext builds the semantic-matcher context block for the generation
// prompt. Embedding failures degrade to no context, never block the turn.
func (s *Service) faqContext(ctx context.Context, query string) string {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("chat query embed failed: %v", err)
		return ""
	}
	snap := s.cache.Snapshot()
	matches := kb.SearchSimilar(embedding, snap.Entries, kb.DefaultTopK, kb.DefaultMinSimilarity)
	return kb.BuildFAQContext(matches).Text
}

// escalate writes the bot message and ticket for an ESCALATED_* branch.
// An already-open ticket for the session is reused instead of duplicated.
func (s *Service) escalate(ctx context.Context, session *Session, user *User, query, conversationContext, reason, priority, responseType string) (*Reply, string, error) {
	confidence := 0.0

	if open, err := s.repo.GetOpenEscalation(ctx, session.SessionID); err == nil {
		content := outOfScopeResponse
		if responseType == ResponseEscalated {
			content = escalatedResponse(open.TicketID)
		}
		if err := s.repo.InsertMessage(ctx, &Message{
			SessionID:    session.SessionID,
			Sender:       SenderBot,
			Content:      content,
			ResponseType: responseType,
			Confidence:   &confidence,
		}); err != nil {
			return nil, "", err
		}
		if err := s.repo.MarkSessionEscalated(ctx, session.SessionID); err != nil {
			return nil, "", err
		}

		log.Printf("chat route=%s session=%s ticket=%s reused=true", responseType, session.SessionID, open.TicketID)
		return &Reply{
			SessionID:          session.SessionID,
			UserMessage:        query,
			BotResponse:        content,
			ResponseType:       responseType,
			RequiresEscalation: true,
			TicketID:           open.TicketID,
			Timestamp:          time.Now().UTC(),
		}, "", nil
	}

	ticket := &Escalation{
		SessionID:    session.SessionID,
		UserID:       user.ID,
		Reason:       reason,
		InitialQuery: query,
		Context:      conversationContext,
		Status:       TicketPending,
		Priority:     priority,
	}
	msg := &Message{
		SessionID:    session.SessionID,
		Sender:       SenderBot,
		ResponseType: responseType,
		Confidence:   &confidence,
	}

	if err := s.repo.CreateEscalationTurn(ctx, ticket, func(t *Escalation) string {
		if responseType == ResponseEscalated {
			return escalatedResponse(t.TicketID)
		}
		return outOfScopeResponse
	}, msg); err != nil {
		return nil, "", err
	}

	log.Printf("chat route=%s session=%s ticket=%s priority=%s", responseType, session.SessionID, ticket.TicketID, priority)
	return &Reply{
		SessionID:          session.SessionID,
		UserMessage:        query,
		BotResponse:        msg.Content,
		ResponseType:       responseType,
		RequiresEscalation: true,
		TicketID:           ticket.TicketID,
		Timestamp:          time.Now().UTC(),
	}, ticket.TicketID, nil
}

func (s *Service) publishTurnEvents(ctx context.Context, sessionID, ticketID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMetricsJob(ctx, sessionID); err != nil {
		log.Printf("publish metrics job session=%s err=%v", sessionID, err)
	}
	if ticketID != "" {
		if err := s.publisher.PublishTicketNotice(ctx, ticketID); err != nil {
			log.Printf("publish ticket notice ticket=%s err=%v", ticketID, err)
		}
	}
}

// CreateSession allocates a fresh session for a customer.
func (s *Service) CreateSession(ctx context.Context, customerID, topic string) (*Session, error) {
	user, err := s.repo.GetOrCreateUser(ctx, customerID)
	if err != nil {
		return nil, err
	}
	session := &Session{
		SessionID: common.NewSessionID(),
		UserID:    user.ID,
		Topic:     topic,
		Status:    SessionActive,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Transcript returns all messages for a session in chronological order.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.repo.GetSessionBySessionID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessagesAsc(ctx, sessionID)
}
