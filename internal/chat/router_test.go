package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gopherdesk/supportbot/internal/ai"
	"github.com/gopherdesk/supportbot/internal/kb"
	"gorm.io/gorm"
)

// fakeProvider routes generation calls through a test-supplied function and
// counts invocations.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	generate func(req ai.GenerateRequest) (string, error)
}

func (p *fakeProvider) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	_ = ctx
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.generate(req)
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeEmbedder struct {
	vec []float64
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	_ = ctx
	_ = text
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&kb.Entry{}, &User{}, &Session{}, &Message{}, &Escalation{}, &SessionMetrics{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedEntries(t *testing.T, db *gorm.DB, cache *kb.Cache, entries ...kb.Entry) {
	t.Helper()
	for i := range entries {
		if err := db.Create(&entries[i]).Error; err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}
	if _, err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
}

func fastRetry() ai.RetryConfig {
	return ai.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func newTestService(t *testing.T, provider *fakeProvider) (*Service, *Repo, *kb.Cache, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepo(db)
	cache := kb.NewCache(kb.NewRepo(db))
	svc := NewService(repo, cache, &fakeEmbedder{vec: []float64{1, 0}}, provider, nil, 5)
	svc.SetRetryConfig(fastRetry())
	return svc, repo, cache, db
}

func relatedVerdict(req ai.GenerateRequest) (string, error) {
	if req.System == classifierSystem {
		return `{"is_related": true, "category": "technical", "confidence": 0.9, "reason": "support topic"}`, nil
	}
	return "Try restarting the device.", nil
}

func TestHandleMessage_FAQMatch(t *testing.T) {
	provider := &fakeProvider{generate: func(req ai.GenerateRequest) (string, error) {
		return "", errors.New("provider must not be called on a keyword match")
	}}
	svc, _, cache, db := newTestService(t, provider)

	seedEntries(t, db, cache, kb.Entry{
		Question: "How do I reset my password?",
		Answer:   "Use the forgot-password link.",
		IsActive: true,
	})
	entryID := cache.Snapshot().Entries[0].ID

	reply, err := svc.HandleMessage(context.Background(), "s-faq", "cust-1", "how do i reset my password?")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}

	if reply.ResponseType != ResponseFAQ {
		t.Fatalf("expected faq response, got %q", reply.ResponseType)
	}
	if reply.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", reply.Confidence)
	}
	if reply.BotResponse != "Use the forgot-password link." {
		t.Fatalf("unexpected bot response: %q", reply.BotResponse)
	}
	if reply.RequiresEscalation || reply.TicketID != "" {
		t.Fatalf("faq reply must not escalate")
	}
	if provider.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.callCount())
	}

	var msgs []Message
	if err := db.Where("session_id = ?", "s-faq").Order("id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Sender != SenderUser || msgs[1].Sender != SenderBot {
		t.Fatalf("unexpected senders: %q, %q", msgs[0].Sender, msgs[1].Sender)
	}
	if msgs[1].Confidence == nil || *msgs[1].Confidence != 0.9 {
		t.Fatalf("bot message missing confidence")
	}
	if len(msgs[1].EntryIDs) != 1 || msgs[1].EntryIDs[0] != entryID {
		t.Fatalf("bot message missing matched entry id: %v", msgs[1].EntryIDs)
	}
}

func TestHandleMessage_RelatedGeneratesAnswer(t *testing.T) {
	provider := &fakeProvider{generate: relatedVerdict}
	svc, _, _, db := newTestService(t, provider)

	reply, err := svc.HandleMessage(context.Background(), "s-gen", "cust-1", "my widget is sparking")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}

	if reply.ResponseType != ResponseAIGenerated {
		t.Fatalf("expected ai_generated, got %q", reply.ResponseType)
	}
	if reply.Confidence != AIGeneratedConfidence {
		t.Fatalf("expected fixed confidence %v, got %v", AIGeneratedConfidence, reply.Confidence)
	}
	if reply.BotResponse != "Try restarting the device." {
		t.Fatalf("unexpected bot response: %q", reply.BotResponse)
	}
	if reply.RequiresEscalation {
		t.Fatalf("generated answer must not escalate")
	}

	var sess Session
	if err := db.Where("session_id = ?", "s-gen").First(&sess).Error; err != nil {
		t.Fatalf("query session: %v", err)
	}
	if sess.Status != SessionActive {
		t.Fatalf("expected session to stay active, got %q", sess.Status)
	}
}

func TestHandleMessage_OffTopicEscalatesLowPriority(t *testing.T) {
	provider := &fakeProvider{generate: func(req ai.GenerateRequest) (string, error) {
		return `{"is_related": false, "category": "", "confidence": 0.95, "reason": "off topic"}`, nil
	}}
	svc, _, _, db := newTestService(t, provider)

	reply, err := svc.HandleMessage(context.Background(), "s-off", "cust-1", "what do you think about politics?")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}

	if reply.ResponseType != ResponseOutOfScope {
		t.Fatalf("expected out_of_scope, got %q", reply.ResponseType)
	}
	if !reply.RequiresEscalation {
		t.Fatalf("expected escalation")
	}
	if !strings.HasPrefix(reply.TicketID, "ticket-") {
		t.Fatalf("unexpected ticket id: %q", reply.TicketID)
	}
	if reply.BotResponse != outOfScopeResponse {
		t.Fatalf("unexpected bot response: %q", reply.BotResponse)
	}
	if reply.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", reply.Confidence)
	}

	var sess Session
	if err := db.Where("session_id = ?", "s-off").First(&sess).Error; err != nil {
		t.Fatalf("query session: %v", err)
	}
	if sess.Status != SessionEscalated {
		t.Fatalf("expected escalated session, got %q", sess.Status)
	}

	var ticket Escalation
	if err := db.Where("session_id = ?", "s-off").First(&ticket).Error; err != nil {
		t.Fatalf("query ticket: %v", err)
	}
	if ticket.Priority != PriorityLow {
		t.Fatalf("expected low priority, got %q", ticket.Priority)
	}
	if ticket.Status != TicketPending {
		t.Fatalf("expected pending ticket, got %q", ticket.Status)
	}
	if ticket.InitialQuery != "what do you think about politics?" {
		t.Fatalf("unexpected initial query: %q", ticket.InitialQuery)
	}
}

func TestHandleMessage_GenerationFailureEscalatesNormalPriority(t *testing.T) {
	provider := &fakeProvider{generate: func(req ai.GenerateRequest) (string, error) {
		if req.System == classifierSystem {
			return `{"is_related": true, "category": "billing", "confidence": 0.8, "reason": "billing"}`, nil
		}
		return "", errors.New("model overloaded")
	}}
	svc, _, _, db := newTestService(t, provider)

	reply, err := svc.HandleMessage(context.Background(), "s-fail", "cust-1", "why was I double charged?")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}

	if reply.ResponseType != ResponseEscalated {
		t.Fatalf("expected escalated, got %q", reply.ResponseType)
	}
	if !reply.RequiresEscalation || reply.TicketID == "" {
		t.Fatalf("expected a ticket")
	}
	if !strings.Contains(reply.BotResponse, reply.TicketID) {
		t.Fatalf("bot response should carry the ticket id: %q", reply.BotResponse)
	}

	var ticket Escalation
	if err := db.Where("session_id = ?", "s-fail").First(&ticket).Error; err != nil {
		t.Fatalf("query ticket: %v", err)
	}
	if ticket.Priority != PriorityNormal {
		t.Fatalf("expected normal priority, got %q", ticket.Priority)
	}
	if !strings.Contains(ticket.Reason, "billing") {
		t.Fatalf("expected classifier category in reason: %q", ticket.Reason)
	}
}

func TestHandleMessage_ClassifierGarbageFailsClosed(t *testing.T) {
	provider := &fakeProvider{generate: func(req ai.GenerateRequest) (string, error) {
		return "I cannot answer in JSON today.", nil
	}}
	svc, _, _, _ := newTestService(t, provider)

	reply, err := svc.HandleMessage(context.Background(), "s-garbage", "cust-1", "hello there")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if reply.ResponseType != ResponseOutOfScope {
		t.Fatalf("expected fail-closed out_of_scope, got %q", reply.ResponseType)
	}
}

func TestHandleMessage_ReusesOpenTicket(t *testing.T) {
	provider := &fakeProvider{generate: func(req ai.GenerateRequest) (string, error) {
		return `{"is_related": false, "category": "", "confidence": 0.9, "reason": "off topic"}`, nil
	}}
	svc, _, _, db := newTestService(t, provider)

	first, err := svc.HandleMessage(context.Background(), "s-reuse", "cust-1", "tell me a joke")
	if err != nil {
		t.Fatalf("first message: %v", err)
	}
	second, err := svc.HandleMessage(context.Background(), "s-reuse", "cust-1", "another joke please")
	if err != nil {
		t.Fatalf("second message: %v", err)
	}

	if second.TicketID != first.TicketID {
		t.Fatalf("expected ticket reuse, got %q then %q", first.TicketID, second.TicketID)
	}

	var count int64
	if err := db.Model(&Escalation{}).Where("session_id = ?", "s-reuse").Count(&count).Error; err != nil {
		t.Fatalf("count tickets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ticket, got %d", count)
	}
}

func TestHandleMessage_ValidationBeforeSideEffects(t *testing.T) {
	provider := &fakeProvider{generate: relatedVerdict}
	svc, _, _, db := newTestService(t, provider)

	if _, err := svc.HandleMessage(context.Background(), "s-val", "cust-1", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.HandleMessage(context.Background(), "s-val", "cust-1", strings.Repeat("x", 5001)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}

	var count int64
	if err := db.Model(&Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected messages must leave no rows, got %d", count)
	}

	// Exactly at the limit is accepted.
	if _, err := svc.HandleMessage(context.Background(), "s-val", "cust-1", strings.Repeat("x", 5000)); err != nil {
		t.Fatalf("limit-length message: %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	provider := &fakeProvider{generate: relatedVerdict}
	svc, repo, _, _ := newTestService(t, provider)

	sess, err := svc.CreateSession(context.Background(), "cust-42", "billing")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !strings.HasPrefix(sess.SessionID, "session-") {
		t.Fatalf("unexpected session id: %q", sess.SessionID)
	}
	if sess.Status != SessionActive {
		t.Fatalf("expected active session, got %q", sess.Status)
	}

	got, err := repo.GetSessionBySessionID(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("fetch session: %v", err)
	}
	if got.Topic != "billing" {
		t.Fatalf("unexpected topic: %q", got.Topic)
	}
}

func TestTranscript_UnknownSession(t *testing.T) {
	provider := &fakeProvider{generate: relatedVerdict}
	svc, _, _, _ := newTestService(t, provider)

	if _, err := svc.Transcript(context.Background(), "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
