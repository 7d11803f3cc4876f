package chat

import (
	"context"
	"errors"

	"github.com/gopherdesk/supportbot/internal/common"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetOrCreateUser(ctx context.Context, customerID string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u = User{CustomerID: customerID}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		// Lost a race with a concurrent first contact; fetch the winner.
		var existing User
		if getErr := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&existing).Error; getErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSessionBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetOrCreateSession(ctx context.Context, sessionID string, userID uint64, topic string) (*Session, error) {
	s, err := r.GetSessionBySessionID(ctx, sessionID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &Session{
		SessionID: sessionID,
		UserID:    userID,
		Topic:     topic,
		Status:    SessionActive,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if s, getErr := r.GetSessionBySessionID(ctx, sessionID); getErr == nil {
			return s, nil
		}
		return nil, err
	}
	return created, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRecentMessagesDesc returns the most recent messages in DESC id order
// (newest -> oldest). Only the bounded tail is loaded.
func (r *Repo) ListRecentMessagesDesc(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 5
	}
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMessagesAsc returns the full transcript in chronological order.
func (r *Repo) ListMessagesAsc(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetOpenEscalation returns the session's open (pending or in-progress)
// ticket, if any.
func (r *Repo) GetOpenEscalation(ctx context.Context, sessionID string) (*Escalation, error) {
	var e Escalation
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status IN ?", sessionID, []string{TicketPending, TicketInProgress}).
		Order("id ASC").
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) GetEscalationByTicketID(ctx context.Context, ticketID string) (*Escalation, error) {
	var e Escalation
	if err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEscalationTurn persists the ticket, the session status flip, and
// the bot message atomically. contentFor renders the bot message once the
// ticket id is final; the id is regenerated on unique-index conflicts.
func (r *Repo) CreateEscalationTurn(ctx context.Context, ticket *Escalation, contentFor func(*Escalation) string, msg *Message) error {
	const maxIDAttempts = 5

	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		ticket.TicketID = common.NewTicketID()
		msg.Content = contentFor(ticket)

		lastErr = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(ticket).Error; err != nil {
				return err
			}
			if err := tx.Model(&Session{}).
				Where("session_id = ?", ticket.SessionID).
				Update("status", SessionEscalated).Error; err != nil {
				return err
			}
			return tx.Create(msg).Error
		})
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return lastErr
		}
		ticket.ID = 0
		msg.ID = 0
	}
	return lastErr
}

func (r *Repo) MarkSessionEscalated(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("status", SessionEscalated).Error
}

func (r *Repo) UpdateSessionSummary(ctx context.Context, sessionID, summary string) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("conversation_summary", summary).Error
}

// UpsertMetrics overwrites the metrics snapshot for a session.
func (r *Repo) UpsertMetrics(ctx context.Context, m *SessionMetrics) error {
	var existing SessionMetrics
	err := r.db.WithContext(ctx).Where("session_id = ?", m.SessionID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(m).Error
		}
		return err
	}

	return r.db.WithContext(ctx).Model(&SessionMetrics{}).
		Where("session_id = ?", m.SessionID).
		Updates(map[string]any{
			"total_messages":     m.TotalMessages,
			"user_messages":      m.UserMessages,
			"bot_messages":       m.BotMessages,
			"average_confidence": m.AverageConfidence,
			"duration_minutes":   m.DurationMinutes,
			"was_escalated":      m.WasEscalated,
		}).Error
}

func (r *Repo) GetMetrics(ctx context.Context, sessionID string) (*SessionMetrics, error) {
	var m SessionMetrics
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
