package chat

import "time"

// Session status values. The router only ever triggers active -> escalated;
// closing a session is an external action.
const (
	SessionActive    = "active"
	SessionEscalated = "escalated"
	SessionClosed    = "closed"
)

// Message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Bot response types, one per routing outcome.
const (
	ResponseFAQ         = "faq"
	ResponseAIGenerated = "ai_generated"
	ResponseEscalated   = "escalated"
	ResponseOutOfScope  = "out_of_scope"
)

// Escalation ticket priorities and statuses.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"

	TicketPending    = "pending"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
)

type User struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	CustomerID string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"customer_id"`
	Email      string    `gorm:"type:varchar(255);index" json:"email,omitempty"`
	Name       string    `gorm:"type:varchar(255)" json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Session struct {
	ID                  uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID           string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"session_id"`
	UserID              uint64     `gorm:"index;not null" json:"-"`
	Topic               string     `gorm:"type:varchar(255)" json:"topic,omitempty"`
	Status              string     `gorm:"type:varchar(50);not null;default:active" json:"status"`
	ConversationSummary string     `gorm:"type:text" json:"conversation_summary,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}

func (Session) TableName() string { return "sessions" }

// Message rows are append-only, ordered by creation within a session.
type Message struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    string    `gorm:"type:varchar(100);index;not null" json:"session_id"`
	Sender       string    `gorm:"type:varchar(50);not null" json:"sender"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	ResponseType string    `gorm:"type:varchar(50)" json:"response_type,omitempty"`
	Confidence   *float64  `json:"confidence_score,omitempty"`
	EntryIDs     []uint64  `gorm:"serializer:json" json:"relevant_faq_ids,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

type Escalation struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	TicketID     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"ticket_id"`
	SessionID    string     `gorm:"type:varchar(100);index;not null" json:"session_id"`
	UserID       uint64     `gorm:"index;not null" json:"-"`
	Reason       string     `gorm:"type:text;not null" json:"reason"`
	InitialQuery string     `gorm:"type:text;not null" json:"initial_query"`
	Context      string     `gorm:"type:text" json:"context,omitempty"`
	Status       string     `gorm:"type:varchar(50);not null;default:pending" json:"status"`
	Priority     string     `gorm:"type:varchar(50);not null;default:normal" json:"priority"`
	AssignedTo   string     `gorm:"type:varchar(255)" json:"assigned_to,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

func (Escalation) TableName() string { return "escalations" }

// SessionMetrics is a derived aggregate, recomputed from the message set
// and upserted per session. Never authored independently.
type SessionMetrics struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"session_id"`
	TotalMessages     int       `json:"total_messages"`
	UserMessages      int       `json:"user_messages"`
	BotMessages       int       `json:"bot_messages"`
	AverageConfidence float64   `json:"average_confidence"`
	DurationMinutes   *int      `json:"duration_minutes,omitempty"`
	WasEscalated      bool      `json:"was_escalated"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (SessionMetrics) TableName() string { return "session_metrics" }
