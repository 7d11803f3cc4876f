package kb

import "time"

// Entry is one question/answer pair in the knowledge base. The embedding is
// computed once at ingestion for the (question, answer) pair; a changed pair
// means a new entry, never an in-place edit.
type Entry struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Category  string    `gorm:"type:varchar(255)" json:"category,omitempty"`
	Keywords  []string  `gorm:"serializer:json" json:"keywords,omitempty"`
	Embedding []float64 `gorm:"serializer:json" json:"-"`
	Source    string    `gorm:"type:varchar(255)" json:"source,omitempty"`
	IsActive  bool      `gorm:"index;not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Entry) TableName() string { return "kb_entries" }
