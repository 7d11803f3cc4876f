package common

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func NewULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewSessionID returns an id like "session-3f9a81cd".
func NewSessionID() string {
	return fmt.Sprintf("session-%s", uuid.New().String()[:8])
}

// NewTicketID returns an id like "ticket-9c4e02ab". The 8 hex chars are not
// collision-proof; callers must retry on a unique-index conflict.
func NewTicketID() string {
	u := uuid.New()
	return fmt.Sprintf("ticket-%x", u[:4])
}
