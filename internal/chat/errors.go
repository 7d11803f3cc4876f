package chat

import "errors"

// Validation errors are rejected before any side effect.
var (
	ErrEmptyMessage   = errors.New("message must not be empty")
	ErrMessageTooLong = errors.New("message exceeds 5000 characters")
)
