package session

import (
	"time"

	"github.com/google/uuid"
)

// Message roles as stored and as sent to the model provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single chat message. Messages are immutable once
// stored; ordering is insertion order.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a persisted chat session
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// NewID generates a collision-resistant session identifier. The
// "session_" prefix is part of the wire contract with existing clients.
func NewID() string {
	return "session_" + uuid.NewString()
}
