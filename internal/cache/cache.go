package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"DeepValue/internal/session"
)

// CachedResponse is a cached single-shot model reply. The reasoning segment
// is cached alongside the answer so a repeated question replays both.
type CachedResponse struct {
	Response  string
	Reasoning string
	Timestamp time.Time
}

// Key derives a cache key from the full message history and the reasoning
// mode; the same question with reasoning on and off must not collide.
func Key(messages []session.Message, enableReasoning bool) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte(msg.Content))
	}
	if enableReasoning {
		h.Write([]byte("reasoning"))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
