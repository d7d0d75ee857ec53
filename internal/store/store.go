package store

import (
	"context"
	"time"

	"DeepValue/internal/session"
)

// Store persists sessions and their ordered message lists. Implementations
// must tolerate a missing backing table on read paths by logging and
// returning an empty result; write paths may surface storage errors.
type Store interface {
	// Create inserts an empty session, idempotently, and returns its id.
	Create(ctx context.Context, id string) (string, error)

	// Get returns the session with its messages, or nil when absent.
	Get(ctx context.Context, id string) (*session.Session, error)

	// AppendMessage appends one immutable message to the session and
	// returns its timestamp.
	AppendMessage(ctx context.Context, id, role, content string) (time.Time, error)

	// ListMessages returns the session's messages in insertion order.
	ListMessages(ctx context.Context, id string) ([]session.Message, error)

	// Clear deletes the session and its messages, creates a fresh empty
	// session, and returns the new identifier. The old identifier is
	// invalid from that point.
	Clear(ctx context.Context, id string) (string, error)
}
