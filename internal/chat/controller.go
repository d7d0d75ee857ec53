package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"DeepValue/internal/cache"
	"DeepValue/internal/gateway"
	"DeepValue/internal/session"
	"DeepValue/internal/splitter"
	"DeepValue/internal/store"
)

// Error categories surfaced to transport handlers.
var (
	ErrProvider = errors.New("provider request failed")
	ErrStorage  = errors.New("session storage failed")
)

const cacheTTL = 5 * time.Minute

// Reply is the result of a single-shot (non-streaming) chat turn.
type Reply struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	Reasoning string `json:"reasoning,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
}

// ClearResult reports the outcome of resetting a session.
type ClearResult struct {
	OldSessionID string `json:"oldSessionId"`
	NewSessionID string `json:"newSessionId"`
}

// Controller coordinates session storage, the provider gateway and the
// reasoning splitter for one chat turn at a time.
type Controller struct {
	store     store.Store
	gw        gateway.Gateway
	logger    *slog.Logger
	maxTokens int

	responses sync.Map // cache key -> cache.CachedResponse
}

func NewController(st store.Store, gw gateway.Gateway, maxTokens int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: st, gw: gw, maxTokens: maxTokens, logger: logger}
}

// resolveSession maps a client-supplied session ID onto a stored session,
// creating one when the ID is empty or unknown. created reports whether a
// new session came into being under an ID the client has not seen yet.
func (c *Controller) resolveSession(ctx context.Context, id string) (string, bool, error) {
	if id == "" {
		newID, err := c.store.Create(ctx, session.NewID())
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return newID, true, nil
	}
	existing, err := c.store.Get(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if existing == nil {
		if _, err := c.store.Create(ctx, id); err != nil {
			return "", false, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return id, false, nil
}

// history loads prior turns, degrading to an empty transcript when the
// store cannot serve them. A chat turn with amnesia beats a dead one.
func (c *Controller) history(ctx context.Context, id string) []session.Message {
	msgs, err := c.store.ListMessages(ctx, id)
	if err != nil {
		c.logger.Warn("loading session history failed", "session_id", id, "error", err)
		return nil
	}
	return msgs
}

func (c *Controller) options(enableReasoning bool) gateway.Options {
	return gateway.Options{EnableReasoning: enableReasoning, MaxTokens: c.maxTokens}
}

// persistedContent picks what to record for the assistant turn: the split
// answer when one exists, otherwise the full raw text.
func persistedContent(res splitter.Result, raw string) string {
	if res.Answer != "" {
		return res.Answer
	}
	return raw
}

func (c *Controller) cachedResponse(key string) (cache.CachedResponse, bool) {
	v, ok := c.responses.Load(key)
	if !ok {
		return cache.CachedResponse{}, false
	}
	entry := v.(cache.CachedResponse)
	if time.Since(entry.Timestamp) > cacheTTL {
		c.responses.Delete(key)
		return cache.CachedResponse{}, false
	}
	return entry, true
}

func (c *Controller) storeResponse(key, response, reasoning string) {
	c.responses.Store(key, cache.CachedResponse{
		Response:  response,
		Reasoning: reasoning,
		Timestamp: time.Now(),
	})
}

// Send runs one non-streaming chat turn: persist the user message, obtain a
// completion, split reasoning from answer when requested, persist the
// assistant turn and return the answer.
func (c *Controller) Send(ctx context.Context, sessionID, message string, enableReasoning bool) (*Reply, error) {
	id, _, err := c.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	transcript := append(c.history(ctx, id), session.Message{Role: session.RoleUser, Content: message})

	if _, err := c.store.AppendMessage(ctx, id, session.RoleUser, message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	key := cache.Key(transcript, enableReasoning)
	if entry, ok := c.cachedResponse(key); ok {
		c.logger.Debug("serving cached response", "session_id", id)
		if _, err := c.store.AppendMessage(ctx, id, session.RoleAssistant, entry.Response); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return &Reply{SessionID: id, Response: entry.Response, Reasoning: entry.Reasoning, Cached: true}, nil
	}

	completion, err := c.gw.Invoke(ctx, transcript, c.options(enableReasoning))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	content := completion.Text
	reply := &Reply{SessionID: id}
	if enableReasoning {
		res := splitter.Classify(completion.Text)
		reply.Reasoning = res.Reasoning
		content = persistedContent(res, completion.Text)
	}
	reply.Response = content

	if _, err := c.store.AppendMessage(ctx, id, session.RoleAssistant, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	c.storeResponse(key, content, reply.Reasoning)
	return reply, nil
}

// Stream runs one streaming chat turn. The returned channel carries an
// optional leading session event, zero or more thinking/content deltas and
// exactly one terminal done or error event, then closes. When ctx is
// cancelled mid-turn the channel closes without a terminal event and the
// assistant turn is not persisted.
func (c *Controller) Stream(ctx context.Context, sessionID, message string, enableReasoning bool) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		send := func(ev Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			c.logger.Error("chat stream failed", "session_id", sessionID, "error", err)
			send(Event{Type: EventError, Error: err.Error()})
		}

		id, created, err := c.resolveSession(ctx, sessionID)
		if err != nil {
			fail(err)
			return
		}
		if created {
			if !send(Event{Type: EventSession, SessionID: id}) {
				return
			}
		}

		transcript := append(c.history(ctx, id), session.Message{Role: session.RoleUser, Content: message})
		if _, err := c.store.AppendMessage(ctx, id, session.RoleUser, message); err != nil {
			fail(fmt.Errorf("%w: %v", ErrStorage, err))
			return
		}

		// No cache on the streaming path: the client asked to watch the
		// response unfold.
		st := splitter.NewStream(enableReasoning)
		err = c.gw.InvokeStream(ctx, transcript, c.options(enableReasoning), func(fragment string) error {
			for _, d := range st.Feed(fragment) {
				if !send(eventFromDelta(d)) {
					return context.Cause(ctx)
				}
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fail(fmt.Errorf("%w: %v", ErrProvider, err))
			return
		}

		deltas, final := st.Finish()
		for _, d := range deltas {
			if !send(eventFromDelta(d)) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		content := persistedContent(final, st.Raw())
		if _, err := c.store.AppendMessage(ctx, id, session.RoleAssistant, content); err != nil {
			fail(fmt.Errorf("%w: %v", ErrStorage, err))
			return
		}
		send(Event{Type: EventDone})
	}()
	return ch
}

// History returns the stored transcript for a session, oldest first.
func (c *Controller) History(ctx context.Context, sessionID string) ([]session.Message, error) {
	msgs, err := c.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if msgs == nil {
		msgs = []session.Message{}
	}
	return msgs, nil
}

// Clear wipes a session's transcript and hands the client a fresh session ID.
func (c *Controller) Clear(ctx context.Context, sessionID string) (*ClearResult, error) {
	if sessionID == "" {
		sessionID = session.NewID()
	}
	newID, err := c.store.Clear(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &ClearResult{OldSessionID: sessionID, NewSessionID: newID}, nil
}
