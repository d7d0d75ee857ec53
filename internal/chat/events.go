package chat

import "DeepValue/internal/splitter"

// EventType discriminates push-channel events.
type EventType string

const (
	// EventSession announces a newly created session; at most once, first.
	EventSession EventType = "session"
	// EventThinking carries a reasoning delta.
	EventThinking EventType = "thinking"
	// EventContent carries an answer delta.
	EventContent EventType = "content"
	// EventDone terminates a successful stream; exactly once.
	EventDone EventType = "done"
	// EventError terminates a failed stream; mutually exclusive with done.
	EventError EventType = "error"
)

// Event is one element of the per-turn push channel. For thinking and
// content events, Replace=true tells the client to discard everything
// previously rendered for that segment and show Content instead; otherwise
// Content is appended. Exactly one terminal event (done or error) closes
// every stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Content   string    `json:"content,omitempty"`
	Replace   bool      `json:"replace,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// eventFromDelta maps a splitter delta onto the wire event types.
func eventFromDelta(d splitter.Delta) Event {
	typ := EventContent
	if d.Kind == splitter.KindReasoning {
		typ = EventThinking
	}
	return Event{Type: typ, Content: d.Content, Replace: d.Replace}
}
