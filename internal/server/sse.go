package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"DeepValue/internal/chat"
)

// sseWriter emits chat events as data-only server-sent event frames. No
// event: field is written; browsers consume the frames through
// EventSource.onmessage and dispatch on the JSON type field.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Keeps nginx-style proxies from buffering the stream.
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

// write sends one event frame and flushes it before returning, so the
// producer blocks until the previous frame is on the wire.
func (s *sseWriter) write(ev chat.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
