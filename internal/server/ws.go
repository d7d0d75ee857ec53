package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleChatWS serves chat turns over a websocket. Each JSON request read
// from the socket runs one turn; the resulting events are written back as
// JSON frames, terminated by a done or error event, before the next request
// is read.
func (s *Server) handleChatWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if req.Message == "" {
			if err := conn.WriteJSON(gin.H{"type": "error", "error": "message is required"}); err != nil {
				return
			}
			continue
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		events := s.controller.Stream(ctx, req.SessionID, req.Message, req.EnableReasoning)
		failed := false
		for ev := range events {
			if failed {
				continue // drain after cancel
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Warn("websocket write failed", "error", err)
				failed = true
				cancel()
			}
		}
		cancel()
		if failed {
			return
		}
	}
}
