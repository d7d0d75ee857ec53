package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"DeepValue/internal/chat"
)

// Server exposes the chat controller over HTTP: a JSON endpoint for
// single-shot turns, an SSE endpoint for streaming, a websocket endpoint,
// session history management and the static front-end.
type Server struct {
	engine     *gin.Engine
	controller *chat.Controller
	logger     *slog.Logger
}

func New(controller *chat.Controller, staticDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:     gin.New(),
		controller: controller,
		logger:     logger,
	}
	s.engine.Use(gin.Recovery(), corsMiddleware())

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/api/chat", s.handleChat)
	s.engine.GET("/api/chat", s.handleChatStream)
	s.engine.GET("/api/chat/ws", s.handleChatWS)
	s.engine.GET("/api/history", s.handleHistory)
	s.engine.POST("/api/history/clear", s.handleClear)

	if staticDir != "" {
		s.engine.Static("/static", staticDir)
		s.engine.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/static/index.html")
		})
	}
	return s
}

// Handler returns the underlying http.Handler for mounting on an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// corsMiddleware allows browser front-ends served from other origins to call
// the API. Wide open on purpose: the server fronts a local deployment.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type chatRequest struct {
	Message         string `json:"message" binding:"required"`
	SessionID       string `json:"sessionId"`
	EnableReasoning bool   `json:"enableReasoning"`
}

type clearRequest struct {
	SessionID string `json:"sessionId"`
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, chat.ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	reply, err := s.controller.Send(c.Request.Context(), req.SessionID, req.Message, req.EnableReasoning)
	if err != nil {
		s.logger.Error("chat request failed", "error", err)
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// handleChatStream serves one chat turn as server-sent events. Parameters
// arrive as query strings because EventSource cannot send a request body.
func (s *Server) handleChatStream(c *gin.Context) {
	message := c.Query("message")
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	sessionID := c.Query("sessionId")
	enableReasoning := c.Query("enableReasoning") == "true"

	w, ok := newSSEWriter(c.Writer)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	for ev := range s.controller.Stream(ctx, sessionID, message, enableReasoning) {
		if err := w.write(ev); err != nil {
			s.logger.Warn("sse write failed, client gone", "error", err)
			return
		}
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}
	msgs, err := s.controller.History(c.Request.Context(), sessionID)
	if err != nil {
		s.logger.Error("history request failed", "session_id", sessionID, "error", err)
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID, "messages": msgs})
}

func (s *Server) handleClear(c *gin.Context) {
	var req clearRequest
	_ = c.ShouldBindJSON(&req)
	res, err := s.controller.Clear(c.Request.Context(), req.SessionID)
	if err != nil {
		s.logger.Error("clear request failed", "session_id", req.SessionID, "error", err)
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"oldSessionId": res.OldSessionID,
		"newSessionId": res.NewSessionID,
	})
}
