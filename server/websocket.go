package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/engine"
	"github.com/hupe1980/shopmesh/runner"
	"github.com/labstack/echo/v4"
)

// Frame types sent to websocket clients.
const (
	FrameMessage       = "message"
	FrameTurnCompleted = "turn.completed"
	FrameTurnFailed    = "turn.failed"
	FrameError         = "error"
)

// ClientFrame is a user turn sent over the websocket. Plain text frames are
// accepted as well.
type ClientFrame struct {
	Text  string `json:"text"`
	Agent string `json:"agent,omitempty"`
}

// ServerFrame is sent to websocket clients.
type ServerFrame struct {
	Type      string                  `json:"type"`
	Message   *runner.DisplayMessage  `json:"message,omitempty"`
	Display   []runner.DisplayMessage `json:"display,omitempty"`
	NextAgent string                  `json:"next_agent,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// HandleWebSocket upgrades the connection and runs one turn per inbound frame.
// Every message appended during a turn is streamed as it is produced.
// GET /v1/ws/users/:user_id/sessions/:session_id
func (h *Handler) HandleWebSocket(c echo.Context) error {
	userID, sessionID := c.Param("user_id"), c.Param("session_id")
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("server.ws.upgrade_failed", "error", err.Error())
		return nil
	}
	defer ws.Close()

	ws.SetReadLimit(h.maxMessageSize)
	ctx := c.Request().Context()

	h.logger.Info("server.ws.connected", "user_id", userID, "session_id", sessionID)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("server.ws.read_failed", "session_id", sessionID, "error", err.Error())
			}
			return nil
		}

		frame := parseClientFrame(data)

		var writeErr error
		send := func(f ServerFrame) {
			if writeErr == nil {
				writeErr = ws.WriteJSON(f)
			}
		}

		reply, err := h.runner.SubmitUserMessage(ctx, runner.Submission{
			UserID:    userID,
			SessionID: sessionID,
			AgentName: frame.Agent,
			Text:      frame.Text,
			Callbacks: &engine.Callbacks{
				OnMessage: func(m core.Message) {
					d := runner.ToDisplay(m)
					send(ServerFrame{Type: FrameMessage, Message: &d})
				},
			},
		})
		switch {
		case err == nil:
			send(ServerFrame{Type: FrameTurnCompleted, NextAgent: reply.NextAgent})
		case isInvalidInput(err):
			send(ServerFrame{Type: FrameError, Error: err.Error()})
		default:
			send(ServerFrame{Type: FrameTurnFailed, Display: reply.Display, NextAgent: reply.NextAgent, Error: runner.RetryMessage})
		}

		if writeErr != nil {
			h.logger.Warn("server.ws.write_failed", "session_id", sessionID, "error", writeErr.Error())
			return nil
		}
	}
}

func parseClientFrame(data []byte) ClientFrame {
	var f ClientFrame
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal(data, &f) == nil {
		return f
	}
	return ClientFrame{Text: trimmed}
}
