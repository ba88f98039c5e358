package server

import (
	"net/http"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/runner"
	"github.com/labstack/echo/v4"
)

// SubmitRequest is the body of a turn submission.
type SubmitRequest struct {
	Text string `json:"text"`
	// Agent overrides the stored active agent.
	Agent string         `json:"agent,omitempty"`
	Vars  map[string]any `json:"vars,omitempty"`
}

// SubmitResponse is the outcome of a turn submission.
type SubmitResponse struct {
	Display   []runner.DisplayMessage `json:"display"`
	NextAgent string                  `json:"next_agent"`
	Messages  []core.Message          `json:"messages"`
	Error     string                  `json:"error,omitempty"`
}

// SubmitMessage runs one user turn.
// POST /v1/users/:user_id/sessions/:session_id/messages
func (h *Handler) SubmitMessage(c echo.Context) error {
	var body SubmitRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	reply, err := h.runner.SubmitUserMessage(c.Request().Context(), runner.Submission{
		UserID:    c.Param("user_id"),
		SessionID: c.Param("session_id"),
		AgentName: body.Agent,
		Text:      body.Text,
		Vars:      body.Vars,
	})
	if err != nil {
		if isInvalidInput(err) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusServiceUnavailable, SubmitResponse{
			Display:   reply.Display,
			NextAgent: reply.NextAgent,
			Messages:  []core.Message{},
			Error:     runner.RetryMessage,
		})
	}

	return c.JSON(http.StatusOK, SubmitResponse{
		Display:   reply.Display,
		NextAgent: reply.NextAgent,
		Messages:  reply.Messages,
	})
}

// GetMessages returns the stored conversation of a session.
// GET /v1/users/:user_id/sessions/:session_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	userID, sessionID := c.Param("user_id"), c.Param("session_id")

	if err := core.ValidateScope(userID, sessionID); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	msgs, err := h.runner.Messages(ctx, userID, sessionID)
	if err != nil {
		h.logger.Error("server.messages.read_failed", "user_id", userID, "session_id", sessionID, "error", err.Error())
		return errorJSON(c, http.StatusServiceUnavailable, runner.RetryMessage)
	}

	active, err := h.runner.ActiveAgent(ctx, userID, sessionID)
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, runner.RetryMessage)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"messages":     msgs,
		"display":      runner.FormatMessages(msgs),
		"active_agent": active,
	})
}
