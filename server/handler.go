package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hupe1980/shopmesh/agent"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/logging"
	"github.com/hupe1980/shopmesh/runner"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options configures a Handler.
type Options struct {
	Logger logging.Logger
	// MaxMessageSize limits inbound websocket frames in bytes.
	MaxMessageSize int64
	// CheckOrigin validates websocket origins. Defaults to allowing all.
	CheckOrigin func(r *http.Request) bool
}

// Handler handles HTTP and websocket requests.
type Handler struct {
	runner         *runner.Runner
	registry       *agent.Registry
	logger         logging.Logger
	maxMessageSize int64
	upgrader       websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(r *runner.Runner, reg *agent.Registry, optFns ...func(o *Options)) *Handler {
	opts := Options{
		MaxMessageSize: 64 * 1024,
		CheckOrigin:    func(*http.Request) bool { return true },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Handler{
		runner:         r,
		registry:       reg,
		logger:         logging.OrNoOp(opts.Logger),
		maxMessageSize: opts.MaxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/v1/agents", h.ListAgents)

	e.POST("/v1/users/:user_id/sessions/:session_id/messages", h.SubmitMessage)
	e.GET("/v1/users/:user_id/sessions/:session_id/messages", h.GetMessages)

	e.GET("/v1/ws/users/:user_id/sessions/:session_id", h.HandleWebSocket)
}

// New builds an echo server with the default middleware and h's routes.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			h.logger.Info("http.request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	h.RegisterRoutes(e)

	return e
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type agentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Entry       bool     `json:"entry"`
	Tools       []string `json:"tools"`
	Handoffs    []string `json:"handoffs"`
}

// ListAgents returns the registered agents.
// GET /v1/agents
func (h *Handler) ListAgents(c echo.Context) error {
	entry := h.registry.Entry().Name()
	agents := h.registry.Agents()

	out := make([]agentInfo, 0, len(agents))
	for _, a := range agents {
		info := agentInfo{
			Name:        a.Name(),
			Description: a.Description(),
			Entry:       a.Name() == entry,
			Tools:       []string{},
			Handoffs:    []string{},
		}
		for _, t := range a.Tools() {
			info.Tools = append(info.Tools, t.Name())
		}
		for _, ho := range a.Handoffs() {
			info.Handoffs = append(info.Handoffs, ho.Target)
		}
		out = append(out, info)
	}

	return c.JSON(http.StatusOK, map[string]any{"agents": out})
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// isInvalidInput reports errors the caller can fix.
func isInvalidInput(err error) bool {
	return errors.Is(err, core.ErrInvalidScope) || errors.Is(err, core.ErrEmptyMessage)
}
