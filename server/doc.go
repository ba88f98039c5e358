// Package server exposes the runner over HTTP (labstack/echo) and WebSocket
// (gorilla/websocket).
//
// Routes:
//
//	POST /v1/users/:user_id/sessions/:session_id/messages   submit a user turn
//	GET  /v1/users/:user_id/sessions/:session_id/messages   stored conversation
//	GET  /v1/ws/users/:user_id/sessions/:session_id         chat over a websocket
//	GET  /v1/agents                                         registered agents
//	GET  /healthz                                           liveness
//
// Invalid input (empty scope or blank text) answers 400. Every other turn
// failure answers 503 with the generic retry message; details are only logged.
package server
