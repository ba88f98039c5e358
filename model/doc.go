// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with the reasoning capability inside shopmesh.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic scripting for tests and offline demos (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the orchestration loop remains decoupled from vendor SDKs.
// RateLimited throttles any Model; HashEmbedder is an offline core.Embedder.
package model
