// Package core provides the foundational domain types and collaborator
// contracts used by shopmesh. It defines:
//
//   - Messages (immutable conversation turn units scoped to a user and session)
//   - Results (the closed Text | Handoff union returned by tools)
//   - Conversation and active-agent stores (transactional, session scoped persistence)
//   - Catalog records and lookups (products, users, purchases, similarity search)
//
// The package intentionally keeps implementation concerns (persistence
// backends, model adapters, orchestration) out of scope, exposing small
// interfaces so backends can be swapped in tests and production.
package core
