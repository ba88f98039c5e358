// Package catalog holds the shop's records (products, users, purchases) and
// the vector similarity search used by the product agent.
//
// Two backends are provided: MemoryStore keeps everything in maps and
// BadgerStore persists JSON records in an embedded badger database. Both
// implement the core collaborator contracts consumed by the shop tools.
package catalog
