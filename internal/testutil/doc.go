// Package testutil contains helper builders and fixtures used across tests to
// reduce boilerplate when constructing conversations and a seeded shop. They
// are not intended for production usage.
package testutil
