// Package logging provides a minimal logging interface and adapters for shopmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine, runner, tools and stores use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging (json / text output)
//   - ZerologAdapter wrapping zerolog (console pretty output)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json"})
//	eng := engine.New(m, registry, func(o *engine.Options) { o.Logger = logger })
//
// Event names are dot separated (engine.turn.start, tool.call.error) and
// arguments are alternating key/value pairs.
package logging
