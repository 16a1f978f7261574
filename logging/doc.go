// Package logging provides a minimal logging interface and adapters used
// throughout the reasoning engine, routers, scheduler and tool registry.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) used for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - StructuredLogger, a slog-backed implementation with session/run context
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	core, err := agentcore.New(agentcore.Options{Logger: logger})
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
