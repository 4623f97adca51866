// Package logging assembles the structured slog loggers used across demusic.
//
// It centralizes level/format plumbing, tees daemon output into the log
// directory, and exposes context-aware helpers so pipeline code automatically
// tags log lines with job IDs, stages, and request correlation IDs. A no-op
// logger is provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
