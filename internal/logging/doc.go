// Package logging assembles structured slog loggers and formatting helpers used
// across crost.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the file under work, the stage, and the run correlation ID. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Logs go to stderr so they never interleave with command output or the
// interactive prompts on stdout.
package logging
