// Package services defines shared utilities consumed by the scrobble pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the file under work, the pipeline stage, and
//     the run correlation identifier for logging.
//   - Structured error markers plus the Wrap helper so the CLI can classify a
//     failure and print an actionable hint.
package services
