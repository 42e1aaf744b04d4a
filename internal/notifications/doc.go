// Package notifications delivers run events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Callers treat
// delivery failures as warnings; a notification never fails a run.
package notifications
