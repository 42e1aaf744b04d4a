// Command crost identifies video files by content hash and adds them to the
// Trakt watch history.
//
// Subcommands cover the full scrobble pipeline, standalone hashing, lookups
// without reporting, configuration management, and a notification test.
// Logs go to stderr; command output goes to stdout as plain text, a table,
// JSON, or YAML.
package main
