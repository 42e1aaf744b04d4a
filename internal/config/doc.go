// Package config loads, normalizes, and validates crost configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENSUBTITLES_API_KEY and TRAKT_ACCESS_TOKEN. The Trakt client id can also
// come from a one-line credentials file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enumerations, and clear validation errors.
package config
