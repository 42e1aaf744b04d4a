// Package opensubtitles resolves movie-hash fingerprints to candidate titles
// through the OpenSubtitles REST API.
//
// Requests carry the Api-Key and User-Agent headers the service requires and
// are paced by a token bucket so a batch of files never bursts past the
// documented request rate. Failed requests are returned to the caller as-is;
// the client never retries.
package opensubtitles
