// Package moviehash computes the OpenSubtitles-compatible 64-bit content
// fingerprint for video files.
//
// The fingerprint is the wrapping sum of every little-endian 64-bit word in
// the first and last 64 KiB of a file, plus the file length. Files shorter
// than two chunks are rejected with ErrTooSmallInput; truncated or failing
// reads surface as ErrShortRead. Neither case ever yields a partial value.
//
// HashFiles fans hashing out over a bounded worker pool. Each file is still
// read sequentially through its own handle.
package moviehash
