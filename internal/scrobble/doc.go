// Package scrobble sequences a run: hash the input files, look the distinct
// fingerprints up, resolve each file to a title, report the titles, then apply
// the post-report disposition to files that were reported.
//
// A run holds an exclusive lock in the state directory so two runs never
// report or move the same files at once. Remote calls and prompts are strictly
// sequential; only hashing fans out across workers.
package scrobble
