// Package trakt submits resolved titles to the Trakt watch history.
//
// Titles are keyed by IMDb id and posted in one /sync/history request. A dry
// run logs the payload it would have sent and performs no request.
package trakt
