// Package media defines the title records exchanged between the lookup,
// identification, and reporting layers.
package media
