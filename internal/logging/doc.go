// Package logging provides the diagnostic logger used across copyedit.
//
// Diagnostics go to stderr so they never mix with fixed output on stdout.
// When verbose logging is off, [New] returns a logger that discards
// everything.
package logging
