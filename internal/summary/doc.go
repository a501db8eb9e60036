// Package summary composes the edit summary from the reasons logged during
// a run.
package summary
