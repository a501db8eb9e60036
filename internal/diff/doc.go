// Package diff computes a line diff between two texts using a longest
// common subsequence table.
package diff
