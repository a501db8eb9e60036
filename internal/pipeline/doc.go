// Package pipeline runs the full copy-edit pass over a document.
//
// A [Fixer] masks code, quotes and links out of the body, normalizes
// multi-line backtick spans into indented code, applies the rule table to
// body and title, restores the masked spans, composes the edit summary from
// the logged reasons and finally diffs the old body against the new one.
//
// Every run gets its own [RunContext] holding the masked spans and reason
// log, so one Fixer can serve many goroutines. [Fixer.RunAll] processes a
// batch of documents with bounded concurrency. Results can be cached by
// content and table fingerprint.
package pipeline
