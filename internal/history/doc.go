// Package history keeps a SQLite log of completed edits.
//
// Each fixed document is recorded with its source, the edited title and
// summary, the reasons and fired rules, line counts, and the body before and
// after editing. Entries can be listed, fetched by ID and exported as YAML or
// JSON.
package history
