// Package output renders copy-edit reports.
//
// Five formats are supported:
//   - text     human-readable terminal output with an optional coloured diff (default)
//   - json     full structured JSON report
//   - markdown summary table plus a fenced diff per post
//   - sarif    SARIF v2.1.0, one result per fired rule per post
//   - post     the edited posts themselves, in front-matter form
//
// Use [GetWriter] to obtain a [Writer] for a format string, then call
// [Writer.Write] with an [io.Writer] and a [*pipeline.Report]. [WriteReport]
// handles destination selection.
package output
