// Package document defines the post being edited and its on-disk form.
//
// A [Document] carries the three editable fields of a post: title, body and
// edit summary. Posts are stored as Markdown files with optional YAML front
// matter holding the title and summary:
//
//	---
//	title: how do i parse json in js
//	summary: ""
//	---
//	body text...
//
// [Normalize] prepares text read from disk (line endings, Unicode NFC,
// invisible characters) before it reaches the edit pipeline.
package document
