// Copyedit is a rule-based copy editor for Markdown posts.
//
// It fixes trademark spellings, shouting titles, grammar slips, greeting and
// thanks noise, and punctuation, while leaving code spans, code blocks, URLs
// and links untouched. Every edit is reported with a reason, and the reasons
// are folded into the post's edit summary.
//
// Usage:
//
//	copyedit fix post.md                  # report edits to a post
//	copyedit fix --write posts/*.md       # rewrite posts in place
//	copyedit fix --check --format sarif   # CI gate on a post from stdin
//	copyedit diff old.md new.md           # line diff of two files
//	copyedit rules list                   # show the effective rule table
//	copyedit history list                 # browse recorded edits
package main
