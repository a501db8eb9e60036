package output

import (
	"io"
	"strings"

	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/pipeline"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *pipeline.Report) error {
	ew := &errWriter{w: w}
	totals := report.Totals

	ew.printf("## Copy Edit Report\n\n")

	ew.printf("| Post | Reasons | Added | Removed |\n")
	ew.printf("|------|---------|-------|---------|\n")
	for _, f := range report.Files {
		if f.Result == nil {
			continue
		}
		ew.printf("| `%s` | %d | %d | %d |\n",
			mdEscape(f.Source), len(f.Result.Reasons), f.Result.Stat.Added, f.Result.Stat.Removed)
	}
	ew.printf("| **Total** | **%d** | **%d** | **%d** |\n\n", totals.Reasons, totals.Added, totals.Removed)

	if totals.Changed == 0 {
		ew.println("Nothing to edit. :white_check_mark:")
		return ew.err
	}

	for _, f := range report.Files {
		r := f.Result
		if r == nil || !r.Changed() {
			continue
		}
		ew.printf("<details>\n<summary><code>%s</code> (%d reasons)</summary>\n\n", f.Source, len(r.Reasons))

		if r.Document.Title != r.Original.Title {
			ew.printf("**Title:** %s\n\n", r.Document.Title)
		}
		if r.Document.Summary != "" {
			ew.printf("**Summary:** %s\n\n", r.Document.Summary)
		}
		for _, reason := range r.Reasons {
			ew.printf("- %s\n", reason)
		}
		if len(r.Reasons) > 0 {
			ew.println("")
		}

		switch {
		case r.DiffError != "":
			ew.printf("> Diff unavailable: %s\n\n", r.DiffError)
		case r.Stat.Changed():
			ew.printf("```diff\n%s```\n\n", diff.Unified(r.Rows))
		}

		ew.printf("</details>\n\n")
	}

	ew.printf("*Edited in %dms*\n", report.Timing.TotalMs)
	return ew.err
}

// mdEscape keeps a value from breaking a table cell.
func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "`", "'").Replace(s)
}
