package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/pipeline"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	// Color styles headers and diff rows with ANSI sequences.
	Color bool
}

type textStyles struct {
	header  lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	muted   lipgloss.Style
}

func newTextStyles(color bool) textStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return textStyles{header: plain, added: plain, removed: plain, muted: plain}
	}
	return textStyles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		added:   lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		removed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

func (t *TextWriter) Write(w io.Writer, report *pipeline.Report) error {
	ew := &errWriter{w: w}
	st := newTextStyles(t.Color)
	totals := report.Totals

	ew.println(st.header.Render("Copy Edit Report"))
	ew.println(strings.Repeat("─", 60))
	ew.printf("Posts: %d total, %d changed", totals.Files, totals.Changed)
	if totals.Reasons > 0 {
		ew.printf(" (%d reasons, +%d -%d lines)", totals.Reasons, totals.Added, totals.Removed)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if totals.Changed == 0 {
		ew.println("\nNothing to edit. Looks good!")
		return ew.err
	}

	for _, f := range report.Files {
		r := f.Result
		if r == nil || !r.Changed() {
			continue
		}
		label := f.Source
		if r.Cached {
			label += " (cached)"
		}
		ew.printf("\n%s\n", st.header.Render(label))
		ew.println(strings.Repeat("─", 40))

		if r.Document.Title != r.Original.Title {
			ew.printf("  Title:   %q -> %q\n", r.Original.Title, r.Document.Title)
		}
		if r.Document.Summary != "" {
			ew.printf("  Summary: %s\n", r.Document.Summary)
		}
		if len(r.Reasons) > 0 {
			ew.println("  Reasons:")
			for _, reason := range r.Reasons {
				for i, line := range wrapText(reason, 70) {
					if i == 0 {
						ew.printf("    - %s\n", line)
					} else {
						ew.printf("      %s\n", line)
					}
				}
			}
		}
		if r.Pending > 0 {
			ew.printf("  Warning: %d protected spans could not be restored\n", r.Pending)
		}

		switch {
		case r.DiffError != "":
			ew.printf("  Diff unavailable: %s\n", r.DiffError)
		case r.Stat.Changed():
			ew.printf("  Diff (+%d -%d):\n", r.Stat.Added, r.Stat.Removed)
			for _, row := range r.Rows {
				if row.Tag == diff.Common {
					continue
				}
				ew.printf("    %s %s\n", st.muted.Render(fmt.Sprintf("%4d", rowLine(row))), styleRow(st, row))
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms\n", report.Timing.TotalMs)

	return ew.err
}

// rowLine is the line number a changed row refers to on its own side.
func rowLine(row diff.Row) int {
	if row.Tag == diff.Removed {
		return row.OldLine
	}
	return row.NewLine
}

func styleRow(st textStyles, row diff.Row) string {
	switch row.Tag {
	case diff.Added:
		return st.added.Render(row.String())
	case diff.Removed:
		return st.removed.Render(row.String())
	default:
		return row.String()
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
