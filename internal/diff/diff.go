package diff

import (
	"errors"
	"fmt"
	"strings"
)

// Tag marks a row as common, added or removed.
type Tag string

const (
	Common  Tag = " "
	Added   Tag = "+"
	Removed Tag = "-"
)

// ErrTooLarge is returned when the LCS table would exceed the cell limit.
var ErrTooLarge = errors.New("diff too large")

// Row is one line of a diff. Line numbers are 1-based; 0 means the line
// does not exist on that side.
type Row struct {
	OldLine int    `json:"oldLine,omitempty"`
	NewLine int    `json:"newLine,omitempty"`
	Tag     Tag    `json:"tag"`
	Text    string `json:"text"`
}

// String renders the row as "<tag> <text>".
func (r Row) String() string {
	return string(r.Tag) + " " + r.Text
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Lines diffs old against new line by line. Within a run of changed lines,
// additions come before removals. maxCells > 0 bounds the size of the
// (n+1)*(m+1) table.
func Lines(old, new string, maxCells int) ([]Row, error) {
	a, b := splitLines(old), splitLines(new)
	n, m := len(a), len(b)
	if maxCells > 0 && (n+1)*(m+1) > maxCells {
		return nil, fmt.Errorf("%w: %dx%d lines exceeds %d cells", ErrTooLarge, n, m, maxCells)
	}

	t := make([][]int, n+1)
	for i := range t {
		t[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				t[i][j] = t[i-1][j-1] + 1
			} else {
				t[i][j] = max(t[i-1][j], t[i][j-1])
			}
		}
	}

	rows := make([]Row, 0, n+m)
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			rows = append(rows, Row{OldLine: i, NewLine: j, Tag: Common, Text: a[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || t[i][j-1] >= t[i-1][j]):
			rows = append(rows, Row{NewLine: j, Tag: Added, Text: b[j-1]})
			j--
		default:
			rows = append(rows, Row{OldLine: i, Tag: Removed, Text: a[i-1]})
			i--
		}
	}
	for l, r := 0, len(rows)-1; l < r; l, r = l+1, r-1 {
		rows[l], rows[r] = rows[r], rows[l]
	}
	return groupChanges(rows), nil
}

// groupChanges reorders each run of changed rows so additions precede
// removals, keeping relative order within each kind.
func groupChanges(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for start := 0; start < len(rows); {
		if rows[start].Tag == Common {
			out = append(out, rows[start])
			start++
			continue
		}
		end := start
		for end < len(rows) && rows[end].Tag != Common {
			end++
		}
		for _, r := range rows[start:end] {
			if r.Tag == Added {
				out = append(out, r)
			}
		}
		for _, r := range rows[start:end] {
			if r.Tag == Removed {
				out = append(out, r)
			}
		}
		start = end
	}
	return out
}

// Stat counts changed lines.
type Stat struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Changed reports whether any line differs.
func (s Stat) Changed() bool {
	return s.Added > 0 || s.Removed > 0
}

// Stats counts the additions and removals in rows.
func Stats(rows []Row) Stat {
	var s Stat
	for _, r := range rows {
		switch r.Tag {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		}
	}
	return s
}

// Unified renders rows one per line.
func Unified(rows []Row) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}
