package mask

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Spans holds the text cut out of one body, per category, in the order it was
// found. The zero value is ready to use.
type Spans struct {
	entries map[Category][]string
}

func (s *Spans) push(c Category, text string) {
	if s.entries == nil {
		s.entries = make(map[Category][]string)
	}
	s.entries[c] = append(s.entries[c], text)
}

// pop removes and returns the oldest entry of c.
func (s *Spans) pop(c Category) (string, bool) {
	q := s.entries[c]
	if len(q) == 0 {
		return "", false
	}
	s.entries[c] = q[1:]
	return q[0], true
}

// Len returns the number of unconsumed entries of c.
func (s *Spans) Len(c Category) int {
	return len(s.entries[c])
}

// Strings returns a copy of the unconsumed entries of c.
func (s *Spans) Strings(c Category) []string {
	return append([]string(nil), s.entries[c]...)
}

// Pending returns the total number of entries not yet restored. After a
// clean unmask it is zero; anything else means placeholders were lost.
func (s *Spans) Pending() int {
	n := 0
	for _, q := range s.entries {
		n += len(q)
	}
	return n
}

// Reset drops all entries.
func (s *Spans) Reset() {
	s.entries = nil
}

// backtickSpan matches a block entry that is one single-backtick span.
var backtickSpan = regexp2.MustCompile("^`[^`]+`$", regexp2.None)

// NormalizeCodeBlocks rewrites block entries that were captured as multi-line
// backtick spans into indented code: the backticks are dropped and every
// non-empty line is indented by four spaces. It returns how many entries
// changed.
func NormalizeCodeBlocks(spans *Spans) int {
	q := spans.entries[Block]
	n := 0
	for i, entry := range q {
		if ok, _ := backtickSpan.MatchString(entry); !ok {
			continue
		}
		q[i] = indent(entry[1 : len(entry)-1])
		n++
	}
	return n
}

func indent(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "    " + line
		}
	}
	return strings.Join(lines, "\n")
}
