package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Document is the unit of work for one pipeline run.
type Document struct {
	Title   string `json:"title" yaml:"title"`
	Body    string `json:"body" yaml:"-"`
	Summary string `json:"summary" yaml:"summary"`
}

// frontMatter is the YAML header of a post file.
type frontMatter struct {
	Title   string `yaml:"title,omitempty"`
	Summary string `yaml:"summary,omitempty"`
}

const delimiter = "---"

// IsEmpty reports whether all three fields are empty.
func (d Document) IsEmpty() bool {
	return d.Title == "" && d.Body == "" && d.Summary == ""
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (d Document) Trimmed() Document {
	return Document{
		Title:   strings.TrimSpace(d.Title),
		Body:    strings.TrimSpace(d.Body),
		Summary: strings.TrimSpace(d.Summary),
	}
}

// ErrInvalidUTF8 is returned by [Document.Validate] for a field holding bytes
// that are not UTF-8, such as a Latin-1 post. Editing would replace them.
var ErrInvalidUTF8 = errors.New("not valid UTF-8")

// Validate reports the first field that is not valid UTF-8.
func (d Document) Validate() error {
	for _, f := range []struct{ name, text string }{
		{"title", d.Title}, {"body", d.Body}, {"summary", d.Summary},
	} {
		if !utf8.ValidString(f.text) {
			return fmt.Errorf("%s: %w", f.name, ErrInvalidUTF8)
		}
	}
	return nil
}

// Parse reads a post file. Front matter is optional; without it the whole
// input is the body.
func Parse(data []byte) (Document, error) {
	text := string(data)
	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, "\r ") != delimiter {
		return Document{Body: text}, nil
	}

	header, body, found := cutFrontMatter(rest)
	if !found {
		return Document{}, fmt.Errorf("parsing front matter: missing closing %q", delimiter)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Document{}, fmt.Errorf("parsing front matter: %w", err)
	}
	return Document{Title: fm.Title, Summary: fm.Summary, Body: body}, nil
}

// cutFrontMatter splits s at the first line consisting of the delimiter.
func cutFrontMatter(s string) (header, body string, found bool) {
	offset := 0
	for offset <= len(s) {
		line, _, _ := strings.Cut(s[offset:], "\n")
		if strings.TrimRight(line, "\r ") == delimiter {
			header = s[:offset]
			body = s[offset+len(line):]
			body = strings.TrimPrefix(body, "\n")
			return header, body, true
		}
		next := strings.IndexByte(s[offset:], '\n')
		if next < 0 {
			break
		}
		offset += next + 1
	}
	return "", "", false
}

// Format renders d as a post file. Front matter is written only when the
// title or summary is set.
func Format(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if d.Title != "" || d.Summary != "" {
		header, err := yaml.Marshal(frontMatter{Title: d.Title, Summary: d.Summary})
		if err != nil {
			return nil, fmt.Errorf("marshaling front matter: %w", err)
		}
		buf.WriteString(delimiter + "\n")
		buf.Write(header)
		buf.WriteString(delimiter + "\n")
	}
	buf.WriteString(d.Body)
	if d.Body != "" && !strings.HasSuffix(d.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// invisible matches characters that only ever appear in pasted text by
// accident: byte order marks, zero-width spaces and non-joiners.
var invisible = runes.Predicate(func(r rune) bool {
	switch r {
	case '\ufeff', '\u200b', '\u200c':
		return true
	}
	return false
})

// Normalize converts line endings to LF, composes to NFC and strips
// invisible characters. Text that is not valid UTF-8 is returned unchanged
// for [Document.Validate] to reject; the transforms would replace it.
func Normalize(s string) string {
	if !utf8.ValidString(s) {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	t := transform.Chain(norm.NFC, runes.Remove(invisible))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeAll applies [Normalize] to every field and trims them.
func NormalizeAll(d Document) Document {
	return Document{
		Title:   Normalize(d.Title),
		Body:    Normalize(d.Body),
		Summary: Normalize(d.Summary),
	}.Trimmed()
}
