package mask

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// ErrInvalidUTF8 is returned for a body that is not valid UTF-8. Patterns
// match runes, so such a body could not be restored byte for byte.
var ErrInvalidUTF8 = errors.New("body is not valid UTF-8")

// Category names a kind of protected span.
type Category string

const (
	Auto   Category = "auto"
	Quote  Category = "quote"
	Inline Category = "inline"
	Block  Category = "block"
	Links  Category = "links"
	// Tags is reserved. Its token is kept so no rule ever produces it, but
	// nothing is masked under it.
	Tags Category = "tags"
)

// Order is the masking order. Unmasking walks it backwards.
var Order = []Category{Auto, Quote, Inline, Block, Links}

var placeholders = map[Category]string{
	Auto:   "_xAutoxInsertxTextxPlacexHolder_",
	Quote:  "_xBlockxQuotexPlacexHolderx_",
	Inline: "_xCodexInlinexPlacexHolderx_",
	Block:  "_xCodexBlockxPlacexHolderx_",
	Links:  "_xLinkxPlacexHolderx_",
	Tags:   "_xTagxPlacexHolderx_",
}

// Placeholder returns the sentinel token for c.
func Placeholder(c Category) string {
	return placeholders[c]
}

// expressions are the span detectors, one per active category.
var expressions = map[Category]struct {
	expr  string
	flags regexp2.RegexOptions
}{
	// Everything up to the marker the site appends after its own boilerplate.
	Auto: {`[\s\S]*<!-- End of automatically inserted text -->`, regexp2.None},
	// A quote line through the end of its paragraph.
	Quote:  {`^>(?:(?!\n\n)[\s\S])+`, regexp2.Multiline},
	Inline: {"`[^`\\n]+`", regexp2.None},
	// Fenced blocks, multi-line backtick spans, indented blocks.
	Block: {
		"^[ ]{0,3}(`{3,}|~{3,})[^\\n]*\\n[\\s\\S]*?^[ ]{0,3}\\1[ \\t]*$" +
			"|`[^`]+`" +
			"|^(?:[ ]{4}|[ ]{0,3}\\t).+(?:\\n(?:[ \\t]*\\n)*(?:[ ]{4}|[ ]{0,3}\\t).+)*",
		regexp2.Multiline,
	},
	// Inline and reference links, runs of reference definitions (the final
	// newline stays outside the span), then bare URL, path and extension
	// tokens (".net" is prose, not a path).
	Links: {
		`\[[^\]\n]+\](?:\([^)\n]+\)|\[[^\]\n]+\])` +
			`|^[ ]{0,3}\[[^\]\n]+\]:[ \t]*\S+.*(?:\n[ ]{0,3}\[[^\]\n]+\]:[ \t]*\S+.*)*` +
			`|(?!(?i:\.net)\b)(?:/\w+|\w:\\|\.[^ \n\r.]+|\w+://)[^\s)]*`,
		regexp2.Multiline,
	},
}

// Masker masks and unmasks bodies with its own compiled patterns. It is safe
// for concurrent use.
type Masker struct {
	patterns map[Category]*regexp2.Regexp
	// tokens find placeholders during unmasking. Matching ignores case so a
	// rule that changed a token's case cannot orphan it.
	tokens map[Category]*regexp2.Regexp
}

// NewMasker compiles the span patterns. A positive timeout bounds every
// match attempt, like the rule table's match timeout.
func NewMasker(timeout time.Duration) *Masker {
	m := &Masker{
		patterns: make(map[Category]*regexp2.Regexp, len(expressions)),
		tokens:   make(map[Category]*regexp2.Regexp, len(placeholders)),
	}
	for c, e := range expressions {
		m.patterns[c] = compile(e.expr, e.flags, timeout)
	}
	for c, tok := range placeholders {
		m.tokens[c] = compile(regexp2.Escape(tok), regexp2.IgnoreCase, timeout)
	}
	return m
}

func compile(expr string, flags regexp2.RegexOptions, timeout time.Duration) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, flags)
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re
}

var defaultMasker = NewMasker(0)

// Mask masks body with patterns that have no match timeout.
func Mask(body string, spans *Spans) (string, bool, error) {
	return defaultMasker.Mask(body, spans)
}

// Unmask restores body with patterns that have no match timeout.
func Unmask(body string, spans *Spans) (string, bool, error) {
	return defaultMasker.Unmask(body, spans)
}

// Mask replaces every protected span in body with its category placeholder,
// recording the removed text in spans. It reports whether anything was masked.
func (mk *Masker) Mask(body string, spans *Spans) (string, bool, error) {
	if body == "" {
		return body, false, nil
	}
	if !utf8.ValidString(body) {
		return body, false, ErrInvalidUTF8
	}
	changed := false
	for _, c := range Order {
		out, err := mk.patterns[c].ReplaceFunc(body, func(m regexp2.Match) string {
			spans.push(c, m.String())
			return placeholders[c]
		}, -1, -1)
		if err != nil {
			return body, changed, fmt.Errorf("masking %s spans: %w", c, err)
		}
		if out != body {
			changed = true
		}
		body = out
	}
	return body, changed, nil
}

// Unmask restores masked spans, consuming each category's entries in the
// order they were recorded. Placeholders with no entry left are kept as-is.
func (mk *Masker) Unmask(body string, spans *Spans) (string, bool, error) {
	if body == "" {
		return body, false, nil
	}
	changed := false
	for i := len(Order) - 1; i >= 0; i-- {
		c := Order[i]
		if spans.Len(c) == 0 {
			continue
		}
		out, err := mk.tokens[c].ReplaceFunc(body, func(m regexp2.Match) string {
			if s, ok := spans.pop(c); ok {
				return s
			}
			return m.String()
		}, -1, -1)
		if err != nil {
			return body, changed, fmt.Errorf("unmasking %s spans: %w", c, err)
		}
		if out != body {
			changed = true
		}
		body = out
	}
	return body, changed, nil
}
