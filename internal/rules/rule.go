package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Captures holds one match: index 0 is the whole match, index N is capture
// group N. Groups that did not participate are empty.
type Captures []string

// Group returns capture n, or "" when it does not exist.
func (c Captures) Group(n int) string {
	if n < 0 || n >= len(c) {
		return ""
	}
	return c[n]
}

// Replacement produces text from a match. It is either a literal template
// or a transform function; the zero value expands to "".
type Replacement struct {
	template  string
	transform func(Captures) string
}

// Literal returns a template replacement. "$N" expands to capture group N and
// "$$" to a single "$".
func Literal(template string) Replacement {
	return Replacement{template: template}
}

// Transform returns a replacement computed by fn.
func Transform(fn func(Captures) string) Replacement {
	return Replacement{transform: fn}
}

// IsLiteral reports whether r is a template.
func (r Replacement) IsLiteral() bool {
	return r.transform == nil
}

// String returns the template, or "(transform)" for functions.
func (r Replacement) String() string {
	if r.transform != nil {
		return "(transform)"
	}
	return r.template
}

// Expand renders r against c.
func (r Replacement) Expand(c Captures) string {
	if r.transform != nil {
		return r.transform(c)
	}
	return expand(r.template, c)
}

func expand(template string, c Captures) string {
	if !strings.Contains(template, "$") {
		return template
	}
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		ch := template[i]
		if ch != '$' || i+1 == len(template) {
			b.WriteByte(ch)
			continue
		}
		next := template[i+1]
		if next == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		if next < '0' || next > '9' {
			b.WriteByte(ch)
			continue
		}
		// Two digits win when that group exists, otherwise one digit.
		n := int(next - '0')
		width := 1
		if i+2 < len(template) && template[i+2] >= '0' && template[i+2] <= '9' {
			if two, _ := strconv.Atoi(template[i+1 : i+3]); two < len(c) {
				n, width = two, 2
			}
		}
		b.WriteString(c.Group(n))
		i += width
	}
	return b.String()
}

// Fix is the outcome of a fired rule on one field.
type Fix struct {
	Text   string
	Reason string
}

// Rule is one correction: a pattern, what to replace each match with, and the
// reason recorded in the edit summary.
type Rule struct {
	ID          string
	Group       string
	Pattern     *regexp2.Regexp
	Replacement Replacement
	Reason      Replacement

	expr  string
	flags regexp2.RegexOptions
}

// NewRule compiles expr and returns the rule.
func NewRule(id, group, expr string, flags regexp2.RegexOptions, repl, reason Replacement) (Rule, error) {
	if id == "" {
		return Rule{}, fmt.Errorf("rule has no id")
	}
	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rule %s: %w", id, err)
	}
	return Rule{
		ID:          id,
		Group:       group,
		Pattern:     re,
		Replacement: repl,
		Reason:      reason,
		expr:        expr,
		flags:       flags,
	}, nil
}

func mustRule(id, group, expr string, flags regexp2.RegexOptions, repl, reason Replacement) Rule {
	r, err := NewRule(id, group, expr, flags, repl, reason)
	if err != nil {
		panic(err)
	}
	return r
}

// Expr returns the pattern source.
func (r Rule) Expr() string {
	return r.expr
}

// Flags returns the pattern options in "imsx" letter form.
func (r Rule) Flags() string {
	return formatFlags(r.flags)
}

// withTimeout returns a copy of r with its own compiled pattern.
func (r Rule) withTimeout(d time.Duration) Rule {
	re := regexp2.MustCompile(r.expr, r.flags)
	if d > 0 {
		re.MatchTimeout = d
	}
	r.Pattern = re
	return r
}

// Apply runs r over text. The rule fires when the global substitution
// changes the text; the fixed text is trimmed and the reason is expanded
// against the first match only.
func (r Rule) Apply(text string) (Fix, bool, error) {
	if text == "" {
		return Fix{}, false, nil
	}
	first, err := r.Pattern.FindStringMatch(text)
	if err != nil {
		return Fix{}, false, err
	}
	if first == nil {
		return Fix{}, false, nil
	}
	out, err := r.Pattern.ReplaceFunc(text, func(m regexp2.Match) string {
		return r.Replacement.Expand(capturesOf(&m))
	}, -1, -1)
	if err != nil {
		return Fix{}, false, err
	}
	if out == text {
		return Fix{}, false, nil
	}
	return Fix{
		Text:   strings.TrimSpace(out),
		Reason: r.Reason.Expand(capturesOf(first)),
	}, true, nil
}

func capturesOf(m *regexp2.Match) Captures {
	groups := m.Groups()
	c := make(Captures, len(groups))
	for i, g := range groups {
		if len(g.Captures) > 0 {
			c[i] = g.String()
		}
	}
	return c
}

// ParseFlags converts letters i, m, s and x to pattern options.
func ParseFlags(s string) (regexp2.RegexOptions, error) {
	var opts regexp2.RegexOptions
	for _, ch := range s {
		switch ch {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		default:
			return 0, fmt.Errorf("unknown pattern flag %q", ch)
		}
	}
	return opts, nil
}

func formatFlags(opts regexp2.RegexOptions) string {
	var b strings.Builder
	if opts&regexp2.IgnoreCase != 0 {
		b.WriteByte('i')
	}
	if opts&regexp2.Multiline != 0 {
		b.WriteByte('m')
	}
	if opts&regexp2.Singleline != 0 {
		b.WriteByte('s')
	}
	if opts&regexp2.IgnorePatternWhitespace != 0 {
		b.WriteByte('x')
	}
	return b.String()
}
