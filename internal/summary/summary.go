package summary

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLength is the longest summary, in runes, that Compose will build.
const MaxLength = 300

// Options tunes Compose.
type Options struct {
	// TrimTerminalOnly drops the existing summary's last character only when
	// it is terminal punctuation. By default the last character is always
	// dropped before appending.
	TrimTerminalOnly bool
}

// Compose appends reasons to an existing summary. Reasons are taken newest
// first until the summary would exceed MaxLength; a reason already present
// (ignoring its first character) is skipped. It reports whether anything was
// added.
func Compose(existing string, reasons []string, opts Options) (string, bool) {
	if len(reasons) == 0 {
		return existing, false
	}

	existingLen := utf8.RuneCountInString(existing)
	var picked []string
	for i := len(reasons) - 1; i >= 0; i-- {
		reason := reasons[i]
		joined := strings.Join(picked, "; ")
		if existingLen+utf8.RuneCountInString(joined)+utf8.RuneCountInString(reason)+2 > MaxLength {
			break
		}
		tail := dropFirst(reason)
		if strings.Contains(existing, tail) || strings.Contains(joined, tail) {
			continue
		}
		if existing == "" && len(picked) == 0 {
			reason = capitalize(reason)
		}
		picked = append(picked, reason)
	}
	if len(picked) == 0 {
		return existing, false
	}

	var b strings.Builder
	if existing != "" {
		b.WriteString(trimLast(existing, opts.TrimTerminalOnly))
		b.WriteString("; ")
	}
	b.WriteString(strings.Join(picked, "; "))
	b.WriteString(".")
	return b.String(), true
}

func dropFirst(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func trimLast(s string, terminalOnly bool) string {
	r, size := utf8.DecodeLastRuneInString(s)
	if terminalOnly && !strings.ContainsRune(".!?;", r) {
		return s
	}
	return s[:len(s)-size]
}
