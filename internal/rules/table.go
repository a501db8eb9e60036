package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Rule groups of the default table.
const (
	GroupCase        = "case"
	GroupTrademark   = "trademark"
	GroupNoise       = "noise"
	GroupGrammar     = "grammar"
	GroupPunctuation = "punctuation"
	GroupPack        = "pack"
)

var (
	// ErrDuplicateID is returned when two rules in a table share an ID.
	ErrDuplicateID = errors.New("duplicate rule id")
	// ErrUnknownRule is returned when an ID names no rule in the table.
	ErrUnknownRule = errors.New("unknown rule id")
)

// Table is an ordered, immutable set of rules. Order is application order
// and reason order.
type Table struct {
	rules   []Rule
	index   map[string]int
	timeout time.Duration
}

// NewTable builds a table from rules in the given order.
func NewTable(rules ...Rule) (*Table, error) {
	t := &Table{
		rules: make([]Rule, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	copy(t.rules, rules)
	for i, r := range t.rules {
		if _, dup := t.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		t.index[r.ID] = i
	}
	return t, nil
}

// Rules returns the rules in order.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// Lookup returns the rule with the given ID.
func (t *Table) Lookup(id string) (Rule, bool) {
	i, ok := t.index[id]
	if !ok {
		return Rule{}, false
	}
	return t.rules[i], true
}

// Without returns a table with the named rules removed.
func (t *Table) Without(ids ...string) (*Table, error) {
	if len(ids) == 0 {
		return t, nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.index[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
		}
		drop[id] = true
	}
	kept := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	return t.derive(kept)
}

// derive builds a table from rules that keeps t's match timeout.
func (t *Table) derive(rules []Rule) (*Table, error) {
	out, err := NewTable(rules...)
	if err != nil {
		return nil, err
	}
	out.timeout = t.timeout
	return out, nil
}

// With returns a table with the pack applied: its disabled rules removed,
// then its rules inserted. A pack rule goes ahead of the rule named by
// Before, or ahead of the punctuation group when Before is empty.
func (t *Table) With(p *Pack) (*Table, error) {
	if p == nil {
		return t, nil
	}
	base, err := t.Without(p.Disable...)
	if err != nil {
		return nil, err
	}
	rules := base.Rules()
	for _, pr := range p.Rules {
		r, err := pr.compile()
		if err != nil {
			return nil, err
		}
		at := len(rules)
		if pr.Before != "" {
			at = -1
			for i, existing := range rules {
				if existing.ID == pr.Before {
					at = i
					break
				}
			}
			if at < 0 {
				return nil, fmt.Errorf("rule %s: before %w: %s", pr.ID, ErrUnknownRule, pr.Before)
			}
		} else {
			for i, existing := range rules {
				if existing.Group == GroupPunctuation {
					at = i
					break
				}
			}
		}
		rules = append(rules[:at], append([]Rule{r}, rules[at:]...)...)
	}
	return t.derive(rules)
}

// WithMatchTimeout returns a table whose patterns give up after d per match
// attempt. d <= 0 disables the limit. Patterns are recompiled so the
// receiver is not affected.
func (t *Table) WithMatchTimeout(d time.Duration) *Table {
	rules := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		rules[i] = r.withTimeout(d)
	}
	out, err := NewTable(rules...)
	if err != nil {
		// IDs were already unique in t.
		panic(err)
	}
	if d > 0 {
		out.timeout = d
	}
	return out
}

// MatchTimeout returns the limit set by [Table.WithMatchTimeout], or zero.
// Tables derived with Without and With keep it; rules added by a pack only
// get it once WithMatchTimeout is applied again.
func (t *Table) MatchTimeout() time.Duration {
	return t.timeout
}

// Fingerprint identifies the table's content. Transform rules are
// identified by ID alone.
func (t *Table) Fingerprint() string {
	h := sha256.New()
	for _, r := range t.rules {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s\n",
			r.ID, r.Group, r.expr, formatFlags(r.flags),
			fingerprintOf(r.Replacement), fingerprintOf(r.Reason))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func fingerprintOf(r Replacement) string {
	if r.IsLiteral() {
		return "literal:" + r.template
	}
	return "transform"
}

// Description is a printable view of one rule.
type Description struct {
	ID          string `json:"id" yaml:"id"`
	Group       string `json:"group" yaml:"group"`
	Pattern     string `json:"pattern" yaml:"pattern"`
	Flags       string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Reason      string `json:"reason" yaml:"reason"`
}

// Describe lists the rules of t in order.
func Describe(t *Table) []Description {
	out := make([]Description, 0, t.Len())
	for _, r := range t.rules {
		out = append(out, Description{
			ID:          r.ID,
			Group:       r.Group,
			Pattern:     r.expr,
			Flags:       formatFlags(r.flags),
			Replacement: r.Replacement.String(),
			Reason:      r.Reason.String(),
		})
	}
	return out
}
