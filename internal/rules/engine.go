package rules

import (
	"context"
	"fmt"

	"github.com/dshills/copyedit/internal/document"
)

// Log records what fired during one run: reasons in firing order and the
// IDs of the rules that produced them. Each rule contributes at most once.
type Log struct {
	Reasons []string `json:"reasons"`
	Fired   []string `json:"fired"`

	seen map[string]bool
}

// Add records a reason for rule id. It reports false when id already has one.
func (l *Log) Add(id, reason string) bool {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[id] {
		return false
	}
	l.seen[id] = true
	l.Reasons = append(l.Reasons, reason)
	l.Fired = append(l.Fired, id)
	return true
}

// Has reports whether rule id fired.
func (l *Log) Has(id string) bool {
	return l.seen[id]
}

// Len returns the number of recorded reasons.
func (l *Log) Len() int {
	return len(l.Reasons)
}

// Engine applies a table to documents.
type Engine struct {
	Table *Table
	// Flash, when set, is called once at the start of every Apply.
	Flash func()
}

// NewEngine returns an engine over t.
func NewEngine(t *Table) *Engine {
	return &Engine{Table: t}
}

// Apply runs every rule in table order, body first and then title, and
// returns the edited document. A rule's reason is logged once even when it
// fixes both fields.
func (e *Engine) Apply(ctx context.Context, doc document.Document, log *Log) (document.Document, error) {
	if e.Flash != nil {
		e.Flash()
	}
	for _, r := range e.Table.rules {
		if err := ctx.Err(); err != nil {
			return doc, err
		}

		fix, fired, err := r.Apply(doc.Body)
		if err != nil {
			return doc, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if fired {
			doc.Body = fix.Text
			log.Add(r.ID, fix.Reason)
		}

		fix, fired, err = r.Apply(doc.Title)
		if err != nil {
			return doc, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if fired {
			doc.Title = fix.Text
			log.Add(r.ID, fix.Reason)
		}
	}
	return doc, nil
}
