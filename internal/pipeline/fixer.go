package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/copyedit/internal/cache"
	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/document"
	"github.com/dshills/copyedit/internal/logging"
	"github.com/dshills/copyedit/internal/mask"
	"github.com/dshills/copyedit/internal/rules"
	"github.com/dshills/copyedit/internal/summary"
)

// DefaultMaxDiffCells bounds the diff table when no limit is configured.
const DefaultMaxDiffCells = 4_000_000

// RunContext is the state of exactly one run.
type RunContext struct {
	Spans mask.Spans
	Log   rules.Log
}

// Cache stores serialized results by key.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}

// Fixer applies a rule table to documents. It is safe for concurrent use.
type Fixer struct {
	engine       *rules.Engine
	masker       *mask.Masker
	logger       logging.Logger
	summaryOpts  summary.Options
	maxDiffCells int
	normalize    bool
	cache        Cache
}

// Option configures a Fixer.
type Option func(*Fixer)

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Fixer) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFlash sets a hook called once at the start of every run's rule pass.
func WithFlash(fn func()) Option {
	return func(f *Fixer) { f.engine.Flash = fn }
}

// WithSummaryOptions sets how the edit summary is composed.
func WithSummaryOptions(opts summary.Options) Option {
	return func(f *Fixer) { f.summaryOpts = opts }
}

// WithMaxDiffCells bounds the diff table. n <= 0 removes the bound.
func WithMaxDiffCells(n int) Option {
	return func(f *Fixer) { f.maxDiffCells = n }
}

// WithNormalize normalizes and trims documents before editing.
func WithNormalize(on bool) Option {
	return func(f *Fixer) { f.normalize = on }
}

// WithCache serves repeated documents from c.
func WithCache(c Cache) Option {
	return func(f *Fixer) { f.cache = c }
}

// New returns a Fixer over table.
func New(table *rules.Table, opts ...Option) *Fixer {
	f := &Fixer{
		engine:       rules.NewEngine(table),
		masker:       mask.NewMasker(table.MatchTimeout()),
		logger:       logging.Nop(),
		maxDiffCells: DefaultMaxDiffCells,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run edits doc. Text that is not valid UTF-8 is rejected with
// [document.ErrInvalidUTF8]. A rule error aborts the run; a diff error is
// recorded on the result.
func (f *Fixer) Run(ctx context.Context, doc document.Document) (*Result, error) {
	start := time.Now()
	if f.normalize {
		doc = document.NormalizeAll(doc)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var key string
	if f.cache != nil {
		key = f.cacheKey(doc)
		if res, ok := f.lookup(key); ok {
			f.logger.Debug("Cache hit", "key", key[:12])
			return res, nil
		}
	}

	var rc RunContext
	res, err := f.run(ctx, &rc, doc)
	if err != nil {
		return nil, err
	}
	res.Timing.TotalMs = time.Since(start).Milliseconds()

	if f.cache != nil {
		f.store(key, res)
	}
	return res, nil
}

func (f *Fixer) run(ctx context.Context, rc *RunContext, doc document.Document) (*Result, error) {
	edited := doc

	masked, _, err := f.masker.Mask(doc.Body, &rc.Spans)
	if err != nil {
		return nil, err
	}
	edited.Body = masked

	if n := mask.NormalizeCodeBlocks(&rc.Spans); n > 0 {
		f.logger.Debug("Normalized code blocks", "count", n)
	}

	rulesStart := time.Now()
	edited, err = f.engine.Apply(ctx, edited, &rc.Log)
	if err != nil {
		return nil, err
	}
	rulesMs := time.Since(rulesStart).Milliseconds()

	edited.Body, _, err = f.masker.Unmask(edited.Body, &rc.Spans)
	if err != nil {
		return nil, err
	}
	pending := rc.Spans.Pending()
	if pending > 0 {
		f.logger.Warn("Masked spans were not restored", "pending", pending)
	}

	edited.Summary, _ = summary.Compose(doc.Summary, rc.Log.Reasons, f.summaryOpts)

	res := &Result{
		Original: doc,
		Document: edited,
		Reasons:  rc.Log.Reasons,
		Fired:    rc.Log.Fired,
		Pending:  pending,
		Timing:   Timing{RulesMs: rulesMs},
	}
	rows, err := diff.Lines(doc.Body, edited.Body, f.maxDiffCells)
	if err != nil {
		f.logger.Warn("Diff skipped", "error", err)
		res.DiffErr = err
		res.DiffError = err.Error()
	} else {
		res.Rows = rows
		res.Stat = diff.Stats(rows)
	}
	return res, nil
}

// RunAll edits inputs with at most workers runs in flight (unbounded when
// workers <= 0). Results keep input order. The first error cancels the rest.
func (f *Fixer) RunAll(ctx context.Context, inputs []Input, workers int) ([]FileResult, error) {
	results := make([]FileResult, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, in := range inputs {
		g.Go(func() error {
			res, err := f.Run(ctx, in.Document)
			if err != nil {
				return fmt.Errorf("%s: %w", in.Source, err)
			}
			results[i] = FileResult{Source: in.Source, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fixer) cacheKey(doc document.Document) string {
	return cache.BuildCacheKey(
		f.engine.Table.Fingerprint(),
		strconv.FormatBool(f.summaryOpts.TrimTerminalOnly),
		strconv.Itoa(f.maxDiffCells),
		doc.Title, doc.Body, doc.Summary,
	)
}

func (f *Fixer) lookup(key string) (*Result, bool) {
	raw, ok := f.cache.Get(key)
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		f.logger.Warn("Discarding unreadable cache entry", "error", err)
		return nil, false
	}
	if res.DiffError != "" {
		res.DiffErr = errors.New(res.DiffError)
	}
	res.Cached = true
	return &res, true
}

func (f *Fixer) store(key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		f.logger.Warn("Failed to encode result for cache", "error", err)
		return
	}
	if err := f.cache.Put(key, string(data)); err != nil {
		f.logger.Warn("Failed to write cache", "error", err)
	}
}
