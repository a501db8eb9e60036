package pipeline

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/document"
)

// Timing contains performance metrics.
type Timing struct {
	RulesMs int64 `json:"rulesMs"`
	TotalMs int64 `json:"totalMs"`
}

// Result is the outcome of one run.
type Result struct {
	Original document.Document `json:"original"`
	Document document.Document `json:"document"`
	Reasons  []string          `json:"reasons"`
	Fired    []string          `json:"fired"`
	Rows     []diff.Row        `json:"diff,omitempty"`
	Stat     diff.Stat         `json:"stat"`
	// DiffErr is set when the diff could not be computed; the edited
	// document is still valid.
	DiffErr   error  `json:"-"`
	DiffError string `json:"diffError,omitempty"`
	// Pending counts masked spans that could not be restored.
	Pending int    `json:"pending,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
	Timing  Timing `json:"timing"`
}

// Changed reports whether the run altered any field.
func (r *Result) Changed() bool {
	return len(r.Fired) > 0 || r.Document != r.Original
}

// Input is one document to process in a batch.
type Input struct {
	Source   string
	Document document.Document
}

// FileResult pairs a result with the input it came from.
type FileResult struct {
	Source string  `json:"source"`
	Result *Result `json:"result"`
}

// Totals summarizes a batch.
type Totals struct {
	Files   int `json:"files"`
	Changed int `json:"changed"`
	Reasons int `json:"reasons"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Cached  int `json:"cached"`
}

// Report is the top-level output structure.
type Report struct {
	Tool    string       `json:"tool"`
	Version string       `json:"version"`
	RunID   string       `json:"runId"`
	Files   []FileResult `json:"files"`
	Totals  Totals       `json:"totals"`
	Timing  Timing       `json:"timing"`
}

// NewReport builds a report over files.
func NewReport(version string, files []FileResult, elapsed time.Duration) *Report {
	if files == nil {
		files = []FileResult{}
	}
	return &Report{
		Tool:    "copyedit",
		Version: version,
		RunID:   generateRunID(),
		Files:   files,
		Totals:  ComputeTotals(files),
		Timing:  Timing{TotalMs: elapsed.Milliseconds()},
	}
}

// ComputeTotals calculates the totals from file results.
func ComputeTotals(files []FileResult) Totals {
	t := Totals{Files: len(files)}
	for _, f := range files {
		if f.Result == nil {
			continue
		}
		if f.Result.Changed() {
			t.Changed++
		}
		if f.Result.Cached {
			t.Cached++
		}
		t.Reasons += len(f.Result.Reasons)
		t.Added += f.Result.Stat.Added
		t.Removed += f.Result.Stat.Removed
	}
	return t
}

func generateRunID() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return fmt.Sprintf("%x", h[:16])
}
