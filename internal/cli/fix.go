package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/copyedit/internal/config"
	"github.com/dshills/copyedit/internal/document"
	"github.com/dshills/copyedit/internal/gitctx"
	"github.com/dshills/copyedit/internal/logging"
	"github.com/dshills/copyedit/internal/output"
	"github.com/dshills/copyedit/internal/pipeline"
	"github.com/dshills/copyedit/internal/summary"
)

// stdinSource names a post read from standard input.
const stdinSource = "<stdin>"

// Fix flags
var (
	flagTitle   string
	flagSummary string
	flagFormat  string
	flagOut     string
	flagWrite   bool
	flagCheck   bool
	flagRules   string
	flagDisable string
	flagNoCache bool
	flagWorkers int
	flagColor   bool
	flagStaged  bool
	flagGlob    string
)

func buildOverrides() map[string]any {
	m := make(map[string]any)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagWorkers > 0 {
		m["workers"] = flagWorkers
	}
	if flagRules != "" {
		m["rules.pack"] = flagRules
	}
	if flagNoCache {
		m["cache.enabled"] = false
	}
	if flagColor {
		m["color"] = true
	}
	return m
}

var fixCmd = &cobra.Command{
	Use:   "fix [files...]",
	Short: "Copy-edit posts",
	Long: "Copy-edit one or more post files, or a post on stdin when no files are given. " +
		"A post is an optional YAML front matter block (title, summary) followed by the body.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagStaged && (len(args) > 0 || flagWrite) {
			return fmt.Errorf("--staged cannot be combined with file arguments or --write")
		}
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		cfg.Rules.Disable = append(cfg.Rules.Disable, config.SplitList(flagDisable)...)
		runFix(cmd, args, cfg)
		return nil
	},
}

func runFix(cmd *cobra.Command, args []string, cfg config.Config) {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fail(cmd, ExitRuntimeError, "%v", err)
		return
	}
	defer logger.Close()

	table, err := buildTable(cfg)
	if err != nil {
		fail(cmd, ExitUsageError, "%v", err)
		return
	}

	var inputs []pipeline.Input
	if flagStaged {
		inputs, err = readStaged(config.SplitList(flagGlob))
	} else {
		inputs, err = readInputs(cmd.InOrStdin(), args)
	}
	if err != nil {
		fail(cmd, ExitRuntimeError, "%v", err)
		return
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithFlash(func() { logger.Debug("Applying rules", "rules", table.Len()) }),
		pipeline.WithSummaryOptions(summary.Options{TrimTerminalOnly: cfg.Summary.TrimTerminalOnly}),
		pipeline.WithMaxDiffCells(cfg.Diff.MaxCells),
		pipeline.WithNormalize(cfg.Input.Normalize),
	}
	if cfg.Cache.Enabled {
		c, err := openCache(cfg)
		if err != nil {
			warn(cmd, "%v (continuing without cache)", err)
		} else {
			opts = append(opts, pipeline.WithCache(c))
		}
	}

	fixer := pipeline.New(table, opts...)
	results, err := fixer.RunAll(ctx, inputs, cfg.Workers)
	if err != nil {
		fail(cmd, ExitRuntimeError, "%v", err)
		return
	}
	report := pipeline.NewReport(version, results, time.Since(start))
	logger.Info("Run complete",
		"files", report.Totals.Files,
		"changed", report.Totals.Changed,
		"reasons", report.Totals.Reasons,
		"ms", report.Timing.TotalMs,
	)

	if flagWrite {
		n, err := writeBack(results)
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return
		}
		logger.Info("Rewrote posts", "count", n)
	}

	if err := writeOutput(cmd, report, cfg); err != nil {
		fail(cmd, ExitRuntimeError, "writing output: %v", err)
		return
	}

	if cfg.History.Enabled {
		if err := recordHistory(ctx, cfg, results, logger); err != nil {
			warn(cmd, "recording history: %v", err)
		}
	}

	if flagCheck && report.Totals.Changed > 0 {
		exitCode = ExitChanges
	}
}

// readInputs parses the named post files, or stdin when there are none.
// --title and --summary replace the corresponding field of every post.
func readInputs(stdin io.Reader, args []string) ([]pipeline.Input, error) {
	var inputs []pipeline.Input
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		doc, err := document.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stdinSource, err)
		}
		inputs = append(inputs, pipeline.Input{Source: stdinSource, Document: doc})
	} else {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			doc, err := document.Parse(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			inputs = append(inputs, pipeline.Input{Source: path, Document: doc})
		}
	}

	for i := range inputs {
		if flagTitle != "" {
			inputs[i].Document.Title = flagTitle
		}
		if flagSummary != "" {
			inputs[i].Document.Summary = flagSummary
		}
	}
	return inputs, nil
}

// readStaged parses the staged contents of every staged post matching
// globs.
func readStaged(globs []string) ([]pipeline.Input, error) {
	files, err := gitctx.Staged(gitctx.Options{Include: globs})
	if err != nil {
		return nil, err
	}
	inputs := make([]pipeline.Input, 0, len(files))
	for _, path := range files {
		data, err := gitctx.ReadStaged(path)
		if err != nil {
			return nil, err
		}
		doc, err := document.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		inputs = append(inputs, pipeline.Input{Source: path, Document: doc})
	}
	return inputs, nil
}

// writeBack rewrites every changed post file in place and returns how many
// were written. Stdin posts are skipped.
func writeBack(results []pipeline.FileResult) (int, error) {
	n := 0
	for _, f := range results {
		if f.Source == stdinSource || f.Result == nil || !f.Result.Changed() {
			continue
		}
		info, err := os.Stat(f.Source)
		if err != nil {
			return n, fmt.Errorf("stat %s: %w", f.Source, err)
		}
		data, err := document.Format(f.Result.Document)
		if err != nil {
			return n, fmt.Errorf("formatting %s: %w", f.Source, err)
		}
		if err := os.WriteFile(f.Source, data, info.Mode().Perm()); err != nil {
			return n, fmt.Errorf("writing %s: %w", f.Source, err)
		}
		n++
	}
	return n, nil
}

func writeOutput(cmd *cobra.Command, report *pipeline.Report, cfg config.Config) error {
	opts := output.Options{Color: cfg.Color}
	if flagOut != "" {
		return output.WriteReport(report, cfg.Format, flagOut, opts)
	}
	w, err := output.GetWriter(cfg.Format, opts)
	if err != nil {
		return err
	}
	return w.Write(cmd.OutOrStdout(), report)
}

func recordHistory(ctx context.Context, cfg config.Config, results []pipeline.FileResult, logger logging.Logger) error {
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, f := range results {
		if f.Result == nil || !f.Result.Changed() {
			continue
		}
		id, err := store.Record(ctx, f.Source, f.Result)
		if err != nil {
			return err
		}
		logger.Debug("Recorded edit", "id", id, "source", f.Source)
	}
	return nil
}

func init() {
	fixCmd.Flags().StringVar(&flagTitle, "title", "", "Replace the post title")
	fixCmd.Flags().StringVar(&flagSummary, "summary", "", "Replace the existing edit summary")
	fixCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif, post)")
	fixCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	fixCmd.Flags().BoolVar(&flagWrite, "write", false, "Rewrite changed post files in place")
	fixCmd.Flags().BoolVar(&flagCheck, "check", false, "Exit 1 when any post would change")
	fixCmd.Flags().StringVar(&flagRules, "rules", "", "Rule pack file (YAML or JSON)")
	fixCmd.Flags().StringVar(&flagDisable, "disable", "", "Rule IDs to disable (comma-separated)")
	fixCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the result cache")
	fixCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Posts edited concurrently (default: number of CPUs)")
	fixCmd.Flags().BoolVar(&flagColor, "color", false, "Colour the text diff")
	fixCmd.Flags().BoolVar(&flagStaged, "staged", false, "Edit the staged contents of posts staged for commit")
	fixCmd.Flags().StringVar(&flagGlob, "glob", "*.md,*.markdown", "Patterns selecting staged posts (comma-separated)")
}
