package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/history"
)

var (
	flagHistoryLimit  int
	flagHistoryFormat string
	flagHistoryOut    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded edits",
	Long:  "Browse edits recorded by fix when history.enabled is set.",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent edits, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return nil
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), flagHistoryLimit)
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return nil
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No edits recorded.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%4d  %s  %-30s  %d reasons (+%d -%d)\n",
				e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Source,
				len(e.Reasons), e.Added, e.Removed)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded edit with its diff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			fail(cmd, ExitUsageError, "invalid history id %q", args[0])
			return nil
		}
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return nil
		}
		defer store.Close()

		e, err := store.Get(cmd.Context(), id)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				fail(cmd, ExitUsageError, "%v", err)
			} else {
				fail(cmd, ExitRuntimeError, "%v", err)
			}
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Edit %d: %s\n", e.ID, e.Source)
		fmt.Fprintf(out, "Recorded: %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if e.Title != "" {
			fmt.Fprintf(out, "Title:    %s\n", e.Title)
		}
		if e.Summary != "" {
			fmt.Fprintf(out, "Summary:  %s\n", e.Summary)
		}
		if len(e.Fired) > 0 {
			fmt.Fprintf(out, "Rules:    %s\n", strings.Join(e.Fired, ", "))
		}
		fmt.Fprintln(out, strings.Repeat("─", 60))

		rows, err := diff.Lines(e.Before, e.After, cfg.Diff.MaxCells)
		if err != nil {
			fmt.Fprintf(out, "Diff unavailable: %v\n", err)
			return nil
		}
		fmt.Fprint(out, diff.Unified(rows))
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all recorded edits as YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagHistoryFormat != "yaml" && flagHistoryFormat != "json" {
			return fmt.Errorf("unsupported export format: %s", flagHistoryFormat)
		}
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		store, err := openHistory(cfg)
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return nil
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		if flagHistoryOut != "" {
			f, err := os.Create(flagHistoryOut)
			if err != nil {
				fail(cmd, ExitRuntimeError, "creating output file: %v", err)
				return nil
			}
			defer f.Close()
			w = f
		}
		if err := store.Export(cmd.Context(), w, flagHistoryFormat); err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
		}
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyListCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum entries to list (0 for all)")
	historyExportCmd.Flags().StringVar(&flagHistoryFormat, "format", "yaml", "Export format (yaml, json)")
	historyExportCmd.Flags().StringVar(&flagHistoryOut, "out", "", "Output file path (default: stdout)")
}
