package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/document"
)

var flagDiffJSON bool

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Show a line diff of two files",
	Long:  "Show a line diff of two files using the same diff as fix. Exits 1 when the files differ.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		texts := make([]string, 2)
		for i, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				fail(cmd, ExitRuntimeError, "reading %s: %v", path, err)
				return nil
			}
			texts[i] = string(data)
			if cfg.Input.Normalize {
				texts[i] = document.Normalize(texts[i])
			}
		}

		rows, err := diff.Lines(texts[0], texts[1], cfg.Diff.MaxCells)
		if err != nil {
			if errors.Is(err, diff.ErrTooLarge) {
				fail(cmd, ExitRuntimeError, "%v (raise diff.maxCells)", err)
			} else {
				fail(cmd, ExitRuntimeError, "%v", err)
			}
			return nil
		}
		stat := diff.Stats(rows)

		out := cmd.OutOrStdout()
		if flagDiffJSON {
			data, err := json.MarshalIndent(struct {
				Rows []diff.Row `json:"rows"`
				Stat diff.Stat  `json:"stat"`
			}{rows, stat}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprint(out, diff.Unified(rows))
		}

		if stat.Changed() {
			exitCode = ExitChanges
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&flagDiffJSON, "json", false, "Print rows and counts as JSON")
}
