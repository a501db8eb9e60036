package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/copyedit/internal/gitctx"
)

const (
	hookMarkerStart = "# >>> copyedit pre-commit hook >>>"
	hookMarkerEnd   = "# <<< copyedit pre-commit hook <<<"
)

var (
	hookGlob   string
	hookFormat string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install a pre-commit hook that blocks commits of posts needing edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return nil
		}

		section := generateHookScript(hookGlob, hookFormat)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fail(cmd, ExitRuntimeError, "reading hook file: %v", err)
			return nil
		}

		var content string
		if os.IsNotExist(err) || len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fail(cmd, ExitRuntimeError, "creating hooks directory: %v", err)
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(cmd, ExitRuntimeError, "writing hook file: %v", err)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Installed copyedit pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the copyedit pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fail(cmd, ExitRuntimeError, "%v", err)
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No pre-commit hook found.")
				return nil
			}
			fail(cmd, ExitRuntimeError, "reading hook file: %v", err)
			return nil
		}

		content := removeHookSection(string(existing))

		// Only a shebang left: remove the file.
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fail(cmd, ExitRuntimeError, "removing hook file: %v", err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed copyedit pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(cmd, ExitRuntimeError, "writing hook file: %v", err)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed copyedit section from %s\n", hookPath)
		return nil
	},
}

func getHookPath() (string, error) {
	gitDir, err := gitctx.GitDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, "hooks", "pre-commit"), nil
}

// generateHookScript checks the staged posts matching glob. Exit 1 from
// fix --check blocks the commit; any other failure only warns.
func generateHookScript(glob, format string) string {
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	fmt.Fprintf(&b, "copyedit fix --check --staged --glob '%s' --format %s\n", glob, format)
	b.WriteString("COPYEDIT_EXIT=$?\n")
	b.WriteString("if [ $COPYEDIT_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"copyedit: staged posts need edits (run copyedit fix --write), commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $COPYEDIT_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"copyedit: warning, check failed (exit $COPYEDIT_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	after = strings.TrimPrefix(after, "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	after = strings.TrimPrefix(after, "\n")

	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookGlob, "glob", "*.md,*.markdown", "Patterns selecting staged posts (comma-separated)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown, sarif)")
}
