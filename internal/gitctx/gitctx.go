package gitctx

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Options filters candidate files.
type Options struct {
	// Include globs; empty means every file.
	Include []string
	Exclude []string
}

// GitDir returns the repository's git directory.
func GitDir() (string, error) {
	out, err := gitOutput("rev-parse", "--git-dir")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Staged returns the added, copied or modified files staged for commit,
// relative to the working directory and sorted.
func Staged(opts Options) ([]string, error) {
	out, err := gitOutput("diff", "--cached", "--name-only", "--relative", "--diff-filter=ACM")
	if err != nil {
		return nil, fmt.Errorf("git diff --cached: %w", err)
	}
	files := filterFiles(splitLines(out), opts)
	sort.Strings(files)
	return files, nil
}

// ReadStaged returns the staged contents of path, relative to the working
// directory.
func ReadStaged(path string) ([]byte, error) {
	out, err := gitOutput("show", ":./"+filepath.ToSlash(path))
	if err != nil {
		return nil, fmt.Errorf("git show :%s: %w", path, err)
	}
	return []byte(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func filterFiles(files []string, opts Options) []string {
	var result []string
	for _, f := range files {
		if len(opts.Include) > 0 && !MatchesAny(f, opts.Include) {
			continue
		}
		if MatchesAny(f, opts.Exclude) {
			continue
		}
		result = append(result, f)
	}
	return result
}

// MatchesAny returns true if the path matches any of the given glob
// patterns. A pattern without a slash also matches the base name, and a
// leading "**/" matches at any depth.
func MatchesAny(path string, patterns []string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern || !strings.Contains(pattern, "/") {
			if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
				return true
			}
		}
		if clean != pattern {
			if matched, err := filepath.Match(clean, path); err == nil && matched {
				return true
			}
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && strings.HasPrefix(path, dir+"/") {
			return true
		}
	}
	return false
}

func gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
