package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/copyedit/internal/pipeline"
	"github.com/dshills/copyedit/internal/rules"
)

// resetFlags restores every package-level flag variable to its default.
func resetFlags() {
	flagConfig = ""
	flagVerbose = false
	flagTitle = ""
	flagSummary = ""
	flagFormat = ""
	flagOut = ""
	flagWrite = false
	flagCheck = false
	flagRules = ""
	flagDisable = ""
	flagNoCache = false
	flagWorkers = 0
	flagColor = false
	flagStaged = false
	flagGlob = "*.md,*.markdown"
	flagDiffJSON = false
	flagRulesJSON = false
	flagRulesPack = ""
	flagRulesDisable = ""
	flagConfigForce = false
	flagHistoryLimit = 20
	flagHistoryFormat = "yaml"
	flagHistoryOut = ""
	hookGlob = "*.md,*.markdown"
	hookFormat = "text"
}

// isolate points every config, cache and data directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func decodeReport(t *testing.T, out string) pipeline.Report {
	t.Helper()
	var report pipeline.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, out)
	}
	return report
}

// --- root ---

func TestVersionCmd_Execute(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != ExitSuccess {
		t.Errorf("exit = %d, want %d", code, ExitSuccess)
	}
	if out != "copyedit version "+version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	expected := map[string]bool{
		"fix": false, "diff": false, "rules": false, "config": false,
		"cache": false, "history": false, "hook": false, "version": false,
	}
	for _, sub := range rootCmd.Commands() {
		if _, ok := expected[sub.Name()]; ok {
			expected[sub.Name()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("subcommand %q not found", name)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, _ := runCLI(t, "", "frobnicate")
	if code != ExitUsageError {
		t.Errorf("exit = %d, want %d", code, ExitUsageError)
	}
}

// --- fix ---

func TestFix_StdinPost(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, "stackoverflow is great, thx!", "fix", "--format", "post")
	if code != ExitSuccess {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "Stack Overflow is great") {
		t.Errorf("edited body missing:\n%s", out)
	}
	if strings.Contains(out, "thx") {
		t.Errorf("noise should be removed:\n%s", out)
	}
	if !strings.Contains(out, "summary:") {
		t.Errorf("edit summary missing from front matter:\n%s", out)
	}
}

func TestFix_JSONReport(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "stackoverflow is great, thx!", "fix", "--format", "json", "--no-cache")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	report := decodeReport(t, out)
	if report.Tool != "copyedit" {
		t.Errorf("Tool = %q", report.Tool)
	}
	if len(report.Files) != 1 || report.Files[0].Source != stdinSource {
		t.Fatalf("Files = %+v", report.Files)
	}
	res := report.Files[0].Result
	if res.Document.Body != "Stack Overflow is great" {
		t.Errorf("Body = %q", res.Document.Body)
	}
	if len(res.Fired) == 0 || res.Fired[0] != "so" {
		t.Errorf("Fired = %v, want so first", res.Fired)
	}
}

func TestFix_Check(t *testing.T) {
	isolate(t)

	code, _, _ := runCLI(t, "stackoverflow is great", "fix", "--check", "--format", "json")
	if code != ExitChanges {
		t.Errorf("changed post: exit = %d, want %d", code, ExitChanges)
	}

	code, _, _ = runCLI(t, "All good here.", "fix", "--check", "--format", "json")
	if code != ExitSuccess {
		t.Errorf("clean post: exit = %d, want %d", code, ExitSuccess)
	}

	code, _, _ = runCLI(t, "stackoverflow is great", "fix", "--format", "json")
	if code != ExitSuccess {
		t.Errorf("without --check: exit = %d, want %d", code, ExitSuccess)
	}
}

func TestFix_Disable(t *testing.T) {
	isolate(t)

	code, _, _ := runCLI(t, "Yes i can.", "fix", "--check", "--format", "json")
	if code != ExitChanges {
		t.Errorf("exit = %d, want %d", code, ExitChanges)
	}
	code, _, _ = runCLI(t, "Yes i can.", "fix", "--check", "--format", "json", "--disable", "i")
	if code != ExitSuccess {
		t.Errorf("with rule disabled: exit = %d, want %d", code, ExitSuccess)
	}
	code, _, errOut := runCLI(t, "Yes i can.", "fix", "--disable", "nosuchrule")
	if code != ExitUsageError {
		t.Errorf("unknown rule: exit = %d, want %d", code, ExitUsageError)
	}
	if !strings.Contains(errOut, "nosuchrule") {
		t.Errorf("stderr should name the rule: %s", errOut)
	}
}

func TestFix_RulePack(t *testing.T) {
	dir := isolate(t)
	pack := filepath.Join(dir, "house.yaml")
	writeFile(t, pack, "rules:\n  - id: colour\n    pattern: '\\bcolor\\b'\n    replacement: colour\n    reason: British spelling\n")

	code, out, errOut := runCLI(t, "The color is red.", "fix", "--format", "json", "--rules", pack)
	if code != ExitSuccess {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}
	res := decodeReport(t, out).Files[0].Result
	if res.Document.Body != "The colour is red." {
		t.Errorf("Body = %q", res.Document.Body)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != "British spelling" {
		t.Errorf("Reasons = %v", res.Reasons)
	}

	code, _, _ = runCLI(t, "x", "fix", "--rules", filepath.Join(dir, "missing.yaml"))
	if code != ExitUsageError {
		t.Errorf("missing pack: exit = %d, want %d", code, ExitUsageError)
	}
}

func TestFix_WriteFiles(t *testing.T) {
	dir := isolate(t)
	changed := filepath.Join(dir, "a.md")
	clean := filepath.Join(dir, "b.md")
	writeFile(t, changed, "---\ntitle: about stackoverflow\n---\nstackoverflow is great, thx!\n")
	writeFile(t, clean, "All good here.\n")

	code, out, errOut := runCLI(t, "", "fix", "--write", "--format", "json", "--workers", "2", changed, clean)
	if code != ExitSuccess {
		t.Fatalf("exit = %d, stderr = %s", code, errOut)
	}
	report := decodeReport(t, out)
	if report.Totals.Files != 2 || report.Totals.Changed != 1 {
		t.Errorf("Totals = %+v", report.Totals)
	}
	if report.Files[0].Source != changed || report.Files[1].Source != clean {
		t.Errorf("file order not preserved: %s, %s", report.Files[0].Source, report.Files[1].Source)
	}

	data, err := os.ReadFile(changed)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "title: About Stack Overflow") {
		t.Errorf("title not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "Stack Overflow is great") {
		t.Errorf("body not rewritten:\n%s", got)
	}

	data, err = os.ReadFile(clean)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "All good here.\n" {
		t.Errorf("unchanged post was rewritten: %q", data)
	}
}

func TestFix_TitleOverride(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "Body text.", "fix", "--format", "json", "--title", "HOW DO I PARSE JSON IN PYTHON")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	res := decodeReport(t, out).Files[0].Result
	if res.Document.Title != "How do I parse JSON in Python" {
		t.Errorf("Title = %q", res.Document.Title)
	}
}

func TestFix_Cache(t *testing.T) {
	isolate(t)
	_, out, _ := runCLI(t, "stackoverflow is great", "fix", "--format", "json")
	if decodeReport(t, out).Totals.Cached != 0 {
		t.Error("first run should not be cached")
	}
	_, out, _ = runCLI(t, "stackoverflow is great", "fix", "--format", "json")
	report := decodeReport(t, out)
	if report.Totals.Cached != 1 {
		t.Error("second run should be served from cache")
	}
	if report.Files[0].Result.Document.Body != "Stack Overflow is great" {
		t.Errorf("cached Body = %q", report.Files[0].Result.Document.Body)
	}
	_, out, _ = runCLI(t, "stackoverflow is great", "fix", "--format", "json", "--no-cache")
	if decodeReport(t, out).Totals.Cached != 0 {
		t.Error("--no-cache should bypass the cache")
	}
}

func TestFix_OutFile(t *testing.T) {
	dir := isolate(t)
	outPath := filepath.Join(dir, "report.sarif")
	code, out, _ := runCLI(t, "stackoverflow is great", "fix", "--format", "sarif", "--out", outPath)
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	if out != "" {
		t.Errorf("stdout should be empty with --out, got %q", out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ruleId": "copyedit/so"`) {
		t.Errorf("SARIF missing rule result:\n%s", data)
	}
}

func TestFix_BadFormat(t *testing.T) {
	isolate(t)
	code, _, _ := runCLI(t, "x", "fix", "--format", "xml")
	if code != ExitUsageError {
		t.Errorf("exit = %d, want %d", code, ExitUsageError)
	}
}

func TestFix_MissingFile(t *testing.T) {
	dir := isolate(t)
	code, _, errOut := runCLI(t, "", "fix", filepath.Join(dir, "nope.md"))
	if code != ExitRuntimeError {
		t.Errorf("exit = %d, want %d", code, ExitRuntimeError)
	}
	if !strings.Contains(errOut, "nope.md") {
		t.Errorf("stderr should name the file: %s", errOut)
	}
}

func TestFix_Staged(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := isolate(t)
	repo := filepath.Join(dir, "repo")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatal(err)
	}
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	git("init", "-q")
	writeFile(t, filepath.Join(repo, "post.md"), "stackoverflow is great\n")
	writeFile(t, filepath.Join(repo, "notes.txt"), "stackoverflow\n")
	git("add", "post.md", "notes.txt")
	// The working tree copy differs from the index and must be ignored.
	writeFile(t, filepath.Join(repo, "post.md"), "All good here.\n")
	t.Chdir(repo)

	code, out, errOut := runCLI(t, "", "fix", "--staged", "--check", "--format", "json")
	if code != ExitChanges {
		t.Fatalf("exit = %d, want %d, stderr = %s", code, ExitChanges, errOut)
	}
	report := decodeReport(t, out)
	if len(report.Files) != 1 || report.Files[0].Source != "post.md" {
		t.Fatalf("Files = %+v", report.Files)
	}
	if report.Files[0].Result.Document.Body != "Stack Overflow is great" {
		t.Errorf("Body = %q", report.Files[0].Result.Document.Body)
	}

	code, _, _ = runCLI(t, "", "fix", "--staged", "post.md")
	if code != ExitUsageError {
		t.Errorf("--staged with files: exit = %d, want %d", code, ExitUsageError)
	}
}

func TestBuildOverrides(t *testing.T) {
	resetFlags()
	if m := buildOverrides(); len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty", m)
	}

	flagFormat = "json"
	flagWorkers = 3
	flagRules = "pack.yaml"
	flagNoCache = true
	flagColor = true
	m := buildOverrides()
	want := map[string]any{
		"format":        "json",
		"workers":       3,
		"rules.pack":    "pack.yaml",
		"cache.enabled": false,
		"color":         true,
	}
	if len(m) != len(want) {
		t.Fatalf("buildOverrides() = %v", m)
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("buildOverrides()[%q] = %v, want %v", k, m[k], v)
		}
	}
	resetFlags()
}

func TestReadInputs_Overrides(t *testing.T) {
	resetFlags()
	flagTitle = "New title"
	flagSummary = "prior edit"
	defer resetFlags()

	inputs, err := readInputs(strings.NewReader("---\ntitle: Old\n---\nbody\n"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 1 {
		t.Fatalf("got %d inputs", len(inputs))
	}
	doc := inputs[0].Document
	if doc.Title != "New title" || doc.Summary != "prior edit" || doc.Body != "body\n" {
		t.Errorf("Document = %+v", doc)
	}
}

// --- diff ---

func TestDiffCmd(t *testing.T) {
	dir := isolate(t)
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "one\ntwo\n")
	writeFile(t, b, "one\n2\n")

	code, out, _ := runCLI(t, "", "diff", a, b)
	if code != ExitChanges {
		t.Errorf("exit = %d, want %d", code, ExitChanges)
	}
	if !strings.Contains(out, "  one\n+ 2\n- two\n") {
		t.Errorf("unexpected diff:\n%s", out)
	}

	code, out, _ = runCLI(t, "", "diff", "--json", a, a)
	if code != ExitSuccess {
		t.Errorf("identical files: exit = %d, want %d", code, ExitSuccess)
	}
	if !strings.Contains(out, `"added": 0`) {
		t.Errorf("unexpected JSON:\n%s", out)
	}
}

func TestDiffCmd_MissingArg(t *testing.T) {
	code, _, _ := runCLI(t, "", "diff", "only-one")
	if code != ExitUsageError {
		t.Errorf("exit = %d, want %d", code, ExitUsageError)
	}
}

// --- rules ---

func TestRulesList(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "", "rules", "list")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "noneedtoyell") || !strings.Contains(out, "fingerprint") {
		t.Errorf("unexpected listing:\n%s", out)
	}

	_, out, _ = runCLI(t, "", "rules", "list", "--json", "--disable", "so")
	var descs []rules.Description
	if err := json.Unmarshal([]byte(out), &descs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(descs) != rules.Default().Len()-1 {
		t.Errorf("got %d rules, want %d", len(descs), rules.Default().Len()-1)
	}
	for _, d := range descs {
		if d.ID == "so" {
			t.Error("disabled rule listed")
		}
	}
}

// --- config ---

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := isolate(t)

	code, out, _ := runCLI(t, "", "config", "init")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	path := filepath.Join(dir, "config", "copyedit", "config.yaml")
	if !strings.Contains(out, path) {
		t.Errorf("output should name the file: %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config init did not create config.yaml: %v", err)
	}
	if !strings.Contains(string(data), "format: text") {
		t.Errorf("unexpected config:\n%s", data)
	}

	code, _, _ = runCLI(t, "", "config", "init")
	if code != ExitRuntimeError {
		t.Errorf("second init: exit = %d, want %d", code, ExitRuntimeError)
	}
	code, _, _ = runCLI(t, "", "config", "init", "--force")
	if code != ExitSuccess {
		t.Errorf("forced init: exit = %d, want %d", code, ExitSuccess)
	}
}

func TestConfigSetShow(t *testing.T) {
	isolate(t)

	code, _, _ := runCLI(t, "", "config", "set", "format", "markdown")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	_, out, _ := runCLI(t, "", "config", "show")
	if !strings.Contains(out, "format: markdown") {
		t.Errorf("show should reflect set value:\n%s", out)
	}

	t.Setenv("COPYEDIT_FORMAT", "json")
	_, out, _ = runCLI(t, "", "config", "show")
	if !strings.Contains(out, "format: json") {
		t.Errorf("environment should override the file:\n%s", out)
	}
}

func TestConfigSet_Invalid(t *testing.T) {
	isolate(t)
	if code, _, _ := runCLI(t, "", "config", "set", "unknownKey", "value"); code != ExitUsageError {
		t.Errorf("unknown key: exit = %d, want %d", code, ExitUsageError)
	}
	if code, _, _ := runCLI(t, "", "config", "set", "format"); code != ExitUsageError {
		t.Errorf("missing value: exit = %d, want %d", code, ExitUsageError)
	}
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "format: json\n")

	code, out, _ := runCLI(t, "stackoverflow", "fix", "--config", path)
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	decodeReport(t, out)
}

// --- cache ---

func TestCacheShowClear(t *testing.T) {
	isolate(t)
	runCLI(t, "stackoverflow is great", "fix", "--format", "json")

	code, out, _ := runCLI(t, "", "cache", "show")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, `"entries": 1`) {
		t.Errorf("unexpected stats:\n%s", out)
	}

	code, out, _ = runCLI(t, "", "cache", "clear")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "Cache cleared (1 entries).") {
		t.Errorf("unexpected output: %s", out)
	}

	t.Setenv("COPYEDIT_CACHE_ENABLED", "false")
	_, out, _ = runCLI(t, "", "cache", "show")
	if !strings.Contains(out, "Cache is disabled.") {
		t.Errorf("unexpected output: %s", out)
	}
}

// --- history ---

func TestHistory(t *testing.T) {
	isolate(t)
	if code, _, _ := runCLI(t, "", "config", "set", "history.enabled", "true"); code != ExitSuccess {
		t.Fatalf("config set exit = %d", code)
	}

	_, out, _ := runCLI(t, "", "history", "list")
	if !strings.Contains(out, "No edits recorded.") {
		t.Errorf("empty history:\n%s", out)
	}

	if code, _, errOut := runCLI(t, "stackoverflow is great", "fix", "--format", "json"); code != ExitSuccess {
		t.Fatalf("fix exit = %d, stderr = %s", code, errOut)
	}
	// Unchanged posts are not recorded.
	runCLI(t, "All good here.", "fix", "--format", "json")

	_, out, _ = runCLI(t, "", "history", "list")
	if !strings.Contains(out, stdinSource) || strings.Count(out, "\n") != 1 {
		t.Errorf("expected one entry:\n%s", out)
	}

	code, out, _ := runCLI(t, "", "history", "show", "1")
	if code != ExitSuccess {
		t.Fatalf("show exit = %d", code)
	}
	for _, want := range []string{"Edit 1: " + stdinSource, "Rules:    so", "+ Stack Overflow is great", "- stackoverflow is great"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if code, _, _ := runCLI(t, "", "history", "show", "99"); code != ExitUsageError {
		t.Errorf("missing entry: exit = %d, want %d", code, ExitUsageError)
	}
	if code, _, _ := runCLI(t, "", "history", "show", "abc"); code != ExitUsageError {
		t.Errorf("bad id: exit = %d, want %d", code, ExitUsageError)
	}

	_, out, _ = runCLI(t, "", "history", "export", "--format", "json")
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(entries) != 1 || entries[0]["after"] != "Stack Overflow is great" {
		t.Errorf("entries = %v", entries)
	}

	if code, _, _ := runCLI(t, "", "history", "export", "--format", "csv"); code != ExitUsageError {
		t.Errorf("bad export format: exit = %d, want %d", code, ExitUsageError)
	}
}

// --- exit code constants ---

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitChanges", ExitChanges, 1},
		{"ExitUsageError", ExitUsageError, 2},
		{"ExitRuntimeError", ExitRuntimeError, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}
