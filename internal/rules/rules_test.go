package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/copyedit/internal/document"
)

func TestExpand(t *testing.T) {
	c := Captures{"whole", "a", "", "c"}
	tests := []struct {
		template string
		want     string
	}{
		{"$1x", "ax"},
		{"[$2]", "[]"},
		{"$3$1", "ca"},
		{"$$1", "$1"},
		{"cost $", "cost $"},
		{"$x", "$x"},
		{"$9", ""},
		{"$10", "a0"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.template).Expand(c))
		})
	}
}

func TestReplacement_String(t *testing.T) {
	assert.Equal(t, "$1JavaScript", Literal("$1JavaScript").String())
	assert.Equal(t, "(transform)", Transform(func(Captures) string { return "" }).String())
	assert.True(t, Literal("").IsLiteral())
}

func ruleByID(t *testing.T, id string) Rule {
	t.Helper()
	r, ok := Default().Lookup(id)
	require.True(t, ok, "rule %s missing", id)
	return r
}

func TestRuleApply(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		want  string
		fired bool
	}{
		{"so", "stackoverflow rocks", "Stack Overflow rocks", true},
		{"so", "Stack Overflow rocks", "", false},
		{"expansionSO", "I asked on SO today", "I asked on Stack Overflow today", true},
		{"javascript", "I like js", "I like JavaScript", true},
		{"javascript", "run node.js", "", false},
		{"html", "write html5 pages", "write HTML5 pages", true},
		{"html", "write html pages", "write HTML pages", true},
		{"c", "I know c# and c++", "I know C# and C++", true},
		{"sqlite", "use sqlite3 here", "use SQLite 3 here", true},
		{"sqlite", "use sqlite here", "use SQLite here", true},
		{"sqlite", "SQLite and SQLite 3", "", false},
		{"windows", "on win xp and windows 7", "on Windows XP and Windows 7", true},
		{"windows", "Windows Server", "", false},
		{"urli", "the url is", "the URL is", true},
		{"ubunto", "I run ubunto", "I run Ubuntu", true},
		{"ubunto", "think about it", "", false},
		{"vbnet", "vb.net framework", "VB.NET Framework", true},
		{"vbnet", "on .net core", "on .NET Core", true},
		{"regex", "a regexp here", "a RegExp here", true},
		{"apostrophes", "it dont work", "it don't work", true},
		{"noneedtoyell", "HELLO WORLD", "Hello world", true},
		{"noneedtoyell", "Hello World", "", false},
		{"multiplespaces", "a  b   c", "a b c", true},
		{"spacesbeforesymbols", "really ?", "really?", true},
		{"multiplesymbols", "why??", "why?", true},
		{"blanklines", "a\n\n\n\nb", "a\n\nb", true},
		{"blanklines", "a\n\nb", "", false},
		{"firstcaps", "the answer\nand more.", "The answer.\nAnd more.", true},
		{"salutations", "Use a map.\n\nRegards,\nBob", "Use a map.", true},
		{"badwords", "it is great, thx!", "it is great", true},
	}
	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.input, func(t *testing.T) {
			fix, fired, err := ruleByID(t, tt.rule).Apply(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.fired, fired)
			if tt.fired {
				assert.Equal(t, tt.want, fix.Text)
			}
		})
	}
}

func TestRuleApply_Empty(t *testing.T) {
	fix, fired, err := ruleByID(t, "i").Apply("")
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, Fix{}, fix)
}

func TestRuleApply_ReasonUsesFirstMatch(t *testing.T) {
	fix, fired, err := ruleByID(t, "voting").Apply("down vote and up vote")
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, "downvote and upvote", fix.Text)
	assert.Equal(t, "the proper spelling (despite the tag name) is 'downvote' (one word)", fix.Reason)
}

func TestRuleApply_Timeout(t *testing.T) {
	r, err := NewRule("slow", GroupPack, `(a+)+$`, regexp2.None, Literal(""), Literal("slow"))
	require.NoError(t, err)
	tbl, err := NewTable(r)
	require.NoError(t, err)
	tbl = tbl.WithMatchTimeout(time.Millisecond)

	input := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab"
	var log Log
	_, err = NewEngine(tbl).Apply(context.Background(), document.Document{Body: input}, &log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule slow")
}

func TestNewRule_Errors(t *testing.T) {
	_, err := NewRule("", GroupPack, `x`, regexp2.None, Literal(""), Literal(""))
	assert.Error(t, err)

	_, err = NewRule("bad", GroupPack, `(`, regexp2.None, Literal(""), Literal(""))
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	opts, err := ParseFlags("im")
	require.NoError(t, err)
	assert.Equal(t, regexp2.RegexOptions(regexp2.IgnoreCase|regexp2.Multiline), opts)
	assert.Equal(t, "im", formatFlags(opts))

	_, err = ParseFlags("g")
	assert.Error(t, err)
}

func TestDefaultTable(t *testing.T) {
	tbl := Default()
	assert.Same(t, tbl, Default())

	rules := tbl.Rules()
	require.NotEmpty(t, rules)
	assert.Equal(t, "noneedtoyell", rules[0].ID)
	assert.Equal(t, "blanklines", rules[len(rules)-1].ID)

	// Punctuation rules form one trailing run.
	seenPunct := false
	for _, r := range rules {
		if r.Group == GroupPunctuation {
			seenPunct = true
			continue
		}
		assert.False(t, seenPunct, "rule %s follows the punctuation group", r.ID)
	}

	for _, r := range rules {
		assert.Equal(t, DefaultTimeout, r.Pattern.MatchTimeout, r.ID)
	}
	assert.Equal(t, DefaultTimeout, Default().MatchTimeout())

	derived, err := Default().Without("so")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, derived.MatchTimeout())
	assert.Equal(t, time.Second, derived.WithMatchTimeout(time.Second).MatchTimeout())
}

func TestNewTable_DuplicateID(t *testing.T) {
	r := ruleByID(t, "i")
	_, err := NewTable(r, r)
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestTableWithout(t *testing.T) {
	tbl, err := Default().Without("i", "u")
	require.NoError(t, err)
	assert.Equal(t, Default().Len()-2, tbl.Len())
	_, ok := tbl.Lookup("i")
	assert.False(t, ok)

	_, err = Default().Without("nope")
	assert.ErrorIs(t, err, ErrUnknownRule)

	same, err := Default().Without()
	require.NoError(t, err)
	assert.Same(t, Default(), same)
}

func TestFingerprint(t *testing.T) {
	a := Default().Fingerprint()
	assert.Equal(t, a, Default().Fingerprint())
	assert.Len(t, a, 64)

	without, err := Default().Without("i")
	require.NoError(t, err)
	assert.NotEqual(t, a, without.Fingerprint())
}

func TestDescribe(t *testing.T) {
	d := Describe(Default())
	require.Len(t, d, Default().Len())
	assert.Equal(t, "noneedtoyell", d[0].ID)
	assert.Equal(t, "(transform)", d[0].Replacement)

	for _, desc := range d {
		if desc.ID == "so" {
			assert.Equal(t, "i", desc.Flags)
			assert.Equal(t, "Stack Overflow", desc.Replacement)
		}
	}
}

func TestLog(t *testing.T) {
	var l Log
	assert.True(t, l.Add("a", "first"))
	assert.False(t, l.Add("a", "again"))
	assert.True(t, l.Add("b", "second"))

	assert.Equal(t, []string{"first", "second"}, l.Reasons)
	assert.Equal(t, []string{"a", "b"}, l.Fired)
	assert.True(t, l.Has("a"))
	assert.False(t, l.Has("c"))
	assert.Equal(t, 2, l.Len())
}

func TestEngineApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     document.Document
		want    document.Document
		reasons []string
	}{
		{
			name:    "trademark and noise",
			doc:     document.Document{Body: "stackoverflow is great, thx!"},
			want:    document.Document{Body: "Stack Overflow is great"},
			reasons: []string{"'Stack Overflow' is the legal name", "noise reduction"},
		},
		{
			name: "yelling title",
			doc:  document.Document{Title: "HOW DO I PARSE JSON IN PYTHON"},
			want: document.Document{Title: "How do I parse JSON in Python"},
			reasons: []string{
				"no need to yell",
				"trademark capitalization",
				"trademark capitalization",
				"grammar and spelling",
			},
		},
		{
			name:    "sentence caps",
			doc:     document.Document{Body: "it dont work"},
			want:    document.Document{Body: "It don't work."},
			reasons: []string{"grammar and spelling", "Caps at start of sentences"},
		},
		{
			name:    "body and title share a reason",
			doc:     document.Document{Title: "Using stackoverflow", Body: "I love stackoverflow"},
			want:    document.Document{Title: "Using Stack Overflow", Body: "I love Stack Overflow"},
			reasons: []string{"'Stack Overflow' is the legal name"},
		},
		{
			name: "trademark already correct",
			doc:  document.Document{Body: "I store data in SQLite and it works."},
			want: document.Document{Body: "I store data in SQLite and it works."},
		},
		{
			name: "clean text",
			doc:  document.Document{Title: "Parsing JSON", Body: "This works fine."},
			want: document.Document{Title: "Parsing JSON", Body: "This works fine."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log Log
			got, err := NewEngine(Default()).Apply(context.Background(), tt.doc, &log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reasons, log.Reasons)

			// Output is a fixed point.
			var again Log
			second, err := NewEngine(Default()).Apply(context.Background(), got, &again)
			require.NoError(t, err)
			assert.Equal(t, got, second)
			assert.Empty(t, again.Reasons)
		})
	}
}

func TestEngineApply_Flash(t *testing.T) {
	calls := 0
	e := NewEngine(Default())
	e.Flash = func() { calls++ }

	var log Log
	_, err := e.Apply(context.Background(), document.Document{Body: "fine."}, &log)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestEngineApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log Log
	_, err := NewEngine(Default()).Apply(ctx, document.Document{Body: "stackoverflow"}, &log)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log.Reasons)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPack_YAML(t *testing.T) {
	path := writeFile(t, "house.yaml", `disable: [u]
rules:
  - id: k8s
    pattern: '\bk8s\b'
    flags: i
    replacement: Kubernetes
  - id: golang
    pattern: '\bgolang\b'
    replacement: Go
    reason: project name
    before: i
`)
	p, err := LoadPack(path)
	require.NoError(t, err)
	require.Len(t, p.Rules, 2)
	assert.Equal(t, []string{"u"}, p.Disable)

	tbl, err := Default().With(p)
	require.NoError(t, err)

	_, ok := tbl.Lookup("u")
	assert.False(t, ok)

	ids := make(map[string]int)
	for i, r := range tbl.Rules() {
		ids[r.ID] = i
	}
	assert.Equal(t, ids["firstcaps"]-1, ids["k8s"])
	assert.Equal(t, ids["i"]-1, ids["golang"])

	k8s, _ := tbl.Lookup("k8s")
	fix, fired, err := k8s.Apply("deploy to K8S")
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, "deploy to Kubernetes", fix.Text)
	assert.Equal(t, DefaultPackReason, fix.Reason)
	assert.Equal(t, GroupPack, k8s.Group)
}

func TestLoadPack_JSON(t *testing.T) {
	path := writeFile(t, "house.json", `{"rules":[{"id":"colour","pattern":"\\bcolor\\b","replacement":"colour","reason":"house spelling"}]}`)
	p, err := LoadPack(path)
	require.NoError(t, err)
	require.Len(t, p.Rules, 1)
	assert.Equal(t, "house spelling", p.Rules[0].Reason)
}

func TestLoadPack_Errors(t *testing.T) {
	p, err := LoadPack("")
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = LoadPack(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadPack(writeFile(t, "bad.json", `{`))
	assert.Error(t, err)

	_, err = LoadPack(writeFile(t, "noid.yaml", "rules:\n  - pattern: x\n"))
	assert.Error(t, err)

	_, err = LoadPack(writeFile(t, "nopattern.yaml", "rules:\n  - id: x\n"))
	assert.Error(t, err)
}

func TestTableWith_Errors(t *testing.T) {
	_, err := Default().With(&Pack{Rules: []PackRule{{ID: "x", Pattern: "x", Before: "missing"}}})
	assert.ErrorIs(t, err, ErrUnknownRule)

	_, err = Default().With(&Pack{Rules: []PackRule{{ID: "i", Pattern: "x"}}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = Default().With(&Pack{Rules: []PackRule{{ID: "x", Pattern: "x", Flags: "q"}}})
	assert.Error(t, err)

	same, err := Default().With(nil)
	require.NoError(t, err)
	assert.Same(t, Default(), same)
}
