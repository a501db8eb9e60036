package rules

import (
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultTimeout bounds a single pattern match in the default table.
const DefaultTimeout = 2 * time.Second

const (
	reasonTrademark   = "trademark capitalization"
	reasonSO          = "'Stack Overflow' is the legal name"
	reasonSE          = "'Stack Exchange' is the legal name"
	reasonNoise       = "noise reduction"
	reasonGrammar     = "grammar and spelling"
	reasonPunctuation = "punctuation & spacing"
)

const (
	none = regexp2.None
	ci   = regexp2.IgnoreCase
	ml   = regexp2.Multiline
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// Default returns the built-in table. It is built once and shared.
var Default = sync.OnceValue(func() *Table {
	t, err := NewTable(defaultRules()...)
	if err != nil {
		panic(err)
	}
	return t.WithMatchTimeout(DefaultTimeout)
})

func trademark(id, expr string, flags regexp2.RegexOptions, repl string) Rule {
	return mustRule(id, GroupTrademark, expr, flags, Literal(repl), Literal(reasonTrademark))
}

func grammar(id, expr, repl string) Rule {
	return mustRule(id, GroupGrammar, expr, ci, Literal(repl), Literal(reasonGrammar))
}

func noise(id, expr string, flags regexp2.RegexOptions) Rule {
	return mustRule(id, GroupNoise, expr, flags, Literal(""), Literal(reasonNoise))
}

func punctuation(id, expr, repl string) Rule {
	return mustRule(id, GroupPunctuation, expr, none, Literal(repl), Literal(reasonPunctuation))
}

func defaultRules() []Rule {
	return []Rule{
		mustRule("noneedtoyell", GroupCase, `^((?=.*[A-Z])[^a-z]*)$`, none,
			Transform(unyell), Literal("no need to yell")),

		mustRule("so", GroupTrademark, `\bstack\s*overflow\b`, ci, Literal("Stack Overflow"), Literal(reasonSO)),
		mustRule("se", GroupTrademark, `\bstack\s*exchange\b`, ci, Literal("Stack Exchange"), Literal(reasonSE)),
		mustRule("expansionSO", GroupTrademark, `([^\b\w.]|^)SO\b`, none, Literal("$1Stack Overflow"), Literal(reasonSO)),
		mustRule("expansionSE", GroupTrademark, `([^\b\w.]|^)SE\b`, none, Literal("$1Stack Exchange"), Literal(reasonSE)),
		trademark("javascript", `([^\b\w.]|^)(javascript|js)\b`, ci, "$1JavaScript"),
		trademark("jsfiddle", `\bjsfiddle\b`, ci, "JSFiddle"),
		trademark("jquery", `\bjquery\b`, ci, "jQuery"),
		trademark("angular", `\bangular(?:js)?\b`, ci, "AngularJS"),
		trademark("html", `([^\b\w.]|^)html(\d)?\b`, ci, "$1HTML$2"),
		trademark("css", `([^\b\w.]|^)css\b`, ci, "$1CSS"),
		trademark("json", `\bjson\b`, ci, "JSON"),
		trademark("ajax", `\bajax\b`, ci, "AJAX"),
		trademark("php", `([^\b\w.]|^)php\b`, ci, "$1PHP"),
		mustRule("voting", GroupTrademark, `\b(down|up)\W+vote`, ci, Literal("$1vote"),
			Literal("the proper spelling (despite the tag name) is '$1vote' (one word)")),
		trademark("c", `([^\b\w.]|^)c([#+]+|\b)`, ci, "$1C$2"),
		trademark("java", `\bjava\b`, ci, "Java"),
		trademark("sql", `([^\b\w.]|^)sql\b`, ci, "$1SQL"),
		mustRule("sqlite", GroupTrademark, `\bsqlite(?:\s*([0-9]+))?\b`, ci, Transform(sqlite), Literal(reasonTrademark)),
		trademark("android", `\bandroid\b`, ci, "Android"),
		trademark("oracle", `\boracle\b`, ci, "Oracle"),
		mustRule("windows", GroupTrademark,
			`\b(?:win|windows)\s+(2k|[0-9.]+|ce|me|nt|xp|vista|server)\b|\bwindows\b`, ci,
			Transform(windows), Literal(reasonTrademark)),
		trademark("linux", `\blinux\b`, ci, "Linux"),
		trademark("wordpress", `\bwordpress\b`, ci, "WordPress"),
		trademark("google", `\bgoogle\b`, ci, "Google"),
		trademark("mysql", `\bmysql\b`, ci, "MySQL"),
		trademark("apache", `\bapache\b`, ci, "Apache"),
		trademark("git", `\bgit\b`, ci, "Git"),
		trademark("github", `\bgithub\b`, ci, "GitHub"),
		trademark("facebook", `\bfacebook\b`, ci, "Facebook"),
		trademark("python", `\bpython\b`, ci, "Python"),
		mustRule("urli", GroupTrademark, `\b(ur[li])\b`, ci,
			Transform(func(c Captures) string { return strings.ToUpper(c[0]) }),
			Literal("acronym capitalization")),
		trademark("ios", `\bios\b`, ci, "iOS"),
		trademark("iosnum", `\bios([0-9])\b`, ci, "iOS $1"),
		trademark("ubunto", `\b[uoa]+b[uoa]*[tn][oua]*[tnu][oua]*\b`, ci, "Ubuntu"),
		mustRule("vbnet", GroupTrademark, `(?:\bvb)?\.net\b(?:\s?(?:framework|core)\b)?`, ci,
			Transform(dotnet), Literal(reasonTrademark)),
		trademark("regex", `\bregex(p)?`, ci, "RegEx$1"),

		noise("editupdate", `(?!(?:edit|update)\s*[^:]*$)(?:^\**)(edit|update)(\s*#?[0-9]+)?:?(?:\**):?`, ml|ci),
		noise("hello", `(?:^|\s)(hi\s+guys|hi|hello|good\s(?:evening|morning|day|afternoon))(?:\.|!|\ )`, ml|ci),
		noise("badwords", `(?:,\s*)?[^\n.!?:,]*\b(?:th?anks?|th(?:an)?x|tanx|folks?|kind(?:est|ly)|first\s*question)\b[^,.!?\n]*[,.!?]*`, ci),
		noise("badphrases", `[^\n.!?:]*(?:h[ea]lp|hope|appreciate|pl(?:ease|z|s))[^.!?\n]*(?:helps?|appreciated?)[^,.!?\n]*[,.!?]*`, ci),
		noise("imnew", `(?! )[\w ]*\bi[' ]?a?m +(?:kinda|really) *new\w* +(?:to|in) *\w* *(?:and|[;,.!?])? *`, ci),
		noise("salutations", `[\r\n]*(regards|cheers?),?[\t\f ]*[\r\n]?\w*\.?`, ci),

		grammar("apostrophes", `\b(can|doesn|don|won|hasn|isn|didn)[^\w']*t\b`, "$1't"),
		grammar("prolly", `\bproll?y\b`, "probably"),
		grammar("i", `\bi\b`, "I"),
		grammar("im", `\bi\W*m\b`, "I'm"),
		grammar("ive", `\bi\W*ve\b`, "I've"),
		grammar("ur", `\bur\b`, "your"),
		grammar("u", `\bu\b`, "you"),
		grammar("gr8", `\bgr8\b`, "great"),
		grammar("allways", `\b(a)llways\b`, "$1lways"),

		mustRule("firstcaps", GroupPunctuation, `(?:(?!\n\n)[^\s.!?]+[ ]*)+([.!?])?[ ]*`, none,
			Transform(firstCaps), Literal("Caps at start of sentences")),
		punctuation("multiplesymbols", `([^\w\s*\-_])\1{1,}`, "$1"),
		punctuation("spacesbeforesymbols", `\s+([.,!?;:])(?!\w)`, "$1"),
		punctuation("multiplespaces", `[ ]{2,}`, " "),
		punctuation("blanklines", `(?:[ \t]*\r?\n){3,}`, "\n\n"),
	}
}

// unyell keeps the first letter upper case and lowers the rest.
func unyell(c Captures) string {
	s := strings.TrimSpace(c[0])
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return upper.String(s[:size]) + lower.String(s[size:])
}

func sqlite(c Captures) string {
	if v := c.Group(1); v != "" {
		return "SQLite " + v
	}
	return "SQLite"
}

var windowsVersions = map[string]string{
	"2k":     "2000",
	"ce":     "CE",
	"me":     "ME",
	"nt":     "NT",
	"xp":     "XP",
	"vista":  "Vista",
	"server": "Server",
}

func windows(c Captures) string {
	v := c.Group(1)
	if v == "" {
		return "Windows"
	}
	if name, ok := windowsVersions[strings.ToLower(v)]; ok {
		v = name
	}
	return "Windows " + v
}

func dotnet(c Captures) string {
	s := c[0]
	for _, w := range []string{"VB", "NET", "Framework", "Core"} {
		s = replaceFold(s, w)
	}
	return s
}

// replaceFold replaces the first case-insensitive occurrence of word in s
// with word.
func replaceFold(s, word string) string {
	i := strings.Index(strings.ToLower(s), strings.ToLower(word))
	if i < 0 {
		return s
	}
	return s[:i] + word + s[i+len(word):]
}

var sentenceStart = regexp2.MustCompile(`^(\W*)([a-z])(.*)`, none)

// firstCaps upper-cases the first letter of a sentence fragment. A fragment
// that gets capitalized and has no terminal punctuation but ends in a word
// character also gets a period.
func firstCaps(c Captures) string {
	s := c[0]
	m, err := sentenceStart.FindStringMatch(s)
	if err != nil || m == nil {
		return s
	}
	g := m.Groups()
	pre, first, post := g[1].String(), g[2].String(), g[3].String()
	out := pre + strings.ToUpper(first) + post
	if c.Group(1) == "" && endsInWord(post) {
		out += "."
	}
	return out + s[len(m.String()):]
}

func endsInWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}
