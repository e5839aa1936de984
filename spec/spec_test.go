package spec

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nihei9/sesd/driver"
	verr "github.com/nihei9/sesd/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exprJSON = `{
  "name": "expr",
  "start": "stmts",
  "restart": ["stmt"],
  "max_repair": 64,
  "tokens": [
    {"kind": "id", "pattern": "[A-Za-z_][0-9A-Za-z_]*"},
    {"kind": "num", "pattern": "[0-9]+"},
    {"kind": "ws", "pattern": "[\\u{0009}\\u{000A}\\u{000D}\\u{0020}]+", "skip": true}
  ],
  "rules": [
    {"lhs": "stmts", "rhs": ["stmts", "stmt"]},
    {"lhs": "stmts", "rhs": []},
    {"lhs": "stmt", "rhs": ["'let'", "id", "'='", "expr", "';'"]},
    {"lhs": "expr", "rhs": ["expr", "'+'", "term"]},
    {"lhs": "expr", "rhs": ["term"]},
    {"lhs": "term", "rhs": ["id"]},
    {"lhs": "term", "rhs": ["num"]}
  ]
}`

const exprYAML = `
name: expr
start: stmts
restart: [stmt]
max_repair: 64
tokens:
  - kind: id
    pattern: "[A-Za-z_][0-9A-Za-z_]*"
  - kind: num
    pattern: "[0-9]+"
  - kind: ws
    pattern: "[\\u{0009}\\u{000A}\\u{000D}\\u{0020}]+"
    skip: true
rules:
  - {lhs: stmts, rhs: [stmts, stmt]}
  - {lhs: stmts, rhs: []}
  - {lhs: stmt, rhs: ["'let'", id, "'='", expr, "';'"]}
  - {lhs: expr, rhs: [expr, "'+'", term]}
  - {lhs: expr, rhs: [term]}
  - {lhs: term, rhs: [id]}
  - {lhs: term, rhs: [num]}
`

const exprTOML = `
name = "expr"
start = "stmts"
restart = ["stmt"]
max_repair = 64

[[tokens]]
kind = "id"
pattern = "[A-Za-z_][0-9A-Za-z_]*"

[[tokens]]
kind = "num"
pattern = "[0-9]+"

[[tokens]]
kind = "ws"
pattern = '[\u{0009}\u{000A}\u{000D}\u{0020}]+'
skip = true

[[rules]]
lhs = "stmts"
rhs = ["stmts", "stmt"]

[[rules]]
lhs = "stmts"
rhs = []

[[rules]]
lhs = "stmt"
rhs = ["'let'", "id", "'='", "expr", "';'"]

[[rules]]
lhs = "expr"
rhs = ["expr", "'+'", "term"]

[[rules]]
lhs = "expr"
rhs = ["term"]

[[rules]]
lhs = "term"
rhs = ["id"]

[[rules]]
lhs = "term"
rhs = ["num"]
`

func build(t *testing.T, src, path string) *Language {
	t.Helper()
	d, err := Read(strings.NewReader(src), path)
	require.NoError(t, err)
	lang, err := d.Build()
	require.NoError(t, err)
	return lang
}

func TestRead_Formats(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		path    string
	}{
		{
			caption: "JSON",
			src:     exprJSON,
			path:    "expr.json",
		},
		{
			caption: "JSON without a path",
			src:     exprJSON,
		},
		{
			caption: "YAML",
			src:     exprYAML,
			path:    "expr.yaml",
		},
		{
			caption: "TOML",
			src:     exprTOML,
			path:    "expr.toml",
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			lang := build(t, tt.src, tt.path)
			assert.Equal(t, "expr", lang.Name)
			assert.Equal(t, []string{"stmt"}, lang.Restart)
			assert.Equal(t, 64, lang.MaxRepair)
			assert.Equal(t, "stmts", lang.Grammar.Name(lang.Grammar.Start()))

			var terms []string
			for _, sym := range lang.Grammar.Terminals() {
				terms = append(terms, lang.Grammar.Name(sym))
			}
			assert.ElementsMatch(t, []string{"'let'", "id", "'='", "';'", "'+'", "num"}, terms)
			assert.ElementsMatch(t, []string{"x_1", "x_2", "x_3", "x_4", "id", "num", "ws"}, lang.Lexer.Kinds())
		})
	}
}

func TestLanguage_Parse(t *testing.T) {
	lang := build(t, exprJSON, "expr.json")
	s, err := lang.NewSession()
	require.NoError(t, err)

	toks, err := lang.Tokenize("let a = 1 + b;\nlet letter = a;")
	require.NoError(t, err)
	assert.Equal(t, "x_1", toks[0].Kind)
	assert.Equal(t, "letter", toks[8].Text)
	assert.Equal(t, "id", toks[8].Kind)

	require.NoError(t, s.Insert(0, toks...))
	assert.Equal(t, driver.VerdictAccept, s.Status().Verdict)
	tree := s.CurrentTree()
	require.NotNil(t, tree)
	assert.Equal(t, "stmts", tree.Name)

	var leaves []string
	for leaf := range tree.Leaves() {
		leaves = append(leaves, leaf.Name)
	}
	assert.Equal(t, []string{"'let'", "id", "'='", "num", "'+'", "id", "';'", "'let'", "id", "'='", "id", "';'"}, leaves)

	// A missing operand stalls the parse and the statement restarts.
	bad, err := lang.Tokenize("let a = 1 + ;")
	require.NoError(t, err)
	require.NoError(t, s.Replace(0, len(toks), bad...))
	st := s.Status()
	assert.Equal(t, driver.VerdictReject, st.Verdict)
	require.NotEmpty(t, st.Restarts)
	assert.Equal(t, "stmt", st.Restarts[0].Name)
}

func TestRead_SyntaxError(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		path    string
		row     int
	}{
		{
			caption: "a JSON syntax error",
			src:     "{\n  \"start\": \"s\",\n  \"rules\": [}\n",
			path:    "a.json",
			row:     3,
		},
		{
			caption: "a JSON type error",
			src:     "{\n  \"start\": 1\n}\n",
			path:    "a.json",
			row:     2,
		},
		{
			caption: "an unknown JSON field",
			src:     `{"begin": "s"}`,
			path:    "a.json",
		},
		{
			caption: "an empty JSON document",
			src:     "",
			path:    "a.json",
		},
		{
			caption: "a TOML syntax error",
			src:     "start = \"s\"\nrules = [\n",
			path:    "a.toml",
		},
		{
			caption: "an unknown YAML field",
			src:     "begin: s\n",
			path:    "a.yml",
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src), tt.path)
			require.Error(t, err)
			var specErr *verr.SpecError
			require.True(t, errors.As(err, &specErr), "unexpected error: %v", err)
			assert.Equal(t, synErrInvalidDescription, specErr.Cause)
			assert.Equal(t, tt.path, specErr.SourceName)
			if tt.row > 0 {
				assert.Equal(t, tt.row, specErr.Row)
			}
		})
	}
}

func TestDescription_Build_SemanticError(t *testing.T) {
	rules := func(rs ...*Rule) []*Rule { return rs }
	tok := func(kind, pattern string) *Token { return &Token{Kind: kind, Pattern: pattern} }

	tests := []struct {
		caption string
		desc    *Description
		errs    []error
	}{
		{
			caption: "no start symbol",
			desc: &Description{
				Tokens: []*Token{tok("a", "a")},
				Rules:  rules(&Rule{LHS: "s", RHS: []string{"a"}}),
			},
			errs: []error{semErrNoStart},
		},
		{
			caption: "no rules",
			desc: &Description{
				Start:  "s",
				Tokens: []*Token{tok("a", "a")},
			},
			errs: []error{semErrNoRule},
		},
		{
			caption: "duplicate token kinds",
			desc: &Description{
				Start:  "s",
				Tokens: []*Token{tok("a", "a"), tok("a", "b")},
				Rules:  rules(&Rule{LHS: "s", RHS: []string{"a"}}),
			},
			errs: []error{semErrDuplicateKind},
		},
		{
			caption: "a token kind defined as a rule",
			desc: &Description{
				Start:  "s",
				Tokens: []*Token{tok("a", "a")},
				Rules: rules(
					&Rule{LHS: "s", RHS: []string{"a"}},
					&Rule{LHS: "a", RHS: []string{"'b'"}},
				),
			},
			errs: []error{semErrKindIsNonTerminal},
		},
		{
			caption: "an empty literal",
			desc: &Description{
				Start: "s",
				Rules: rules(&Rule{LHS: "s", RHS: []string{"''"}}),
			},
			errs: []error{semErrEmptyLiteral},
		},
		{
			caption: "an unclosed literal",
			desc: &Description{
				Start: "s",
				Rules: rules(&Rule{LHS: "s", RHS: []string{"'a"}}),
			},
			errs: []error{synErrUnclosedLiteral},
		},
		{
			caption: "an unknown restart symbol",
			desc: &Description{
				Start:   "s",
				Restart: []string{"stmt"},
				Tokens:  []*Token{tok("a", "a")},
				Rules:   rules(&Rule{LHS: "s", RHS: []string{"a"}}),
			},
			errs: []error{semErrUnknownRestart},
		},
		{
			caption: "an undefined non-terminal",
			desc: &Description{
				Start:  "s",
				Tokens: []*Token{tok("a", "a")},
				Rules:  rules(&Rule{LHS: "s", RHS: []string{"a", "rest"}}),
			},
			errs: []error{semErrUndefinedSymbol},
		},
		{
			caption: "a start symbol without rules",
			desc: &Description{
				Start:  "t",
				Tokens: []*Token{tok("a", "a")},
				Rules:  rules(&Rule{LHS: "s", RHS: []string{"a"}}),
			},
			errs: []error{semErrInvalidGrammar},
		},
		{
			caption: "an invalid pattern",
			desc: &Description{
				Start:  "s",
				Tokens: []*Token{tok("a", "[a")},
				Rules:  rules(&Rule{LHS: "s", RHS: []string{"a"}}),
			},
			errs: []error{semErrInvalidLexSpec},
		},
		{
			caption: "every error is reported",
			desc: &Description{
				Start:     "s",
				Restart:   []string{"t"},
				MaxRepair: -1,
				Tokens:    []*Token{tok("a", "a"), tok("a", "a"), {Kind: "b"}},
				Rules:     rules(&Rule{LHS: "s", RHS: []string{"a", ""}}),
			},
			errs: []error{semErrDuplicateKind, semErrEmptyPattern, semErrEmptyName, semErrUnknownRestart, semErrNegativeBudget},
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			_, err := tt.desc.Build()
			require.Error(t, err)
			for _, expected := range tt.errs {
				assert.True(t, errors.Is(err, expected), "expected %v; got %v", expected, err)
			}
		})
	}
}

func TestUnquoteLiteral(t *testing.T) {
	tests := []struct {
		lit  string
		text string
		err  error
	}{
		{lit: `'+'`, text: "+"},
		{lit: `'let'`, text: "let"},
		{lit: `'\''`, text: "'"},
		{lit: `'\\'`, text: `\`},
		{lit: `''`, err: semErrEmptyLiteral},
		{lit: `'`, err: synErrUnclosedLiteral},
		{lit: `'a'b'`, err: synErrUnclosedLiteral},
		{lit: `'\n'`, err: synErrInvalidEscSeq},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			text, err := unquoteLiteral(tt.lit)
			if tt.err != nil {
				assert.Equal(t, tt.err, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestLanguage_Options(t *testing.T) {
	lang := build(t, exprJSON, "expr.json")
	lang.MaxRepair = 1
	s, err := lang.NewSession()
	require.NoError(t, err)

	toks, err := lang.Tokenize("let a = 1; let b = 2; let c = 3;")
	require.NoError(t, err)
	err = s.Insert(0, toks...)
	assert.True(t, errors.Is(err, driver.ErrRepairTooLarge))
	require.NoError(t, s.Resume())
	assert.Equal(t, driver.VerdictAccept, s.Status().Verdict)

	_, err = lang.NewSession(driver.MaxRepair(-1))
	assert.Error(t, err)
}
