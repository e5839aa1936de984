// Package lexer turns source text into the tokens a token-level grammar
// parses. Lexical specifications are compiled and run by maleeni.
package lexer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"
	"github.com/nihei9/sesd/grammar"
)

var (
	ErrInvalidLexSpec = errors.New("invalid lexical specification")
	ErrInvalidToken   = errors.New("invalid token")
)

// Entry describes one token kind. A literal pattern matches its text exactly;
// tokens of a skip kind are dropped from the output.
type Entry struct {
	Kind    string
	Pattern string
	Literal bool
	Skip    bool
}

type Token struct {
	Kind string
	Text string
	Row  int
	Col  int
}

func (t Token) String() string {
	return t.Text
}

// TokenError reports text no entry matches.
type TokenError struct {
	Row  int
	Col  int
	Text string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%v: %v:%v: %q", ErrInvalidToken, e.Row+1, e.Col+1, e.Text)
}

func (e *TokenError) Unwrap() error {
	return ErrInvalidToken
}

type Lexer struct {
	spec  *mlspec.CompiledLexSpec
	kinds []string
	skip  []bool
}

// specName names the maleeni specification. maleeni requires a snake_case
// identifier here.
const specName = "sesd"

// Compile compiles entries into a lexer. Earlier entries win when two
// patterns match the same longest text.
func Compile(entries []Entry) (*Lexer, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidLexSpec)
	}

	seen := map[string]struct{}{}
	skipKinds := map[string]struct{}{}
	mlEntries := make([]*mlspec.LexEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Kind]; ok {
			return nil, fmt.Errorf("%w: duplicate kind: %v", ErrInvalidLexSpec, e.Kind)
		}
		seen[e.Kind] = struct{}{}

		pattern := e.Pattern
		if e.Literal {
			pattern = mlspec.EscapePattern(pattern)
		}
		mlEntries = append(mlEntries, &mlspec.LexEntry{
			Kind:    mlspec.LexKindName(e.Kind),
			Pattern: mlspec.LexPattern(pattern),
		})
		if e.Skip {
			skipKinds[e.Kind] = struct{}{}
		}
	}

	clspec, err, cErrs := mlcompiler.Compile(&mlspec.LexSpec{
		Name:    specName,
		Entries: mlEntries,
	}, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidLexSpec, b.String())
		}
		// maleeni prefixes validation failures with its own heading.
		if cause := errors.Unwrap(err); cause != nil {
			err = cause
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidLexSpec, err)
	}

	kinds := make([]string, len(clspec.KindNames))
	skip := make([]bool, len(clspec.KindNames))
	for i, k := range clspec.KindNames {
		kinds[i] = k.String()
		if _, ok := skipKinds[k.String()]; ok {
			skip[i] = true
		}
	}

	return &Lexer{
		spec:  clspec,
		kinds: kinds,
		skip:  skip,
	}, nil
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}

// Tokenize reads src to the end. On an invalid token it returns the tokens
// read so far along with a *TokenError.
func (l *Lexer) Tokenize(src io.Reader) ([]Token, error) {
	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(l.spec), src)
	if err != nil {
		return nil, err
	}

	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return toks, err
		}
		if tok.EOF {
			break
		}
		if tok.Invalid {
			return toks, &TokenError{
				Row:  tok.Row,
				Col:  tok.Col,
				Text: string(tok.Lexeme),
			}
		}
		id := int(tok.KindID)
		if l.skip[id] {
			continue
		}
		toks = append(toks, Token{
			Kind: l.kinds[id],
			Text: string(tok.Lexeme),
			Row:  tok.Row,
			Col:  tok.Col,
		})
	}

	return toks, nil
}

// Kinds returns the kind names the lexer produces, skip kinds included.
func (l *Lexer) Kinds() []string {
	var kinds []string
	for _, k := range l.kinds {
		if k == mlspec.LexKindNameNil.String() {
			continue
		}
		kinds = append(kinds, k)
	}
	return kinds
}

type kindMatcher struct {
	kind string
	name string
}

// Kind matches tokens of a kind.
func Kind(kind string) grammar.Matcher[Token] {
	return &kindMatcher{
		kind: kind,
		name: kind,
	}
}

// Alias matches tokens of a kind and names the terminal after name, as for
// anonymous literal kinds.
func Alias(kind, name string) grammar.Matcher[Token] {
	return &kindMatcher{
		kind: kind,
		name: name,
	}
}

func (m *kindMatcher) Match(tok Token) bool {
	return tok.Kind == m.kind
}

func (m *kindMatcher) String() string {
	return m.name
}

func sameToken(a, b Token) bool {
	return a.Kind == b.Kind && a.Text == b.Text
}

// Diff finds the single replacement turning old into new: del tokens of old
// at pos are replaced with ins. Tokens compare by kind and text.
func Diff(old, new []Token) (pos, del int, ins []Token) {
	for pos < len(old) && pos < len(new) && sameToken(old[pos], new[pos]) {
		pos++
	}
	suffix := 0
	for suffix < len(old)-pos && suffix < len(new)-pos && sameToken(old[len(old)-1-suffix], new[len(new)-1-suffix]) {
		suffix++
	}
	return pos, len(old) - pos - suffix, new[pos : len(new)-suffix]
}
