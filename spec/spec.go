// Package spec reads grammar descriptions and builds the token-level grammar
// and lexer they describe. A description is a JSON document; files named
// *.yaml, *.yml or *.toml are read in those formats instead.
package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nihei9/sesd/driver"
	verr "github.com/nihei9/sesd/error"
	"github.com/nihei9/sesd/grammar"
	"github.com/nihei9/sesd/lexer"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Token struct {
	Kind    string `json:"kind" yaml:"kind" toml:"kind"`
	Pattern string `json:"pattern" yaml:"pattern" toml:"pattern"`
	Skip    bool   `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
}

// Rule is one production. An RHS element is a token kind, a quoted literal
// such as '+', or a non-terminal name. An empty RHS derives the empty string.
type Rule struct {
	LHS string   `json:"lhs" yaml:"lhs" toml:"lhs"`
	RHS []string `json:"rhs" yaml:"rhs" toml:"rhs"`
}

type Description struct {
	Name      string   `json:"name" yaml:"name" toml:"name"`
	Start     string   `json:"start" yaml:"start" toml:"start"`
	Restart   []string `json:"restart,omitempty" yaml:"restart,omitempty" toml:"restart,omitempty"`
	MaxRepair int      `json:"max_repair,omitempty" yaml:"max_repair,omitempty" toml:"max_repair,omitempty"`
	Tokens    []*Token `json:"tokens" yaml:"tokens" toml:"tokens"`
	Rules     []*Rule  `json:"rules" yaml:"rules" toml:"rules"`

	path string
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	}
	return formatJSON
}

// Read decodes a description. path names the source in errors and selects the
// format by its extension; it may be empty.
func Read(r io.Reader, path string) (*Description, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	d := &Description{}
	switch formatOf(path) {
	case formatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)
		err = dec.Decode(d)
	case formatTOML:
		err = toml.NewDecoder(bytes.NewReader(src)).DisallowUnknownFields().Decode(d)
	default:
		dec := json.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()
		err = dec.Decode(d)
	}
	if err != nil {
		return nil, decodeError(err, src, path)
	}
	d.path = path

	return d, nil
}

func decodeError(err error, src []byte, path string) error {
	specErr := &verr.SpecError{
		Cause:      synErrInvalidDescription,
		Detail:     err.Error(),
		FilePath:   path,
		SourceName: path,
	}

	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tomlErr *toml.DecodeError
	switch {
	case errors.As(err, &synErr):
		specErr.Row, specErr.Col = position(src, synErr.Offset)
	case errors.As(err, &typeErr):
		specErr.Row, specErr.Col = position(src, typeErr.Offset)
	case errors.As(err, &tomlErr):
		specErr.Row, specErr.Col = tomlErr.Position()
	case errors.Is(err, io.EOF):
		specErr.Detail = "empty description"
	}

	return specErr
}

// position converts a byte offset into a 1-based row and column.
func position(src []byte, offset int64) (int, int) {
	if offset > int64(len(src)) {
		offset = int64(len(src))
	}
	row, col := 1, 1
	for _, b := range src[:offset] {
		if b == '\n' {
			row++
			col = 1
			continue
		}
		col++
	}
	return row, col
}

// Language bundles everything needed to parse source text of one grammar.
type Language struct {
	Name      string
	Grammar   *grammar.Grammar[lexer.Token]
	Lexer     *lexer.Lexer
	Restart   []string
	MaxRepair int
}

// Options returns the session options the description asks for.
func (l *Language) Options() []driver.Option {
	var opts []driver.Option
	if len(l.Restart) > 0 {
		opts = append(opts, driver.RestartSymbols(l.Restart...))
	}
	if l.MaxRepair > 0 {
		opts = append(opts, driver.MaxRepair(l.MaxRepair))
	}
	return opts
}

// NewSession starts an empty session over the language with its options
// followed by opts.
func (l *Language) NewSession(opts ...driver.Option) (*driver.Session[lexer.Token], error) {
	return driver.NewSession(l.Grammar, append(l.Options(), opts...)...)
}

// Tokenize tokenizes src with the language's lexer.
func (l *Language) Tokenize(src string) ([]lexer.Token, error) {
	return l.Lexer.Tokenize(strings.NewReader(src))
}

func (d *Description) Build() (*Language, error) {
	b := &builder{
		desc:     d,
		kinds:    map[string]struct{}{},
		literals: map[string]string{},
	}
	return b.build()
}

type builder struct {
	desc     *Description
	kinds    map[string]struct{}
	literals map[string]string
	entries  []lexer.Entry
	errs     []*verr.SpecError
}

func (b *builder) errorf(cause error, format string, a ...any) {
	b.errs = append(b.errs, &verr.SpecError{
		Cause:      cause,
		Detail:     fmt.Sprintf(format, a...),
		FilePath:   b.desc.path,
		SourceName: b.desc.path,
	})
}

func (b *builder) build() (*Language, error) {
	d := b.desc
	if d.Start == "" {
		b.errorf(semErrNoStart, "")
	}
	if len(d.Rules) == 0 {
		b.errorf(semErrNoRule, "")
	}

	lhs := map[string]struct{}{}
	for _, r := range d.Rules {
		if r.LHS == "" {
			b.errorf(semErrEmptyName, "a rule has no LHS")
			continue
		}
		lhs[r.LHS] = struct{}{}
	}

	var kindEntries []lexer.Entry
	for i, t := range d.Tokens {
		switch {
		case t.Kind == "":
			b.errorf(semErrEmptyName, "token #%v has no kind", i)
			continue
		case t.Pattern == "":
			b.errorf(semErrEmptyPattern, "%v", t.Kind)
			continue
		}
		if _, ok := b.kinds[t.Kind]; ok {
			b.errorf(semErrDuplicateKind, "%v", t.Kind)
			continue
		}
		if _, ok := lhs[t.Kind]; ok {
			b.errorf(semErrKindIsNonTerminal, "%v", t.Kind)
			continue
		}
		b.kinds[t.Kind] = struct{}{}
		kindEntries = append(kindEntries, lexer.Entry{
			Kind:    t.Kind,
			Pattern: t.Pattern,
			Skip:    t.Skip,
		})
	}

	rules := make([]grammar.Rule[lexer.Token], 0, len(d.Rules))
	for _, r := range d.Rules {
		if r.LHS == "" {
			continue
		}
		rhs := make([]grammar.Element[lexer.Token], 0, len(r.RHS))
		for _, e := range r.RHS {
			elem, ok := b.element(r.LHS, e)
			if !ok {
				continue
			}
			rhs = append(rhs, elem)
		}
		rules = append(rules, grammar.Rule[lexer.Token]{
			LHS: r.LHS,
			RHS: rhs,
		})
	}

	for _, name := range d.Restart {
		if _, ok := lhs[name]; !ok {
			b.errorf(semErrUnknownRestart, "%v", name)
		}
	}
	if d.MaxRepair < 0 {
		b.errorf(semErrNegativeBudget, "%v", d.MaxRepair)
	}

	if len(b.errs) > 0 {
		return nil, b.joinErrors()
	}

	// Literals go first so that they win over patterns matching the same text.
	lex, err := lexer.Compile(append(b.entries, kindEntries...))
	if err != nil {
		b.errorf(semErrInvalidLexSpec, "%v", err)
		return nil, b.joinErrors()
	}

	gram, err := grammar.Compile(rules, d.Start)
	if err != nil {
		b.errorf(semErrInvalidGrammar, "%v", err)
		return nil, b.joinErrors()
	}
	if undefined := gram.Undefined(); len(undefined) > 0 {
		b.errorf(semErrUndefinedSymbol, "%v", strings.Join(undefined, ", "))
		return nil, b.joinErrors()
	}

	return &Language{
		Name:      d.Name,
		Grammar:   gram,
		Lexer:     lex,
		Restart:   d.Restart,
		MaxRepair: d.MaxRepair,
	}, nil
}

func (b *builder) element(lhs, e string) (grammar.Element[lexer.Token], bool) {
	if isLiteral(e) {
		text, err := unquoteLiteral(e)
		if err != nil {
			b.errorf(err, "%v in %v", e, lhs)
			return grammar.Element[lexer.Token]{}, false
		}
		kind, ok := b.literals[text]
		if !ok {
			kind = b.anonymousKind()
			b.literals[text] = kind
			b.entries = append(b.entries, lexer.Entry{
				Kind:    kind,
				Pattern: text,
				Literal: true,
			})
		}
		return grammar.Term(lexer.Alias(kind, e)), true
	}
	if e == "" {
		b.errorf(semErrEmptyName, "an element of %v", lhs)
		return grammar.Element[lexer.Token]{}, false
	}
	if _, ok := b.kinds[e]; ok {
		return grammar.Term(lexer.Kind(e)), true
	}
	return grammar.NT[lexer.Token](e), true
}

// anonymousKind names the next literal kind x_1, x_2 and so on, skipping
// names the description already uses.
func (b *builder) anonymousKind() string {
	for n := len(b.entries) + 1; ; n++ {
		kind := fmt.Sprintf("x_%v", n)
		if _, ok := b.kinds[kind]; ok {
			continue
		}
		return kind
	}
}

func isLiteral(e string) bool {
	return strings.HasPrefix(e, "'")
}

// unquoteLiteral strips the quotes of a literal. Inside them \' stands for a
// quote and \\ for a backslash.
func unquoteLiteral(e string) (string, error) {
	if len(e) < 2 || !strings.HasSuffix(e, "'") {
		return "", synErrUnclosedLiteral
	}
	body := e[1 : len(e)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '\\':
			if i+1 >= len(body) || (body[i+1] != '\'' && body[i+1] != '\\') {
				return "", synErrInvalidEscSeq
			}
			i++
			b.WriteByte(body[i])
		case '\'':
			return "", synErrUnclosedLiteral
		default:
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return "", semErrEmptyLiteral
	}
	return b.String(), nil
}

func (b *builder) joinErrors() error {
	if len(b.errs) == 1 {
		return b.errs[0]
	}
	errs := make([]error, len(b.errs))
	for i, e := range b.errs {
		errs[i] = e
	}
	return errors.Join(errs...)
}
