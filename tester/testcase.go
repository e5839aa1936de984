package tester

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/grammar"
	"github.com/nihei9/sesd/lexer"
)

// TestCase is a source text and the tree it must parse to. A test case file
// holds a description, the source and the tree, separated by lines of
// dashes:
//
//	Addition
//	---
//	1 + 2
//	---
//	(expr
//	    (expr (term (num "1")))
//	    ('+' "+")
//	    (term (num "2")))
type TestCase struct {
	Description string
	Source      []byte
	Output      *Tree
}

func ParseTestCase(r io.Reader) (*TestCase, error) {
	parts, err := splitIntoParts(r)
	if err != nil {
		return nil, err
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("too many or too few part delimiters: a test case consists of just tree parts: %v parts found", len(parts))
	}

	tp := &treeParser{
		lineOffset: parts[0].lineCount + parts[1].lineCount + 2,
	}
	tree, err := tp.parseTree(string(parts[2].buf))
	if err != nil {
		return nil, err
	}

	return &TestCase{
		Description: string(parts[0].buf),
		Source:      parts[1].buf,
		Output:      tree,
	}, nil
}

type testCasePart struct {
	buf       []byte
	lineCount int
}

func splitIntoParts(r io.Reader) ([]*testCasePart, error) {
	var bufs []*testCasePart
	s := bufio.NewScanner(r)
	for {
		buf, lineCount, err := readPart(s)
		if err != nil {
			return nil, err
		}
		if buf == nil {
			break
		}
		bufs = append(bufs, &testCasePart{
			buf:       buf,
			lineCount: lineCount,
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return bufs, nil
}

var reDelim = regexp.MustCompile(`^\s*---+\s*$`)

func readPart(s *bufio.Scanner) ([]byte, int, error) {
	if !s.Scan() {
		return nil, 0, s.Err()
	}
	// An empty part is an empty slice, never nil.
	buf := bytes.NewBuffer([]byte{})
	line := s.Bytes()
	if reDelim.Match(line) {
		return []byte{}, 0, nil
	}
	buf.Write(line)
	lineCount := 1
	for s.Scan() {
		line := s.Bytes()
		if reDelim.Match(line) {
			return buf.Bytes(), lineCount, nil
		}
		buf.WriteByte('\n')
		buf.Write(line)
		lineCount++
	}
	if err := s.Err(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), lineCount, nil
}

type treeLanguage struct {
	gram *grammar.Grammar[lexer.Token]
	lex  *lexer.Lexer
}

// treeSyntax describes the tree part of test cases: a node is a parenthesized
// kind followed by either one double-quoted lexeme or child nodes.
var treeSyntax = sync.OnceValues(func() (*treeLanguage, error) {
	lex, err := lexer.Compile([]lexer.Entry{
		{Kind: "l_paren", Pattern: "(", Literal: true},
		{Kind: "r_paren", Pattern: ")", Literal: true},
		{Kind: "string", Pattern: `\u{0022}([^\u{0022}\u{005C}\u{000A}]|\u{005C}[^\u{000A}])*\u{0022}`},
		{Kind: "literal", Pattern: `\u{0027}[^\u{0027}\u{000A}]+\u{0027}`},
		{Kind: "id", Pattern: `[^\u{0009}\u{000A}\u{000D}\u{0020}\u{0022}\u{0027}\u{0028}\u{0029}]+`},
		{Kind: "ws", Pattern: `[\u{0009}\u{000A}\u{000D}\u{0020}]+`, Skip: true},
	})
	if err != nil {
		return nil, err
	}

	t := grammar.Term[lexer.Token]
	nt := grammar.NT[lexer.Token]
	b := &grammar.Builder[lexer.Token]{}
	b.Rule("tree", t(lexer.Alias("l_paren", "'('")), nt("kind"), nt("nodes"), t(lexer.Alias("r_paren", "')'"))).
		Rule("kind", t(lexer.Kind("id"))).
		Rule("kind", t(lexer.Kind("literal"))).
		Rule("nodes", nt("nodes"), nt("tree")).
		Rule("nodes", nt("nodes"), t(lexer.Kind("string"))).
		Rule("nodes")
	gram, err := b.Compile("tree")
	if err != nil {
		return nil, err
	}

	return &treeLanguage{
		gram: gram,
		lex:  lex,
	}, nil
})

type treeParser struct {
	lineOffset int
	toks       []lexer.Token
}

func (tp *treeParser) errorf(tok lexer.Token, format string, a ...any) error {
	return fmt.Errorf("%v:%v: %v", tp.lineOffset+tok.Row+1, tok.Col+1, fmt.Sprintf(format, a...))
}

func (tp *treeParser) parseTree(src string) (*Tree, error) {
	lang, err := treeSyntax()
	if err != nil {
		return nil, err
	}
	toks, err := lang.lex.Tokenize(strings.NewReader(src))
	if err != nil {
		var tokErr *lexer.TokenError
		if errors.As(err, &tokErr) {
			return nil, tp.errorf(lexer.Token{Row: tokErr.Row, Col: tokErr.Col}, "invalid token: %q", tokErr.Text)
		}
		return nil, err
	}
	tp.toks = toks

	s, err := driver.NewSession(lang.gram)
	if err != nil {
		return nil, err
	}
	err = s.Insert(0, toks...)
	var unrecoverable *driver.UnrecoverableError
	switch {
	case errors.As(err, &unrecoverable):
		return nil, tp.syntaxError(unrecoverable.Column, unrecoverable.Expected)
	case err != nil:
		return nil, err
	}
	node := s.CurrentTree()
	if node == nil {
		return nil, tp.syntaxError(len(toks), s.Expected(len(toks)))
	}

	t, err := tp.genTree(node)
	if err != nil {
		return nil, err
	}
	return t.Fill(), nil
}

func (tp *treeParser) syntaxError(pos int, expected []string) error {
	var msg string
	if len(expected) > 0 {
		msg = fmt.Sprintf("; expected: %v", strings.Join(expected, ", "))
	}
	if pos >= len(tp.toks) {
		if len(tp.toks) == 0 {
			return fmt.Errorf("%v:1: unexpected end of tree%v", tp.lineOffset+1, msg)
		}
		return tp.errorf(tp.toks[len(tp.toks)-1], "unexpected end of tree%v", msg)
	}
	tok := tp.toks[pos]
	return tp.errorf(tok, "unexpected token '%v'%v", tok.Text, msg)
}

// genTree converts a node of the tree grammar; node derives tree.
func (tp *treeParser) genTree(node *driver.Node) (*Tree, error) {
	kind := node.Children[1].Children[0]
	var children []*Tree
	var lexemes []*driver.Node
	for _, n := range flattenNodes(node.Children[2]) {
		if n.Leaf() {
			lexemes = append(lexemes, n)
			continue
		}
		c, err := tp.genTree(n)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	switch {
	case len(lexemes) == 0:
		return NewNonTerminalTree(kind.Text, children...), nil
	case len(lexemes) > 1 || len(children) > 0:
		return nil, tp.errorf(tp.toks[lexemes[0].Start], "a node takes either one lexeme or child nodes")
	}
	lexeme, err := strconv.Unquote(lexemes[0].Text)
	if err != nil {
		return nil, tp.errorf(tp.toks[lexemes[0].Start], "invalid string: %v", lexemes[0].Text)
	}
	return NewTerminalNode(kind.Text, lexeme), nil
}

// flattenNodes lists what a left-recursive nodes derivation holds, in order.
func flattenNodes(node *driver.Node) []*driver.Node {
	var ns []*driver.Node
	for len(node.Children) == 2 {
		ns = append(ns, node.Children[1])
		node = node.Children[0]
	}
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
	return ns
}
