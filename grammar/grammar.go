// Package grammar compiles context-free rules over an arbitrary symbol type
// into an immutable Grammar. Terminals are described by matchers, so the same
// machinery serves characters, lexical tokens or any user-defined unit.
package grammar

import (
	"errors"
	"fmt"
)

// Element is one right-hand-side element of a rule: either a non-terminal
// referenced by name or a terminal described by a matcher.
type Element[T any] struct {
	name    string
	matcher Matcher[T]
}

func NT[T any](name string) Element[T] {
	return Element[T]{name: name}
}

func Term[T any](m Matcher[T]) Element[T] {
	return Element[T]{matcher: m}
}

func (e Element[T]) IsTerminal() bool {
	return e.matcher != nil
}

func (e Element[T]) String() string {
	if e.matcher != nil {
		return e.matcher.String()
	}
	return e.name
}

type Rule[T any] struct {
	LHS string
	RHS []Element[T]
}

// Builder accumulates rules in declaration order.
type Builder[T any] struct {
	rules []Rule[T]
}

func (b *Builder[T]) Rule(lhs string, rhs ...Element[T]) *Builder[T] {
	b.rules = append(b.rules, Rule[T]{
		LHS: lhs,
		RHS: rhs,
	})
	return b
}

func (b *Builder[T]) Rules() []Rule[T] {
	return b.rules
}

func (b *Builder[T]) Compile(start string) (*Grammar[T], error) {
	return Compile(b.rules, start)
}

// CompileError carries the semantic error that made a compilation fail.
type CompileError struct {
	Cause  error
	Detail string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%v: %v", e.Cause, e.Detail)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Grammar is immutable once compiled and safe to share between sessions.
type Grammar[T any] struct {
	symTab    *symbolTableReader
	matchers  []Matcher[T]
	prods     *productionSet
	start     Symbol
	first     *firstSet
	follow    *followSet
	undefined []string
}

// Compile builds a grammar from rules. It fails with ErrAmbiguousOrEmptyGrammar
// when start has no rules. Non-terminals referenced but never defined are
// accepted and derive nothing; Undefined lists them.
func Compile[T any](rules []Rule[T], start string) (*Grammar[T], error) {
	if start == "" {
		return nil, &CompileError{Cause: ErrEmptySymbol, Detail: "start symbol"}
	}
	hasStart := false
	for i, rule := range rules {
		if rule.LHS == "" {
			return nil, &CompileError{Cause: ErrEmptySymbol, Detail: fmt.Sprintf("LHS of rule #%v", i)}
		}
		for j, elem := range rule.RHS {
			if elem.matcher == nil && elem.name == "" {
				return nil, &CompileError{Cause: ErrNilMatcher, Detail: fmt.Sprintf("element #%v of rule #%v (%v)", j, i, rule.LHS)}
			}
			if elem.matcher != nil && elem.matcher.String() == "" {
				return nil, &CompileError{Cause: ErrEmptySymbol, Detail: fmt.Sprintf("terminal #%v of rule #%v (%v)", j, i, rule.LHS)}
			}
		}
		if rule.LHS == start {
			hasStart = true
		}
	}
	if !hasStart {
		return nil, &CompileError{Cause: ErrAmbiguousOrEmptyGrammar, Detail: start}
	}

	symTab := newSymbolTable()
	w := symTab.writer()
	startSym, err := w.registerStartSymbol(start)
	if err != nil {
		return nil, &CompileError{Cause: ErrDuplicateName, Detail: start}
	}
	defined := map[Symbol]struct{}{}
	for _, rule := range rules {
		sym, err := w.registerNonTerminalSymbol(rule.LHS)
		if err != nil {
			return nil, wrapCompileError(err, rule.LHS)
		}
		defined[sym] = struct{}{}
	}

	matchers := []Matcher[T]{
		nil, // Nil
	}
	prods := newProductionSet()
	for _, rule := range rules {
		lhs, _ := symTab.reader().toSymbol(rule.LHS)
		rhs := make([]Symbol, 0, len(rule.RHS))
		for _, elem := range rule.RHS {
			var sym Symbol
			if elem.matcher != nil {
				var created bool
				sym, created, err = w.registerTerminalSymbol(elem.matcher.String())
				if created {
					matchers = append(matchers, elem.matcher)
				}
			} else {
				sym, err = w.registerNonTerminalSymbol(elem.name)
			}
			if err != nil {
				return nil, wrapCompileError(err, elem.String())
			}
			rhs = append(rhs, sym)
		}
		prod, err := newProduction(lhs, rhs)
		if err != nil {
			return nil, err
		}
		prods.append(prod)
	}

	r := symTab.reader()
	nonTerms := r.nonTerminalSymbols()
	var undefined []string
	for _, sym := range nonTerms {
		if _, ok := defined[sym]; !ok {
			text, _ := r.toText(sym)
			undefined = append(undefined, text)
		}
	}

	fst := genFirstSet(nonTerms, prods)
	return &Grammar[T]{
		symTab:    r,
		matchers:  matchers,
		prods:     prods,
		start:     startSym,
		first:     fst,
		follow:    genFollowSet(nonTerms, prods, fst),
		undefined: undefined,
	}, nil
}

func wrapCompileError(err error, detail string) error {
	for _, semErr := range []*SemanticError{ErrDuplicateName, ErrTooManySymbols} {
		if errors.Is(err, semErr) {
			return &CompileError{Cause: semErr, Detail: detail}
		}
	}
	return err
}

func (g *Grammar[T]) Start() Symbol {
	return g.start
}

// RulesFor returns the productions of nt in declaration order.
func (g *Grammar[T]) RulesFor(nt Symbol) []*Production {
	prods, _ := g.prods.findByLHS(nt)
	return prods
}

func (g *Grammar[T]) Production(num int) *Production {
	if num < 0 || num >= len(g.prods.prods) {
		return nil
	}
	return g.prods.prods[num]
}

func (g *Grammar[T]) Productions() []*Production {
	return g.prods.getAllProductions()
}

func (g *Grammar[T]) Lookup(name string) (Symbol, bool) {
	return g.symTab.toSymbol(name)
}

func (g *Grammar[T]) Name(sym Symbol) string {
	text, ok := g.symTab.toText(sym)
	if !ok {
		return sym.String()
	}
	return text
}

// Match reports whether the terminal term accepts sym.
func (g *Grammar[T]) Match(term Symbol, sym T) bool {
	m := g.Matcher(term)
	if m == nil {
		return false
	}
	return m.Match(sym)
}

func (g *Grammar[T]) Matcher(term Symbol) Matcher[T] {
	if !term.IsTerminal() {
		return nil
	}
	num := term.Num().Int()
	if num >= len(g.matchers) {
		return nil
	}
	return g.matchers[num]
}

// NonTerminals returns the non-terminals in registration order, the start
// symbol first.
func (g *Grammar[T]) NonTerminals() []Symbol {
	return g.symTab.nonTerminalSymbols()
}

func (g *Grammar[T]) Terminals() []Symbol {
	return g.symTab.terminalSymbols()
}

func (g *Grammar[T]) Nullable(nt Symbol) bool {
	e := g.first.findBySymbol(nt)
	return e != nil && e.empty
}

// First returns the terminals that can begin a derivation of nt.
func (g *Grammar[T]) First(nt Symbol) []Symbol {
	e := g.first.findBySymbol(nt)
	if e == nil {
		return nil
	}
	return e.sorted()
}

// Follow returns the terminals that can follow nt in a sentential form, and
// whether the end of input can.
func (g *Grammar[T]) Follow(nt Symbol) ([]Symbol, bool) {
	e := g.follow.findBySymbol(nt)
	if e == nil {
		return nil, false
	}
	return e.sorted(), e.eoi
}

func (g *Grammar[T]) Undefined() []string {
	return g.undefined
}
