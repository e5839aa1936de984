package grammar

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r(c rune) Element[rune] {
	return Term(Rune(c))
}

func n(name string) Element[rune] {
	return NT[rune](name)
}

func TestCompile(t *testing.T) {
	tests := []struct {
		caption string
		rules   []Rule[rune]
		start   string
		err     error
	}{
		{
			caption: "a grammar with an empty alternative",
			rules: []Rule[rune]{
				{LHS: "S", RHS: []Element[rune]{r('a'), n("S"), r('b')}},
				{LHS: "S"},
			},
			start: "S",
		},
		{
			caption: "the start symbol has no rules",
			rules: []Rule[rune]{
				{LHS: "A", RHS: []Element[rune]{r('a')}},
			},
			start: "S",
			err:   ErrAmbiguousOrEmptyGrammar,
		},
		{
			caption: "no rules at all",
			start:   "S",
			err:     ErrAmbiguousOrEmptyGrammar,
		},
		{
			caption: "an empty start symbol",
			rules: []Rule[rune]{
				{LHS: "S"},
			},
			start: "",
			err:   ErrEmptySymbol,
		},
		{
			caption: "an element without a name or a matcher",
			rules: []Rule[rune]{
				{LHS: "S", RHS: []Element[rune]{{}}},
			},
			start: "S",
			err:   ErrNilMatcher,
		},
		{
			caption: "a terminal named like a non-terminal",
			rules: []Rule[rune]{
				{LHS: "S", RHS: []Element[rune]{Term(Func("A", func(c rune) bool { return true }))}},
				{LHS: "A"},
			},
			start: "S",
			err:   ErrDuplicateName,
		},
		{
			caption: "an undefined non-terminal compiles",
			rules: []Rule[rune]{
				{LHS: "S", RHS: []Element[rune]{n("Missing")}},
				{LHS: "S", RHS: []Element[rune]{r('x')}},
			},
			start: "S",
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			g, err := Compile(tt.rules, tt.start)
			if tt.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err), "unexpected error: %v", err)
				var cErr *CompileError
				assert.True(t, errors.As(err, &cErr))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, g)
		})
	}
}

func TestGrammar_RulesFor(t *testing.T) {
	b := &Builder[rune]{}
	b.Rule("E", n("E"), r('+'), n("T")).
		Rule("E", n("T")).
		Rule("T", r('x')).
		Rule("T", r('('), n("E"), r(')')).
		Rule("E", n("T")) // duplicate, dropped
	g, err := b.Compile("E")
	require.NoError(t, err)

	e, ok := g.Lookup("E")
	require.True(t, ok)
	assert.True(t, e.IsStart())
	assert.True(t, e.IsNonTerminal())
	assert.Equal(t, e, g.Start())

	prods := g.RulesFor(e)
	require.Len(t, prods, 2)
	assert.Equal(t, 0, prods[0].Num())
	assert.Equal(t, 1, prods[1].Num())
	assert.Equal(t, 3, prods[0].Len())
	assert.Equal(t, "'+'", g.Name(prods[0].At(1)))
	assert.Len(t, g.Productions(), 4)

	tSym, ok := g.Lookup("T")
	require.True(t, ok)
	tProds := g.RulesFor(tSym)
	require.Len(t, tProds, 2)
	assert.Equal(t, "'x'", g.Name(tProds[0].At(0)))
	assert.Equal(t, []Symbol{tSym, e}, []Symbol{tProds[0].LHS(), prods[0].LHS()})

	assert.Equal(t, []Symbol{e, tSym}, g.NonTerminals())
	assert.Len(t, g.Terminals(), 4)
	assert.Empty(t, g.Undefined())
}

func TestGrammar_Match(t *testing.T) {
	b := &Builder[rune]{}
	b.Rule("id", Term(RuneRange('a', 'z')), n("id")).
		Rule("id", Term(RuneRange('z', 'a'))).
		Rule("id", r('_'))
	g, err := b.Compile("id")
	require.NoError(t, err)

	lower, ok := g.Lookup("'a'..'z'")
	require.True(t, ok)
	assert.True(t, lower.IsTerminal())
	assert.True(t, g.Match(lower, 'q'))
	assert.False(t, g.Match(lower, 'Q'))
	// Both ranges have the same name, so they are a single terminal.
	assert.Len(t, g.Terminals(), 2)

	under, ok := g.Lookup("'_'")
	require.True(t, ok)
	assert.True(t, g.Match(under, '_'))
	assert.False(t, g.Match(under, 'a'))

	id, _ := g.Lookup("id")
	assert.False(t, g.Match(id, 'a'))
	assert.Nil(t, g.Matcher(id))
}

func TestGrammar_First(t *testing.T) {
	tests := []struct {
		caption  string
		build    func(b *Builder[rune])
		start    string
		nt       string
		first    []string
		nullable bool
	}{
		{
			caption: "left recursion",
			build: func(b *Builder[rune]) {
				b.Rule("E", n("E"), r('+'), n("T")).
					Rule("E", n("T")).
					Rule("T", r('('), n("E"), r(')')).
					Rule("T", r('x'))
			},
			start: "E",
			nt:    "E",
			first: []string{"'('", "'x'"},
		},
		{
			caption: "an empty alternative",
			build: func(b *Builder[rune]) {
				b.Rule("S", r('a'), n("S"), r('b')).
					Rule("S")
			},
			start:    "S",
			nt:       "S",
			first:    []string{"'a'"},
			nullable: true,
		},
		{
			caption: "a nullable prefix",
			build: func(b *Builder[rune]) {
				b.Rule("S", n("Opt"), r('b')).
					Rule("Opt", r('a')).
					Rule("Opt")
			},
			start: "S",
			nt:    "S",
			first: []string{"'a'", "'b'"},
		},
		{
			caption: "an undefined non-terminal derives nothing",
			build: func(b *Builder[rune]) {
				b.Rule("S", n("Missing"), r('b')).
					Rule("S", r('c'))
			},
			start: "S",
			nt:    "S",
			first: []string{"'c'"},
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v", i, tt.caption), func(t *testing.T) {
			b := &Builder[rune]{}
			tt.build(b)
			g, err := b.Compile(tt.start)
			require.NoError(t, err)

			nt, ok := g.Lookup(tt.nt)
			require.True(t, ok)
			var names []string
			for _, sym := range g.First(nt) {
				names = append(names, g.Name(sym))
			}
			assert.ElementsMatch(t, tt.first, names)
			assert.Equal(t, tt.nullable, g.Nullable(nt))
		})
	}
}

func TestGrammar_Undefined(t *testing.T) {
	b := &Builder[rune]{}
	b.Rule("S", n("A"), n("B")).
		Rule("A", r('a'))
	g, err := b.Compile("S")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, g.Undefined())
}

func TestGrammar_Match_Equal(t *testing.T) {
	b := &Builder[string]{}
	b.Rule("stmt", Term(Equal("let")), Term(Func("word", func(s string) bool { return s != "" && s != "let" })))
	g, err := b.Compile("stmt")
	require.NoError(t, err)

	let, ok := g.Lookup("let")
	require.True(t, ok)
	assert.True(t, g.Match(let, "let"))
	assert.False(t, g.Match(let, "var"))

	word, ok := g.Lookup("word")
	require.True(t, ok)
	assert.True(t, g.Match(word, "x"))
	assert.False(t, g.Match(word, "let"))
	assert.False(t, g.Match(word, ""))
}
