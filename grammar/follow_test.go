package grammar

import (
	"testing"
)

type follow struct {
	nonTerm string
	symbols []string
	eoi     bool
}

func TestGenFollow(t *testing.T) {
	tests := []struct {
		caption string
		build   func(b *Builder[rune])
		start   string
		follow  []follow
	}{
		{
			caption: "productions contain only non-empty productions",
			build: func(b *Builder[rune]) {
				b.Rule("expr", n("expr"), r('+'), n("term")).
					Rule("expr", n("term")).
					Rule("term", n("term"), r('*'), n("factor")).
					Rule("term", n("factor")).
					Rule("factor", r('('), n("expr"), r(')')).
					Rule("factor", r('x'))
			},
			start: "expr",
			follow: []follow{
				{nonTerm: "expr", symbols: []string{"'+'", "')'"}, eoi: true},
				{nonTerm: "term", symbols: []string{"'+'", "'*'", "')'"}, eoi: true},
				{nonTerm: "factor", symbols: []string{"'+'", "'*'", "')'"}, eoi: true},
			},
		},
		{
			caption: "productions contain the empty start production",
			build: func(b *Builder[rune]) {
				b.Rule("s")
			},
			start: "s",
			follow: []follow{
				{nonTerm: "s", symbols: []string{}, eoi: true},
			},
		},
		{
			caption: "a nullable non-terminal passes FOLLOW of its left-hand side through",
			build: func(b *Builder[rune]) {
				b.Rule("s", n("a"), n("b"), r(';')).
					Rule("a", r('a')).
					Rule("b", r('b')).
					Rule("b")
			},
			start: "s",
			follow: []follow{
				{nonTerm: "s", symbols: []string{}, eoi: true},
				{nonTerm: "a", symbols: []string{"'b'", "';'"}},
				{nonTerm: "b", symbols: []string{"';'"}},
			},
		},
		{
			caption: "a non-terminal at the end of a rule is followed by what follows the rule",
			build: func(b *Builder[rune]) {
				b.Rule("s", n("list"), r('.')).
					Rule("list", n("list"), r(','), n("item")).
					Rule("list", n("item")).
					Rule("item", r('i'))
			},
			start: "s",
			follow: []follow{
				{nonTerm: "list", symbols: []string{"'.'", "','"}},
				{nonTerm: "item", symbols: []string{"'.'", "','"}},
			},
		},
		{
			caption: "an undefined non-terminal has FOLLOW but blocks the rest of the rule",
			build: func(b *Builder[rune]) {
				b.Rule("s", n("a"), n("undef"), r('x'))
			},
			start: "s",
			follow: []follow{
				{nonTerm: "a", symbols: []string{}},
				{nonTerm: "undef", symbols: []string{"'x'"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			b := &Builder[rune]{}
			tt.build(b)
			gram, err := b.Compile(tt.start)
			if err != nil {
				t.Fatal(err)
			}

			for _, ttFollow := range tt.follow {
				sym, ok := gram.Lookup(ttFollow.nonTerm)
				if !ok {
					t.Fatalf("a symbol '%v' was not found", ttFollow.nonTerm)
				}

				actualSyms, actualEOI := gram.Follow(sym)
				if actualEOI != ttFollow.eoi {
					t.Errorf("the end of input is mismatched; symbol: %v, want: %v, got: %v", ttFollow.nonTerm, ttFollow.eoi, actualEOI)
				}
				if len(actualSyms) != len(ttFollow.symbols) {
					t.Fatalf("unexpected symbol count of a FOLLOW entry; symbol: %v, want: %v, got: %v", ttFollow.nonTerm, ttFollow.symbols, actualSyms)
				}
				actual := map[string]struct{}{}
				for _, s := range actualSyms {
					actual[gram.Name(s)] = struct{}{}
				}
				for _, s := range ttFollow.symbols {
					if _, ok := actual[s]; !ok {
						t.Fatalf("invalid FOLLOW entry; symbol: %v, want: %v, got: %v", ttFollow.nonTerm, ttFollow.symbols, actualSyms)
					}
				}
			}
		})
	}
}
