package grammar

import (
	"errors"
	"testing"
)

func TestSymbol(t *testing.T) {
	tab := newSymbolTable()
	w := tab.writer()
	_, _ = w.registerStartSymbol("expr")
	_, _ = w.registerNonTerminalSymbol("term")
	_, _ = w.registerNonTerminalSymbol("factor")
	_, _, _ = w.registerTerminalSymbol("id")
	_, _, _ = w.registerTerminalSymbol("add")
	_, _, _ = w.registerTerminalSymbol("mul")
	_, _, _ = w.registerTerminalSymbol("l_paren")
	_, _, _ = w.registerTerminalSymbol("r_paren")

	tests := []struct {
		text          string
		isStart       bool
		isNonTerminal bool
		isTerminal    bool
	}{
		{
			text:          "expr",
			isStart:       true,
			isNonTerminal: true,
		},
		{
			text:          "term",
			isNonTerminal: true,
		},
		{
			text:          "factor",
			isNonTerminal: true,
		},
		{
			text:       "id",
			isTerminal: true,
		},
		{
			text:       "add",
			isTerminal: true,
		},
		{
			text:       "mul",
			isTerminal: true,
		},
		{
			text:       "l_paren",
			isTerminal: true,
		},
		{
			text:       "r_paren",
			isTerminal: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := tab.reader()
			sym, ok := r.toSymbol(tt.text)
			if !ok {
				t.Fatalf("symbol was not found")
			}
			testSymbolProperty(t, sym, false, tt.isStart, tt.isNonTerminal, tt.isTerminal)
			text, ok := r.toText(sym)
			if !ok {
				t.Fatalf("text was not found")
			}
			if text != tt.text {
				t.Fatalf("unexpected text representation; want: %v, got: %v", tt.text, text)
			}
		})
	}

	t.Run("Nil", func(t *testing.T) {
		testSymbolProperty(t, SymbolNil, true, false, false, false)
	})

	t.Run("a registered name keeps its symbol", func(t *testing.T) {
		first, created, err := w.registerTerminalSymbol("id")
		if err != nil {
			t.Fatal(err)
		}
		if created {
			t.Fatalf("a terminal was registered twice")
		}
		sym, _ := tab.reader().toSymbol("id")
		if first != sym {
			t.Fatalf("unexpected symbol; want: %v, got: %v", sym, first)
		}
	})

	t.Run("a name cannot be both a terminal and a non-terminal", func(t *testing.T) {
		_, _, err := w.registerTerminalSymbol("term")
		if !errors.Is(err, ErrDuplicateName) {
			t.Fatalf("unexpected error; want: %v, got: %v", ErrDuplicateName, err)
		}
		_, err = w.registerNonTerminalSymbol("add")
		if !errors.Is(err, ErrDuplicateName) {
			t.Fatalf("unexpected error; want: %v, got: %v", ErrDuplicateName, err)
		}
	})

	t.Run("ordering", func(t *testing.T) {
		r := tab.reader()
		nonTerms := r.nonTerminalSymbols()
		if len(nonTerms) != 3 || !nonTerms[0].IsStart() {
			t.Fatalf("unexpected non-terminals: %v", nonTerms)
		}
		terms := r.terminalSymbols()
		if len(terms) != 5 {
			t.Fatalf("unexpected terminals: %v", terms)
		}
		for i := 1; i < len(terms); i++ {
			if terms[i-1] >= terms[i] {
				t.Fatalf("terminals are not sorted: %v", terms)
			}
		}
	})
}

func testSymbolProperty(t *testing.T, sym Symbol, isNil, isStart, isNonTerminal, isTerminal bool) {
	t.Helper()

	if v := sym.IsNil(); v != isNil {
		t.Fatalf("isNil property is mismatched; want: %v, got: %v", isNil, v)
	}
	if v := sym.IsStart(); v != isStart {
		t.Fatalf("isStart property is mismatched; want: %v, got: %v", isStart, v)
	}
	if v := sym.IsNonTerminal(); v != isNonTerminal {
		t.Fatalf("isNonTerminal property is mismatched; want: %v, got: %v", isNonTerminal, v)
	}
	if v := sym.IsTerminal(); v != isTerminal {
		t.Fatalf("isTerminal property is mismatched; want: %v, got: %v", isTerminal, v)
	}
}
