package grammar

import (
	"fmt"
	"sort"
)

type SymbolKind string

const (
	SymbolKindNonTerminal = SymbolKind("non-terminal")
	SymbolKindTerminal    = SymbolKind("terminal")
)

func (t SymbolKind) String() string {
	return string(t)
}

type SymbolNum uint16

func (n SymbolNum) Int() int {
	return int(n)
}

// Symbol is the compiled identity of a grammar symbol. The most significant
// bit discriminates terminals from non-terminals and the next one marks the
// start symbol.
type Symbol uint16

func (s Symbol) String() string {
	kind, isStart, num := s.describe()
	var prefix string
	switch {
	case s.IsNil():
		prefix = "?"
	case isStart:
		prefix = "s"
	case kind == SymbolKindNonTerminal:
		prefix = "n"
	default:
		prefix = "t"
	}
	return fmt.Sprintf("%v%v", prefix, num)
}

const (
	maskKindPart    = uint16(0x8000) // 1000 0000 0000 0000
	maskNonTerminal = uint16(0x0000) // 0000 0000 0000 0000
	maskTerminal    = uint16(0x8000) // 1000 0000 0000 0000

	maskSubKindPart = uint16(0x4000) // 0100 0000 0000 0000
	maskNonStart    = uint16(0x0000) // 0000 0000 0000 0000
	maskStart       = uint16(0x4000) // 0100 0000 0000 0000

	maskNumberPart = uint16(0x3fff) // 0011 1111 1111 1111

	symbolNumStart = uint16(0x0001) // 0000 0000 0000 0001

	SymbolNil   = Symbol(0)                                         // 0000 0000 0000 0000
	symbolStart = Symbol(maskNonTerminal | maskStart | symbolNumStart) // 0100 0000 0000 0001

	nonTerminalNumMin = SymbolNum(2)           // The number 1 is used by the start symbol.
	terminalNumMin    = SymbolNum(1)
	symbolNumMax      = SymbolNum(0xffff) >> 2 // 0011 1111 1111 1111
)

func newSymbol(kind SymbolKind, isStart bool, num SymbolNum) (Symbol, error) {
	if num > symbolNumMax {
		return SymbolNil, fmt.Errorf("%w; limit: %v, passed: %v", ErrTooManySymbols, symbolNumMax, num)
	}
	if kind == SymbolKindTerminal && isStart {
		return SymbolNil, fmt.Errorf("a start symbol must be a non-terminal symbol")
	}

	kindMask := maskNonTerminal
	if kind == SymbolKindTerminal {
		kindMask = maskTerminal
	}
	startMask := maskNonStart
	if isStart {
		startMask = maskStart
	}
	return Symbol(kindMask | startMask | uint16(num)), nil
}

func (s Symbol) Num() SymbolNum {
	_, _, num := s.describe()
	return num
}

func (s Symbol) Byte() []byte {
	if s.IsNil() {
		return []byte{0, 0}
	}
	return []byte{byte(uint16(s) >> 8), byte(uint16(s) & 0x00ff)}
}

func (s Symbol) IsNil() bool {
	_, _, num := s.describe()
	return num == 0
}

func (s Symbol) IsStart() bool {
	if s.IsNil() {
		return false
	}
	_, isStart, _ := s.describe()
	return isStart
}

func (s Symbol) IsNonTerminal() bool {
	if s.IsNil() {
		return false
	}
	kind, _, _ := s.describe()
	return kind == SymbolKindNonTerminal
}

func (s Symbol) IsTerminal() bool {
	if s.IsNil() {
		return false
	}
	return !s.IsNonTerminal()
}

func (s Symbol) Kind() SymbolKind {
	kind, _, _ := s.describe()
	return kind
}

func (s Symbol) describe() (SymbolKind, bool, SymbolNum) {
	kind := SymbolKindNonTerminal
	if uint16(s)&maskKindPart > 0 {
		kind = SymbolKindTerminal
	}
	isStart := false
	if uint16(s)&maskSubKindPart > 0 && kind == SymbolKindNonTerminal {
		isStart = true
	}
	num := SymbolNum(uint16(s) & maskNumberPart)
	return kind, isStart, num
}

type symbolTable struct {
	text2Sym     map[string]Symbol
	sym2Text     map[Symbol]string
	nonTermTexts []string
	termTexts    []string
	nonTermNum   SymbolNum
	termNum      SymbolNum
}

type symbolTableWriter struct {
	*symbolTable
}

type symbolTableReader struct {
	*symbolTable
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		text2Sym: map[string]Symbol{},
		sym2Text: map[Symbol]string{},
		termTexts: []string{
			"", // Nil
		},
		nonTermTexts: []string{
			"", // Nil
			"", // Start Symbol
		},
		nonTermNum: nonTerminalNumMin,
		termNum:    terminalNumMin,
	}
}

func (t *symbolTable) writer() *symbolTableWriter {
	return &symbolTableWriter{
		symbolTable: t,
	}
}

func (t *symbolTable) reader() *symbolTableReader {
	return &symbolTableReader{
		symbolTable: t,
	}
}

func (w *symbolTableWriter) registerStartSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok && sym != symbolStart {
		return SymbolNil, fmt.Errorf("%w; symbol: %v", ErrDuplicateName, text)
	}
	w.text2Sym[text] = symbolStart
	w.sym2Text[symbolStart] = text
	w.nonTermTexts[symbolStart.Num().Int()] = text
	return symbolStart, nil
}

func (w *symbolTableWriter) registerNonTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if !sym.IsNonTerminal() {
			return SymbolNil, fmt.Errorf("%w; symbol: %v", ErrDuplicateName, text)
		}
		return sym, nil
	}
	sym, err := newSymbol(SymbolKindNonTerminal, false, w.nonTermNum)
	if err != nil {
		return SymbolNil, err
	}
	w.nonTermNum++
	w.text2Sym[text] = sym
	w.sym2Text[sym] = text
	w.nonTermTexts = append(w.nonTermTexts, text)
	return sym, nil
}

// registerTerminalSymbol returns the existing symbol when a terminal with the
// same name is already registered. The boolean result reports whether a new
// symbol was created.
func (w *symbolTableWriter) registerTerminalSymbol(text string) (Symbol, bool, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if !sym.IsTerminal() {
			return SymbolNil, false, fmt.Errorf("%w; symbol: %v", ErrDuplicateName, text)
		}
		return sym, false, nil
	}
	sym, err := newSymbol(SymbolKindTerminal, false, w.termNum)
	if err != nil {
		return SymbolNil, false, err
	}
	w.termNum++
	w.text2Sym[text] = sym
	w.sym2Text[sym] = text
	w.termTexts = append(w.termTexts, text)
	return sym, true, nil
}

func (r *symbolTableReader) toSymbol(text string) (Symbol, bool) {
	if sym, ok := r.text2Sym[text]; ok {
		return sym, true
	}
	return SymbolNil, false
}

func (r *symbolTableReader) toText(sym Symbol) (string, bool) {
	text, ok := r.sym2Text[sym]
	return text, ok
}

func (r *symbolTableReader) terminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.termNum.Int()-terminalNumMin.Int())
	for sym := range r.sym2Text {
		if !sym.IsTerminal() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}

func (r *symbolTableReader) nonTerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.nonTermNum.Int()-nonTerminalNumMin.Int()+1)
	for sym := range r.sym2Text {
		if !sym.IsNonTerminal() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Num() < syms[j].Num()
	})
	return syms
}
