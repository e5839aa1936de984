package grammar

import "sort"

type followEntry struct {
	symbols map[Symbol]struct{}
	eoi     bool
}

func newFollowEntry() *followEntry {
	return &followEntry{
		symbols: map[Symbol]struct{}{},
		eoi:     false,
	}
}

func (e *followEntry) add(sym Symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *followEntry) addEOI() bool {
	if !e.eoi {
		e.eoi = true
		return true
	}
	return false
}

func (e *followEntry) merge(fst *firstEntry, flw *followEntry) bool {
	changed := false
	if fst != nil {
		for sym := range fst.symbols {
			if e.add(sym) {
				changed = true
			}
		}
	}
	if flw != nil {
		for sym := range flw.symbols {
			if e.add(sym) {
				changed = true
			}
		}
		if flw.eoi && e.addEOI() {
			changed = true
		}
	}
	return changed
}

func (e *followEntry) sorted() []Symbol {
	syms := make([]Symbol, 0, len(e.symbols))
	for sym := range e.symbols {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}

type followSet struct {
	set map[Symbol]*followEntry
}

func (flw *followSet) findBySymbol(sym Symbol) *followEntry {
	return flw.set[sym]
}

// genFollowSet computes FOLLOW of every non-terminal. Only the start symbol
// can be followed by the end of input directly.
func genFollowSet(nonTerms []Symbol, prods *productionSet, fst *firstSet) *followSet {
	flw := &followSet{
		set: map[Symbol]*followEntry{},
	}
	for _, sym := range nonTerms {
		flw.set[sym] = newFollowEntry()
	}

	for {
		more := false
		for _, sym := range nonTerms {
			e := flw.findBySymbol(sym)
			if sym.IsStart() && e.addEOI() {
				more = true
			}
			for _, prod := range prods.getAllProductions() {
				for i, rhsSym := range prod.rhs {
					if rhsSym != sym {
						continue
					}
					rest := fst.find(prod, i+1)
					if e.merge(rest, nil) {
						more = true
					}
					if rest.empty && e.merge(nil, flw.findBySymbol(prod.lhs)) {
						more = true
					}
				}
			}
		}
		if !more {
			break
		}
	}

	return flw
}
