package grammar

import "sort"

type firstEntry struct {
	symbols map[Symbol]struct{}
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[Symbol]struct{}{},
		empty:   false,
	}
}

func (e *firstEntry) add(sym Symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *firstEntry) addEmpty() bool {
	if !e.empty {
		e.empty = true
		return true
	}
	return false
}

func (e *firstEntry) mergeExceptEmpty(target *firstEntry) bool {
	if target == nil {
		return false
	}
	changed := false
	for sym := range target.symbols {
		added := e.add(sym)
		if added {
			changed = true
		}
	}
	return changed
}

func (e *firstEntry) sorted() []Symbol {
	syms := make([]Symbol, 0, len(e.symbols))
	for sym := range e.symbols {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}

type firstSet struct {
	set map[Symbol]*firstEntry
}

func newFirstSet(nonTerms []Symbol) *firstSet {
	fst := &firstSet{
		set: map[Symbol]*firstEntry{},
	}
	for _, sym := range nonTerms {
		fst.set[sym] = newFirstEntry()
	}
	return fst
}

// find returns FIRST of the suffix of prod starting at head.
func (fst *firstSet) find(prod *Production, head int) *firstEntry {
	entry := newFirstEntry()
	if prod.Len() <= head {
		entry.addEmpty()
		return entry
	}
	for _, sym := range prod.rhs[head:] {
		if sym.IsTerminal() {
			entry.add(sym)
			return entry
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return entry
		}
		entry.mergeExceptEmpty(e)
		if !e.empty {
			return entry
		}
	}
	entry.addEmpty()
	return entry
}

func (fst *firstSet) findBySymbol(sym Symbol) *firstEntry {
	return fst.set[sym]
}

func genFirstSet(nonTerms []Symbol, prods *productionSet) *firstSet {
	fst := newFirstSet(nonTerms)
	for {
		more := false
		for _, prod := range prods.getAllProductions() {
			e := fst.findBySymbol(prod.lhs)
			if genProdFirstEntry(fst, e, prod) {
				more = true
			}
		}
		if !more {
			break
		}
	}
	return fst
}

func genProdFirstEntry(fst *firstSet, acc *firstEntry, prod *Production) bool {
	if prod.IsEmpty() {
		return acc.addEmpty()
	}

	changed := false
	for _, sym := range prod.rhs {
		if sym.IsTerminal() {
			return acc.add(sym) || changed
		}

		e := fst.findBySymbol(sym)
		if acc.mergeExceptEmpty(e) {
			changed = true
		}
		// An undefined non-terminal derives nothing, so it blocks the rest of the rule.
		if e == nil || !e.empty {
			return changed
		}
	}
	return acc.addEmpty() || changed
}
