package driver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nihei9/sesd/buffer"
	"github.com/nihei9/sesd/grammar"
	"github.com/tliron/commonlog"
)

type linkKind uint8

const (
	linkNone linkKind = iota
	linkScan
	linkComplete
	linkSkip
)

// ref addresses an item in the arena: the column and the index within it.
type ref struct {
	col int
	idx int
}

// link is the single back-pointer of an item. pred is the item one dot
// earlier (for a skip, the same item one column earlier) and child is the
// completed item that advanced the dot.
type link struct {
	kind  linkKind
	pred  ref
	child ref
}

type item struct {
	prod   int
	dot    int
	origin int
	link   link
}

type itemKey struct {
	prod   int
	dot    int
	origin int
}

// mode is the recovery state in effect at a column. Outside recovery the
// segment is the start symbol from column 0.
type mode struct {
	segment  grammar.Symbol
	origin   int
	restart  bool
	skipping bool
	stall    int
}

type column struct {
	items   []item
	index   map[itemKey]int
	waiting map[grammar.Symbol][]int
	mode    mode
}

func newColumn(m mode) *column {
	return &column{
		index:   map[itemKey]int{},
		waiting: map[grammar.Symbol][]int{},
		mode:    m,
	}
}

// Chart is the Earley recognition state for a buffer: one column per buffer
// position, items stored in per-column arenas and linked by index.
type Chart[T any] struct {
	gram     *grammar.Grammar[T]
	buf      *buffer.Buffer[T]
	cols     []*column
	restart  map[grammar.Symbol]int
	restarts []Restart
	broken   int
	pending  *repairJob
	logger   commonlog.Logger
}

func newChart[T any](gram *grammar.Grammar[T], buf *buffer.Buffer[T], restartSyms []grammar.Symbol, logger commonlog.Logger) *Chart[T] {
	rank := map[grammar.Symbol]int{}
	for i, sym := range restartSyms {
		if _, ok := rank[sym]; !ok {
			rank[sym] = i
		}
	}
	c := &Chart[T]{
		gram:    gram,
		buf:     buf,
		restart: rank,
		broken:  -1,
		logger:  logger,
	}
	c.init()
	return c
}

// init discards every column and seeds column 0.
func (c *Chart[T]) init() {
	c.cols = nil
	c.restarts = nil
	c.broken = -1
	c.pending = nil

	col := newColumn(mode{
		segment: c.gram.Start(),
	})
	c.cols = append(c.cols, col)
	c.seed(col, c.gram.Start(), 0)
	c.close(0)
}

func (c *Chart[T]) last() int {
	return len(c.cols) - 1
}

func (c *Chart[T]) item(r ref) item {
	return c.cols[r.col].items[r.idx]
}

func (c *Chart[T]) add(col *column, it item) {
	key := itemKey{
		prod:   it.prod,
		dot:    it.dot,
		origin: it.origin,
	}
	if _, ok := col.index[key]; ok {
		return
	}
	idx := len(col.items)
	col.items = append(col.items, it)
	col.index[key] = idx

	prod := c.gram.Production(it.prod)
	if it.dot < prod.Len() {
		if next := prod.At(it.dot); next.IsNonTerminal() {
			col.waiting[next] = append(col.waiting[next], idx)
		}
	}
}

func (c *Chart[T]) seed(col *column, sym grammar.Symbol, origin int) {
	for _, prod := range c.gram.RulesFor(sym) {
		c.add(col, item{
			prod:   prod.Num(),
			dot:    0,
			origin: origin,
		})
	}
}

// close runs predict and complete over column k until no item is added.
func (c *Chart[T]) close(k int) {
	col := c.cols[k]
	predicted := map[grammar.Symbol]struct{}{}
	// Non-terminals completed without consuming input at this column, so that
	// items added later and awaiting them can still advance.
	empty := map[grammar.Symbol]int{}
	for i := 0; i < len(col.items); i++ {
		it := col.items[i]
		prod := c.gram.Production(it.prod)
		if it.dot == prod.Len() {
			c.complete(k, i, empty)
			continue
		}

		next := prod.At(it.dot)
		if !next.IsNonTerminal() {
			continue
		}
		if _, ok := predicted[next]; !ok {
			predicted[next] = struct{}{}
			c.seed(col, next, k)
		}
		if ci, ok := empty[next]; ok {
			c.add(col, item{
				prod:   it.prod,
				dot:    it.dot + 1,
				origin: it.origin,
				link: link{
					kind:  linkComplete,
					pred:  ref{col: k, idx: i},
					child: ref{col: k, idx: ci},
				},
			})
		}
	}
}

func (c *Chart[T]) complete(k, i int, empty map[grammar.Symbol]int) {
	col := c.cols[k]
	it := col.items[i]
	lhs := c.gram.Production(it.prod).LHS()

	if it.origin == k {
		if _, ok := empty[lhs]; ok {
			return
		}
		empty[lhs] = i
	}

	m := &col.mode
	if m.restart && lhs == m.segment && it.origin == m.origin && m.origin != k && (!m.skipping || k > m.stall) {
		m.origin = k
		m.skipping = false
		c.seed(col, lhs, k)
	}

	origin := c.cols[it.origin]
	for _, wi := range origin.waiting[lhs] {
		w := origin.items[wi]
		c.add(col, item{
			prod:   w.prod,
			dot:    w.dot + 1,
			origin: w.origin,
			link: link{
				kind:  linkComplete,
				pred:  ref{col: it.origin, idx: wi},
				child: ref{col: k, idx: i},
			},
		})
	}
}

// scan builds the kernel of column k+1 from the items of column k expecting a
// terminal that accepts sym.
func (c *Chart[T]) scan(k int, sym T) *column {
	col := c.cols[k]
	next := newColumn(col.mode)
	for i, it := range col.items {
		prod := c.gram.Production(it.prod)
		if it.dot == prod.Len() {
			continue
		}
		term := prod.At(it.dot)
		if !term.IsTerminal() || !c.gram.Match(term, sym) {
			continue
		}
		c.add(next, item{
			prod:   it.prod,
			dot:    it.dot + 1,
			origin: it.origin,
			link: link{
				kind: linkScan,
				pred: ref{col: k, idx: i},
			},
		})
	}
	return next
}

// skip carries every item of column k over the symbol at k unchanged.
func (c *Chart[T]) skip(k int) *column {
	col := c.cols[k]
	next := newColumn(col.mode)
	for i, it := range col.items {
		c.add(next, item{
			prod:   it.prod,
			dot:    it.dot,
			origin: it.origin,
			link: link{
				kind: linkSkip,
				pred: ref{col: k, idx: i},
			},
		})
	}
	return next
}

// advance builds column k+1. When no item can scan the symbol at k, the stall
// goes to recovery, which may truncate the chart instead; the caller simply
// continues from the new last column.
func (c *Chart[T]) advance(k int) (restarted *Restart) {
	col := c.cols[k]
	sym, err := c.buf.SymbolAt(k)
	if err != nil {
		panic(fmt.Errorf("a chart column has no symbol to scan: %w", err))
	}

	next := c.scan(k, sym)
	if len(next.items) == 0 && len(col.items) > 0 {
		if col.mode.skipping {
			next = c.skip(k)
		} else {
			stall := ScanStalled{Column: k}
			c.logger.Debugf("scan stalled; column: %v", stall.Column)
			rs, ok := c.trap(stall)
			if ok {
				c.restartAt(rs)
				return &rs
			}
			c.broken = k
			c.logger.Debugf("unrecoverable; column: %v", k)
		}
	}
	c.cols = append(c.cols, next)
	c.close(k + 1)
	return nil
}

func (c *Chart[T]) accepted() bool {
	if c.pending != nil || c.broken >= 0 || len(c.restarts) > 0 {
		return false
	}
	_, ok := c.acceptingItem()
	return ok
}

// acceptingItem returns the earliest completed start-rule item of the final
// column with origin 0.
func (c *Chart[T]) acceptingItem() (ref, bool) {
	k := c.last()
	col := c.cols[k]
	if col.mode.restart {
		return ref{}, false
	}
	for i, it := range col.items {
		prod := c.gram.Production(it.prod)
		if it.origin == 0 && it.dot == prod.Len() && prod.LHS() == c.gram.Start() {
			return ref{col: k, idx: i}, true
		}
	}
	return ref{}, false
}

func (c *Chart[T]) verdict() Verdict {
	switch {
	case c.pending != nil:
		return VerdictPending
	case c.broken >= 0 || len(c.restarts) > 0:
		return VerdictReject
	case c.accepted():
		return VerdictAccept
	}
	return VerdictMore
}

// predictions returns the symbols expected next at column pos, ordered by the
// production and dot of the first item expecting them.
func (c *Chart[T]) predictions(pos int) []grammar.Symbol {
	if c.pending != nil || pos < 0 || pos > c.last() {
		return nil
	}
	type expect struct {
		sym  grammar.Symbol
		prod int
		dot  int
	}
	var order []*expect
	seen := map[grammar.Symbol]*expect{}
	for _, it := range c.cols[pos].items {
		prod := c.gram.Production(it.prod)
		if it.dot == prod.Len() {
			continue
		}
		sym := prod.At(it.dot)
		if e, ok := seen[sym]; ok {
			if it.prod < e.prod || (it.prod == e.prod && it.dot < e.dot) {
				e.prod = it.prod
				e.dot = it.dot
			}
			continue
		}
		e := &expect{
			sym:  sym,
			prod: it.prod,
			dot:  it.dot,
		}
		seen[sym] = e
		order = append(order, e)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].prod != order[j].prod {
			return order[i].prod < order[j].prod
		}
		return order[i].dot < order[j].dot
	})
	syms := make([]grammar.Symbol, len(order))
	for i, e := range order {
		syms[i] = e.sym
	}
	return syms
}

// dump renders every column with its items and links. Two charts with the
// same dump hold the same items derived the same way.
func (c *Chart[T]) dump() []string {
	lines := make([]string, 0, len(c.cols))
	for k, col := range c.cols {
		var b strings.Builder
		fmt.Fprintf(&b, "%v:", k)
		if col.mode.restart {
			fmt.Fprintf(&b, " [%v@%v", c.gram.Name(col.mode.segment), col.mode.origin)
			if col.mode.skipping {
				fmt.Fprintf(&b, " skip>%v", col.mode.stall)
			}
			fmt.Fprintf(&b, "]")
		}
		for _, it := range col.items {
			fmt.Fprintf(&b, " %v.%v@%v", it.prod, it.dot, it.origin)
			switch it.link.kind {
			case linkScan:
				fmt.Fprintf(&b, "<s%v/%v", it.link.pred.col, it.link.pred.idx)
			case linkComplete:
				fmt.Fprintf(&b, "<c%v/%v,%v/%v", it.link.pred.col, it.link.pred.idx, it.link.child.col, it.link.child.idx)
			case linkSkip:
				fmt.Fprintf(&b, "<k%v/%v", it.link.pred.col, it.link.pred.idx)
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}
