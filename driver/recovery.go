package driver

import (
	"errors"
	"fmt"

	"github.com/nihei9/sesd/grammar"
)

var ErrUnrecoverable = errors.New("could not resynchronize")

// ScanStalled reports that no item of Column expects the symbol at Column.
type ScanStalled struct {
	Column int
}

// Restart records one recovery: the parse was resumed at Column with Symbol as
// a fresh start symbol after scanning stalled at Stall.
type Restart struct {
	Symbol grammar.Symbol
	Name   string
	Column int
	Stall  int
}

type UnrecoverableError struct {
	Column   int
	Expected []string
}

func (e *UnrecoverableError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("%v; column: %v", ErrUnrecoverable, e.Column)
	}
	return fmt.Sprintf("%v; column: %v, expected: %v", ErrUnrecoverable, e.Column, e.Expected)
}

func (e *UnrecoverableError) Unwrap() error {
	return ErrUnrecoverable
}

// trap walks outward from the incomplete items of the stalled column to the
// items awaiting them, and picks the innermost one whose left-hand side is a
// restart symbol. Ties go to the earlier restart symbol, then to the item
// visited first.
func (c *Chart[T]) trap(stall ScanStalled) (Restart, bool) {
	if len(c.restart) == 0 {
		return Restart{}, false
	}

	col := c.cols[stall.Column]
	var queue []ref
	seen := map[ref]struct{}{}
	for i, it := range col.items {
		if it.dot == c.gram.Production(it.prod).Len() {
			continue
		}
		r := ref{col: stall.Column, idx: i}
		seen[r] = struct{}{}
		queue = append(queue, r)
	}

	found := false
	var best item
	var bestSym grammar.Symbol
	bestRank := 0
	for head := 0; head < len(queue); head++ {
		it := c.item(queue[head])
		lhs := c.gram.Production(it.prod).LHS()
		if rank, ok := c.restart[lhs]; ok {
			if !found || it.origin > best.origin || (it.origin == best.origin && rank < bestRank) {
				found = true
				best = it
				bestSym = lhs
				bestRank = rank
			}
		}

		origin := c.cols[it.origin]
		for _, wi := range origin.waiting[lhs] {
			r := ref{col: it.origin, idx: wi}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			queue = append(queue, r)
		}
	}
	if !found {
		return Restart{}, false
	}

	return Restart{
		Symbol: bestSym,
		Name:   c.gram.Name(bestSym),
		Column: best.origin,
		Stall:  stall.Column,
	}, true
}

// restartAt truncates the chart after rs.Column and rebuilds that column from
// fresh items of rs.Symbol, skipping unscannable symbols until the symbol
// completes past the stall.
func (c *Chart[T]) restartAt(rs Restart) {
	c.logger.Debugf("restart; symbol: %v, column: %v, stall: %v", rs.Name, rs.Column, rs.Stall)

	kept := c.restarts[:0:0]
	for _, prev := range c.restarts {
		if prev.Column < rs.Column {
			kept = append(kept, prev)
		}
	}
	c.restarts = append(kept, rs)

	c.cols = c.cols[:rs.Column]
	col := newColumn(mode{
		segment:  rs.Symbol,
		origin:   rs.Column,
		restart:  true,
		skipping: true,
		stall:    rs.Stall,
	})
	c.cols = append(c.cols, col)
	c.seed(col, rs.Symbol, rs.Column)
	c.close(rs.Column)
}

// expectedAt names the terminals expected at column k.
func (c *Chart[T]) expectedAt(k int) []string {
	if k < 0 || k > c.last() {
		return nil
	}
	var names []string
	for _, sym := range c.predictions(k) {
		if sym.IsTerminal() {
			names = append(names, c.gram.Name(sym))
		}
	}
	return names
}
