package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/nihei9/sesd/grammar"
)

// errorNodeName names the leaves standing for symbols skipped by recovery.
const errorNodeName = "<skipped>"

// Node is a node of a parse tree. Its span [Start, End) covers the buffer
// symbols it derives and equals the union of its children's spans.
type Node struct {
	Symbol   grammar.Symbol
	Name     string
	Start    int
	End      int
	Children []*Node
	Error    bool
	Text     string
}

func (n *Node) Span() (int, int) {
	return n.Start, n.End
}

func (n *Node) Kind() grammar.SymbolKind {
	if n.Error || n.Symbol.IsTerminal() {
		return grammar.SymbolKindTerminal
	}
	return grammar.SymbolKindNonTerminal
}

// Leaf reports whether the node stands for exactly one buffer symbol.
func (n *Node) Leaf() bool {
	return n.Error || n.Symbol.IsTerminal()
}

// Empty reports whether the node derives no symbols.
func (n *Node) Empty() bool {
	return n.Start == n.End
}

// PreOrder yields the node and its descendants depth first, parents before
// children. Each range over the sequence starts again from n.
func (n *Node) PreOrder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.walk(yield) {
			return false
		}
	}
	return true
}

// Leaves yields the leaves of the tree from left to right.
func (n *Node) Leaves() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for node := range n.PreOrder() {
			if !node.Leaf() {
				continue
			}
			if !yield(node) {
				return
			}
		}
	}
}

func (n *Node) MarshalJSON() ([]byte, error) {
	if n.Leaf() {
		return json.Marshal(struct {
			KindName string `json:"kind_name"`
			Text     string `json:"text"`
			Start    int    `json:"start"`
			End      int    `json:"end"`
			Error    bool   `json:"error,omitempty"`
		}{
			KindName: n.Name,
			Text:     n.Text,
			Start:    n.Start,
			End:      n.End,
			Error:    n.Error,
		})
	}
	return json.Marshal(struct {
		KindName string  `json:"kind_name"`
		Start    int     `json:"start"`
		End      int     `json:"end"`
		Children []*Node `json:"children"`
	}{
		KindName: n.Name,
		Start:    n.Start,
		End:      n.End,
		Children: n.Children,
	})
}

// PrintTree prints a syntax tree whose root is `node`.
func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	switch {
	case node.Error:
		fmt.Fprintf(w, "%v!%v %v\n", ruledLine, node.Name, strconv.Quote(node.Text))
	case node.Leaf():
		fmt.Fprintf(w, "%v%v %v\n", ruledLine, node.Name, strconv.Quote(node.Text))
	default:
		fmt.Fprintf(w, "%v%v\n", ruledLine, node.Name)

		num := len(node.Children)
		for i, child := range node.Children {
			var line string
			if num > 1 && i < num-1 {
				line = "├─ "
			} else {
				line = "└─ "
			}

			var prefix string
			if i >= num-1 {
				prefix = "   "
			} else {
				prefix = "│  "
			}

			printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
		}
	}
}

// symbolText renders a buffer symbol for a leaf.
func symbolText(sym any) string {
	switch v := sym.(type) {
	case rune:
		return string(v)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(sym)
}

// buildNode rebuilds the derivation of the completed item at r by following
// back-pointers from the last child to the first.
func (c *Chart[T]) buildNode(r ref) *Node {
	it := c.item(r)
	lhs := c.gram.Production(it.prod).LHS()
	node := &Node{
		Symbol: lhs,
		Name:   c.gram.Name(lhs),
		Start:  it.origin,
		End:    r.col,
	}

	var children []*Node
	cur := r
	for {
		it := c.item(cur)
		switch it.link.kind {
		case linkScan:
			term := c.gram.Production(it.prod).At(it.dot - 1)
			children = append(children, c.leaf(term, cur.col-1))
		case linkComplete:
			children = append(children, c.buildNode(it.link.child))
		case linkSkip:
			leaf := c.leaf(grammar.SymbolNil, cur.col-1)
			leaf.Name = errorNodeName
			leaf.Error = true
			children = append(children, leaf)
		}
		if it.link.kind == linkNone {
			break
		}
		cur = it.link.pred
	}
	for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
		children[i], children[j] = children[j], children[i]
	}
	node.Children = children

	return node
}

func (c *Chart[T]) leaf(term grammar.Symbol, pos int) *Node {
	node := &Node{
		Symbol: term,
		Start:  pos,
		End:    pos + 1,
	}
	if !term.IsNil() {
		node.Name = c.gram.Name(term)
	}
	if sym, err := c.buf.SymbolAt(pos); err == nil {
		node.Text = symbolText(sym)
	}
	return node
}

// tree returns the parse tree of an accepted buffer.
func (c *Chart[T]) tree() *Node {
	if !c.accepted() {
		return nil
	}
	r, ok := c.acceptingItem()
	if !ok {
		return nil
	}
	return c.buildNode(r)
}

// segmentTrees returns the trees of the restart segments completed so far, in
// buffer order. A segment is complete where parsing chained past it.
func (c *Chart[T]) segmentTrees() []*Node {
	if c.pending != nil || len(c.restarts) == 0 {
		return nil
	}
	restartCols := map[int]struct{}{}
	for _, rs := range c.restarts {
		restartCols[rs.Column] = struct{}{}
	}

	var trees []*Node
	for k := 1; k <= c.last(); k++ {
		col := c.cols[k]
		prev := c.cols[k-1].mode
		if !col.mode.restart || col.mode.origin != k || !prev.restart || prev.segment != col.mode.segment || prev.origin >= k {
			continue
		}
		if _, ok := restartCols[k]; ok {
			continue
		}
		for i, it := range col.items {
			prod := c.gram.Production(it.prod)
			if it.dot == prod.Len() && it.origin == prev.origin && prod.LHS() == col.mode.segment {
				trees = append(trees, c.buildNode(ref{col: k, idx: i}))
				break
			}
		}
	}
	return trees
}

// partialTrees returns the derivations in progress at column pos: one node per
// item that has moved its dot, spanning from the item's origin to pos with the
// children recognized so far.
func (c *Chart[T]) partialTrees(pos int) []*Node {
	if c.pending != nil || pos < 0 || pos > c.last() {
		return nil
	}
	var trees []*Node
	for i, it := range c.cols[pos].items {
		if it.dot == 0 {
			continue
		}
		trees = append(trees, c.buildNode(ref{col: pos, idx: i}))
	}
	return trees
}
