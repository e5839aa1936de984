package grammar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type productionID [32]byte

func (id productionID) String() string {
	return hex.EncodeToString(id[:])
}

func genProductionID(lhs Symbol, rhs []Symbol) productionID {
	seq := lhs.Byte()
	for _, sym := range rhs {
		seq = append(seq, sym.Byte()...)
	}
	return productionID(sha256.Sum256(seq))
}

// Production is a compiled rule. Productions are numbered from 0 in
// declaration order.
type Production struct {
	id  productionID
	num int
	lhs Symbol
	rhs []Symbol
}

func newProduction(lhs Symbol, rhs []Symbol) (*Production, error) {
	if lhs.IsNil() {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.IsNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	return &Production{
		id:  genProductionID(lhs, rhs),
		lhs: lhs,
		rhs: rhs,
	}, nil
}

func (p *Production) Num() int {
	return p.num
}

func (p *Production) LHS() Symbol {
	return p.lhs
}

// RHS returns a copy of the right-hand side.
func (p *Production) RHS() []Symbol {
	rhs := make([]Symbol, len(p.rhs))
	copy(rhs, p.rhs)
	return rhs
}

func (p *Production) Len() int {
	return len(p.rhs)
}

func (p *Production) At(i int) Symbol {
	return p.rhs[i]
}

func (p *Production) IsEmpty() bool {
	return len(p.rhs) == 0
}

type productionSet struct {
	lhs2Prods map[Symbol][]*Production
	id2Prod   map[productionID]*Production
	prods     []*Production
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[Symbol][]*Production{},
		id2Prod:   map[productionID]*Production{},
	}
}

func (ps *productionSet) append(prod *Production) bool {
	if _, ok := ps.id2Prod[prod.id]; ok {
		return false
	}

	prod.num = len(ps.prods)
	ps.prods = append(ps.prods, prod)
	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.id2Prod[prod.id] = prod

	return true
}

func (ps *productionSet) findByLHS(lhs Symbol) ([]*Production, bool) {
	if lhs.IsNil() {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

func (ps *productionSet) getAllProductions() []*Production {
	return ps.prods
}
