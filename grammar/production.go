package grammar

import (
	"fmt"
	"strings"

	"github.com/nihei9/gramc/grammar/symbol"
)

type productionNum int

const (
	productionNumNil   = productionNum(0)
	productionNumStart = productionNum(1)
	productionNumMin   = productionNum(2)
)

func (n productionNum) Int() int {
	return int(n)
}

type production struct {
	num productionNum
	lhs symbol.ID
	rhs []symbol.ID

	// prec is the precedence a #prec directive gives. When it is nil, the production inherits the precedence
	// of its right-most terminal.
	prec *symbol.Precedence

	action    string
	oldAction bool
}

func newProduction(lhs symbol.ID, rhs []symbol.ID) (*production, error) {
	if lhs == symbol.IDNil {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym == symbol.IDNil {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	return &production{
		lhs: lhs,
		rhs: rhs,
	}, nil
}

func (p *production) isEmpty() bool {
	return len(p.rhs) == 0
}

// key identifies a production by its symbols. Two productions with the same key are duplicates even when
// their actions differ.
func (p *production) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:", p.lhs)
	for _, sym := range p.rhs {
		fmt.Fprintf(&b, " %v", sym)
	}
	return b.String()
}

// productionSet numbers productions in the order they are appended. The start production always takes
// productionNumStart, and the others take numbers from productionNumMin.
type productionSet struct {
	prods     []*production
	lhs2Prods map[symbol.ID][]*production
	key2Prod  map[string]*production
	num       productionNum
}

func newProductionSet() *productionSet {
	return &productionSet{
		prods:     make([]*production, productionNumMin),
		lhs2Prods: map[symbol.ID][]*production{},
		key2Prod:  map[string]*production{},
		num:       productionNumMin,
	}
}

// append numbers a production and registers it to its left-hand side symbol. It returns false and leaves
// the set intact when the set already contains the same production.
func (ps *productionSet) append(lhs *symbol.Symbol, prod *production, isStart bool) (bool, error) {
	if lhs.ID != prod.lhs {
		return false, fmt.Errorf("LHS mismatch; symbol: %v, production: %v", lhs.ID, prod.lhs)
	}
	k := prod.key()
	if _, ok := ps.key2Prod[k]; ok {
		return false, nil
	}

	if isStart {
		if ps.prods[productionNumStart] != nil {
			return false, fmt.Errorf("a start production is already registered")
		}
		prod.num = productionNumStart
		ps.prods[productionNumStart] = prod
	} else {
		prod.num = ps.num
		ps.num++
		ps.prods = append(ps.prods, prod)
	}

	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.key2Prod[k] = prod
	lhs.Prods = append(lhs.Prods, prod.num.Int())

	return true, nil
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if num <= productionNumNil || int(num) >= len(ps.prods) || ps.prods[num] == nil {
		return nil, false
	}
	return ps.prods[num], true
}

func (ps *productionSet) findByLHS(lhs symbol.ID) ([]*production, bool) {
	if lhs == symbol.IDNil {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// getAllProductions returns the productions in the order of their numbers.
func (ps *productionSet) getAllProductions() []*production {
	prods := make([]*production, 0, len(ps.prods))
	for _, p := range ps.prods {
		if p == nil {
			continue
		}
		prods = append(prods, p)
	}
	return prods
}

func (ps *productionSet) len() int {
	return len(ps.key2Prod)
}
