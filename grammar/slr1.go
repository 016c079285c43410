package grammar

import (
	"fmt"

	"github.com/nihei9/gramc/grammar/symbol"
)

type slr1Automaton struct {
	*lr0Automaton
}

// genSLR1Automaton gives every reducible item the FOLLOW set of its left-hand side as look-ahead symbols.
// The FOLLOW sets must already be computed.
func genSLR1Automaton(lr0 *lr0Automaton, prods *productionSet, symTab *symbol.Table) (*slr1Automaton, error) {
	for _, state := range lr0.numbered {
		for prodNum := range state.reducible {
			prod, ok := prods.findByNum(prodNum)
			if !ok {
				return nil, fmt.Errorf("reducible production not found: %v", prodNum)
			}

			lhs, ok := symTab.Get(prod.lhs)
			if !ok {
				return nil, fmt.Errorf("LHS not found: %v", prod.lhs)
			}

			reducibleItem, ok := state.findReducibleItem(prodNum)
			if !ok {
				return nil, fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, prodNum)
			}

			reducibleItem.lookAhead.add(lhs.Follow)
		}
	}

	return &slr1Automaton{
		lr0Automaton: lr0,
	}, nil
}
