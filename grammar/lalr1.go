package grammar

import (
	"fmt"

	"github.com/nihei9/gramc/grammar/symbol"
)

type stateAndLRItem struct {
	kernelID kernelID
	itemID   lrItemID
}

type propagation struct {
	src  *stateAndLRItem
	dest []*stateAndLRItem
}

type lalr1Automaton struct {
	*lr0Automaton
}

// genLALR1Automaton computes look-ahead symbols of the items of an LR(0) automaton. Look-ahead symbols either
// arise spontaneously from FIRST sets or propagate along the transitions, which the closure of each kernel
// item with a dummy look-ahead reveals.
func genLALR1Automaton(lr0 *lr0Automaton, prods *productionSet, symTab *symbol.Table, a *analyzer) (*lalr1Automaton, error) {
	// Set the look-ahead symbol <EOF> to the initial item: [S' → ・S, $]
	iniState := lr0.states[lr0.initialState]
	iniState.items[0].lookAhead.symbols = symbol.NewSet(symbol.IDEOF)

	var props []*propagation
	for _, state := range lr0.numbered {
		for _, kItem := range state.items {
			items, err := genLALR1Closure(kItem, prods, symTab, a)
			if err != nil {
				return nil, err
			}

			kItem.lookAhead.propagation = true

			var propDests []*stateAndLRItem
			for _, item := range items {
				if item.reducible {
					p, ok := prods.findByNum(item.prod)
					if !ok {
						return nil, fmt.Errorf("production not found: %v", item.prod)
					}

					if p.isEmpty() {
						var reducibleItem *lrItem
						for _, it := range state.emptyProdItems {
							if it.id != item.id {
								continue
							}

							reducibleItem = it
							break
						}
						if reducibleItem == nil {
							return nil, fmt.Errorf("reducible item not found: %v", item.id)
						}
						reducibleItem.lookAhead.add(item.lookAhead.symbols)

						if item.lookAhead.propagation {
							propDests = append(propDests, &stateAndLRItem{
								kernelID: state.id,
								itemID:   item.id,
							})
						}
					}

					continue
				}

				nextKID := state.next[item.dottedSymbol]
				nextItemID := lrItemID{
					prod: item.prod,
					dot:  item.dot + 1,
				}

				if item.lookAhead.propagation {
					propDests = append(propDests, &stateAndLRItem{
						kernelID: nextKID,
						itemID:   nextItemID,
					})
				} else {
					nextState, ok := lr0.states[nextKID]
					if !ok {
						return nil, fmt.Errorf("state not found: %v", nextKID)
					}
					nextItem, ok := nextState.findItem(nextItemID)
					if !ok {
						return nil, fmt.Errorf("item not found: %v", nextItemID)
					}
					nextItem.lookAhead.add(item.lookAhead.symbols)
				}
			}
			if len(propDests) == 0 {
				continue
			}

			props = append(props, &propagation{
				src: &stateAndLRItem{
					kernelID: state.id,
					itemID:   kItem.id,
				},
				dest: propDests,
			})
		}
	}

	err := propagateLookAhead(lr0, props)
	if err != nil {
		return nil, fmt.Errorf("failed to propagate look-ahead symbols: %v", err)
	}

	return &lalr1Automaton{
		lr0Automaton: lr0,
	}, nil
}

// genLALR1Closure returns the closure of a kernel item whose look-ahead is the dummy symbol. The items
// marked as propagation inherit the look-ahead of srcItem, and the others own spontaneous look-ahead symbols.
func genLALR1Closure(srcItem *lrItem, prods *productionSet, symTab *symbol.Table, a *analyzer) ([]*lrItem, error) {
	items := []*lrItem{}
	knownItems := map[lrItemID]*symbol.Set{}
	knownItemsProp := map[lrItemID]struct{}{}
	uncheckedItems := []*lrItem{}

	src := &lrItem{}
	*src = *srcItem
	src.lookAhead = lookAhead{
		propagation: true,
	}
	items = append(items, src)
	uncheckedItems = append(uncheckedItems, src)
	for len(uncheckedItems) > 0 {
		nextUncheckedItems := []*lrItem{}
		for _, item := range uncheckedItems {
			if item.dottedSymbol == symbol.IDNil {
				continue
			}
			dotted, ok := symTab.Get(item.dottedSymbol)
			if !ok {
				return nil, fmt.Errorf("dotted symbol not found: %v", item.dottedSymbol)
			}
			if !dotted.Kind.HasProductions() {
				continue
			}

			p, ok := prods.findByNum(item.prod)
			if !ok {
				return nil, fmt.Errorf("production not found: %v", item.prod)
			}

			fst, isFstNullable := a.firstOfSeq(p.rhs[item.dot+1:])
			lookAheadSyms := fst.IDs()
			if isFstNullable && item.lookAhead.symbols != nil {
				lookAheadSyms = append(lookAheadSyms, item.lookAhead.symbols.IDs()...)
			}

			ps, _ := prods.findByLHS(item.dottedSymbol)
			for _, prod := range ps {
				for _, la := range lookAheadSyms {
					newItem, err := newLR0Item(prod, 0)
					if err != nil {
						return nil, err
					}
					known, ok := knownItems[newItem.id]
					if !ok {
						known = symbol.NewSet()
						knownItems[newItem.id] = known
					}
					if !known.Add(la) {
						continue
					}

					newItem.lookAhead.symbols = symbol.NewSet(la)

					items = append(items, newItem)
					nextUncheckedItems = append(nextUncheckedItems, newItem)
				}

				if isFstNullable && item.lookAhead.propagation {
					newItem, err := newLR0Item(prod, 0)
					if err != nil {
						return nil, err
					}
					if _, exist := knownItemsProp[newItem.id]; exist {
						continue
					}

					newItem.lookAhead.propagation = true

					items = append(items, newItem)
					knownItemsProp[newItem.id] = struct{}{}
					nextUncheckedItems = append(nextUncheckedItems, newItem)
				}
			}
		}
		uncheckedItems = nextUncheckedItems
	}

	return items, nil
}

func propagateLookAhead(lr0 *lr0Automaton, props []*propagation) error {
	for {
		changed := false
		for _, prop := range props {
			srcState, ok := lr0.states[prop.src.kernelID]
			if !ok {
				return fmt.Errorf("source state not found: %v", prop.src.kernelID)
			}
			srcItem, ok := srcState.findItem(prop.src.itemID)
			if !ok {
				return fmt.Errorf("source item not found: %v", prop.src.itemID)
			}
			if srcItem.lookAhead.symbols == nil {
				continue
			}

			for _, dest := range prop.dest {
				destState, ok := lr0.states[dest.kernelID]
				if !ok {
					return fmt.Errorf("destination state not found: %v", dest.kernelID)
				}
				destItem, ok := destState.findItem(dest.itemID)
				if !ok {
					for _, item := range destState.emptyProdItems {
						if item.id != dest.itemID {
							continue
						}
						destItem = item
						break
					}
					if destItem == nil {
						return fmt.Errorf("destination item not found: %v", dest.itemID)
					}
				}

				if destItem.lookAhead.add(srcItem.lookAhead.symbols) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	return nil
}
