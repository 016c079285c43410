package grammar

import (
	"fmt"
	"sort"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/nihei9/gramc/grammar/symbol"
)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState

	// numbered holds the states in the order of their numbers.
	numbered []*lrState
}

func (a *lr0Automaton) stateByNum(num stateNum) (*lrState, bool) {
	if num < 0 || num.Int() >= len(a.numbered) {
		return nil, false
	}
	return a.numbered[num], true
}

// genLR0Automaton discovers states breadth-first. Neighbours of a state are visited in the order of their
// symbol ids, so the same grammar always yields the same numbering.
func genLR0Automaton(prods *productionSet, symTab *symbol.Table) (*lr0Automaton, error) {
	automaton := &lr0Automaton{
		states: map[kernelID]*lrState{},
	}

	currentState := stateNumInitial
	knownKernels := map[kernelID]struct{}{}
	uncheckedKernels := []*kernel{}

	// Generate an initial kernel.
	{
		startProd, ok := prods.findByNum(productionNumStart)
		if !ok {
			return nil, fmt.Errorf("the start production is missing")
		}
		initialItem, err := newLR0Item(startProd, 0)
		if err != nil {
			return nil, err
		}

		k, err := newKernel([]*lrItem{initialItem})
		if err != nil {
			return nil, err
		}

		automaton.initialState = k.id
		knownKernels[k.id] = struct{}{}
		uncheckedKernels = append(uncheckedKernels, k)
	}

	for len(uncheckedKernels) > 0 {
		nextUncheckedKernels := []*kernel{}
		for _, k := range uncheckedKernels {
			state, neighbours, err := genStateAndNeighbourKernels(k, prods, symTab)
			if err != nil {
				return nil, err
			}
			state.num = currentState
			currentState = currentState.next()

			automaton.states[state.id] = state
			automaton.numbered = append(automaton.numbered, state)

			for _, k := range neighbours {
				if _, known := knownKernels[k.id]; known {
					continue
				}
				knownKernels[k.id] = struct{}{}
				nextUncheckedKernels = append(nextUncheckedKernels, k)
			}
		}
		uncheckedKernels = nextUncheckedKernels
	}

	tracer().Debugf("LR(0) automaton: %v states", len(automaton.numbered))

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, prods *productionSet, symTab *symbol.Table) (*lrState, []*kernel, error) {
	items, err := genLR0Closure(k, prods, symTab)
	if err != nil {
		return nil, nil, err
	}
	neighbours, err := genNeighbourKernels(items, prods)
	if err != nil {
		return nil, nil, err
	}

	next := map[symbol.ID]kernelID{}
	kernels := []*kernel{}
	for _, n := range neighbours {
		next[n.symbol] = n.kernel.id
		kernels = append(kernels, n.kernel)
	}

	reducible := map[productionNum]struct{}{}
	var emptyProdItems []*lrItem
	for _, item := range items {
		if !item.reducible {
			continue
		}
		reducible[item.prod] = struct{}{}

		prod, ok := prods.findByNum(item.prod)
		if !ok {
			return nil, nil, fmt.Errorf("reducible production not found: %v", item.prod)
		}
		if prod.isEmpty() {
			emptyProdItems = append(emptyProdItems, item)
		}
	}

	return &lrState{
		kernel:         k,
		next:           next,
		reducible:      reducible,
		emptyProdItems: emptyProdItems,
	}, kernels, nil
}

// genLR0Closure expands a kernel with a work-list. The closure keeps its items in a tree set, which both
// rejects duplicates and orders the items by their productions and dots.
func genLR0Closure(k *kernel, prods *productionSet, symTab *symbol.Table) ([]*lrItem, error) {
	closure := treeset.NewWith(itemComparator)
	uncheckedItems := []*lrItem{}
	maybeAdd := func(item *lrItem) {
		if closure.Contains(item) {
			return
		}
		closure.Add(item)
		uncheckedItems = append(uncheckedItems, item)
	}

	for _, item := range k.items {
		maybeAdd(item)
	}
	for len(uncheckedItems) > 0 {
		item := uncheckedItems[len(uncheckedItems)-1]
		uncheckedItems = uncheckedItems[:len(uncheckedItems)-1]
		if item.dottedSymbol == symbol.IDNil {
			continue
		}
		sym, ok := symTab.Get(item.dottedSymbol)
		if !ok {
			return nil, fmt.Errorf("dotted symbol not found: %v", item.dottedSymbol)
		}
		if !sym.Kind.HasProductions() {
			continue
		}

		ps, _ := prods.findByLHS(item.dottedSymbol)
		for _, prod := range ps {
			newItem, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			maybeAdd(newItem)
		}
	}

	items := make([]*lrItem, 0, closure.Size())
	it := closure.Iterator()
	for it.Next() {
		items = append(items, it.Value().(*lrItem))
	}

	return items, nil
}

type neighbourKernel struct {
	symbol symbol.ID
	kernel *kernel
}

func genNeighbourKernels(items []*lrItem, prods *productionSet) ([]*neighbourKernel, error) {
	kItemMap := map[symbol.ID][]*lrItem{}
	for _, item := range items {
		if item.dottedSymbol == symbol.IDNil {
			continue
		}
		prod, ok := prods.findByNum(item.prod)
		if !ok {
			return nil, fmt.Errorf("a production was not found: %v", item.prod)
		}
		kItem, err := newLR0Item(prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		kItemMap[item.dottedSymbol] = append(kItemMap[item.dottedSymbol], kItem)
	}

	nextSyms := []symbol.ID{}
	for sym := range kItemMap {
		nextSyms = append(nextSyms, sym)
	}
	sort.Slice(nextSyms, func(i, j int) bool {
		return nextSyms[i] < nextSyms[j]
	})

	kernels := []*neighbourKernel{}
	for _, sym := range nextSyms {
		k, err := newKernel(kItemMap[sym])
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, &neighbourKernel{
			symbol: sym,
			kernel: k,
		})
	}

	return kernels, nil
}
