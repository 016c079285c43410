package grammar

import (
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/nihei9/gramc/grammar/symbol"
)

// analyzer fills the derived fields of symbols: the nullable flags and the FIRST and FOLLOW sets. An analyzer
// belongs to one grammar and writes into the records of its symbol table.
type analyzer struct {
	symTab *symbol.Table
	prods  *productionSet

	// firstPasses and followPasses record the sizes of the sets after every pass of the fixpoint loops. The
	// sizes of a pass are indexed by symbol id.
	firstPasses  [][]int
	followPasses [][]int
}

func newAnalyzer(symTab *symbol.Table, prods *productionSet) *analyzer {
	return &analyzer{
		symTab: symTab,
		prods:  prods,
	}
}

// isNullable reports whether a symbol derives the empty string. The first answer for a symbol is stored in
// its record and returned by every later call, even when productions are added afterward.
//
// The answer is computed without recursion: the symbols reachable from sym through right-hand sides whose
// flags are still unknown are collected with a stack, and their flags are solved together by a fixpoint.
func (a *analyzer) isNullable(id symbol.ID) bool {
	sym, ok := a.symTab.Get(id)
	if !ok {
		return false
	}
	if n, known := nullableByKind(sym); known {
		return n
	}
	if sym.Nullable != symbol.NullableUnknown {
		return sym.Nullable == symbol.NullableTrue
	}

	var reachable []*symbol.Symbol
	visited := map[symbol.ID]struct{}{}
	stack := arraystack.New()
	stack.Push(sym)
	visited[sym.ID] = struct{}{}
	for !stack.Empty() {
		v, _ := stack.Pop()
		s := v.(*symbol.Symbol)
		reachable = append(reachable, s)

		prods, _ := a.prods.findByLHS(s.ID)
		for _, prod := range prods {
			for _, e := range prod.rhs {
				if _, ok := visited[e]; ok {
					continue
				}
				eSym, ok := a.symTab.Get(e)
				if !ok {
					continue
				}
				if _, known := nullableByKind(eSym); known {
					continue
				}
				if eSym.Nullable != symbol.NullableUnknown {
					continue
				}
				visited[e] = struct{}{}
				stack.Push(eSym)
			}
		}
	}

	nullable := map[symbol.ID]bool{}
	for {
		changed := false
		for _, s := range reachable {
			if nullable[s.ID] {
				continue
			}
			prods, _ := a.prods.findByLHS(s.ID)
			for _, prod := range prods {
				if a.isNullableSeq(prod.rhs, nullable) {
					nullable[s.ID] = true
					changed = true
					break
				}
			}
		}
		if !changed {
			break
		}
	}

	for _, s := range reachable {
		if nullable[s.ID] {
			s.Nullable = symbol.NullableTrue
		} else {
			s.Nullable = symbol.NullableFalse
		}
	}

	return sym.Nullable == symbol.NullableTrue
}

// isNullableSeq reports whether every symbol of a sequence is nullable. Symbols whose flags are still being
// solved take their values from pending.
func (a *analyzer) isNullableSeq(seq []symbol.ID, pending map[symbol.ID]bool) bool {
	for _, e := range seq {
		eSym, ok := a.symTab.Get(e)
		if !ok {
			return false
		}
		if n, known := nullableByKind(eSym); known {
			if !n {
				return false
			}
			continue
		}
		switch eSym.Nullable {
		case symbol.NullableTrue:
			continue
		case symbol.NullableFalse:
			return false
		}
		if !pending[e] {
			return false
		}
	}
	return true
}

// nullableByKind answers for the kinds whose nullability doesn't depend on productions.
func nullableByKind(sym *symbol.Symbol) (bool, bool) {
	switch {
	case sym.Kind.IsTerminal():
		return false, true
	case sym.Kind.IsAction():
		return true, true
	case sym.Kind == symbol.KindUnknown:
		return false, true
	}
	return false, false
}

// computeFirst fills the FIRST sets of all symbols. The FIRST set of a terminal is the terminal itself, and
// the loop over productions repeats until a whole pass changes nothing.
func (a *analyzer) computeFirst() {
	syms := a.symTab.Symbols()
	for _, sym := range syms {
		if sym.IsTerminal() {
			sym.First.Add(sym.ID)
		}
	}

	prods := a.prods.getAllProductions()
	for {
		changed := false
		for _, prod := range prods {
			lhs, _ := a.symTab.Get(prod.lhs)
			fst, _ := a.firstOfSeq(prod.rhs)
			if lhs.First.Merge(fst) {
				changed = true
			}
		}
		a.firstPasses = append(a.firstPasses, a.setSizes(func(s *symbol.Symbol) *symbol.Set { return s.First }))
		if !changed {
			break
		}
	}

	tracer().Debugf("FIRST sets converged after %v passes", len(a.firstPasses))
}

// firstOfSeq returns the FIRST set of a sequence of symbols and whether the whole sequence is nullable.
func (a *analyzer) firstOfSeq(seq []symbol.ID) (*symbol.Set, bool) {
	fst := symbol.NewSet()
	for _, e := range seq {
		eSym, ok := a.symTab.Get(e)
		if !ok {
			return fst, false
		}
		fst.Merge(eSym.First)
		if !a.isNullable(e) {
			return fst, false
		}
	}
	return fst, true
}

// computeFollow fills the FOLLOW sets of all symbols having productions. computeFirst must be called first.
func (a *analyzer) computeFollow(augStart symbol.ID) error {
	start, ok := a.symTab.Get(augStart)
	if !ok {
		return fmt.Errorf("augmented start symbol not found: %v", augStart)
	}
	start.Follow.Add(symbol.IDEOF)

	prods := a.prods.getAllProductions()
	for {
		changed := false
		for _, prod := range prods {
			lhs, _ := a.symTab.Get(prod.lhs)
			for i, e := range prod.rhs {
				eSym, ok := a.symTab.Get(e)
				if !ok {
					return fmt.Errorf("symbol not found: %v", e)
				}
				if !eSym.Kind.HasProductions() {
					continue
				}

				fst, nullable := a.firstOfSeq(prod.rhs[i+1:])
				if eSym.Follow.Merge(fst) {
					changed = true
				}
				if nullable && eSym.Follow.Merge(lhs.Follow) {
					changed = true
				}
			}
		}
		a.followPasses = append(a.followPasses, a.setSizes(func(s *symbol.Symbol) *symbol.Set { return s.Follow }))
		if !changed {
			break
		}
	}

	tracer().Debugf("FOLLOW sets converged after %v passes", len(a.followPasses))

	return nil
}

func (a *analyzer) setSizes(set func(s *symbol.Symbol) *symbol.Set) []int {
	sizes := make([]int, a.symTab.IDLimit())
	for _, s := range a.symTab.Symbols() {
		sizes[s.ID] = set(s).Len()
	}
	return sizes
}
