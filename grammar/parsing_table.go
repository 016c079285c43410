package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/gramc/grammar/symbol"
	spec "github.com/nihei9/gramc/spec/grammar"
)

type ActionType string

const (
	ActionTypeShift    = ActionType("shift")
	ActionTypeReduce   = ActionType("reduce")
	ActionTypeNonassoc = ActionType("nonassoc")
	ActionTypeError    = ActionType("error")
)

// actionEntry is an entry of the transition table. Terminals and non-terminals share one table, so a shift
// and a goto take the same form.
type actionEntry int

const (
	actionEntryEmpty    = actionEntry(spec.ActionEmpty)
	actionEntryNonassoc = actionEntry(spec.ActionNonassoc)
)

func newShiftActionEntry(state stateNum) actionEntry {
	return actionEntry(state * -1)
}

func newReduceActionEntry(prod productionNum) actionEntry {
	return actionEntry(prod)
}

func (e actionEntry) isEmpty() bool {
	return e == actionEntryEmpty
}

func (e actionEntry) describe() (ActionType, stateNum, productionNum) {
	switch {
	case e == actionEntryEmpty:
		return ActionTypeError, stateNumInitial, productionNumNil
	case e == actionEntryNonassoc:
		return ActionTypeNonassoc, stateNumInitial, productionNumNil
	case e < 0:
		return ActionTypeShift, stateNum(e * -1), productionNumNil
	}
	return ActionTypeReduce, stateNumInitial, productionNum(e)
}

type ParsingTable struct {
	entries     []actionEntry
	stateCount  int
	symbolCount int

	InitialState stateNum
}

func (t *ParsingTable) getAction(state stateNum, sym symbol.ID) (ActionType, stateNum, productionNum) {
	return t.readAction(state, sym).describe()
}

func (t *ParsingTable) readAction(state stateNum, sym symbol.ID) actionEntry {
	return t.entries[state.Int()*t.symbolCount+sym.Int()]
}

func (t *ParsingTable) writeAction(state stateNum, sym symbol.ID, act actionEntry) {
	t.entries[state.Int()*t.symbolCount+sym.Int()] = act
}

type lrTableBuilder struct {
	automaton *lr0Automaton
	prods     *productionSet
	symTab    *symbol.Table
	resolver  *Resolver

	diagnostics []*Diagnostic
}

// build writes shifts and gotos first and then reductions. The productions reducible on one look-ahead are
// settled together: reduce/reduce conflicts first, and then the surviving production against a shift.
func (b *lrTableBuilder) build() (*ParsingTable, error) {
	initialState, ok := b.automaton.states[b.automaton.initialState]
	if !ok {
		return nil, fmt.Errorf("initial state not found")
	}
	symCount := b.symTab.IDLimit()
	ptab := &ParsingTable{
		entries:      make([]actionEntry, len(b.automaton.numbered)*symCount),
		stateCount:   len(b.automaton.numbered),
		symbolCount:  symCount,
		InitialState: initialState.num,
	}

	for _, state := range b.automaton.numbered {
		for _, sym := range state.nextSymbols() {
			nextState, ok := b.automaton.states[state.next[sym]]
			if !ok {
				return nil, fmt.Errorf("next state not found; state: %v, symbol: %v", state.num, sym)
			}
			ptab.writeAction(state.num, sym, newShiftActionEntry(nextState.num))
		}

		candidates := map[symbol.ID][]int{}
		var prodNums []int
		for prod := range state.reducible {
			prodNums = append(prodNums, prod.Int())
		}
		sort.Ints(prodNums)
		for _, p := range prodNums {
			item, ok := state.findReducibleItem(productionNum(p))
			if !ok {
				return nil, fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, p)
			}
			for _, a := range item.lookAhead.symbols.IDs() {
				candidates[a] = append(candidates[a], p)
			}
		}

		lookAheads := make([]symbol.ID, 0, len(candidates))
		for a := range candidates {
			lookAheads = append(lookAheads, a)
		}
		sort.Slice(lookAheads, func(i, j int) bool {
			return lookAheads[i] < lookAheads[j]
		})

		for _, a := range lookAheads {
			prod, d := b.resolver.DecideReduceReduce(a, candidates[a], state.num.Int())
			if d != nil {
				b.diagnostics = append(b.diagnostics, d)
			}
			b.writeReduceAction(ptab, state.num, a, productionNum(prod))
		}
	}

	return ptab, nil
}

// writeReduceAction writes a reduce action unless a shift action on the same symbol wins the conflict.
func (b *lrTableBuilder) writeReduceAction(tab *ParsingTable, state stateNum, sym symbol.ID, prod productionNum) {
	act := tab.readAction(state, sym)
	if act.isEmpty() {
		tab.writeAction(state, sym, newReduceActionEntry(prod))
		return
	}

	ty, _, _ := act.describe()
	if ty != ActionTypeShift {
		return
	}

	dec, d := b.resolver.Decide(sym, prod.Int(), state.Int())
	if d != nil {
		b.diagnostics = append(b.diagnostics, d)
	}
	switch dec {
	case DecisionReduce:
		tab.writeAction(state, sym, newReduceActionEntry(prod))
	case DecisionNonassoc:
		tab.writeAction(state, sym, actionEntryNonassoc)
	}
}

func (b *lrTableBuilder) genReport(tab *ParsingTable, gram *Grammar, class Class) (*spec.Report, error) {
	var terms []*spec.Terminal
	for _, sym := range b.symTab.Terminals() {
		term := &spec.Terminal{
			Number: sym.ID.Int(),
			Name:   sym.Name,
		}
		if alias, ok := gram.aliases[sym.ID]; ok {
			term.Name = alias
		}
		if _, ok := gram.anonymous[sym.ID]; ok {
			term.Anonymous = true
		}
		term.Pattern = gram.patterns[sym.ID]
		if sym.Prec != nil {
			term.Precedence = sym.Prec.Level
			term.Associativity = sym.Prec.Assoc.String()
		}
		terms = append(terms, term)
	}

	var nonTerms []*spec.NonTerminal
	for _, sym := range b.symTab.NonTerminals() {
		nonTerms = append(nonTerms, &spec.NonTerminal{
			Number:   sym.ID.Int(),
			Name:     sym.Name,
			Kind:     sym.Kind.String(),
			Nullable: sym.Nullable == symbol.NullableTrue,
			First:    idsToInts(sym.First.IDs()),
			Follow:   idsToInts(sym.Follow.IDs()),
		})
	}

	var prods []*spec.ReportProduction
	for _, p := range b.prods.getAllProductions() {
		prod := &spec.ReportProduction{
			Number: p.num.Int(),
			LHS:    p.lhs.Int(),
			RHS:    idsToInts(p.rhs),
		}
		if prec := b.resolver.productionPrecedence(p); prec != nil {
			prod.Precedence = prec.Level
			prod.Associativity = prec.Assoc.String()
		}
		prods = append(prods, prod)
	}

	conflicts := map[int][]*spec.Conflict{}
	for _, d := range b.diagnostics {
		c := &spec.Conflict{
			Kind:        string(d.Kind),
			Symbol:      d.Terminal.Int(),
			State:       d.State,
			Productions: d.Productions,
			ResolvedBy:  string(d.ResolvedBy),
			Message:     d.Message,
		}
		if d.Kind == ConflictReduceReduce {
			c.Adopted = fmt.Sprintf("reduce %v", d.Adopted)
		} else {
			c.Adopted = d.Decision.String()
		}
		conflicts[d.State] = append(conflicts[d.State], c)
	}

	states := make([]*spec.State, len(b.automaton.numbered))
	for _, s := range b.automaton.numbered {
		kernel := make([]*spec.Item, len(s.items))
		for i, item := range s.items {
			kernel[i] = &spec.Item{
				Production: item.prod.Int(),
				Dot:        item.dot,
			}
		}

		var shift []*spec.Transition
		var reduce []*spec.Reduce
		var goTo []*spec.Transition
		var nonassoc []int
	SYMBOLS_LOOP:
		for _, sym := range b.symTab.Symbols() {
			act, next, prod := tab.getAction(s.num, sym.ID)
			switch act {
			case ActionTypeShift:
				t := &spec.Transition{
					Symbol: sym.ID.Int(),
					State:  next.Int(),
				}
				if sym.IsTerminal() {
					shift = append(shift, t)
				} else {
					goTo = append(goTo, t)
				}
			case ActionTypeReduce:
				for _, r := range reduce {
					if r.Production == prod.Int() {
						r.LookAhead = append(r.LookAhead, sym.ID.Int())
						continue SYMBOLS_LOOP
					}
				}
				reduce = append(reduce, &spec.Reduce{
					LookAhead:  []int{sym.ID.Int()},
					Production: prod.Int(),
				})
			case ActionTypeNonassoc:
				nonassoc = append(nonassoc, sym.ID.Int())
			}
		}
		sort.Slice(reduce, func(i, j int) bool {
			return reduce[i].Production < reduce[j].Production
		})

		states[s.num] = &spec.State{
			Number:    s.num.Int(),
			Kernel:    kernel,
			Shift:     shift,
			Reduce:    reduce,
			GoTo:      goTo,
			Nonassoc:  nonassoc,
			Conflicts: conflicts[s.num.Int()],
		}
	}

	return &spec.Report{
		Class:        string(class),
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		States:       states,
	}, nil
}

func idsToInts(ids []symbol.ID) []int {
	ints := make([]int, len(ids))
	for i, id := range ids {
		ints[i] = id.Int()
	}
	return ints
}
