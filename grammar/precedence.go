package grammar

import (
	"fmt"
	"strings"

	"github.com/nihei9/gramc/grammar/symbol"
)

// Decision is how a shift/reduce conflict is settled.
type Decision int

const (
	DecisionShift Decision = iota + 1
	DecisionReduce

	// DecisionNonassoc leaves an error entry in the table. A parser reading it reports two non-associative
	// operators in a row.
	DecisionNonassoc
)

func (d Decision) String() string {
	switch d {
	case DecisionShift:
		return "shift"
	case DecisionReduce:
		return "reduce"
	case DecisionNonassoc:
		return "nonassoc"
	}
	return "unknown"
}

type ConflictKind string

const (
	ConflictShiftReduce  = ConflictKind("shift/reduce")
	ConflictReduceReduce = ConflictKind("reduce/reduce")
)

type ResolvedBy string

const (
	ResolvedByPrec      = ResolvedBy("precedence")
	ResolvedByAssoc     = ResolvedBy("associativity")
	ResolvedByShift     = ResolvedBy("default shift")
	ResolvedByProdOrder = ResolvedBy("production order")
)

// Diagnostic describes a conflict the table builder met and how it was resolved. Diagnostics never stop
// a build.
type Diagnostic struct {
	Kind ConflictKind

	State int

	Terminal     symbol.ID
	TerminalName string

	// Productions are the productions in conflict. A shift/reduce conflict has one production, and
	// a reduce/reduce conflict has two or more in ascending order.
	Productions []int

	Decision   Decision
	ResolvedBy ResolvedBy

	// Adopted is the production a reduce/reduce conflict reduces by.
	Adopted int

	Message string
}

func (d *Diagnostic) String() string {
	return d.Message
}

// DiagnosticSink receives the conflict diagnostics of a build as they occur.
type DiagnosticSink interface {
	Report(d *Diagnostic)
}

// DiagnosticSinkFunc adapts a function to DiagnosticSink.
type DiagnosticSinkFunc func(d *Diagnostic)

func (f DiagnosticSinkFunc) Report(d *Diagnostic) {
	f(d)
}

// DiagnosticCollector is a DiagnosticSink keeping every diagnostic.
type DiagnosticCollector struct {
	Diagnostics []*Diagnostic
}

func (c *DiagnosticCollector) Report(d *Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Resolver settles conflicts using the precedence and associativity of terminals and productions.
type Resolver struct {
	symTab  *symbol.Table
	prods   *productionSet
	aliases map[symbol.ID]string
	sink    DiagnosticSink
}

func newResolver(gram *Grammar, sink DiagnosticSink) *Resolver {
	return &Resolver{
		symTab:  gram.symTab,
		prods:   gram.prods,
		aliases: gram.aliases,
		sink:    sink,
	}
}

// Decide settles a shift/reduce conflict between a look-ahead terminal and a production to reduce by in
// a state. The rules apply in this order:
//
//  1. When the look-ahead isn't in FOLLOW of the production's LHS, the reduction can't happen, so shift.
//  2. When the terminal has no precedence, shift.
//  3. When the terminal is non-associative, the entry becomes a non-associative error.
//  4. When the production has no precedence, shift. Otherwise, the higher level wins. On a tie, a
//     right-associative terminal shifts and the others reduce.
//
// Decide returns a diagnostic for every conflict it settles except for the first rule, and passes it to
// the sink of the resolver too.
func (r *Resolver) Decide(lookahead symbol.ID, prodNum int, state int) (Decision, *Diagnostic) {
	term, ok := r.symTab.Get(lookahead)
	if !ok {
		return DecisionShift, nil
	}
	prod, ok := r.prods.findByNum(productionNum(prodNum))
	if !ok {
		return DecisionShift, nil
	}
	lhs, ok := r.symTab.Get(prod.lhs)
	if !ok || !lhs.Follow.Contains(lookahead) {
		return DecisionShift, nil
	}

	var dec Decision
	var by ResolvedBy
	prodPrec := r.productionPrecedence(prod)
	switch {
	case term.Prec == nil:
		dec, by = DecisionShift, ResolvedByShift
	case term.Prec.Assoc == symbol.AssocNonAssoc:
		dec, by = DecisionNonassoc, ResolvedByAssoc
	case prodPrec == nil:
		dec, by = DecisionShift, ResolvedByShift
	case term.Prec.Level > prodPrec.Level:
		dec, by = DecisionShift, ResolvedByPrec
	case term.Prec.Level < prodPrec.Level:
		dec, by = DecisionReduce, ResolvedByPrec
	case term.Prec.Assoc == symbol.AssocRight:
		dec, by = DecisionShift, ResolvedByAssoc
	default:
		dec, by = DecisionReduce, ResolvedByAssoc
	}

	d := &Diagnostic{
		Kind:         ConflictShiftReduce,
		State:        state,
		Terminal:     lookahead,
		TerminalName: r.symbolText(lookahead),
		Productions:  []int{prodNum},
		Decision:     dec,
		ResolvedBy:   by,
	}
	d.Message = fmt.Sprintf("shift/reduce conflict on `%v` in reduction `%v` in state `%v`: %v (%v)",
		d.TerminalName, r.productionText(prod), state, dec, by)
	r.report(d)

	return dec, d
}

// DecideReduceReduce settles a conflict between productions reducible on the same look-ahead. The production
// declared first wins.
func (r *Resolver) DecideReduceReduce(lookahead symbol.ID, prodNums []int, state int) (int, *Diagnostic) {
	if len(prodNums) == 0 {
		return productionNumNil.Int(), nil
	}
	adopted := prodNums[0]
	for _, p := range prodNums[1:] {
		if p < adopted {
			adopted = p
		}
	}
	if len(prodNums) == 1 {
		return adopted, nil
	}

	var texts []string
	for _, p := range prodNums {
		prod, ok := r.prods.findByNum(productionNum(p))
		if !ok {
			continue
		}
		texts = append(texts, fmt.Sprintf("`%v`", r.productionText(prod)))
	}

	d := &Diagnostic{
		Kind:         ConflictReduceReduce,
		State:        state,
		Terminal:     lookahead,
		TerminalName: r.symbolText(lookahead),
		Productions:  prodNums,
		Decision:     DecisionReduce,
		ResolvedBy:   ResolvedByProdOrder,
		Adopted:      adopted,
	}
	d.Message = fmt.Sprintf("reduce/reduce conflict on `%v` among %v in state `%v`: reduce by %v (%v)",
		d.TerminalName, strings.Join(texts, ", "), state, adopted, ResolvedByProdOrder)
	r.report(d)

	return adopted, d
}

func (r *Resolver) report(d *Diagnostic) {
	if r.sink == nil {
		return
	}
	r.sink.Report(d)
}

// productionPrecedence returns the precedence a #prec directive gives to a production, or that of the
// right-most terminal of the production.
func (r *Resolver) productionPrecedence(prod *production) *symbol.Precedence {
	if prod.prec != nil {
		return prod.prec
	}
	for i := len(prod.rhs) - 1; i >= 0; i-- {
		sym, ok := r.symTab.Get(prod.rhs[i])
		if !ok || !sym.IsTerminal() {
			continue
		}
		return sym.Prec
	}
	return nil
}

func (r *Resolver) symbolText(id symbol.ID) string {
	if alias, ok := r.aliases[id]; ok {
		return alias
	}
	sym, ok := r.symTab.Get(id)
	if !ok {
		return id.String()
	}
	return sym.Name
}

func (r *Resolver) productionText(prod *production) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %v →", prod.num, r.symbolText(prod.lhs))
	if prod.isEmpty() {
		fmt.Fprintf(&b, " ε")
	}
	for _, e := range prod.rhs {
		fmt.Fprintf(&b, " %v", r.symbolText(e))
	}
	return b.String()
}
