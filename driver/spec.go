package driver

import (
	"fmt"

	"github.com/nihei9/gramc/grammar/symbol"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

// Grammar is the view of a compiled grammar the parser runs on.
type Grammar interface {
	InitialState() int
	StartProduction() int

	// StartSymbol returns the start symbol of the grammar before augmentation.
	StartSymbol() int
	EOF() int

	// Action returns the entry of the transition table. See gspec.SyntacticSpec for the encoding.
	Action(state int, sym int) int

	LHS(prod int) int
	AlternativeSymbolCount(prod int) int

	// SemanticAction returns the action text attached to a production, if any.
	SemanticAction(prod int) (string, bool)

	SymbolCount() int
	Symbol(sym int) string
	Alias(sym int) string
	IsTerminal(sym int) bool

	// IsNode reports whether a syntax tree keeps a node for the non-terminal.
	IsNode(sym int) bool
}

var _ Grammar = &grammarImpl{}

type grammarImpl struct {
	g *gspec.CompiledGrammar

	// prods is indexed by production numbers.
	prods    []*gspec.Production
	hasNodes bool
}

// NewGrammar checks that a compiled grammar is complete enough to drive a parser.
func NewGrammar(g *gspec.CompiledGrammar) (*grammarImpl, error) {
	if g == nil || g.Lexical == nil || g.Syntactic == nil {
		return nil, fmt.Errorf("the compiled grammar is incomplete")
	}
	syn := g.Syntactic
	if len(syn.Transition) != syn.StateCount*syn.SymbolCount {
		return nil, fmt.Errorf("the transition table has %v entries; want: %v", len(syn.Transition), syn.StateCount*syn.SymbolCount)
	}

	max := 0
	for _, p := range syn.Productions {
		if p.Number > max {
			max = p.Number
		}
	}
	prods := make([]*gspec.Production, max+1)
	for _, p := range syn.Productions {
		prods[p.Number] = p
	}
	if syn.StartProduction <= 0 || syn.StartProduction > max || prods[syn.StartProduction] == nil {
		return nil, fmt.Errorf("the start production %v doesn't exist", syn.StartProduction)
	}
	if len(prods[syn.StartProduction].RHS) != 1 {
		return nil, fmt.Errorf("the start production must have exactly one symbol")
	}

	hasNodes := false
	for _, s := range syn.Symbols {
		if s != nil && s.Kind == symbol.KindNode.String() {
			hasNodes = true
			break
		}
	}

	return &grammarImpl{
		g:        g,
		prods:    prods,
		hasNodes: hasNodes,
	}, nil
}

func (g *grammarImpl) InitialState() int {
	return g.g.Syntactic.InitialState
}

func (g *grammarImpl) StartProduction() int {
	return g.g.Syntactic.StartProduction
}

func (g *grammarImpl) StartSymbol() int {
	return g.prods[g.g.Syntactic.StartProduction].RHS[0]
}

func (g *grammarImpl) EOF() int {
	return g.g.Syntactic.EOFSymbol
}

func (g *grammarImpl) Action(state int, sym int) int {
	return g.g.Syntactic.Entry(state, sym)
}

func (g *grammarImpl) LHS(prod int) int {
	return g.prods[prod].LHS
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return len(g.prods[prod].RHS)
}

func (g *grammarImpl) SemanticAction(prod int) (string, bool) {
	p := g.prods[prod]
	return p.Action, p.Action != ""
}

func (g *grammarImpl) SymbolCount() int {
	return g.g.Syntactic.SymbolCount
}

func (g *grammarImpl) Symbol(sym int) string {
	if s, ok := g.g.Syntactic.Symbol(sym); ok {
		return s.Name
	}
	return fmt.Sprintf("<%v>", sym)
}

func (g *grammarImpl) Alias(sym int) string {
	if s, ok := g.g.Syntactic.Symbol(sym); ok {
		return s.Alias
	}
	return ""
}

func (g *grammarImpl) IsTerminal(sym int) bool {
	s, ok := g.g.Syntactic.Symbol(sym)
	if !ok {
		return false
	}
	k, _ := symbol.ParseKind(s.Kind)
	return k.IsTerminal()
}

// IsNode reports true for node symbols. A grammar declaring no node symbols keeps every non-terminal.
func (g *grammarImpl) IsNode(sym int) bool {
	s, ok := g.g.Syntactic.Symbol(sym)
	if !ok {
		return false
	}
	if g.hasNodes {
		return s.Kind == symbol.KindNode.String()
	}
	return s.Kind == symbol.KindNonTerminal.String()
}
