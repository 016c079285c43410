// Package driver runs compiled grammars. It is a reference implementation of the table-driven parser the
// compiled tables are meant for, and it builds concrete syntax trees.
package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	gspec "github.com/nihei9/gramc/spec/grammar"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.driver")
}

// SyntaxError is an empty table entry. Row and Col are 0-origin.
type SyntaxError struct {
	Row               int
	Col               int
	Token             string
	Invalid           bool
	EOF               bool
	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	switch {
	case e.EOF:
		fmt.Fprintf(&b, "%v:%v: unexpected end of input", e.Row+1, e.Col+1)
	case e.Invalid:
		fmt.Fprintf(&b, "%v:%v: invalid token: %q", e.Row+1, e.Col+1, e.Token)
	default:
		fmt.Fprintf(&b, "%v:%v: unexpected token: %q", e.Row+1, e.Col+1, e.Token)
	}
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

// NonassocError is a non-associative operator following an operand of an operator at the same level, such
// as the second `<` in `a < b < c`.
type NonassocError struct {
	Row      int
	Col      int
	Token    string
	Terminal string
}

func (e *NonassocError) Error() string {
	return fmt.Sprintf("%v:%v: %v is non-associative: %q", e.Row+1, e.Col+1, e.Terminal, e.Token)
}

type ParserOption func(p *Parser) error

// SemanticAction sets the action set the parser calls. By default, the parser builds a syntax tree.
func SemanticAction(semAct SemanticActionSet) ParserOption {
	return func(p *Parser) error {
		p.semAct = semAct
		return nil
	}
}

type Parser struct {
	gram       Grammar
	toks       TokenStream
	stateStack *stateStack
	semAct     SemanticActionSet
	cst        *SyntaxTreeActionSet
}

// NewParser makes a parser reading src with the lexical entries of a compiled grammar.
func NewParser(g *gspec.CompiledGrammar, src io.Reader, opts ...ParserOption) (*Parser, error) {
	gram, err := NewGrammar(g)
	if err != nil {
		return nil, err
	}
	toks, err := NewTokenStream(g, src)
	if err != nil {
		return nil, err
	}
	return NewParserWithTokenStream(gram, toks, opts...)
}

func NewParserWithTokenStream(gram Grammar, toks TokenStream, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		gram:       gram,
		toks:       toks,
		stateStack: &stateStack{},
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	if p.semAct == nil {
		p.cst = NewSyntaxTreeActionSet(gram)
		p.semAct = p.cst
	}

	return p, nil
}

// Parse runs the parser until it accepts the input or meets an error. The errors concerning the input are
// *SyntaxError and *NonassocError.
func (p *Parser) Parse() error {
	p.stateStack.push(p.gram.InitialState())
	tok, err := p.toks.Next()
	if err != nil {
		return err
	}

	for {
		if tok.Invalid() {
			return p.syntaxError(tok)
		}

		act := p.gram.Action(p.stateStack.top(), tok.TerminalID())
		switch {
		case act == gspec.ActionNonassoc:
			row, col := tok.Position()
			return &NonassocError{
				Row:      row,
				Col:      col,
				Token:    tok.Lexeme(),
				Terminal: p.terminalText(tok.TerminalID()),
			}
		case act < 0: // Shift
			nextState := act * -1
			tracer().Debugf("shift %v; state: %v", p.gram.Symbol(tok.TerminalID()), nextState)
			p.stateStack.push(nextState)
			p.semAct.Shift(tok)

			tok, err = p.toks.Next()
			if err != nil {
				return err
			}
		case act > 0: // Reduce
			prodNum := act
			tracer().Debugf("reduce %v", prodNum)

			if prodNum == p.gram.StartProduction() {
				p.semAct.Accept()
				return nil
			}

			if err := p.reduce(prodNum); err != nil {
				return err
			}
			p.semAct.Reduce(prodNum)
		default: // Error
			return p.syntaxError(tok)
		}
	}
}

func (p *Parser) reduce(prodNum int) error {
	lhs := p.gram.LHS(prodNum)
	n := p.gram.AlternativeSymbolCount(prodNum)
	p.stateStack.pop(n)
	goTo := p.gram.Action(p.stateStack.top(), lhs)
	if goTo >= 0 {
		return fmt.Errorf("an entry must be a goto; entry: %v, state: %v, symbol: %v", goTo, p.stateStack.top(), p.gram.Symbol(lhs))
	}
	p.stateStack.push(goTo * -1)
	return nil
}

func (p *Parser) syntaxError(tok VToken) *SyntaxError {
	row, col := tok.Position()
	return &SyntaxError{
		Row:               row,
		Col:               col,
		Token:             tok.Lexeme(),
		Invalid:           tok.Invalid(),
		EOF:               tok.EOF(),
		ExpectedTerminals: p.searchLookahead(p.stateStack.top()),
	}
}

// CST returns the syntax tree when the parser runs the default action set.
func (p *Parser) CST() *Node {
	if p.cst == nil {
		return nil
	}
	return p.cst.CST()
}

// searchLookahead returns the terminals the parser can shift or reduce on in a state.
func (p *Parser) searchLookahead(state int) []string {
	kinds := []string{}
	for sym := 0; sym < p.gram.SymbolCount(); sym++ {
		if !p.gram.IsTerminal(sym) {
			continue
		}
		act := p.gram.Action(state, sym)
		if act == gspec.ActionEmpty || act == gspec.ActionNonassoc {
			continue
		}
		kinds = append(kinds, p.terminalText(sym))
	}

	return kinds
}

func (p *Parser) terminalText(sym int) string {
	if sym == p.gram.EOF() {
		return "<eof>"
	}
	if alias := p.gram.Alias(sym); alias != "" {
		return fmt.Sprintf("'%v'", alias)
	}
	return p.gram.Symbol(sym)
}

type stateStack struct {
	states []int
}

func (s *stateStack) top() int {
	return s.states[len(s.states)-1]
}

func (s *stateStack) push(state int) {
	s.states = append(s.states, state)
}

func (s *stateStack) pop(n int) {
	s.states = s.states[:len(s.states)-n]
}
