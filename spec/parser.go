package spec

import (
	"io"

	verr "github.com/nihei9/gramc/error"
)

type RootNode struct {
	Directives     []*DirectiveNode
	Productions    []*ProductionNode
	LexProductions []*ProductionNode
	Fragments      []*FragmentNode
}

type ProductionNode struct {
	LHS string
	RHS []*AlternativeNode
	Pos Position
}

// isLexical reports whether a production defines a terminal, that is, it has exactly one alternative
// consisting of one pattern or string.
func (n *ProductionNode) isLexical() bool {
	if len(n.RHS) != 1 {
		return false
	}
	alt := n.RHS[0]
	if len(alt.Elements) != 1 {
		return false
	}
	return alt.Elements[0].Pattern != ""
}

type AlternativeNode struct {
	Elements   []*ElementNode
	Directives []*DirectiveNode
	Pos        Position
}

// Action returns the action at the tail of the alternative, which is the action of the production rather
// than a mid-rule action.
func (n *AlternativeNode) Action() *ActionNode {
	if len(n.Elements) == 0 {
		return nil
	}
	return n.Elements[len(n.Elements)-1].Action
}

// ElementNode is one of an identifier, a pattern, or an action.
type ElementNode struct {
	ID        string
	Pattern   string
	Literally bool
	Action    *ActionNode
	Pos       Position
}

type ActionNode struct {
	Text string
	Old  bool
	Pos  Position
}

type DirectiveNode struct {
	Name       string
	Parameters []*ParameterNode
	Pos        Position
}

// ParameterNode is one of an identifier, a pattern, a string, or a group of directives.
type ParameterNode struct {
	ID      string
	Pattern string
	String  string
	Group   []*DirectiveNode
	Pos     Position
}

type FragmentNode struct {
	LHS string
	RHS string
	Pos Position
}

func raiseSyntaxError(pos Position, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause: synErr,
		Row:   pos.Row,
		Col:   pos.Col,
	})
}

func raiseSyntaxErrorWithDetail(pos Position, synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    pos.Row,
		Col:    pos.Col,
	})
}

func Parse(src io.Reader) (*RootNode, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token

	// A parser can recognize errors in a production at once, so it records the errors in errs and continues
	// with the next production.
	errs verr.SpecErrors
}

func newParser(src io.Reader) (*parser, error) {
	lex, err := newLexer(src)
	if err != nil {
		return nil, err
	}
	return &parser{
		lex: lex,
	}, nil
}

func (p *parser) parse() (root *RootNode, retErr error) {
	root = p.parseRoot()
	if len(p.errs) > 0 {
		return nil, p.errs
	}

	return root, nil
}

func (p *parser) parseRoot() *RootNode {
	defer func() {
		err := recover()
		if err != nil {
			specErr, ok := err.(*verr.SpecError)
			if !ok {
				panic(err)
			}
			p.errs = append(p.errs, specErr)
		}
	}()

	var dirs []*DirectiveNode
	var prods []*ProductionNode
	var lexProds []*ProductionNode
	var fragments []*FragmentNode
	for {
		dir := p.parseTopLevelDirective()
		if dir != nil {
			dirs = append(dirs, dir)
			continue
		}

		fragment := p.parseFragment()
		if fragment != nil {
			fragments = append(fragments, fragment)
			continue
		}

		prod := p.parseProduction()
		if prod != nil {
			if prod.isLexical() {
				lexProds = append(lexProds, prod)
			} else {
				prods = append(prods, prod)
			}
			continue
		}

		if p.consume(tokenKindEOF) {
			break
		}
	}

	if len(prods) == 0 && len(p.errs) == 0 {
		raiseSyntaxError(Position{}, synErrNoProduction)
	}

	return &RootNode{
		Directives:     dirs,
		Productions:    prods,
		LexProductions: lexProds,
		Fragments:      fragments,
	}
}

func (p *parser) parseTopLevelDirective() *DirectiveNode {
	defer func() {
		err := recover()
		if err == nil {
			return
		}

		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}

		p.errs = append(p.errs, specErr)
		p.skipOverTo(tokenKindSemicolon)
	}()

	dir := p.parseDirective()
	if dir == nil {
		return nil
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(p.peekedTok.pos, synErrTopLevelDirNoSemicolon)
	}

	return dir
}

func (p *parser) parseFragment() *FragmentNode {
	defer func() {
		err := recover()
		if err == nil {
			return
		}

		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}

		p.errs = append(p.errs, specErr)
		p.skipOverTo(tokenKindSemicolon)
	}()

	if !p.consume(tokenKindKWFragment) {
		return nil
	}
	pos := p.lastTok.pos

	if !p.consume(tokenKindID) {
		raiseSyntaxError(p.peekedTok.pos, synErrNoProductionName)
	}
	lhs := p.lastTok.text

	if !p.consume(tokenKindColon) {
		raiseSyntaxError(p.peekedTok.pos, synErrNoColon)
	}

	var rhs string
	switch {
	case p.consume(tokenKindTerminalPattern):
		rhs = p.lastTok.text
	case p.consume(tokenKindStringLiteral):
		rhs = escapePattern(p.lastTok.text)
	default:
		raiseSyntaxError(p.peekedTok.pos, synErrFragmentNoPattern)
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(p.peekedTok.pos, synErrNoSemicolon)
	}

	return &FragmentNode{
		LHS: lhs,
		RHS: rhs,
		Pos: pos,
	}
}

func (p *parser) parseProduction() *ProductionNode {
	defer func() {
		err := recover()
		if err == nil {
			return
		}

		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}

		p.errs = append(p.errs, specErr)
		p.skipOverTo(tokenKindSemicolon)
	}()

	if !p.consume(tokenKindID) {
		if p.peekKind() != tokenKindEOF {
			raiseSyntaxError(p.peekedTok.pos, synErrNoProductionName)
		}
		return nil
	}
	lhs := p.lastTok.text
	lhsPos := p.lastTok.pos

	if !p.consume(tokenKindColon) {
		raiseSyntaxError(p.peekedTok.pos, synErrNoColon)
	}

	alt := p.parseAlternative()
	rhs := []*AlternativeNode{alt}
	for {
		if !p.consume(tokenKindOr) {
			break
		}
		alt := p.parseAlternative()
		rhs = append(rhs, alt)
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(p.peekedTok.pos, synErrNoSemicolon)
	}

	return &ProductionNode{
		LHS: lhs,
		RHS: rhs,
		Pos: lhsPos,
	}
}

func (p *parser) parseAlternative() *AlternativeNode {
	p.peekKind()
	firstTokPos := p.peekedTok.pos

	elems := []*ElementNode{}
	for {
		elem := p.parseElement()
		if elem == nil {
			break
		}
		elems = append(elems, elem)
	}

	var dirs []*DirectiveNode
	for {
		dir := p.parseDirective()
		if dir == nil {
			break
		}
		dirs = append(dirs, dir)
	}

	if k := p.peekKind(); k == tokenKindAction || k == tokenKindOldAction {
		raiseSyntaxError(p.peekedTok.pos, synErrActionAfterDirective)
	}

	return &AlternativeNode{
		Elements:   elems,
		Directives: dirs,
		Pos:        firstTokPos,
	}
}

func (p *parser) parseElement() *ElementNode {
	switch {
	case p.consume(tokenKindID):
		return &ElementNode{
			ID:  p.lastTok.text,
			Pos: p.lastTok.pos,
		}
	case p.consume(tokenKindTerminalPattern):
		return &ElementNode{
			Pattern: p.lastTok.text,
			Pos:     p.lastTok.pos,
		}
	case p.consume(tokenKindStringLiteral):
		return &ElementNode{
			Pattern:   p.lastTok.text,
			Literally: true,
			Pos:       p.lastTok.pos,
		}
	case p.consume(tokenKindAction), p.consume(tokenKindOldAction):
		return &ElementNode{
			Action: &ActionNode{
				Text: p.lastTok.text,
				Old:  p.lastTok.kind == tokenKindOldAction,
				Pos:  p.lastTok.pos,
			},
			Pos: p.lastTok.pos,
		}
	}
	return nil
}

func (p *parser) parseDirective() *DirectiveNode {
	if !p.consume(tokenKindDirectiveMarker) {
		return nil
	}
	dirPos := p.lastTok.pos

	if !p.consume(tokenKindID) {
		raiseSyntaxError(p.peekedTok.pos, synErrNoDirectiveName)
	}
	name := p.lastTok.text

	var params []*ParameterNode
	for {
		param := p.parseParameter()
		if param == nil {
			break
		}
		params = append(params, param)
	}

	return &DirectiveNode{
		Name:       name,
		Parameters: params,
		Pos:        dirPos,
	}
}

func (p *parser) parseParameter() *ParameterNode {
	var param *ParameterNode
	switch {
	case p.consume(tokenKindID):
		param = &ParameterNode{
			ID:  p.lastTok.text,
			Pos: p.lastTok.pos,
		}
	case p.consume(tokenKindTerminalPattern):
		param = &ParameterNode{
			Pattern: p.lastTok.text,
			Pos:     p.lastTok.pos,
		}
	case p.consume(tokenKindStringLiteral):
		param = &ParameterNode{
			String: p.lastTok.text,
			Pos:    p.lastTok.pos,
		}
	case p.consume(tokenKindLParen):
		pos := p.lastTok.pos
		var g []*DirectiveNode
		for {
			dir := p.parseDirective()
			if dir == nil {
				break
			}
			g = append(g, dir)
		}
		if !p.consume(tokenKindRParen) {
			raiseSyntaxError(p.peekedTok.pos, synErrUnclosedDirGroup)
		}
		param = &ParameterNode{
			Group: g,
			Pos:   pos,
		}
	}

	return param
}

// skipOverTo drops tokens up to and including the next token of the kind. Lexical errors found on the way
// are dropped too because they belong to a production already reported.
func (p *parser) skipOverTo(kind tokenKind) {
	for {
		tok := p.peekedTok
		p.peekedTok = nil
		if tok == nil {
			var err error
			tok, err = p.lex.next()
			if err != nil {
				continue
			}
		}
		if tok.kind == kind || tok.kind == tokenKindEOF {
			return
		}
	}
}

func (p *parser) peekKind() tokenKind {
	if p.peekedTok == nil {
		p.peekedTok = p.nextToken()
	}
	return p.peekedTok.kind
}

func (p *parser) nextToken() *token {
	tok, err := p.lex.next()
	if err != nil {
		panic(err)
	}
	return tok
}

func (p *parser) consume(expected tokenKind) bool {
	var tok *token
	if p.peekedTok != nil {
		tok = p.peekedTok
		p.peekedTok = nil
	} else {
		tok = p.nextToken()
	}
	p.lastTok = tok
	if tok.kind == tokenKindInvalid {
		p.peekedTok = nil
		raiseSyntaxErrorWithDetail(tok.pos, synErrInvalidToken, tok.text)
	}
	if tok.kind == expected {
		return true
	}
	p.peekedTok = tok
	p.lastTok = nil

	return false
}
