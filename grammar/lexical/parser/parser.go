package parser

import (
	"github.com/nihei9/gramc/grammar/lexical/nfa"
)

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token

	errCause  error
	errDetail string
}

func NewParser(src string) *parser {
	return &parser{
		lex: newLexer(src),
	}
}

// Error returns the detail and the cause of the last error when Parse returns ParseErr.
func (p *parser) Error() (string, error) {
	return p.errDetail, p.errCause
}

func (p *parser) Parse() (root Tree, retErr error) {
	defer func() {
		err := recover()
		if err != nil {
			var ok bool
			retErr, ok = err.(error)
			if !ok {
				panic(err)
			}
			return
		}
	}()

	return p.parseRegexp(), nil
}

// Parse parses a pattern. It is a shorthand that reports the cause of an error instead of ParseErr.
func Parse(src string) (Tree, string, error) {
	p := NewParser(src)
	t, err := p.Parse()
	if err != nil {
		if err == ParseErr {
			detail, cause := p.Error()
			return nil, detail, cause
		}
		return nil, "", err
	}
	return t, "", nil
}

func (p *parser) parseRegexp() Tree {
	alt := p.parseAlt()
	if alt == nil {
		if p.consume(tokenKindGroupClose) {
			p.raiseParseError(synErrGroupNoInitiator, "")
		}
		p.raiseParseError(synErrNullPattern, "")
	}
	if p.consume(tokenKindGroupClose) {
		p.raiseParseError(synErrGroupNoInitiator, "")
	}
	p.expect(tokenKindEOF)
	return alt
}

func (p *parser) parseAlt() Tree {
	left := p.parseConcat()
	if left == nil {
		if p.consume(tokenKindAlt) {
			p.raiseParseError(synErrAltLackOfOperand, "")
		}
		return nil
	}
	for {
		if !p.consume(tokenKindAlt) {
			break
		}
		right := p.parseConcat()
		if right == nil {
			p.raiseParseError(synErrAltLackOfOperand, "")
		}
		left = &AltNode{
			Left:  left,
			Right: right,
		}
	}
	return left
}

func (p *parser) parseConcat() Tree {
	left := p.parseRepeat()
	for {
		right := p.parseRepeat()
		if right == nil {
			break
		}
		left = &ConcatNode{
			Left:  left,
			Right: right,
		}
	}
	return left
}

func (p *parser) parseRepeat() Tree {
	group := p.parseGroup()
	if group == nil {
		if p.consume(tokenKindRepeat) {
			p.raiseParseError(synErrRepNoTarget, "* needs an operand")
		}
		if p.consume(tokenKindRepeatOneOrMore) {
			p.raiseParseError(synErrRepNoTarget, "+ needs an operand")
		}
		if p.consume(tokenKindOption) {
			p.raiseParseError(synErrRepNoTarget, "? needs an operand")
		}
		return nil
	}
	for {
		var op RepeatOp
		switch {
		case p.consume(tokenKindRepeat):
			op = RepeatZeroOrMore
		case p.consume(tokenKindRepeatOneOrMore):
			op = RepeatOneOrMore
		case p.consume(tokenKindOption):
			op = RepeatOption
		default:
			return group
		}
		group = &RepeatNode{
			Op:   op,
			Elem: group,
		}
	}
}

func (p *parser) parseGroup() Tree {
	if p.consume(tokenKindGroupOpen) {
		alt := p.parseAlt()
		if alt == nil {
			if p.consume(tokenKindEOF) {
				p.raiseParseError(synErrGroupUnclosed, "")
			}
			p.raiseParseError(synErrGroupNoElem, "")
		}
		if p.consume(tokenKindEOF) {
			p.raiseParseError(synErrGroupUnclosed, "")
		}
		if !p.consume(tokenKindGroupClose) {
			p.raiseParseError(synErrGroupInvalidForm, "")
		}
		return alt
	}
	return p.parseSingleChar()
}

func (p *parser) parseSingleChar() Tree {
	if p.consume(tokenKindAnyChar) {
		return &AnyCharNode{}
	}
	if p.consume(tokenKindFragmentSymbol) {
		return &FragmentNode{
			Name: p.lastTok.fragmentSymbol,
		}
	}
	negate := false
	switch {
	case p.consume(tokenKindBExpOpen):
	case p.consume(tokenKindInverseBExpOpen):
		negate = true
	default:
		if p.consume(tokenKindChar) {
			return &CharNode{
				Char: p.lastTok.char,
			}
		}
		return nil
	}

	var ranges []nfa.Range
	for {
		rs := p.parseBExpElem()
		if len(rs) == 0 {
			break
		}
		ranges = append(ranges, rs...)
	}
	if p.consume(tokenKindEOF) {
		p.raiseParseError(synErrBExpUnclosed, "")
	}
	if len(ranges) == 0 {
		p.raiseParseError(synErrBExpNoElem, "")
	}
	p.expect(tokenKindBExpClose)
	return &ClassNode{
		Ranges: ranges,
		Negate: negate,
	}
}

func (p *parser) parseBExpElem() []nfa.Range {
	if !p.consume(tokenKindChar) {
		if p.consume(tokenKindCharRange) {
			// A leading `-` stands for itself.
			if p.peekKind() == tokenKindBExpClose || p.peekKind() == tokenKindChar {
				return []nfa.Range{{From: '-', To: '-'}}
			}
			p.raiseParseError(synErrRangeInvalidForm, "")
		}
		return nil
	}
	from := p.lastTok.char
	if !p.consume(tokenKindCharRange) {
		return []nfa.Range{{From: from, To: from}}
	}
	if !p.consume(tokenKindChar) {
		// [a-] is `a` or `-`.
		if p.peekKind() == tokenKindBExpClose {
			return []nfa.Range{{From: from, To: from}, {From: '-', To: '-'}}
		}
		p.raiseParseError(synErrRangeInvalidForm, "")
	}
	to := p.lastTok.char
	if from > to {
		p.raiseParseError(synErrRangeInvalidOrder, string(from)+"-"+string(to))
	}
	return []nfa.Range{{From: from, To: to}}
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
		if err == ParseErr {
			detail, cause := p.lex.error()
			p.raiseParseError(cause, detail)
		}
		panic(err)
	}
	return tok
}

func (p *parser) expect(expected tokenKind) {
	if !p.consume(expected) {
		tok := p.peekedTok
		p.raiseParseError(synErrUnexpectedToken, "expected: "+string(expected)+", actual: "+string(tok.kind))
	}
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
	if tok.kind == expected {
		return true
	}
	p.peekedTok = tok
	p.lastTok = nil

	return false
}

func (p *parser) raiseParseError(err error, detail string) {
	p.errCause = err
	p.errDetail = detail
	panic(ParseErr)
}
