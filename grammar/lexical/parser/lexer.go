package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind string

const (
	tokenKindChar            tokenKind = "char"
	tokenKindAnyChar         tokenKind = "."
	tokenKindRepeat          tokenKind = "*"
	tokenKindRepeatOneOrMore tokenKind = "+"
	tokenKindOption          tokenKind = "?"
	tokenKindAlt             tokenKind = "|"
	tokenKindGroupOpen       tokenKind = "("
	tokenKindGroupClose      tokenKind = ")"
	tokenKindBExpOpen        tokenKind = "["
	tokenKindInverseBExpOpen tokenKind = "[^"
	tokenKindBExpClose       tokenKind = "]"
	tokenKindCharRange       tokenKind = "-"
	tokenKindFragmentSymbol  tokenKind = "fragment symbol"
	tokenKindEOF             tokenKind = "eof"
)

type token struct {
	kind           tokenKind
	char           rune
	fragmentSymbol string
}

const nullChar = '\u0000'

func newToken(kind tokenKind, char rune) *token {
	return &token{
		kind: kind,
		char: char,
	}
}

func newFragmentSymbolToken(fragmentSymbol string) *token {
	return &token{
		kind:           tokenKindFragmentSymbol,
		fragmentSymbol: fragmentSymbol,
	}
}

type lexerMode string

const (
	lexerModeDefault lexerMode = "default"
	lexerModeBExp    lexerMode = "bracket expression"
)

type lexer struct {
	src  []rune
	pos  int
	mode lexerMode

	errCause  error
	errDetail string
}

func newLexer(src string) *lexer {
	return &lexer{
		src:  []rune(src),
		mode: lexerModeDefault,
	}
}

func (l *lexer) error() (string, error) {
	return l.errDetail, l.errCause
}

func (l *lexer) read() (rune, bool) {
	if l.pos >= len(l.src) {
		return nullChar, true
	}
	c := l.src[l.pos]
	l.pos++
	return c, false
}

func (l *lexer) peek() (rune, bool) {
	if l.pos >= len(l.src) {
		return nullChar, true
	}
	return l.src[l.pos], false
}

func (l *lexer) next() (*token, error) {
	c, eof := l.read()
	if eof {
		return newToken(tokenKindEOF, nullChar), nil
	}

	if l.mode == lexerModeBExp {
		switch c {
		case ']':
			l.mode = lexerModeDefault
			return newToken(tokenKindBExpClose, nullChar), nil
		case '-':
			return newToken(tokenKindCharRange, nullChar), nil
		case '\\':
			return l.nextEscaped(true)
		}
		return newToken(tokenKindChar, c), nil
	}

	switch c {
	case '*':
		return newToken(tokenKindRepeat, nullChar), nil
	case '+':
		return newToken(tokenKindRepeatOneOrMore, nullChar), nil
	case '?':
		return newToken(tokenKindOption, nullChar), nil
	case '.':
		return newToken(tokenKindAnyChar, nullChar), nil
	case '|':
		return newToken(tokenKindAlt, nullChar), nil
	case '(':
		return newToken(tokenKindGroupOpen, nullChar), nil
	case ')':
		return newToken(tokenKindGroupClose, nullChar), nil
	case '[':
		l.mode = lexerModeBExp
		if c1, eof := l.peek(); !eof && c1 == '^' {
			l.pos++
			return newToken(tokenKindInverseBExpOpen, nullChar), nil
		}
		return newToken(tokenKindBExpOpen, nullChar), nil
	case '\\':
		return l.nextEscaped(false)
	}
	return newToken(tokenKindChar, c), nil
}

func (l *lexer) nextEscaped(inBExp bool) (*token, error) {
	c, eof := l.read()
	if eof {
		l.errCause = synErrIncompletedEscSeq
		return nil, ParseErr
	}
	switch c {
	case 'n':
		return newToken(tokenKindChar, '\n'), nil
	case 't':
		return newToken(tokenKindChar, '\t'), nil
	case 'r':
		return newToken(tokenKindChar, '\r'), nil
	case 'u':
		cp, err := l.readBraced()
		if err != nil {
			l.errCause = synErrCPExpInvalidForm
			return nil, ParseErr
		}
		if len(cp) != 4 && len(cp) != 6 {
			l.errCause = synErrInvalidCodePoint
			l.errDetail = cp
			return nil, ParseErr
		}
		n, err := strconv.ParseUint(cp, 16, 32)
		if err != nil {
			l.errCause = synErrInvalidCodePoint
			l.errDetail = cp
			return nil, ParseErr
		}
		if n > utf8.MaxRune {
			l.errCause = synErrCPExpOutOfRange
			l.errDetail = cp
			return nil, ParseErr
		}
		return newToken(tokenKindChar, rune(n)), nil
	case 'f':
		if inBExp {
			l.errCause = synErrInvalidEscSeq
			l.errDetail = `\f`
			return nil, ParseErr
		}
		name, err := l.readBraced()
		if err != nil {
			l.errCause = synErrFragmentExpInvalidForm
			return nil, ParseErr
		}
		if !isFragmentSymbol(name) {
			l.errCause = SynErrFragmentInvalidSymbol
			l.errDetail = name
			return nil, ParseErr
		}
		return newFragmentSymbolToken(name), nil
	}
	if strings.ContainsRune(`\.*+?|()[]-^{}"'`, c) {
		return newToken(tokenKindChar, c), nil
	}
	l.errCause = synErrInvalidEscSeq
	l.errDetail = `\` + string(c)
	return nil, ParseErr
}

func (l *lexer) readBraced() (string, error) {
	if c, eof := l.read(); eof || c != '{' {
		return "", ParseErr
	}
	var b strings.Builder
	for {
		c, eof := l.read()
		if eof {
			return "", ParseErr
		}
		if c == '}' {
			return b.String(), nil
		}
		b.WriteRune(c)
	}
}

func isFragmentSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c == '_' && i > 0:
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
