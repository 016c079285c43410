package spec

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/lexical"
)

type tokenKind string

const (
	tokenKindKWFragment      = tokenKind("fragment")
	tokenKindID              = tokenKind("id")
	tokenKindTerminalPattern = tokenKind("terminal pattern")
	tokenKindStringLiteral   = tokenKind("string")
	tokenKindAction          = tokenKind("action")
	tokenKindOldAction       = tokenKind("old action")
	tokenKindColon           = tokenKind(":")
	tokenKindOr              = tokenKind("|")
	tokenKindSemicolon       = tokenKind(";")
	tokenKindDirectiveMarker = tokenKind("#")
	tokenKindLParen          = tokenKind("(")
	tokenKindRParen          = tokenKind(")")
	tokenKindEOF             = tokenKind("eof")
	tokenKindInvalid         = tokenKind("invalid")
)

type Position struct {
	Row int
	Col int
}

func newPosition(row, col int) Position {
	return Position{
		Row: row,
		Col: col,
	}
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newIDToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindID,
		text: text,
		pos:  pos,
	}
}

func newTerminalPatternToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindTerminalPattern,
		text: text,
		pos:  pos,
	}
}

func newStringLiteralToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindStringLiteral,
		text: text,
		pos:  pos,
	}
}

func newActionToken(kind tokenKind, text string, pos Position) *token {
	return &token{
		kind: kind,
		text: text,
		pos:  pos,
	}
}

func newEOFToken(pos Position) *token {
	return &token{
		kind: tokenKindEOF,
		pos:  pos,
	}
}

func newInvalidToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindInvalid,
		text: text,
		pos:  pos,
	}
}

// The lexical specification of the grammar language itself. Bodies of patterns, strings, and actions are
// scanned by hand because they have their own escaping and nesting rules.
var grammarLexSpec = &lexical.LexSpec{
	Name: "grammar",
	Entries: []*lexical.LexEntry{
		{Kind: "white_space", Pattern: `[\u{0009}\u{000A}\u{000D}\u{0020}]+`, Skip: true},
		{Kind: "line_comment", Pattern: `//[^\u{000A}]*`, Skip: true},
		{Kind: "kw_fragment", Pattern: "fragment", Literal: true},
		{Kind: "identifier", Pattern: `[0-9A-Za-z_]+`},
		{Kind: "terminal_open", Pattern: `"`, Literal: true},
		{Kind: "string_literal_open", Pattern: `'`, Literal: true},
		{Kind: "old_action_open", Pattern: "{:", Literal: true},
		{Kind: "action_open", Pattern: "{", Literal: true},
		{Kind: "colon", Pattern: ":", Literal: true},
		{Kind: "or", Pattern: "|", Literal: true},
		{Kind: "semicolon", Pattern: ";", Literal: true},
		{Kind: "directive_marker", Pattern: "#", Literal: true},
		{Kind: "l_paren", Pattern: "(", Literal: true},
		{Kind: "r_paren", Pattern: ")", Literal: true},
	},
}

var (
	grammarLexerOnce sync.Once
	grammarLexer     *lexical.Lexer
	grammarLexerErr  error
)

func loadGrammarLexer() (*lexical.Lexer, error) {
	grammarLexerOnce.Do(func() {
		lex, err, cerrs := lexical.Compile(grammarLexSpec)
		if err != nil {
			if len(cerrs) > 0 {
				err = fmt.Errorf("%w: %v", err, cerrs[0])
			}
			grammarLexerErr = err
			return
		}
		grammarLexer = lex
	})
	return grammarLexer, grammarLexerErr
}

type lexer struct {
	lex *lexical.Lexer
	src string
	pos int

	// row and col are 1-origin.
	row int
	col int
}

func newLexer(src io.Reader) (*lexer, error) {
	lex, err := loadGrammarLexer()
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("a grammar source must be encoded in UTF-8")
	}
	return &lexer{
		lex: lex,
		src: string(b),
		row: 1,
		col: 1,
	}, nil
}

func (l *lexer) next() (*token, error) {
	for {
		if l.pos >= len(l.src) {
			return newEOFToken(l.position()), nil
		}

		pos := l.position()
		kind, n := l.lex.Match(l.src, l.pos, len(l.src)-l.pos)
		if kind == lexical.LexKindIDNil || n <= 0 {
			return newInvalidToken(l.skipInvalid(), pos), nil
		}
		if l.lex.IsSkipped(kind) {
			l.advance(n)
			continue
		}

		text := l.src[l.pos : l.pos+n]
		l.advance(n)
		switch l.lex.KindNames()[kind] {
		case "kw_fragment":
			return newSymbolToken(tokenKindKWFragment, pos), nil
		case "identifier":
			if err := validateIdentifier(text); err != nil {
				return nil, &verr.SpecError{
					Cause:  err,
					Detail: text,
					Row:    pos.Row,
					Col:    pos.Col,
				}
			}
			return newIDToken(text, pos), nil
		case "terminal_open":
			pat, err := l.scanQuoted('"', synErrUnclosedTerminal, synErrEmptyPattern)
			if err != nil {
				return nil, err
			}
			return newTerminalPatternToken(pat, pos), nil
		case "string_literal_open":
			str, err := l.scanQuoted('\'', synErrUnclosedString, synErrEmptyString)
			if err != nil {
				return nil, err
			}
			return newStringLiteralToken(str, pos), nil
		case "old_action_open":
			act, err := l.scanOldAction(pos)
			if err != nil {
				return nil, err
			}
			return newActionToken(tokenKindOldAction, act, pos), nil
		case "action_open":
			act, err := l.scanAction(pos)
			if err != nil {
				return nil, err
			}
			return newActionToken(tokenKindAction, act, pos), nil
		case "colon":
			return newSymbolToken(tokenKindColon, pos), nil
		case "or":
			return newSymbolToken(tokenKindOr, pos), nil
		case "semicolon":
			return newSymbolToken(tokenKindSemicolon, pos), nil
		case "directive_marker":
			return newSymbolToken(tokenKindDirectiveMarker, pos), nil
		case "l_paren":
			return newSymbolToken(tokenKindLParen, pos), nil
		case "r_paren":
			return newSymbolToken(tokenKindRParen, pos), nil
		default:
			return newInvalidToken(text, pos), nil
		}
	}
}

// scanQuoted reads the body of a pattern or a string up to the closing quote. The escape of the quote is
// removed, and in a string the escape of the backslash is removed too. Other escape sequences are left for
// the pattern parser.
func (l *lexer) scanQuoted(quote rune, unclosed, empty *SyntaxError) (string, error) {
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorHere(unclosed)
		}
		c := l.read()
		switch c {
		case quote:
			if b.Len() == 0 {
				return "", l.errorHere(empty)
			}
			return b.String(), nil
		case '\\':
			if l.pos >= len(l.src) {
				return "", l.errorHere(synErrIncompletedEscSeq)
			}
			e := l.read()
			switch {
			case e == quote:
				b.WriteRune(quote)
			case e == '\\' && quote == '\'':
				b.WriteRune('\\')
			default:
				b.WriteRune('\\')
				b.WriteRune(e)
			}
		default:
			b.WriteRune(c)
		}
	}
}

// scanAction reads an action up to the brace closing it. Braces inside the action must be balanced.
func (l *lexer) scanAction(start Position) (string, error) {
	begin := l.pos
	depth := 1
	for l.pos < len(l.src) {
		switch l.read() {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(l.src[begin : l.pos-1]), nil
			}
		}
	}
	return "", &verr.SpecError{
		Cause: synErrUnclosedAction,
		Row:   start.Row,
		Col:   start.Col,
	}
}

func (l *lexer) scanOldAction(start Position) (string, error) {
	i := strings.Index(l.src[l.pos:], ":}")
	if i < 0 {
		return "", &verr.SpecError{
			Cause: synErrUnclosedAction,
			Row:   start.Row,
			Col:   start.Col,
		}
	}
	text := l.src[l.pos : l.pos+i]
	l.advance(i + 2)
	return strings.TrimSpace(text), nil
}

// skipInvalid consumes characters until a token can start again.
func (l *lexer) skipInvalid() string {
	begin := l.pos
	for l.pos < len(l.src) {
		l.read()
		if l.pos >= len(l.src) {
			break
		}
		if k, n := l.lex.Match(l.src, l.pos, len(l.src)-l.pos); k != lexical.LexKindIDNil && n > 0 {
			break
		}
	}
	return l.src[begin:l.pos]
}

func (l *lexer) read() rune {
	c, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.advance(w)
	return c
}

func (l *lexer) advance(n int) {
	for _, c := range l.src[l.pos : l.pos+n] {
		if c == '\n' {
			l.row++
			l.col = 1
			continue
		}
		l.col++
	}
	l.pos += n
}

func (l *lexer) position() Position {
	return newPosition(l.row, l.col)
}

func (l *lexer) errorHere(cause error) error {
	return &verr.SpecError{
		Cause: cause,
		Row:   l.row,
		Col:   l.col,
	}
}

func validateIdentifier(id string) error {
	if id == "" {
		return synErrIDInvalidChar
	}
	if id[0] >= '0' && id[0] <= '9' {
		return synErrIDInvalidDigitsPos
	}
	for _, c := range id {
		if c >= 'A' && c <= 'Z' {
			return synErrIDInvalidChar
		}
	}
	if strings.HasPrefix(id, "_") || strings.HasSuffix(id, "_") {
		return synErrIDInvalidUnderscorePos
	}
	if strings.Contains(id, "__") {
		return synErrIDConsecutiveUnderscores
	}
	return nil
}
