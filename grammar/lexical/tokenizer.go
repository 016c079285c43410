package lexical

import (
	"fmt"
	"io"
	"unicode/utf8"
)

type Token struct {
	KindID   LexKindID
	KindName LexKindName
	Lexeme   string

	// BytePos is the offset of the token in the source. Row and Col are 0-origin, and Col counts characters.
	BytePos int
	Row     int
	Col     int

	EOF bool

	// Invalid is true when no entry matches the text at the position. The lexeme of an invalid token is the
	// longest run of characters where no token starts.
	Invalid bool
}

func (t *Token) String() string {
	if t.EOF {
		return "<eof>"
	}
	if t.Invalid {
		return fmt.Sprintf("<invalid> %q", t.Lexeme)
	}
	return fmt.Sprintf("%v %q", t.KindName, t.Lexeme)
}

// Tokenizer splits a source into tokens using the longest match rule.
type Tokenizer struct {
	lex *Lexer
	src string
	pos int
	row int
	col int
}

func NewTokenizer(lex *Lexer, src io.Reader) (*Tokenizer, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("the source is not valid UTF-8")
	}
	return &Tokenizer{
		lex: lex,
		src: string(b),
	}, nil
}

// Next returns the next token. Tokens of skipped kinds are dropped. After the end of the source, Next keeps
// returning an EOF token.
func (t *Tokenizer) Next() (*Token, error) {
	for {
		tok := t.next()
		if tok.EOF || tok.Invalid || !t.lex.IsSkipped(tok.KindID) {
			return tok, nil
		}
	}
}

func (t *Tokenizer) next() *Token {
	if t.pos >= len(t.src) {
		return &Token{
			BytePos: t.pos,
			Row:     t.row,
			Col:     t.col,
			EOF:     true,
		}
	}

	kind, n := t.lex.Match(t.src, t.pos, len(t.src)-t.pos)
	if kind != LexKindIDNil && n > 0 {
		tok := &Token{
			KindID:   kind,
			KindName: t.lex.kindNames[kind],
			Lexeme:   t.src[t.pos : t.pos+n],
			BytePos:  t.pos,
			Row:      t.row,
			Col:      t.col,
		}
		t.advance(n)
		return tok
	}

	// Gather characters until a token can start again.
	start := t.pos
	row, col := t.row, t.col
	for t.pos < len(t.src) {
		_, w := utf8.DecodeRuneInString(t.src[t.pos:])
		t.advance(w)
		if t.pos >= len(t.src) {
			break
		}
		if k, n := t.lex.Match(t.src, t.pos, len(t.src)-t.pos); k != LexKindIDNil && n > 0 {
			break
		}
	}
	return &Token{
		Lexeme:  t.src[start:t.pos],
		BytePos: start,
		Row:     row,
		Col:     col,
		Invalid: true,
	}
}

func (t *Tokenizer) advance(n int) {
	for _, c := range t.src[t.pos : t.pos+n] {
		if c == '\n' {
			t.row++
			t.col = 0
			continue
		}
		t.col++
	}
	t.pos += n
}
