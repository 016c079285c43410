package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/nihei9/gramc/grammar/lexical"
	"github.com/nihei9/gramc/grammar/symbol"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

type TokenStream interface {
	Next() (VToken, error)
}

type VToken interface {
	// TerminalID returns symbol.IDNil for an invalid token.
	TerminalID() int
	Lexeme() string
	EOF() bool
	Invalid() bool

	// Position returns the 0-origin row and column of the token.
	Position() (int, int)
}

type vToken struct {
	terminalID int
	tok        *lexical.Token
}

func (t *vToken) TerminalID() int {
	return t.terminalID
}

func (t *vToken) Lexeme() string {
	return t.tok.Lexeme
}

func (t *vToken) EOF() bool {
	return t.tok.EOF
}

func (t *vToken) Invalid() bool {
	return t.tok.Invalid
}

func (t *vToken) Position() (int, int) {
	return t.tok.Row, t.tok.Col
}

type tokenStream struct {
	tokenizer      *lexical.Tokenizer
	kindToTerminal []int
	eof            int
}

// NewLexer compiles the lexical entries of a compiled grammar.
func NewLexer(g *gspec.CompiledGrammar) (*lexical.Lexer, error) {
	if g == nil || g.Lexical == nil {
		return nil, fmt.Errorf("the compiled grammar has no lexical specification")
	}
	entries := make([]*lexical.LexEntry, len(g.Lexical.Entries))
	for i, e := range g.Lexical.Entries {
		entries[i] = &lexical.LexEntry{
			Kind:     lexical.LexKindName(e.Kind),
			Pattern:  e.Pattern,
			Literal:  e.Literal,
			Fragment: e.Fragment,
			Skip:     e.Skip,
		}
	}
	lex, err, cerrs := lexical.Compile(&lexical.LexSpec{
		Name:    g.Name,
		Entries: entries,
	})
	if err != nil {
		if len(cerrs) > 0 {
			var b strings.Builder
			fmt.Fprintf(&b, "%v", err)
			for _, cerr := range cerrs {
				fmt.Fprintf(&b, "\n%v", cerr)
			}
			return nil, fmt.Errorf("%v", b.String())
		}
		return nil, err
	}
	return lex, nil
}

func NewTokenStream(g *gspec.CompiledGrammar, src io.Reader) (TokenStream, error) {
	lex, err := NewLexer(g)
	if err != nil {
		return nil, err
	}
	if len(g.Lexical.KindToTerminal) != len(lex.KindNames()) {
		return nil, fmt.Errorf("the grammar maps %v kinds to terminals; want: %v", len(g.Lexical.KindToTerminal), len(lex.KindNames()))
	}
	tokenizer, err := lexical.NewTokenizer(lex, src)
	if err != nil {
		return nil, err
	}
	return &tokenStream{
		tokenizer:      tokenizer,
		kindToTerminal: g.Lexical.KindToTerminal,
		eof:            g.Syntactic.EOFSymbol,
	}, nil
}

func (s *tokenStream) Next() (VToken, error) {
	tok, err := s.tokenizer.Next()
	if err != nil {
		return nil, err
	}
	term := symbol.IDNil.Int()
	switch {
	case tok.EOF:
		term = s.eof
	case !tok.Invalid:
		term = s.kindToTerminal[tok.KindID]
	}
	return &vToken{
		terminalID: term,
		tok:        tok,
	}, nil
}
