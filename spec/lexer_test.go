package spec

import (
	"strings"
	"testing"

	verr "github.com/nihei9/gramc/error"
)

func TestLexer_Run(t *testing.T) {
	idTok := func(text string) *token {
		return newIDToken(text, Position{})
	}

	termPatTok := func(text string) *token {
		return newTerminalPatternToken(text, Position{})
	}

	strTok := func(text string) *token {
		return newStringLiteralToken(text, Position{})
	}

	symTok := func(kind tokenKind) *token {
		return newSymbolToken(kind, Position{})
	}

	actTok := func(text string) *token {
		return newActionToken(tokenKindAction, text, Position{})
	}

	oldActTok := func(text string) *token {
		return newActionToken(tokenKindOldAction, text, Position{})
	}

	eofTok := func() *token {
		return newEOFToken(Position{})
	}

	tests := []struct {
		caption string
		src     string
		tokens  []*token
		err     error
	}{
		{
			caption: "the lexer can recognize all kinds of tokens",
			src:     `id"terminal"'.*+?|()[\\':|;#(){ act }{: old :}`,
			tokens: []*token{
				idTok("id"),
				termPatTok("terminal"),
				strTok(`.*+?|()[\`),
				symTok(tokenKindColon),
				symTok(tokenKindOr),
				symTok(tokenKindSemicolon),
				symTok(tokenKindDirectiveMarker),
				symTok(tokenKindLParen),
				symTok(tokenKindRParen),
				actTok("act"),
				oldActTok("old"),
				eofTok(),
			},
		},
		{
			caption: "the lexer can recognize keywords",
			src:     `fragment fragments`,
			tokens: []*token{
				symTok(tokenKindKWFragment),
				idTok("fragments"),
				eofTok(),
			},
		},
		{
			caption: "the lexer can recognize character sequences and escape sequences in terminal",
			src:     `"abc\"\\"`,
			tokens: []*token{
				termPatTok(`abc"\\`),
				eofTok(),
			},
		},
		{
			caption: "an action can contain balanced braces",
			src:     `{ if (x) { y } }`,
			tokens: []*token{
				actTok("if (x) { y }"),
				eofTok(),
			},
		},
		{
			caption: "a pattern must include at least one character",
			src:     `""`,
			err:     synErrEmptyPattern,
		},
		{
			caption: "a string must include at least one character",
			src:     `''`,
			err:     synErrEmptyString,
		},
		{
			caption: "the lexer ignores line comments",
			src: `
// This is the first comment.
foo
// This is the second comment.
// This is the third comment.
bar // This is the fourth comment.
`,
			tokens: []*token{
				idTok("foo"),
				idTok("bar"),
				eofTok(),
			},
		},
		{
			caption: "identifiers beginning with an underscore are not allowed",
			src:     `_abc`,
			err:     synErrIDInvalidUnderscorePos,
		},
		{
			caption: "identifiers containing consecutive underscores are not allowed",
			src:     `a__b`,
			err:     synErrIDConsecutiveUnderscores,
		},
		{
			caption: "identifiers beginning with a digit are not allowed",
			src:     `1a`,
			err:     synErrIDInvalidDigitsPos,
		},
		{
			caption: "identifiers containing an upper-case letter are not allowed",
			src:     `aBc`,
			err:     synErrIDInvalidChar,
		},
		{
			caption: "an unclosed terminal is not a valid token",
			src:     `"abc`,
			err:     synErrUnclosedTerminal,
		},
		{
			caption: "an incompleted terminal is not a valid token",
			src:     `"\`,
			err:     synErrIncompletedEscSeq,
		},
		{
			caption: "an unclosed action is not a valid token",
			src:     `{ a { b }`,
			err:     synErrUnclosedAction,
		},
		{
			caption: "an unclosed old-style action is not a valid token",
			src:     `{: a }`,
			err:     synErrUnclosedAction,
		},
		{
			caption: "the lexer can recognize valid tokens following an invalid token",
			src:     `abc!!!def`,
			tokens: []*token{
				idTok("abc"),
				newInvalidToken("!!!", Position{}),
				idTok("def"),
				eofTok(),
			},
		},
		{
			caption: "the lexer skips white spaces",
			// \u0009: HT
			// \u0020: SP
			src: "a\u0009b\u0020c\nd",
			tokens: []*token{
				idTok("a"),
				idTok("b"),
				idTok("c"),
				idTok("d"),
				eofTok(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			l, err := newLexer(strings.NewReader(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			n := 0
			for {
				var tok *token
				tok, err = l.next()
				if err != nil {
					break
				}
				testToken(t, tok, tt.tokens[n])
				n++
				if tok.kind == tokenKindEOF {
					break
				}
			}
			if tt.err != nil {
				synErr, ok := err.(*verr.SpecError)
				if !ok {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.err, err)
				}
				if tt.err != synErr.Cause {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.err, synErr.Cause)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.err, err)
				}
			}
		})
	}
}

func TestLexer_Position(t *testing.T) {
	l, err := newLexer(strings.NewReader("a\n  bb: 'x'"))
	if err != nil {
		t.Fatal(err)
	}
	want := []Position{
		newPosition(1, 1),
		newPosition(2, 3),
		newPosition(2, 5),
		newPosition(2, 7),
		newPosition(2, 10),
	}
	for _, pos := range want {
		tok, err := l.next()
		if err != nil {
			t.Fatal(err)
		}
		if tok.pos != pos {
			t.Fatalf("unexpected position of %+v; want: %+v", tok, pos)
		}
	}
}

func testToken(t *testing.T, tok, expected *token) {
	t.Helper()
	if tok.kind != expected.kind || tok.text != expected.text {
		t.Fatalf("unexpected token; want: %+v, got: %+v", expected, tok)
	}
}
