package grammar

import (
	"errors"
	"strings"
	"testing"

	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/symbol"
	"github.com/nihei9/gramc/spec"
)

func TestGrammarBuilderSpecError(t *testing.T) {
	type specErrTest struct {
		caption string
		specSrc string
		errs    []*SemanticError
	}

	nameTests := []*specErrTest{
		{
			caption: "a grammar needs #name directive",
			specSrc: `
s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrNoGrammarName},
		},
		{
			caption: "#name directive must not be duplicated",
			specSrc: `
#name test;
#name test2;

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDuplicateDir},
		},
		{
			caption: "#name directive needs an ID parameter",
			specSrc: `
#name 'test';

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDirInvalidParam},
		},
	}

	directiveTests := []*specErrTest{
		{
			caption: "an unknown top-level directive is an error",
			specSrc: `
#name test;
#foo;

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDirInvalidName},
		},
		{
			caption: "an unknown alternative directive is an error",
			specSrc: `
#name test;

s
    : a #foo
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDirInvalidName},
		},
		{
			caption: "#prec directive of an alternative needs a terminal with precedence",
			specSrc: `
#name test;

s
    : a #prec a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrUndefinedPrec},
		},
		{
			caption: "#prec directive of an alternative can't refer to an undefined symbol",
			specSrc: `
#name test;

s
    : a #prec b
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrUndefinedSym},
		},
		{
			caption: "a symbol can't take associativity twice",
			specSrc: `
#name test;
#prec (
    #left a
    #right a
);

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDuplicateAssoc},
		},
		{
			caption: "associativity can't refer to an undefined symbol",
			specSrc: `
#name test;
#prec (
    #left b
);

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrUndefinedSym},
		},
		{
			caption: "associativity can take only terminals",
			specSrc: `
#name test;
#prec (
    #left s
);

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDirInvalidParam},
		},
		{
			caption: "#node directive can take only non-terminals",
			specSrc: `
#name test;
#node a;

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDirInvalidParam},
		},
		{
			caption: "#node directive can't refer to an undefined symbol",
			specSrc: `
#name test;
#node b;

s
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrUndefinedSym},
		},
		{
			caption: "#skip directive takes no parameter",
			specSrc: `
#name test;

s
    : a
    ;

a: 'a';
ws: ' ' #skip a;
`,
			errs: []*SemanticError{semErrDirInvalidParam},
		},
		{
			caption: "non-terminals can't take different initializers",
			specSrc: `
#name test;

s
    : a #init '1'
    | b #init '2'
    ;

a: 'a';
b: 'b';
`,
			errs: []*SemanticError{semErrDuplicateDir},
		},
	}

	symbolTests := []*specErrTest{
		{
			caption: "a production can't refer to an undefined symbol",
			specSrc: `
#name test;

s
    : a b
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrUndefinedSym},
		},
		{
			caption: "a production must not be duplicated",
			specSrc: `
#name test;

s
    : a
    | a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDuplicateProduction},
		},
		{
			caption: "productions with the same symbols are duplicates even when their actions differ",
			specSrc: `
#name test;

s
    : a { x }
    | a { y }
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrDuplicateProduction},
		},
		{
			caption: "a terminal must not be duplicated",
			specSrc: `
#name test;

s
    : a
    ;

a: 'a';
a: 'b';
`,
			errs: []*SemanticError{semErrDuplicateTerminal},
		},
		{
			caption: "a terminal and a non-terminal can't share a name",
			specSrc: `
#name test;

s
    : a
    ;
a
    : b
    ;

a: 'a';
b: 'b';
`,
			errs: []*SemanticError{semErrDuplicateName},
		},
		{
			caption: "a fragment must not be duplicated",
			specSrc: `
#name test;

s
    : a
    ;

a: "\f{f}";
fragment f: "a";
fragment f: "b";
`,
			errs: []*SemanticError{semErrDuplicateFragment},
		},
		{
			caption: "a production can't refer to a fragment",
			specSrc: `
#name test;

s
    : f
    ;

fragment f: "a";
`,
			errs: []*SemanticError{semErrMalformedRHS},
		},
		{
			caption: "a non-terminal unreachable from the start symbol is an error",
			specSrc: `
#name test;

s
    : a
    ;
t
    : a
    ;

a: 'a';
`,
			errs: []*SemanticError{semErrUnusedProduction},
		},
		{
			caption: "a terminal unused in productions is an error",
			specSrc: `
#name test;

s
    : a
    ;

a: 'a';
b: 'b';
`,
			errs: []*SemanticError{semErrUnusedTerminal},
		},
		{
			caption: "a skipped terminal can't be used in productions",
			specSrc: `
#name test;

s
    : a ws
    ;

a: 'a';
ws: ' ' #skip;
`,
			errs: []*SemanticError{semErrTermCannotBeSkipped},
		},
		{
			caption: "identifiers that differ only in their spellings are errors",
			specSrc: `
#name test;

s
    : a1 a_1
    ;

a1: 'a';
a_1: 'b';
`,
			errs: []*SemanticError{semErrSpellingInconsistency},
		},
	}

	var tests []*specErrTest
	tests = append(tests, nameTests...)
	tests = append(tests, directiveTests...)
	tests = append(tests, symbolTests...)
	for _, test := range tests {
		t.Run(test.caption, func(t *testing.T) {
			ast, err := spec.Parse(strings.NewReader(test.specSrc))
			if err != nil {
				t.Fatal(err)
			}

			b := GrammarBuilder{
				AST: ast,
			}
			_, err = b.Build()
			if err == nil {
				t.Fatal("an expected error didn't occur")
			}
			specErrs, ok := err.(verr.SpecErrors)
			if !ok {
				t.Fatalf("unexpected error type: want: %T, got: %T: %v", verr.SpecErrors{}, err, err)
			}
			if len(specErrs) != len(test.errs) {
				t.Fatalf("unexpected error count: want: %+v, got: %+v", test.errs, specErrs)
			}
			for _, expected := range test.errs {
				found := false
				for _, actual := range specErrs {
					if actual.Cause == expected {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("an expected error didn't occur: want: %v, got: %+v", expected, specErrs)
				}
			}
		})
	}
}

func TestGrammarBuilderErrorClass(t *testing.T) {
	tests := []struct {
		caption string
		specSrc string
		class   ErrorClass
	}{
		{
			caption: "an undefined symbol is an unknown symbol error",
			specSrc: `
#name test;

s
    : a b
    ;

a: 'a';
`,
			class: ClassUnknownSymbol,
		},
		{
			caption: "a duplicate production is a grammar definition error",
			specSrc: `
#name test;

s
    : a
    | a
    ;

a: 'a';
`,
			class: ClassGrammarDefinition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			ast, err := spec.Parse(strings.NewReader(tt.specSrc))
			if err != nil {
				t.Fatal(err)
			}
			b := GrammarBuilder{
				AST: ast,
			}
			_, err = b.Build()
			if err == nil {
				t.Fatal("an expected error didn't occur")
			}

			var semErr *SemanticError
			if !errors.As(err.(verr.SpecErrors)[0], &semErr) {
				t.Fatalf("the cause must be a semantic error; got: %v", err)
			}
			if semErr.Class() != tt.class {
				t.Errorf("unexpected error class; want: %v, got: %v", tt.class, semErr.Class())
			}
		})
	}
}

func TestGrammarBuilder_Symbols(t *testing.T) {
	src := `
#name test;

expr
    : expr '+' term {: mid :} ';'
    | term
    ;
term
    : num
    | '+' num
    | "[a-z]+" #init 'nil'
    ;

num: "[0-9]+" #init '0';
ws: "[ \t]+" #skip;
`
	gram := buildGrammar(t, src)
	if gram.Name() != "test" {
		t.Errorf("unexpected name; want: test, got: %v", gram.Name())
	}

	eof, ok := gram.symTab.Lookup(symbol.NameEOF)
	if !ok || eof.ID != symbol.IDEOF || eof.Kind != symbol.KindEOF {
		t.Fatalf("EOF must take its reserved id; got: %+v", eof)
	}

	tests := []struct {
		name    string
		kind    symbol.Kind
		alias   string
		pattern string
		anon    bool
	}{
		{name: "x_1", kind: symbol.KindTerminal, alias: "+", pattern: "+", anon: true},
		{name: "x_2", kind: symbol.KindTerminal, alias: ";", pattern: ";", anon: true},
		{name: "x_3", kind: symbol.KindTerminal, pattern: "[a-z]+", anon: true},
		{name: "num", kind: symbol.KindTerminal, pattern: "[0-9]+"},
		{name: "ws", kind: symbol.KindTerminal, pattern: `[ \t]+`},
		{name: "expr", kind: symbol.KindNonTerminal},
		{name: "term", kind: symbol.KindNonTerminal},
		{name: "expr'", kind: symbol.KindNonTerminal},
		{name: "$@1", kind: symbol.KindOldAction},
	}
	// Ids are handed out in order of registration, skipping the one EOF holds.
	prevID := symbol.IDNil
	for _, tt := range tests {
		sym, ok := gram.symTab.Lookup(tt.name)
		if !ok {
			t.Errorf("symbol not found: %v", tt.name)
			continue
		}
		if sym.ID == symbol.IDEOF {
			t.Errorf("%v must not take the id of EOF", tt.name)
		}
		if sym.ID <= prevID {
			t.Errorf("symbols must be registered in order; %v took %v after %v", tt.name, sym.ID, prevID)
		}
		prevID = sym.ID
		if sym.Kind != tt.kind {
			t.Errorf("unexpected kind of %v; want: %v, got: %v", tt.name, tt.kind, sym.Kind)
		}
		if gram.aliases[sym.ID] != tt.alias {
			t.Errorf("unexpected alias of %v; want: %v, got: %v", tt.name, tt.alias, gram.aliases[sym.ID])
		}
		if gram.patterns[sym.ID] != tt.pattern {
			t.Errorf("unexpected pattern of %v; want: %v, got: %v", tt.name, tt.pattern, gram.patterns[sym.ID])
		}
		if _, anon := gram.anonymous[sym.ID]; anon != tt.anon {
			t.Errorf("unexpected anonymity of %v; want: %v, got: %v", tt.name, tt.anon, anon)
		}
	}

	if x1, _ := gram.symTab.Lookup("x_1"); x1.ID != 0 {
		t.Errorf("the first terminal must take id 0; got: %v", x1.ID)
	}
	if x3, _ := gram.symTab.Lookup("x_3"); x3.ID != symbol.IDEOF+1 {
		t.Errorf("the third terminal must take the id after EOF; got: %v", x3.ID)
	}

	num, _ := gram.symTab.Lookup("num")
	if num.Initializer != "0" {
		t.Errorf("unexpected initializer of num; want: 0, got: %v", num.Initializer)
	}
	term, _ := gram.symTab.Lookup("term")
	if term.Initializer != "nil" {
		t.Errorf("unexpected initializer of term; want: nil, got: %v", term.Initializer)
	}

	genSym := newTestSymbolGenerator(t, gram.symTab)
	genProd := newTestProductionGenerator(t, genSym, gram.prods)

	start := genProd("expr'", "expr")
	if start.num != productionNumStart {
		t.Errorf("the augmented production must take the start number; got: %v", start.num)
	}
	if gram.augmentedStart != genSym("expr'") {
		t.Errorf("unexpected augmented start symbol: %v", gram.augmentedStart)
	}

	act := genProd("$@1")
	if act.action != "mid" || !act.oldAction {
		t.Errorf("a mid-rule action symbol must carry the action; got: %q (old: %v)", act.action, act.oldAction)
	}
	genProd("expr", "expr", "x_1", "term", "$@1", "x_2")

	// '+' in term is the same terminal as '+' in expr.
	genProd("term", "x_1", "num")
}

func TestGrammarBuilder_AnonymousTerminalReusesNamedOne(t *testing.T) {
	src := `
#name test;
#prec (
    #left '+'
);

expr
    : expr '+' expr
    | id
    ;

add: '+';
id: "[a-z]+";
`
	gram := buildGrammar(t, src)
	genSym := newTestSymbolGenerator(t, gram.symTab)

	if _, ok := gram.symTab.Lookup("x_1"); ok {
		t.Fatal("a terminal with the same text as a named one must not be registered")
	}
	add, _ := gram.symTab.Get(genSym("add"))
	if add.Prec == nil || add.Prec.Assoc != symbol.AssocLeft {
		t.Errorf("#prec must refer to the named terminal; got: %v", add.Prec)
	}

	genProd := newTestProductionGenerator(t, genSym, gram.prods)
	genProd("expr", "expr", "add", "expr")
}
