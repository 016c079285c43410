package grammar

import (
	"strings"
	"testing"
)

const precedenceTestSrc = `
#name test;
#prec (
    #nonassoc lt
    #left add sub
    #left mul
    #right pow
);

expr
    : expr lt expr
    | expr add expr
    | expr sub expr
    | expr mul expr
    | expr pow expr
    | sub expr #prec mul
    | l_paren expr r_paren
    | id
    ;

lt: '<';
add: '+';
sub: '-';
mul: '*';
pow: '^';
l_paren: '(';
r_paren: ')';
id: "[a-z]+";
`

func TestResolver_Decide(t *testing.T) {
	tests := []struct {
		caption    string
		lookahead  string
		prod       []string
		decision   Decision
		resolvedBy ResolvedBy
		noDiag     bool
	}{
		{
			caption:    "a terminal with a higher precedence than a production is shifted",
			lookahead:  "mul",
			prod:       []string{"expr", "expr", "add", "expr"},
			decision:   DecisionShift,
			resolvedBy: ResolvedByPrec,
		},
		{
			caption:    "a production with a higher precedence than a terminal is reduced",
			lookahead:  "add",
			prod:       []string{"expr", "expr", "mul", "expr"},
			decision:   DecisionReduce,
			resolvedBy: ResolvedByPrec,
		},
		{
			caption:    "a left-associative terminal at the same level is reduced",
			lookahead:  "sub",
			prod:       []string{"expr", "expr", "add", "expr"},
			decision:   DecisionReduce,
			resolvedBy: ResolvedByAssoc,
		},
		{
			caption:    "a right-associative terminal at the same level is shifted",
			lookahead:  "pow",
			prod:       []string{"expr", "expr", "pow", "expr"},
			decision:   DecisionShift,
			resolvedBy: ResolvedByAssoc,
		},
		{
			caption:    "a non-associative terminal makes an error entry",
			lookahead:  "lt",
			prod:       []string{"expr", "expr", "lt", "expr"},
			decision:   DecisionNonassoc,
			resolvedBy: ResolvedByAssoc,
		},
		{
			caption:    "a non-associative terminal makes an error entry regardless of the level of a production",
			lookahead:  "lt",
			prod:       []string{"expr", "expr", "mul", "expr"},
			decision:   DecisionNonassoc,
			resolvedBy: ResolvedByAssoc,
		},
		{
			caption:    "#prec directive overrides the precedence of a production",
			lookahead:  "add",
			prod:       []string{"expr", "sub", "expr"},
			decision:   DecisionReduce,
			resolvedBy: ResolvedByPrec,
		},
		{
			caption:    "a terminal without precedence is shifted",
			lookahead:  "r_paren",
			prod:       []string{"expr", "expr", "add", "expr"},
			decision:   DecisionShift,
			resolvedBy: ResolvedByShift,
		},
		{
			caption:    "a production without precedence lets a terminal shift",
			lookahead:  "add",
			prod:       []string{"expr", "id"},
			decision:   DecisionShift,
			resolvedBy: ResolvedByShift,
		},
		{
			caption:   "a terminal not following the left-hand side is shifted silently",
			lookahead: "id",
			prod:      []string{"expr", "expr", "add", "expr"},
			decision:  DecisionShift,
			noDiag:    true,
		},
	}

	gram := buildGrammar(t, precedenceTestSrc)
	analyzeGrammar(t, gram)
	genSym := newTestSymbolGenerator(t, gram.symTab)
	genProd := newTestProductionGenerator(t, genSym, gram.prods)

	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			c := &DiagnosticCollector{}
			r := newResolver(gram, c)
			prod := genProd(tt.prod[0], tt.prod[1:]...)

			dec, d := r.Decide(genSym(tt.lookahead), prod.num.Int(), 7)
			if dec != tt.decision {
				t.Fatalf("unexpected decision; want: %v, got: %v", tt.decision, dec)
			}
			if tt.noDiag {
				if d != nil {
					t.Fatalf("unexpected diagnostic: %v", d)
				}
				if len(c.Diagnostics) != 0 {
					t.Fatalf("the sink must receive nothing; got: %v", c.Diagnostics)
				}
				return
			}

			if d == nil {
				t.Fatal("a diagnostic must be returned")
			}
			if len(c.Diagnostics) != 1 || c.Diagnostics[0] != d {
				t.Fatalf("the sink must receive the returned diagnostic; got: %v", c.Diagnostics)
			}
			if d.Kind != ConflictShiftReduce {
				t.Errorf("unexpected conflict kind; want: %v, got: %v", ConflictShiftReduce, d.Kind)
			}
			if d.ResolvedBy != tt.resolvedBy {
				t.Errorf("unexpected resolution; want: %v, got: %v", tt.resolvedBy, d.ResolvedBy)
			}
			if d.State != 7 {
				t.Errorf("unexpected state; want: 7, got: %v", d.State)
			}
			if len(d.Productions) != 1 || d.Productions[0] != prod.num.Int() {
				t.Errorf("unexpected productions; want: [%v], got: %v", prod.num, d.Productions)
			}
			if !strings.HasPrefix(d.Message, "shift/reduce conflict on ") {
				t.Errorf("unexpected message: %v", d.Message)
			}
		})
	}
}

func TestResolver_DecideUsesAliasInMessage(t *testing.T) {
	src := `
#name test;
#prec (
    #left '+'
);

expr
    : expr '+' expr
    | id
    ;

id: "[a-z]+";
`
	gram := buildGrammar(t, src)
	analyzeGrammar(t, gram)

	plus, ok := gram.symTab.Lookup("x_1")
	if !ok {
		t.Fatal("an anonymous terminal must be named x_1")
	}
	genSym := newTestSymbolGenerator(t, gram.symTab)
	genProd := newTestProductionGenerator(t, genSym, gram.prods)
	prod := genProd("expr", "expr", "x_1", "expr")

	r := newResolver(gram, nil)
	dec, d := r.Decide(plus.ID, prod.num.Int(), 4)
	if dec != DecisionReduce {
		t.Fatalf("unexpected decision; want: %v, got: %v", DecisionReduce, dec)
	}
	want := "shift/reduce conflict on `+` in reduction `2: expr → expr + expr` in state `4`: reduce (associativity)"
	if d.Message != want {
		t.Errorf("unexpected message;\nwant: %v\ngot:  %v", want, d.Message)
	}
}

func TestResolver_DecideReduceReduce(t *testing.T) {
	src := `
#name test;

s
    : a
    | b
    ;
a
    : x
    ;
b
    : x
    ;

x: 'x';
`
	gram := buildGrammar(t, src)
	analyzeGrammar(t, gram)
	genSym := newTestSymbolGenerator(t, gram.symTab)
	genProd := newTestProductionGenerator(t, genSym, gram.prods)
	pa := genProd("a", "x").num.Int()
	pb := genProd("b", "x").num.Int()

	var reported []*Diagnostic
	r := newResolver(gram, DiagnosticSinkFunc(func(d *Diagnostic) {
		reported = append(reported, d)
	}))

	adopted, d := r.DecideReduceReduce(genSym("EOF"), []int{pb, pa}, 3)
	if adopted != pa {
		t.Fatalf("the production declared first must win; want: %v, got: %v", pa, adopted)
	}
	if d == nil {
		t.Fatal("a diagnostic must be returned")
	}
	if d.Kind != ConflictReduceReduce || d.ResolvedBy != ResolvedByProdOrder || d.Adopted != pa {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
	if len(reported) != 1 {
		t.Errorf("the sink must receive one diagnostic; got: %v", len(reported))
	}

	adopted, d = r.DecideReduceReduce(genSym("EOF"), []int{pb}, 3)
	if adopted != pb || d != nil {
		t.Errorf("a single production isn't a conflict; adopted: %v, diagnostic: %v", adopted, d)
	}
	if len(reported) != 1 {
		t.Errorf("the sink must not receive anything for a single production; got: %v", len(reported))
	}
}
