package spec

import (
	"strings"
	"testing"

	verr "github.com/nihei9/gramc/error"
)

func TestParse(t *testing.T) {
	production := func(lhs string, alts ...*AlternativeNode) *ProductionNode {
		return &ProductionNode{
			LHS: lhs,
			RHS: alts,
		}
	}
	alternative := func(elems ...*ElementNode) *AlternativeNode {
		return &AlternativeNode{
			Elements: elems,
		}
	}
	withDirective := func(alt *AlternativeNode, dirs ...*DirectiveNode) *AlternativeNode {
		alt.Directives = dirs
		return alt
	}
	directive := func(name string, params ...*ParameterNode) *DirectiveNode {
		return &DirectiveNode{
			Name:       name,
			Parameters: params,
		}
	}
	idParam := func(id string) *ParameterNode {
		return &ParameterNode{
			ID: id,
		}
	}
	patParam := func(p string) *ParameterNode {
		return &ParameterNode{
			Pattern: p,
		}
	}
	group := func(dirs ...*DirectiveNode) *ParameterNode {
		return &ParameterNode{
			Group: dirs,
		}
	}
	id := func(id string) *ElementNode {
		return &ElementNode{
			ID: id,
		}
	}
	pattern := func(p string) *ElementNode {
		return &ElementNode{
			Pattern: p,
		}
	}
	literal := func(p string) *ElementNode {
		return &ElementNode{
			Pattern:   p,
			Literally: true,
		}
	}
	action := func(text string, old bool) *ElementNode {
		return &ElementNode{
			Action: &ActionNode{
				Text: text,
				Old:  old,
			},
		}
	}
	fragment := func(lhs string, rhs string) *FragmentNode {
		return &FragmentNode{
			LHS: lhs,
			RHS: rhs,
		}
	}

	tests := []struct {
		caption string
		src     string
		ast     *RootNode
		synErr  *SyntaxError
	}{
		{
			caption: "single production is a valid grammar",
			src:     `s: a; a: "a";`,
			ast: &RootNode{
				Productions: []*ProductionNode{
					production("s", alternative(id("a"))),
				},
				LexProductions: []*ProductionNode{
					production("a", alternative(pattern("a"))),
				},
			},
		},
		{
			caption: "multiple productions are a valid grammar",
			src: `
e: e '+' t | t;
t: t '*' f | f;
f: '(' e ')' | id;
id: "[a-z_][0-9a-z_]*";
`,
			ast: &RootNode{
				Productions: []*ProductionNode{
					production("e",
						alternative(id("e"), literal(`+`), id("t")),
						alternative(id("t")),
					),
					production("t",
						alternative(id("t"), literal(`*`), id("f")),
						alternative(id("f")),
					),
					production("f",
						alternative(literal(`(`), id("e"), literal(`)`)),
						alternative(id("id")),
					),
				},
				LexProductions: []*ProductionNode{
					production("id",
						alternative(pattern(`[a-z_][0-9a-z_]*`)),
					),
				},
			},
		},
		{
			caption: "productions can contain the empty alternative",
			src: `
a: b | ;
b: | c;
c: ;
`,
			ast: &RootNode{
				Productions: []*ProductionNode{
					production("a",
						alternative(id("b")),
						alternative(),
					),
					production("b",
						alternative(),
						alternative(id("c")),
					),
					production("c",
						alternative(),
					),
				},
			},
		},
		{
			caption: "a grammar can contain top-level directives, alternative directives, actions, and fragments",
			src: `
#name calc;
#prec (
    #nonassoc lt
    #left add sub
);
#node expr;

expr
    : expr add expr { add($1, $3) }
    | sub expr #prec mul
    | expr {: mid :} lt num
    ;
num: "\f{digit}+" #init "0";
ws: "[ \n]+" #skip;
fragment digit: "[0-9]";
`,
			ast: &RootNode{
				Directives: []*DirectiveNode{
					directive("name", idParam("calc")),
					directive("prec", group(
						directive("nonassoc", idParam("lt")),
						directive("left", idParam("add"), idParam("sub")),
					)),
					directive("node", idParam("expr")),
				},
				Productions: []*ProductionNode{
					production("expr",
						alternative(id("expr"), id("add"), id("expr"), action("add($1, $3)", false)),
						withDirective(
							alternative(id("sub"), id("expr")),
							directive("prec", idParam("mul")),
						),
						alternative(id("expr"), action("mid", true), id("lt"), id("num")),
					),
				},
				LexProductions: []*ProductionNode{
					production("num",
						withDirective(
							alternative(pattern(`\f{digit}+`)),
							directive("init", patParam("0")),
						),
					),
					production("ws",
						withDirective(
							alternative(pattern(`[ \n]+`)),
							directive("skip"),
						),
					),
				},
				Fragments: []*FragmentNode{
					fragment("digit", "[0-9]"),
				},
			},
		},
		{
			caption: "a fragment defined by a string is escaped",
			src: `
s: plus;
plus: "\f{p}";
fragment p: '+';
`,
			ast: &RootNode{
				Productions: []*ProductionNode{
					production("s", alternative(id("plus"))),
				},
				LexProductions: []*ProductionNode{
					production("plus", alternative(pattern(`\f{p}`))),
				},
				Fragments: []*FragmentNode{
					fragment("p", `\+`),
				},
			},
		},
		{
			caption: "when a source contains an unknown token, the parser raises a syntax error",
			src:     `a: !;`,
			synErr:  synErrInvalidToken,
		},
		{
			caption: "a grammar must have at least one production",
			src:     ``,
			synErr:  synErrNoProduction,
		},
		{
			caption: "a grammar must have at least one production other than lexical productions",
			src:     `a: "a";`,
			synErr:  synErrNoProduction,
		},
		{
			caption: "a production must have its name as the first element",
			src:     `: "a";`,
			synErr:  synErrNoProductionName,
		},
		{
			caption: "':' must precede an alternative",
			src:     `a "a";`,
			synErr:  synErrNoColon,
		},
		{
			caption: "';' must follow a production",
			src:     `a: b`,
			synErr:  synErrNoSemicolon,
		},
		{
			caption: "';' can only appear at the end of a production",
			src:     `;`,
			synErr:  synErrNoProductionName,
		},
		{
			caption: "a top-level directive must be followed by ';'",
			src:     `#name calc s: a;`,
			synErr:  synErrTopLevelDirNoSemicolon,
		},
		{
			caption: "a directive needs a name",
			src:     `# ;`,
			synErr:  synErrNoDirectiveName,
		},
		{
			caption: "a directive group must be closed",
			src:     `#prec ( #left a ;`,
			synErr:  synErrUnclosedDirGroup,
		},
		{
			caption: "an action cannot follow directives",
			src:     `a: b #prec c { act };`,
			synErr:  synErrActionAfterDirective,
		},
		{
			caption: "a fragment needs a pattern",
			src:     `fragment f: a;`,
			synErr:  synErrFragmentNoPattern,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			ast, err := Parse(strings.NewReader(tt.src))
			if tt.synErr != nil {
				specErrs, ok := err.(verr.SpecErrors)
				if !ok || len(specErrs) == 0 {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.synErr, err)
				}
				if specErrs[0].Cause != tt.synErr {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.synErr, specErrs[0].Cause)
				}
				if ast != nil {
					t.Fatalf("AST must be nil")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ast == nil {
					t.Fatalf("AST must be non-nil")
				}
				testRootNode(t, ast, tt.ast)
			}
		})
	}
}

func TestParse_ReportsMultipleErrors(t *testing.T) {
	src := `
s: a;
b "b";
c: d
`
	_, err := Parse(strings.NewReader(src))
	specErrs, ok := err.(verr.SpecErrors)
	if !ok {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specErrs) != 2 {
		t.Fatalf("unexpected error count; want: 2, got: %v\n%v", len(specErrs), specErrs)
	}
	if specErrs[0].Cause != synErrNoColon || specErrs[0].Row != 3 {
		t.Fatalf("unexpected first error: %v", specErrs[0])
	}
	if specErrs[1].Cause != synErrNoSemicolon {
		t.Fatalf("unexpected second error: %v", specErrs[1])
	}
}

func testRootNode(t *testing.T, root, expected *RootNode) {
	t.Helper()
	if len(root.Directives) != len(expected.Directives) {
		t.Fatalf("unexpected length of directives; want: %v, got: %v", len(expected.Directives), len(root.Directives))
	}
	for i, dir := range root.Directives {
		testDirectiveNode(t, dir, expected.Directives[i])
	}
	if len(root.Productions) != len(expected.Productions) {
		t.Fatalf("unexpected length of productions; want: %v, got: %v", len(expected.Productions), len(root.Productions))
	}
	for i, prod := range root.Productions {
		testProductionNode(t, prod, expected.Productions[i])
	}
	if len(root.LexProductions) != len(expected.LexProductions) {
		t.Fatalf("unexpected length of lexical productions; want: %v, got: %v", len(expected.LexProductions), len(root.LexProductions))
	}
	for i, prod := range root.LexProductions {
		testProductionNode(t, prod, expected.LexProductions[i])
	}
	if len(root.Fragments) != len(expected.Fragments) {
		t.Fatalf("unexpected length of fragments; want: %v, got: %v", len(expected.Fragments), len(root.Fragments))
	}
	for i, f := range root.Fragments {
		if f.LHS != expected.Fragments[i].LHS || f.RHS != expected.Fragments[i].RHS {
			t.Fatalf("unexpected fragment; want: %+v, got: %+v", expected.Fragments[i], f)
		}
	}
}

func testProductionNode(t *testing.T, prod, expected *ProductionNode) {
	t.Helper()
	if prod.LHS != expected.LHS {
		t.Fatalf("unexpected LHS; want: %v, got: %v", expected.LHS, prod.LHS)
	}
	if len(prod.RHS) != len(expected.RHS) {
		t.Fatalf("unexpected length of an RHS; want: %v, got: %v", len(expected.RHS), len(prod.RHS))
	}
	for i, alt := range prod.RHS {
		testAlternativeNode(t, alt, expected.RHS[i])
	}
}

func testAlternativeNode(t *testing.T, alt, expected *AlternativeNode) {
	t.Helper()
	if len(alt.Elements) != len(expected.Elements) {
		t.Fatalf("unexpected length of elements; want: %v, got: %v", len(expected.Elements), len(alt.Elements))
	}
	for i, elem := range alt.Elements {
		testElementNode(t, elem, expected.Elements[i])
	}
	if len(alt.Directives) != len(expected.Directives) {
		t.Fatalf("unexpected length of directives; want: %v, got: %v", len(expected.Directives), len(alt.Directives))
	}
	for i, dir := range alt.Directives {
		testDirectiveNode(t, dir, expected.Directives[i])
	}
}

func testElementNode(t *testing.T, elem, expected *ElementNode) {
	t.Helper()
	if elem.ID != expected.ID || elem.Pattern != expected.Pattern || elem.Literally != expected.Literally {
		t.Fatalf("unexpected element; want: %+v, got: %+v", expected, elem)
	}
	if (elem.Action == nil) != (expected.Action == nil) {
		t.Fatalf("unexpected action; want: %+v, got: %+v", expected.Action, elem.Action)
	}
	if expected.Action != nil {
		if elem.Action.Text != expected.Action.Text || elem.Action.Old != expected.Action.Old {
			t.Fatalf("unexpected action; want: %+v, got: %+v", expected.Action, elem.Action)
		}
	}
}

func testDirectiveNode(t *testing.T, dir, expected *DirectiveNode) {
	t.Helper()
	if dir.Name != expected.Name {
		t.Fatalf("unexpected directive name; want: %v, got: %v", expected.Name, dir.Name)
	}
	if len(dir.Parameters) != len(expected.Parameters) {
		t.Fatalf("unexpected length of parameters; want: %v, got: %v", len(expected.Parameters), len(dir.Parameters))
	}
	for i, param := range dir.Parameters {
		e := expected.Parameters[i]
		if param.ID != e.ID || param.Pattern != e.Pattern || param.String != e.String {
			t.Fatalf("unexpected parameter; want: %+v, got: %+v", e, param)
		}
		if len(param.Group) != len(e.Group) {
			t.Fatalf("unexpected length of a directive group; want: %v, got: %v", len(e.Group), len(param.Group))
		}
		for j, d := range param.Group {
			testDirectiveNode(t, d, e.Group[j])
		}
	}
}
