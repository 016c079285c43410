package grammar

import (
	"strings"
	"testing"

	"github.com/nihei9/gramc/grammar/symbol"
	"github.com/nihei9/gramc/spec"
)

func buildGrammar(t *testing.T, src string) *Grammar {
	t.Helper()

	ast, err := spec.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	b := GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return gram
}

// analyzeGrammar fills the nullable flags and the FIRST and FOLLOW sets of a grammar.
func analyzeGrammar(t *testing.T, gram *Grammar) *analyzer {
	t.Helper()

	a := newAnalyzer(gram.symTab, gram.prods)
	a.computeFirst()
	err := a.computeFollow(gram.augmentedStart)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

type testSymbolGenerator func(text string) symbol.ID

func newTestSymbolGenerator(t *testing.T, symTab *symbol.Table) testSymbolGenerator {
	return func(text string) symbol.ID {
		t.Helper()

		sym, ok := symTab.Lookup(text)
		if !ok {
			t.Fatalf("symbol was not found: %v", text)
		}
		return sym.ID
	}
}

type testProductionGenerator func(lhs string, rhs ...string) *production

// newTestProductionGenerator finds a registered production by its symbols.
func newTestProductionGenerator(t *testing.T, genSym testSymbolGenerator, prods *productionSet) testProductionGenerator {
	return func(lhs string, rhs ...string) *production {
		t.Helper()

		rhsSym := []symbol.ID{}
		for _, text := range rhs {
			rhsSym = append(rhsSym, genSym(text))
		}
		p, err := newProduction(genSym(lhs), rhsSym)
		if err != nil {
			t.Fatalf("failed to create a production: %v", err)
		}
		prod, ok := prods.key2Prod[p.key()]
		if !ok {
			t.Fatalf("production was not found: %v → %v", lhs, rhs)
		}

		return prod
	}
}

type testLR0ItemGenerator func(lhs string, dot int, rhs ...string) *lrItem

func newTestLR0ItemGenerator(t *testing.T, genProd testProductionGenerator) testLR0ItemGenerator {
	return func(lhs string, dot int, rhs ...string) *lrItem {
		t.Helper()

		prod := genProd(lhs, rhs...)
		item, err := newLR0Item(prod, dot)
		if err != nil {
			t.Fatalf("failed to create a LR0 item: %v", err)
		}

		return item
	}
}

func withLookAhead(item *lrItem, lookAhead ...symbol.ID) *lrItem {
	item.lookAhead.add(symbol.NewSet(lookAhead...))
	return item
}
