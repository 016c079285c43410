package symbol

import (
	"testing"
)

func TestParseKindAndAssoc(t *testing.T) {
	for _, k := range []Kind{KindUnknown, KindTerminal, KindNonTerminal, KindNode, KindOldAction, KindSimpleAction, KindEOF} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("failed to parse a kind; want: %v, got: %v", k, got)
		}
	}
	if _, ok := ParseKind("foo"); ok {
		t.Errorf("an unknown text must not be parsed as a kind")
	}

	for _, a := range []Assoc{AssocNil, AssocLeft, AssocRight, AssocNonAssoc} {
		got, ok := ParseAssoc(a.String())
		if !ok || got != a {
			t.Errorf("failed to parse an associativity; want: %v, got: %v", a, got)
		}
	}
	if _, ok := ParseAssoc("up"); ok {
		t.Errorf("an unknown text must not be parsed as an associativity")
	}
}
