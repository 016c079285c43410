package lexical

import (
	"fmt"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"

	"github.com/nihei9/gramc/grammar/lexical/nfa"
	psr "github.com/nihei9/gramc/grammar/lexical/parser"
)

// ExportDFA compiles the entries of a lexical specification into a maleeni lexical specification, a
// compressed DFA drivers can load without this package. Kind ids of the result are maleeni's own, and the
// KindNames of the result map them back to names.
func ExportDFA(lexspec *LexSpec) (*mlspec.CompiledLexSpec, error, []*mlcompiler.CompileError) {
	err := lexspec.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid lexical specification:\n%w", err), nil
	}

	entries := make([]*mlspec.LexEntry, 0, len(lexspec.Entries))
	for _, e := range lexspec.Entries {
		var pattern string
		if e.Literal {
			pattern = literalToMaleeni(e.Pattern)
		} else {
			t, detail, err := psr.Parse(e.Pattern)
			if err != nil {
				if detail != "" {
					return nil, fmt.Errorf("%v: %v: %v", e.Kind, err, detail), nil
				}
				return nil, fmt.Errorf("%v: %v", e.Kind, err), nil
			}
			pattern = treeToMaleeni(t)
		}
		entries = append(entries, &mlspec.LexEntry{
			Kind:     mlspec.LexKindName(e.Kind),
			Pattern:  mlspec.LexPattern(pattern),
			Fragment: e.Fragment,
		})
	}

	clspec, err, cerrs := mlcompiler.Compile(&mlspec.LexSpec{
		Name:    lexspec.Name,
		Entries: entries,
	}, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cerrs) > 0 {
			var b strings.Builder
			writeDFACompileError(&b, cerrs[0])
			for _, cerr := range cerrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeDFACompileError(&b, cerr)
			}
			return nil, fmt.Errorf("%v", b.String()), cerrs
		}
		return nil, err, nil
	}

	tracer().Debugf("exported DFA %v: %v kinds", lexspec.Name, len(clspec.KindNames)-1)

	return clspec, nil, nil
}

func writeDFACompileError(b *strings.Builder, cerr *mlcompiler.CompileError) {
	if cerr.Fragment {
		fmt.Fprintf(b, "fragment ")
	}
	fmt.Fprintf(b, "%v: %v", cerr.Kind, cerr.Cause)
	if cerr.Detail != "" {
		fmt.Fprintf(b, ": %v", cerr.Detail)
	}
}

// maleeni's pattern syntax differs from ours in its escapes, so patterns are written out again from their
// syntax trees with every character as a code point.

func literalToMaleeni(lit string) string {
	var b strings.Builder
	for _, c := range lit {
		writeCodePoint(&b, c)
	}
	return b.String()
}

func treeToMaleeni(t psr.Tree) string {
	var b strings.Builder
	writeMaleeniTree(&b, t)
	return b.String()
}

func writeMaleeniTree(b *strings.Builder, t psr.Tree) {
	switch n := t.(type) {
	case *psr.CharNode:
		writeCodePoint(b, n.Char)
	case *psr.AnyCharNode:
		b.WriteString(".")
	case *psr.ClassNode:
		writeClass(b, n.Ranges, n.Negate)
	case *psr.FragmentNode:
		fmt.Fprintf(b, `\f{%v}`, n.Name)
	case *psr.ConcatNode:
		writeMaleeniTree(b, n.Left)
		writeMaleeniTree(b, n.Right)
	case *psr.AltNode:
		b.WriteString("(")
		writeMaleeniTree(b, n.Left)
		b.WriteString("|")
		writeMaleeniTree(b, n.Right)
		b.WriteString(")")
	case *psr.RepeatNode:
		switch n.Elem.(type) {
		case *psr.ConcatNode, *psr.RepeatNode:
			b.WriteString("(")
			writeMaleeniTree(b, n.Elem)
			b.WriteString(")")
		default:
			writeMaleeniTree(b, n.Elem)
		}
		b.WriteString(string(n.Op))
	}
}

func writeClass(b *strings.Builder, ranges []nfa.Range, negate bool) {
	b.WriteString("[")
	if negate {
		b.WriteString("^")
	}
	for _, r := range ranges {
		writeCodePoint(b, r.From)
		if r.To != r.From {
			b.WriteString("-")
			writeCodePoint(b, r.To)
		}
	}
	b.WriteString("]")
}

func writeCodePoint(b *strings.Builder, c rune) {
	if c > 0xFFFF {
		fmt.Fprintf(b, `\u{%06X}`, c)
		return
	}
	fmt.Fprintf(b, `\u{%04X}`, c)
}
