package parser

import (
	"fmt"
	"strings"

	"github.com/nihei9/gramc/grammar/lexical/nfa"
)

// Tree is a syntax tree of a pattern.
type Tree interface {
	fmt.Stringer
	children() []Tree
}

type CharNode struct {
	Char rune
}

func (n *CharNode) String() string {
	return fmt.Sprintf("char: %q", n.Char)
}

func (n *CharNode) children() []Tree {
	return nil
}

type AnyCharNode struct{}

func (n *AnyCharNode) String() string {
	return "any"
}

func (n *AnyCharNode) children() []Tree {
	return nil
}

type ClassNode struct {
	Ranges []nfa.Range
	Negate bool
}

func (n *ClassNode) String() string {
	var b strings.Builder
	fmt.Fprint(&b, "class: ")
	if n.Negate {
		fmt.Fprint(&b, "^")
	}
	for i, r := range n.Ranges {
		if i > 0 {
			fmt.Fprint(&b, " ")
		}
		fmt.Fprintf(&b, "%U-%U", r.From, r.To)
	}
	return b.String()
}

func (n *ClassNode) children() []Tree {
	return nil
}

type ConcatNode struct {
	Left  Tree
	Right Tree
}

func (n *ConcatNode) String() string {
	return "concat"
}

func (n *ConcatNode) children() []Tree {
	return []Tree{n.Left, n.Right}
}

type AltNode struct {
	Left  Tree
	Right Tree
}

func (n *AltNode) String() string {
	return "alt"
}

func (n *AltNode) children() []Tree {
	return []Tree{n.Left, n.Right}
}

type RepeatOp string

const (
	RepeatZeroOrMore RepeatOp = "*"
	RepeatOneOrMore  RepeatOp = "+"
	RepeatOption     RepeatOp = "?"
)

type RepeatNode struct {
	Op   RepeatOp
	Elem Tree
}

func (n *RepeatNode) String() string {
	return fmt.Sprintf("repeat: %v", n.Op)
}

func (n *RepeatNode) children() []Tree {
	return []Tree{n.Elem}
}

type FragmentNode struct {
	Name string
}

func (n *FragmentNode) String() string {
	return fmt.Sprintf("fragment: %v", n.Name)
}

func (n *FragmentNode) children() []Tree {
	return nil
}

// Children returns the direct sub-trees of t.
func Children(t Tree) []Tree {
	return t.children()
}

// FragmentNames returns the names of the fragments t refers to, in order of appearance.
func FragmentNames(t Tree) []string {
	var names []string
	seen := map[string]struct{}{}
	stack := []Tree{t}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f, ok := n.(*FragmentNode); ok {
			if _, ok := seen[f.Name]; !ok {
				seen[f.Name] = struct{}{}
				names = append(names, f.Name)
			}
			continue
		}
		cs := n.children()
		for i := len(cs) - 1; i >= 0; i-- {
			stack = append(stack, cs[i])
		}
	}
	return names
}

// PrintTree writes t in an indented form.
func PrintTree(w *strings.Builder, t Tree) {
	type frame struct {
		node  Tree
		depth int
	}
	stack := []frame{{node: t}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fmt.Fprintf(w, "%v%v\n", strings.Repeat("  ", f.depth), f.node)
		cs := f.node.children()
		for i := len(cs) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: cs[i], depth: f.depth + 1})
		}
	}
}
