package driver

import (
	"fmt"
	"io"
)

type SemanticActionSet interface {
	// Shift runs when the driver shifts a symbol onto the state stack. `tok` is a token corresponding to
	// the symbol.
	Shift(tok VToken)

	// Reduce runs when the driver reduces an RHS of a production to its LHS. `prodNum` is a number of
	// the production.
	Reduce(prodNum int)

	// Accept runs when the driver accepts an input.
	Accept()
}

var (
	_ SemanticActionSet = &SyntaxTreeActionSet{}
	_ SemanticActionSet = &ActionLog{}
)

type Node struct {
	KindName string
	Text     string
	Row      int
	Col      int
	Children []*Node
}

func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	if node.Text != "" {
		fmt.Fprintf(w, "%v%v %#v\n", ruledLine, node.KindName, node.Text)
	} else {
		fmt.Fprintf(w, "%v%v\n", ruledLine, node.KindName)
	}

	num := len(node.Children)
	for i, child := range node.Children {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}

// SyntaxTreeActionSet builds a concrete syntax tree. A non-terminal the grammar doesn't keep as a node
// leaves its children in its parent, and mid-rule action symbols leave nothing. The root is always a node
// of the start symbol.
type SyntaxTreeActionSet struct {
	gram     Grammar
	cst      *Node
	semStack *semanticStack
}

func NewSyntaxTreeActionSet(gram Grammar) *SyntaxTreeActionSet {
	return &SyntaxTreeActionSet{
		gram:     gram,
		semStack: newSemanticStack(),
	}
}

func (a *SyntaxTreeActionSet) Shift(tok VToken) {
	row, col := tok.Position()
	a.semStack.push(&semanticFrame{
		nodes: []*Node{
			{
				KindName: a.gram.Symbol(tok.TerminalID()),
				Text:     tok.Lexeme(),
				Row:      row,
				Col:      col,
			},
		},
	})
}

func (a *SyntaxTreeActionSet) Reduce(prodNum int) {
	lhs := a.gram.LHS(prodNum)

	// When an alternative is empty, `n` will be 0, and `handle` will be empty slice.
	n := a.gram.AlternativeSymbolCount(prodNum)
	handle := a.semStack.pop(n)

	// Count the number of children in advance to avoid frequent growth in a slice for children.
	l := 0
	for _, f := range handle {
		l += len(f.nodes)
	}
	children := make([]*Node, 0, l)
	for _, f := range handle {
		children = append(children, f.nodes...)
	}

	if !a.gram.IsNode(lhs) {
		a.semStack.push(&semanticFrame{
			nodes: children,
		})
		return
	}

	node := &Node{
		KindName: a.gram.Symbol(lhs),
		Children: children,
	}
	if len(children) > 0 {
		node.Row = children[0].Row
		node.Col = children[0].Col
	}
	a.semStack.push(&semanticFrame{
		nodes: []*Node{node},
	})
}

func (a *SyntaxTreeActionSet) Accept() {
	top := a.semStack.pop(1)[0]
	start := a.gram.StartSymbol()
	if a.gram.IsNode(start) {
		a.cst = top.nodes[0]
		return
	}
	root := &Node{
		KindName: a.gram.Symbol(start),
		Children: top.nodes,
	}
	if len(top.nodes) > 0 {
		root.Row = top.nodes[0].Row
		root.Col = top.nodes[0].Col
	}
	a.cst = root
}

func (a *SyntaxTreeActionSet) CST() *Node {
	return a.cst
}

type semanticFrame struct {
	nodes []*Node
}

type semanticStack struct {
	frames []*semanticFrame
}

func newSemanticStack() *semanticStack {
	return &semanticStack{}
}

func (s *semanticStack) push(f *semanticFrame) {
	s.frames = append(s.frames, f)
}

func (s *semanticStack) pop(n int) []*semanticFrame {
	fs := s.frames[len(s.frames)-n:]
	s.frames = s.frames[:len(s.frames)-n]

	return fs
}

// Reduction is a production the driver reduced together with its action text.
type Reduction struct {
	Production int
	LHS        string
	Action     string
}

// ActionLog records the reductions of productions carrying actions, in the order the driver performs them.
// The order is the order a generated parser would run the actions in.
type ActionLog struct {
	gram       Grammar
	reductions []*Reduction
	accepted   bool
}

func NewActionLog(gram Grammar) *ActionLog {
	return &ActionLog{
		gram: gram,
	}
}

func (a *ActionLog) Shift(tok VToken) {
}

func (a *ActionLog) Reduce(prodNum int) {
	act, ok := a.gram.SemanticAction(prodNum)
	if !ok {
		return
	}
	a.reductions = append(a.reductions, &Reduction{
		Production: prodNum,
		LHS:        a.gram.Symbol(a.gram.LHS(prodNum)),
		Action:     act,
	})
}

func (a *ActionLog) Accept() {
	a.accepted = true
}

func (a *ActionLog) Reductions() []*Reduction {
	return a.reductions
}

func (a *ActionLog) Accepted() bool {
	return a.accepted
}

// MultiActionSet runs several action sets in order.
type MultiActionSet []SemanticActionSet

func (m MultiActionSet) Shift(tok VToken) {
	for _, a := range m {
		a.Shift(tok)
	}
}

func (m MultiActionSet) Reduce(prodNum int) {
	for _, a := range m {
		a.Reduce(prodNum)
	}
}

func (m MultiActionSet) Accept() {
	for _, a := range m {
		a.Accept()
	}
}
