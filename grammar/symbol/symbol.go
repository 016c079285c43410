package symbol

import (
	"fmt"
	"strconv"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTerminal
	KindNonTerminal
	KindNode
	KindOldAction
	KindSimpleAction
	KindEOF
)

func (k Kind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindNonTerminal:
		return "non-terminal"
	case KindNode:
		return "node"
	case KindOldAction:
		return "old-action"
	case KindSimpleAction:
		return "simple-action"
	case KindEOF:
		return "eof"
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindTerminal; k <= KindEOF; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return KindUnknown, s == KindUnknown.String()
}

// IsTerminal reports whether a symbol of the kind is consumed from the input.
func (k Kind) IsTerminal() bool {
	return k == KindTerminal || k == KindEOF
}

func (k Kind) IsAction() bool {
	return k == KindOldAction || k == KindSimpleAction
}

// HasProductions reports whether a symbol of the kind can appear on the left-hand side of productions.
// Action symbols own one implicit empty production.
func (k Kind) HasProductions() bool {
	return k == KindNonTerminal || k == KindNode || k.IsAction()
}

type ID int

const (
	IDNil = ID(-1)

	// IDEOF is the id the end-of-input symbol always takes. The value is a fixed convention shared with
	// runtimes built against the compiled tables; no other id is reserved.
	IDEOF = ID(2)

	NameEOF = "EOF"
)

func (id ID) Int() int {
	return int(id)
}

func (id ID) String() string {
	return strconv.Itoa(int(id))
}

type Nullable int

const (
	NullableUnknown Nullable = iota
	NullableTrue
	NullableFalse
)

func (n Nullable) String() string {
	switch n {
	case NullableTrue:
		return "true"
	case NullableFalse:
		return "false"
	}
	return "unknown"
}

type Assoc int

const (
	AssocNil Assoc = iota
	AssocLeft
	AssocRight
	AssocNonAssoc
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	case AssocNonAssoc:
		return "nonassoc"
	}
	return ""
}

func ParseAssoc(s string) (Assoc, bool) {
	for a := AssocLeft; a <= AssocNonAssoc; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return AssocNil, s == ""
}

// Precedence is a precedence level of an operator. A greater level binds tighter.
type Precedence struct {
	Assoc Assoc
	Level int
}

func (p *Precedence) String() string {
	if p == nil {
		return "<none>"
	}
	return fmt.Sprintf("%v %v", p.Assoc, p.Level)
}

type Symbol struct {
	Name        string
	ID          ID
	Kind        Kind
	Prec        *Precedence
	Initializer string

	// Prods holds the numbers of the productions whose left-hand side is this symbol, in declaration order.
	Prods []int

	Nullable Nullable
	First    *Set
	Follow   *Set
}

func newSymbol(name string, id ID) *Symbol {
	return &Symbol{
		Name:   name,
		ID:     id,
		Kind:   KindUnknown,
		First:  NewSet(),
		Follow: NewSet(),
	}
}

func (s *Symbol) String() string {
	return s.Name
}

func (s *Symbol) IsTerminal() bool {
	return s.Kind.IsTerminal()
}
