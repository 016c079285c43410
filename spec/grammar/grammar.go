package grammar

import (
	"math"

	mlspec "github.com/nihei9/maleeni/spec"
)

// CompiledGrammar is the output of the grammar compiler and the input of drivers.
type CompiledGrammar struct {
	Name      string         `json:"name"`
	Lexical   *LexicalSpec   `json:"lexical"`
	Syntactic *SyntacticSpec `json:"syntactic"`
}

type LexEntry struct {
	Kind     string `json:"kind"`
	Pattern  string `json:"pattern"`
	Literal  bool   `json:"literal,omitempty"`
	Fragment bool   `json:"fragment,omitempty"`
	Skip     bool   `json:"skip,omitempty"`
}

type LexicalSpec struct {
	Entries []*LexEntry `json:"entries"`

	// KindToTerminal maps the kind IDs of a lexer compiled from Entries to symbol IDs. The IDs of the kinds are
	// 1-origin in the order of the non-fragment entries, and the element at 0 is unused.
	KindToTerminal []int `json:"kind_to_terminal"`

	// DFA is present only when the compiler is asked to export one.
	DFA *mlspec.CompiledLexSpec `json:"dfa,omitempty"`
}

type Symbol struct {
	Name          string `json:"name"`
	ID            int    `json:"id"`
	Kind          string `json:"kind"`
	Precedence    int    `json:"prec,omitempty"`
	Associativity string `json:"assoc,omitempty"`
	Initializer   string `json:"init,omitempty"`

	// Alias is the text of a terminal written as a literal, such as `+` for '+'.
	Alias string `json:"alias,omitempty"`
}

type Production struct {
	Number    int    `json:"number"`
	LHS       int    `json:"lhs"`
	RHS       []int  `json:"rhs"`
	Action    string `json:"action,omitempty"`
	OldAction bool   `json:"old_action,omitempty"`
}

const (
	// ActionEmpty is an empty entry of a transition table. A driver reading it raises a syntax error.
	ActionEmpty = 0

	// ActionNonassoc is an entry where a non-associative operator follows another at the same level.
	// A driver reading it raises an error.
	ActionNonassoc = math.MinInt32
)

// SyntacticSpec holds the transition table. An entry of Transition at state s and symbol x is
// Transition[s*SymbolCount+x]. A negative entry -n is a shift (or a goto for a non-terminal) to state n, and
// a positive entry n is a reduction by production n. The reduction by StartProduction on EOFSymbol is the
// accept action. The initial state never appears as a shift target, so -0 isn't ambiguous.
type SyntacticSpec struct {
	Class           string        `json:"class"`
	Symbols         []*Symbol     `json:"symbols"`
	Productions     []*Production `json:"productions"`
	StartProduction int           `json:"start_production"`
	EOFSymbol       int           `json:"eof_symbol"`
	InitialState    int           `json:"initial_state"`
	StateCount      int           `json:"state_count"`
	SymbolCount     int           `json:"symbol_count"`
	Transition      []int         `json:"transition"`
}

// Entry returns the entry of the transition table at a state and a symbol.
func (s *SyntacticSpec) Entry(state, sym int) int {
	return s.Transition[state*s.SymbolCount+sym]
}

// Production returns a production by its number.
func (s *SyntacticSpec) Production(num int) (*Production, bool) {
	for _, p := range s.Productions {
		if p.Number == num {
			return p, true
		}
	}
	return nil, false
}

// Symbol returns a symbol by its ID.
func (s *SyntacticSpec) Symbol(id int) (*Symbol, bool) {
	if id < 0 || id >= len(s.Symbols) || s.Symbols[id] == nil {
		return nil, false
	}
	return s.Symbols[id], true
}
