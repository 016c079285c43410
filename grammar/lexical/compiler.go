package lexical

import (
	"fmt"
	"sort"

	"github.com/npillmayer/schuko/tracing"

	"github.com/nihei9/gramc/grammar/lexical/nfa"
	psr "github.com/nihei9/gramc/grammar/lexical/parser"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.lexical")
}

type CompileError struct {
	Kind     LexKindName
	Fragment bool
	Cause    error
	Detail   string
}

func (e *CompileError) Error() string {
	var prefix string
	if e.Fragment {
		prefix = "fragment "
	}
	if e.Detail != "" {
		return fmt.Sprintf("%v%v: %v: %v", prefix, e.Kind, e.Cause, e.Detail)
	}
	return fmt.Sprintf("%v%v: %v", prefix, e.Kind, e.Cause)
}

var (
	errUndefinedFragment = fmt.Errorf("undefined fragment")
	errFragmentCycle     = fmt.Errorf("fragments refer to each other cyclically")
)

// Lexer recognizes the longest token at a position. A Lexer is built by Compile and isn't modified afterward.
type Lexer struct {
	name      string
	pool      *nfa.Pool
	automaton *nfa.Automaton

	// kindNames and skip are indexed by LexKindID.
	kindNames []LexKindName
	skip      []bool
}

func (l *Lexer) Name() string {
	return l.name
}

// KindNames returns the kind names indexed by LexKindID. The element at LexKindIDNil is LexKindNameNil.
func (l *Lexer) KindNames() []LexKindName {
	return l.kindNames
}

func (l *Lexer) KindID(name LexKindName) (LexKindID, bool) {
	for id, n := range l.kindNames {
		if id == LexKindIDNil.Int() {
			continue
		}
		if n == name {
			return LexKindID(id), true
		}
	}
	return LexKindIDNil, false
}

func (l *Lexer) IsSkipped(id LexKindID) bool {
	if id <= LexKindIDNil || id.Int() >= len(l.skip) {
		return false
	}
	return l.skip[id]
}

// UsedChars returns the characters patterns mention literally.
func (l *Lexer) UsedChars() []rune {
	return l.pool.UsedChars()
}

// Match returns the kind and the length in bytes of the longest token starting at pos, where the token is not
// longer than maxLength bytes. When the kinds of several entries match the same length, the entry appearing
// first in the specification wins. Match returns LexKindIDNil and nfa.NoMatch when no entry matches.
func (l *Lexer) Match(text string, pos int, maxLength int) (LexKindID, int) {
	idx, n := l.automaton.Longest(text, pos, maxLength)
	if idx < 0 {
		return LexKindIDNil, nfa.NoMatch
	}
	return LexKindID(idx + 1), n
}

// Compile builds a lexer from a lexical specification. Errors concerning individual entries are returned as
// CompileErrors together with a summary error.
func Compile(lexspec *LexSpec) (*Lexer, error, []*CompileError) {
	err := lexspec.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid lexical specification:\n%w", err), nil
	}

	var entries []*LexEntry
	fragments := map[LexKindName]*LexEntry{}
	for _, e := range lexspec.Entries {
		if e.Fragment {
			fragments[e.Kind] = e
			continue
		}
		entries = append(entries, e)
	}

	fragTrees, cerrs := parseFragments(fragments)
	if len(cerrs) > 0 {
		return nil, fmt.Errorf("compile error"), cerrs
	}

	trees := make([]psr.Tree, len(entries))
	for i, e := range entries {
		if e.Literal {
			continue
		}
		t, detail, err := psr.Parse(e.Pattern)
		if err != nil {
			cerrs = append(cerrs, &CompileError{
				Kind:   e.Kind,
				Cause:  err,
				Detail: detail,
			})
			continue
		}
		for _, name := range psr.FragmentNames(t) {
			if _, ok := fragTrees[LexKindName(name)]; !ok {
				cerrs = append(cerrs, &CompileError{
					Kind:   e.Kind,
					Cause:  errUndefinedFragment,
					Detail: name,
				})
			}
		}
		trees[i] = t
	}
	if len(cerrs) > 0 {
		return nil, fmt.Errorf("compile error"), cerrs
	}

	pool := nfa.NewPool()
	b := &nfaBuilder{
		pool:      pool,
		fragments: fragTrees,
	}
	frags := make([]nfa.Fragment, len(entries))
	kindNames := []LexKindName{LexKindNameNil}
	skip := []bool{false}
	for i, e := range entries {
		if e.Literal {
			frags[i] = pool.Literal(e.Pattern)
		} else {
			f, err := b.build(trees[i])
			if err != nil {
				cerrs = append(cerrs, &CompileError{
					Kind:  e.Kind,
					Cause: err,
				})
				continue
			}
			frags[i] = f
		}
		kindNames = append(kindNames, e.Kind)
		skip = append(skip, e.Skip)
	}
	if len(cerrs) > 0 {
		return nil, fmt.Errorf("compile error"), cerrs
	}

	tracer().Debugf("lexer %v: %v kinds, %v NFA states", lexspec.Name, len(entries), pool.Size())

	return &Lexer{
		name:      lexspec.Name,
		pool:      pool,
		automaton: pool.Automaton(frags...),
		kindNames: kindNames,
		skip:      skip,
	}, nil, nil
}

// parseFragments parses fragments and checks that every reference among them resolves and that they don't
// refer to each other cyclically.
func parseFragments(fragments map[LexKindName]*LexEntry) (map[LexKindName]psr.Tree, []*CompileError) {
	var names []LexKindName
	for name := range fragments {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})

	var cerrs []*CompileError
	trees := make(map[LexKindName]psr.Tree, len(fragments))
	for _, name := range names {
		t, detail, err := psr.Parse(fragments[name].Pattern)
		if err != nil {
			cerrs = append(cerrs, &CompileError{
				Kind:     name,
				Fragment: true,
				Cause:    err,
				Detail:   detail,
			})
			continue
		}
		trees[name] = t
	}
	if len(cerrs) > 0 {
		return nil, cerrs
	}

	// Resolve fragments in topological order. A fragment that never becomes resolvable is part of a cycle
	// or depends on one.
	deps := map[LexKindName][]LexKindName{}
	waiting := map[LexKindName]int{}
	for _, name := range names {
		refs := psr.FragmentNames(trees[name])
		for _, ref := range refs {
			r := LexKindName(ref)
			if _, ok := trees[r]; !ok {
				cerrs = append(cerrs, &CompileError{
					Kind:     name,
					Fragment: true,
					Cause:    errUndefinedFragment,
					Detail:   ref,
				})
				continue
			}
			deps[r] = append(deps[r], name)
		}
		waiting[name] = len(refs)
	}
	if len(cerrs) > 0 {
		return nil, cerrs
	}

	var queue []LexKindName
	for _, name := range names {
		if waiting[name] == 0 {
			queue = append(queue, name)
		}
	}
	resolved := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		resolved++
		for _, d := range deps[name] {
			waiting[d]--
			if waiting[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	if resolved < len(names) {
		for _, name := range names {
			if waiting[name] == 0 {
				continue
			}
			cerrs = append(cerrs, &CompileError{
				Kind:     name,
				Fragment: true,
				Cause:    errFragmentCycle,
			})
		}
		return nil, cerrs
	}

	return trees, nil
}

type nfaBuilder struct {
	pool      *nfa.Pool
	fragments map[LexKindName]psr.Tree
}

// build makes an NFA fragment from a syntax tree. A fragment reference is expanded into a fresh copy each
// time it appears, so the sub-graphs of different references never share states.
func (b *nfaBuilder) build(root psr.Tree) (nfa.Fragment, error) {
	type frame struct {
		node     psr.Tree
		expanded bool
	}

	var results []nfa.Fragment
	pop := func(n int) []nfa.Fragment {
		fs := make([]nfa.Fragment, n)
		copy(fs, results[len(results)-n:])
		results = results[:len(results)-n]
		return fs
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.expanded {
			var children []psr.Tree
			if ref, ok := f.node.(*psr.FragmentNode); ok {
				children = []psr.Tree{b.fragments[LexKindName(ref.Name)]}
			} else {
				children = psr.Children(f.node)
			}
			stack = append(stack, frame{node: f.node, expanded: true})
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: children[i]})
			}
			continue
		}

		switch n := f.node.(type) {
		case *psr.CharNode:
			results = append(results, b.pool.Char(n.Char))
		case *psr.AnyCharNode:
			results = append(results, b.pool.Any())
		case *psr.ClassNode:
			c, err := b.pool.Class(n.Ranges, n.Negate)
			if err != nil {
				return nfa.Fragment{}, err
			}
			results = append(results, c)
		case *psr.ConcatNode:
			fs := pop(2)
			results = append(results, b.pool.Concat(fs...))
		case *psr.AltNode:
			fs := pop(2)
			results = append(results, b.pool.Alt(fs...))
		case *psr.RepeatNode:
			fs := pop(1)
			switch n.Op {
			case psr.RepeatZeroOrMore:
				results = append(results, b.pool.Star(fs[0]))
			case psr.RepeatOneOrMore:
				results = append(results, b.pool.Plus(fs[0]))
			case psr.RepeatOption:
				results = append(results, b.pool.Opt(fs[0]))
			}
		case *psr.FragmentNode:
			// The expanded fragment is already on the result stack.
		default:
			return nfa.Fragment{}, fmt.Errorf("unknown node: %T", f.node)
		}
	}

	if len(results) != 1 {
		return nfa.Fragment{}, fmt.Errorf("a pattern must build one fragment; got: %v", len(results))
	}
	return results[0], nil
}
