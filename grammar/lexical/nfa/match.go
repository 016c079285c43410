package nfa

import (
	"unicode/utf8"

	"github.com/bits-and-blooms/bitset"
	"github.com/emirpasic/gods/stacks/arraystack"
)

// NoMatch is returned when no prefix of the text matches. It differs from 0, a match of the empty string.
const NoMatch = -1

// Match returns the length in bytes of the longest prefix of text[pos:] that f matches and that is not
// longer than maxLength bytes. Characters are compared exactly.
func (p *Pool) Match(f Fragment, text string, pos int, maxLength int) int {
	a := &Automaton{
		pool:  p,
		start: f.Start,
		accepts: map[StateID]int{
			f.End: 0,
		},
	}
	_, n := a.Longest(text, pos, maxLength)
	return n
}

// Automaton runs several fragments at once. Each fragment is identified by its index in the order they
// were passed to Pool.Automaton.
type Automaton struct {
	pool    *Pool
	start   StateID
	accepts map[StateID]int
}

// Automaton joins frags under a new start state.
func (p *Pool) Automaton(frags ...Fragment) *Automaton {
	start := p.newState()
	accepts := make(map[StateID]int, len(frags))
	for i, f := range frags {
		p.addEps(start, f.Start)
		if _, ok := accepts[f.End]; !ok {
			accepts[f.End] = i
		}
	}
	return &Automaton{
		pool:    p,
		start:   start,
		accepts: accepts,
	}
}

// Longest returns the index of the fragment matching the longest prefix of text[pos:] and the length of
// the prefix. When fragments match prefixes of the same length, the one passed earlier wins. When nothing
// matches, Longest returns -1 and NoMatch.
func (a *Automaton) Longest(text string, pos int, maxLength int) (int, int) {
	if pos < 0 || pos > len(text) || maxLength < 0 {
		return -1, NoMatch
	}
	limit := len(text)
	if maxLength < limit-pos {
		limit = pos + maxLength
	}

	size := uint(a.pool.Size())
	cur := bitset.New(size)
	a.closure(cur, []StateID{a.start})

	bestFrag := -1
	bestLen := NoMatch
	if f, ok := a.accepted(cur); ok {
		bestFrag = f
		bestLen = 0
	}

	i := pos
	for i < limit && cur.Any() {
		c, w := utf8.DecodeRuneInString(text[i:])
		if i+w > limit {
			break
		}

		var targets []StateID
		for s, ok := cur.NextSet(0); ok; s, ok = cur.NextSet(s + 1) {
			for _, arc := range a.pool.states[s].arcs {
				if arc.rng.contains(c) {
					targets = append(targets, arc.next)
				}
			}
		}
		next := bitset.New(size)
		a.closure(next, targets)

		i += w
		cur = next
		if f, ok := a.accepted(cur); ok {
			bestFrag = f
			bestLen = i - pos
		}
	}

	return bestFrag, bestLen
}

// closure adds states and every state reachable from them via epsilon arcs to set.
func (a *Automaton) closure(set *bitset.BitSet, states []StateID) {
	stack := arraystack.New()
	for _, s := range states {
		if set.Test(uint(s)) {
			continue
		}
		set.Set(uint(s))
		stack.Push(s)
	}
	for !stack.Empty() {
		v, _ := stack.Pop()
		s := v.(StateID)
		for _, next := range a.pool.states[s].eps {
			if set.Test(uint(next)) {
				continue
			}
			set.Set(uint(next))
			stack.Push(next)
		}
	}
}

func (a *Automaton) accepted(set *bitset.BitSet) (int, bool) {
	best := -1
	for s, f := range a.accepts {
		if !set.Test(uint(s)) {
			continue
		}
		if best < 0 || f < best {
			best = f
		}
	}
	return best, best >= 0
}
