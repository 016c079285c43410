package nfa

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/bits-and-blooms/bitset"
)

type StateID int

// Range is an inclusive range of code points.
type Range struct {
	From rune
	To   rune
}

func (r Range) contains(c rune) bool {
	return c >= r.From && c <= r.To
}

type arc struct {
	rng  Range
	next StateID
}

type state struct {
	arcs []arc
	eps  []StateID
}

// Fragment is a sub-graph with one entry and one exit. A path from Start to End consumes exactly a text
// the fragment matches.
type Fragment struct {
	Start StateID
	End   StateID
}

// Pool owns the states of the automata one build makes. A pool must not be shared by independent builds;
// call Reset or make a new pool instead.
type Pool struct {
	states []*state

	// used records every character appearing literally in a pattern.
	used *bitset.BitSet
}

func NewPool() *Pool {
	return &Pool{
		used: bitset.New(0),
	}
}

func (p *Pool) Reset() {
	p.states = nil
	p.used = bitset.New(0)
}

// Size returns the number of states.
func (p *Pool) Size() int {
	return len(p.states)
}

func (p *Pool) newState() StateID {
	p.states = append(p.states, &state{})
	return StateID(len(p.states) - 1)
}

func (p *Pool) addArc(from StateID, rng Range, to StateID) {
	s := p.states[from]
	s.arcs = append(s.arcs, arc{
		rng:  rng,
		next: to,
	})
}

func (p *Pool) addEps(from StateID, to StateID) {
	s := p.states[from]
	s.eps = append(s.eps, to)
}

func (p *Pool) markUsed(c rune) {
	if c < 0 {
		return
	}
	p.used.Set(uint(c))
}

// UsedChars returns the characters that appeared literally in patterns, in ascending order.
func (p *Pool) UsedChars() []rune {
	var cs []rune
	for i, ok := p.used.NextSet(0); ok; i, ok = p.used.NextSet(i + 1) {
		cs = append(cs, rune(i))
	}
	return cs
}

// Empty makes a fragment matching only the empty string.
func (p *Pool) Empty() Fragment {
	start := p.newState()
	end := p.newState()
	p.addEps(start, end)
	return Fragment{
		Start: start,
		End:   end,
	}
}

// Literal makes a straight chain consuming s one character at a time. The last state of the chain has an
// epsilon arc to the end state.
func (p *Pool) Literal(s string) Fragment {
	start := p.newState()
	cur := start
	for _, c := range s {
		p.markUsed(c)
		next := p.newState()
		p.addArc(cur, Range{From: c, To: c}, next)
		cur = next
	}
	end := p.newState()
	p.addEps(cur, end)
	return Fragment{
		Start: start,
		End:   end,
	}
}

func (p *Pool) Char(c rune) Fragment {
	return p.Literal(string(c))
}

// Class makes a fragment consuming one character in (or, when negate is true, not in) ranges.
func (p *Pool) Class(ranges []Range, negate bool) (Fragment, error) {
	for _, r := range ranges {
		if r.From > r.To {
			return Fragment{}, fmt.Errorf("a range with invalid order: %U-%U", r.From, r.To)
		}
		if r.From == r.To {
			p.markUsed(r.From)
		}
	}
	if negate {
		ranges = complement(ranges)
		if len(ranges) == 0 {
			return Fragment{}, fmt.Errorf("a negated class cannot match any characters")
		}
	}

	start := p.newState()
	end := p.newState()
	for _, r := range ranges {
		p.addArc(start, r, end)
	}
	return Fragment{
		Start: start,
		End:   end,
	}, nil
}

// Any makes a fragment consuming any one character.
func (p *Pool) Any() Fragment {
	start := p.newState()
	end := p.newState()
	p.addArc(start, Range{From: 0, To: utf8.MaxRune}, end)
	return Fragment{
		Start: start,
		End:   end,
	}
}

func (p *Pool) Concat(frags ...Fragment) Fragment {
	if len(frags) == 0 {
		return p.Empty()
	}
	for i := 0; i < len(frags)-1; i++ {
		p.addEps(frags[i].End, frags[i+1].Start)
	}
	return Fragment{
		Start: frags[0].Start,
		End:   frags[len(frags)-1].End,
	}
}

func (p *Pool) Alt(frags ...Fragment) Fragment {
	start := p.newState()
	end := p.newState()
	for _, f := range frags {
		p.addEps(start, f.Start)
		p.addEps(f.End, end)
	}
	return Fragment{
		Start: start,
		End:   end,
	}
}

// Star makes f*.
func (p *Pool) Star(f Fragment) Fragment {
	start := p.newState()
	end := p.newState()
	p.addEps(start, f.Start)
	p.addEps(start, end)
	p.addEps(f.End, f.Start)
	p.addEps(f.End, end)
	return Fragment{
		Start: start,
		End:   end,
	}
}

// Plus makes f+.
func (p *Pool) Plus(f Fragment) Fragment {
	start := p.newState()
	end := p.newState()
	p.addEps(start, f.Start)
	p.addEps(f.End, f.Start)
	p.addEps(f.End, end)
	return Fragment{
		Start: start,
		End:   end,
	}
}

// Opt makes f?.
func (p *Pool) Opt(f Fragment) Fragment {
	start := p.newState()
	end := p.newState()
	p.addEps(start, f.Start)
	p.addEps(start, end)
	p.addEps(f.End, end)
	return Fragment{
		Start: start,
		End:   end,
	}
}

func complement(ranges []Range) []Range {
	sorted := sortRanges(ranges)
	var comp []Range
	next := rune(0)
	for _, r := range sorted {
		if r.From > next {
			comp = append(comp, Range{From: next, To: r.From - 1})
		}
		if r.To+1 > next {
			next = r.To + 1
		}
	}
	if next <= utf8.MaxRune {
		comp = append(comp, Range{From: next, To: utf8.MaxRune})
	}
	return comp
}

func sortRanges(ranges []Range) []Range {
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].From < sorted[j].From
	})
	return sorted
}
