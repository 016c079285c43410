package symbol

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Set is a set of symbol ids. Add and Merge report whether the set grew, which fixpoint loops rely on
// to detect convergence.
type Set struct {
	bits *bitset.BitSet
}

func NewSet(ids ...ID) *Set {
	s := &Set{
		bits: bitset.New(0),
	}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *Set) Add(id ID) bool {
	if id < 0 {
		return false
	}
	if s.bits.Test(uint(id)) {
		return false
	}
	s.bits.Set(uint(id))
	return true
}

func (s *Set) Contains(id ID) bool {
	if s == nil || id < 0 {
		return false
	}
	return s.bits.Test(uint(id))
}

func (s *Set) Merge(t *Set) bool {
	if t == nil {
		return false
	}
	before := s.bits.Count()
	s.bits.InPlaceUnion(t.bits)
	return s.bits.Count() != before
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return int(s.bits.Count())
}

// IDs returns the members in ascending order.
func (s *Set) IDs() []ID {
	if s == nil {
		return nil
	}
	ids := make([]ID, 0, s.bits.Count())
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		ids = append(ids, ID(i))
	}
	return ids
}

func (s *Set) Clone() *Set {
	return &Set{
		bits: s.bits.Clone(),
	}
}

func (s *Set) Equal(t *Set) bool {
	if s.Len() != t.Len() {
		return false
	}
	for _, id := range s.IDs() {
		if !t.Contains(id) {
			return false
		}
	}
	return true
}

func (s *Set) String() string {
	var b strings.Builder
	fmt.Fprint(&b, "{")
	for i, id := range s.IDs() {
		if i > 0 {
			fmt.Fprint(&b, ", ")
		}
		fmt.Fprint(&b, id)
	}
	fmt.Fprint(&b, "}")
	return b.String()
}
