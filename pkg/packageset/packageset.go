// Package packageset implements the sack's bitmap-backed package id set:
// cloneable and closed under union, intersection, difference and subtract.
//
// Backed by github.com/bits-and-blooms/bitset (already pulled in
// transitively by the pack through purpleidea/mgmt's nftables dependency)
// rather than a hand-rolled []uint64 word array: it gives us a tested,
// auto-growing word vector and Rank/Select-style iteration for free.
package packageset

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/solvable-go/dnfcore/pkg/pool"
)

// Set is a fixed-width (but auto-growing) bitmap of solvable ids.
type Set struct {
	bits *bitset.BitSet
}

// New returns an empty Set.
func New() *Set {
	return &Set{bits: bitset.New(0)}
}

// FromIDs returns a Set containing exactly the given ids.
func FromIDs(ids ...pool.ID) *Set {
	s := New()
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add sets id's bit.
func (s *Set) Add(id pool.ID) {
	s.bits.Set(uint(id))
}

// Remove clears id's bit.
func (s *Set) Remove(id pool.ID) {
	s.bits.Clear(uint(id))
}

// Has reports whether id's bit is set.
func (s *Set) Has(id pool.ID) bool {
	return s.bits.Test(uint(id))
}

// Len returns the number of set bits (the set's cardinality).
func (s *Set) Len() int {
	return int(s.bits.Count())
}

// Empty reports whether the set has no members.
func (s *Set) Empty() bool {
	return s.bits.None()
}

// Each calls f for every id in ascending order. Iteration stops early if
// f returns false.
func (s *Set) Each(f func(pool.ID) bool) {
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		if !f(pool.ID(i)) {
			return
		}
	}
}

// ToSlice materialises the set's members in ascending order.
func (s *Set) ToSlice() []pool.ID {
	out := make([]pool.ID, 0, s.Len())
	s.Each(func(id pool.ID) bool {
		out = append(out, id)
		return true
	})
	return out
}

// Clone returns an independent deep copy.
func (s *Set) Clone() *Set {
	return &Set{bits: s.bits.Clone()}
}

// Union returns a new Set containing members of either s or other.
func (s *Set) Union(other *Set) *Set {
	return &Set{bits: s.bits.Union(other.bits)}
}

// Intersection returns a new Set containing members of both s and other.
func (s *Set) Intersection(other *Set) *Set {
	return &Set{bits: s.bits.Intersection(other.bits)}
}

// Difference returns a new Set containing members of s that are not in
// other.
func (s *Set) Difference(other *Set) *Set {
	return &Set{bits: s.bits.Difference(other.bits)}
}

// UnionInPlace mutates s to contain members of either s or other.
func (s *Set) UnionInPlace(other *Set) {
	s.bits.InPlaceUnion(other.bits)
}

// IntersectionInPlace mutates s to contain only members also in other.
func (s *Set) IntersectionInPlace(other *Set) {
	s.bits.InPlaceIntersection(other.bits)
}

// SubtractInPlace mutates s to remove every member present in other. This
// is the "subtract" operation distinct from Difference only in that it
// mutates rather than allocates.
func (s *Set) SubtractInPlace(other *Set) {
	s.bits.InPlaceDifference(other.bits)
}

// Equal reports whether s and other contain the same ids.
func (s *Set) Equal(other *Set) bool {
	return s.bits.Equal(other.bits)
}
