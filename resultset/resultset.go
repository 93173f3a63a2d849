// Package resultset implements the ordered-by-address aggregate that
// the scanning core accumulates matches into (spec.md §3 ValuePair,
// §9 "Ordered set keyed by address").
//
// The Rust original keys a B+Tree (bplustree::BPlusTreeSet, see
// original_source/.../engine/manager.rs's ValuePair/Ord impl) purely
// by address, which silently collapses two distinct matches of
// different widths found at the same address. spec.md §9 leaves this
// as an open question; SPEC_FULL.md resolves it in favor of keying by
// (addr, type) so no real match is ever dropped — see DESIGN.md. A
// plain sorted slice with binary-search insert gives the same
// ordered-enumeration/cheap-removal properties spec.md asks for
// ("any equivalent balanced tree or sorted-array-with-deletion-
// tombstones works") without needing a third-party B+Tree package.
package resultset

import (
	"sort"

	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/value"
)

// Pair is a single matched value: its address and the type it matched
// as. Ordered by (Addr, Type).
type Pair struct {
	Addr region.Address
	Type value.Type
}

func less(a, b Pair) bool {
	if a.Addr != b.Addr {
		return a.Addr < b.Addr
	}
	return a.Type < b.Type
}

// Set is an ordered, deduplicated collection of Pairs.
type Set struct {
	items []Pair
}

// New returns an empty Set.
func New() *Set {
	return &Set{}
}

func (s *Set) search(p Pair) int {
	return sort.Search(len(s.items), func(i int) bool {
		return !less(s.items[i], p)
	})
}

// Insert adds p to the set if not already present. It returns true if
// the set changed.
func (s *Set) Insert(p Pair) bool {
	i := s.search(p)
	if i < len(s.items) && s.items[i] == p {
		return false
	}
	s.items = append(s.items, Pair{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = p
	return true
}

// Merge inserts every pair from other into s, preserving order and
// deduplicating. Merge order does not affect the result (spec.md §5:
// "merge order does not affect correctness").
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, p := range other.items {
		s.Insert(p)
	}
}

// Len returns the number of distinct pairs in the set.
func (s *Set) Len() int {
	return len(s.items)
}

// At returns the i'th pair in ascending order.
func (s *Set) At(i int) Pair {
	return s.items[i]
}

// Slice returns the pairs in ascending order starting at `start` for
// up to `size` items, matching the get_results(start, size) facade
// operation.
func (s *Set) Slice(start, size int) []Pair {
	if start < 0 || start >= len(s.items) || size <= 0 {
		return nil
	}
	end := start + size
	if end > len(s.items) {
		end = len(s.items)
	}
	out := make([]Pair, end-start)
	copy(out, s.items[start:end])
	return out
}

// All returns every pair in ascending order.
func (s *Set) All() []Pair {
	out := make([]Pair, len(s.items))
	copy(out, s.items)
	return out
}

// RemoveAt removes the pair at ascending-order index i.
func (s *Set) RemoveAt(i int) {
	if i < 0 || i >= len(s.items) {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
}

// RemoveIndices removes every pair whose ascending-order index
// appears in indices, handling duplicate/unsorted indices safely.
func (s *Set) RemoveIndices(indices []int) {
	if len(indices) == 0 {
		return
	}
	doomed := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(s.items) {
			doomed[i] = true
		}
	}
	kept := s.items[:0]
	for i, p := range s.items {
		if !doomed[i] {
			kept = append(kept, p)
		}
	}
	s.items = kept
}

// Clear empties the set.
func (s *Set) Clear() {
	s.items = nil
}
