// Package resultstore is the facade spec.md §4.9 describes over a
// resultset.Set: clear/add_results_batch/get_results/
// get_all_exact_results/total_count/remove_result/remove_results_batch.
// It has a single exact mode: there is no Exact/Fuzzy mode switch and
// no stored last-known value bytes. It also has
// the address-range and value-type filter of §4.10 applied only
// at enumeration time (the underlying set always holds every match
// ever inserted).
//
// Grounded on original_source/.../search/engine/manager.rs, which
// wraps its BPlusTreeSet the same way: a thin, mutex-guarded facade
// the JNI layer calls into, with filtering applied when results are
// paged out rather than when they're stored.
package resultstore

import (
	"sync"

	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/value"
)

// Filter narrows which pairs GetResults/GetAllExact enumerate. A zero
// Filter matches everything.
type Filter struct {
	// HasRange restricts enumeration to [Lo, Hi).
	HasRange bool
	Lo, Hi   region.Address

	// HasType restricts enumeration to a single value.Type.
	HasType bool
	Type    value.Type
}

func (f Filter) matches(p resultset.Pair) bool {
	if f.HasRange && (p.Addr < f.Lo || p.Addr >= f.Hi) {
		return false
	}
	if f.HasType && p.Type != f.Type {
		return false
	}
	return true
}

// Store is a concurrency-safe facade over an ordered resultset.Set.
type Store struct {
	mu     sync.RWMutex
	set    *resultset.Set
	filter Filter
}

// New returns an empty Store.
func New() *Store {
	return &Store{set: resultset.New()}
}

// Clear discards every stored result and resets the filter.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Clear()
	s.filter = Filter{}
}

// AddResultsBatch merges pairs into the store.
func (s *Store) AddResultsBatch(pairs []resultset.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.set.Insert(p)
	}
}

// Replace discards all stored results and replaces them with other's
// contents, used after a refine pass narrows a previous result set.
func (s *Store) Replace(other *resultset.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = other
}

// SetFilter installs a new enumeration filter.
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// ClearFilter removes any installed filter.
func (s *Store) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = Filter{}
}

// GetResults returns up to size filtered pairs, skipping the first
// start filtered matches (spec.md §4.9's paging facade).
func (s *Store) GetResults(start, size int) []resultset.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == (Filter{}) {
		return s.set.Slice(start, size)
	}
	var out []resultset.Pair
	skipped := 0
	for i := 0; i < s.set.Len() && len(out) < size; i++ {
		p := s.set.At(i)
		if !s.filter.matches(p) {
			continue
		}
		if skipped < start {
			skipped++
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetAllExact returns every pair whose type matches one of the given
// types, ignoring any installed filter (spec.md §4.9's
// get_all_exact_results, used by the UI's "show every hit of this
// type" view).
func (s *Store) GetAllExact(types ...value.Type) []resultset.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[value.Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []resultset.Pair
	for _, p := range s.set.All() {
		if want[p.Type] {
			out = append(out, p)
		}
	}
	return out
}

// TotalCount returns the number of pairs matching the installed
// filter.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == (Filter{}) {
		return s.set.Len()
	}
	n := 0
	for i := 0; i < s.set.Len(); i++ {
		if s.filter.matches(s.set.At(i)) {
			n++
		}
	}
	return n
}

// RemoveResult removes a single pair.
func (s *Store) RemoveResult(p resultset.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.set.All()
	for i, existing := range all {
		if existing == p {
			s.set.RemoveAt(i)
			return
		}
	}
}

// RemoveResultsBatch removes every pair in ps.
func (s *Store) RemoveResultsBatch(ps []resultset.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doomed := make(map[resultset.Pair]bool, len(ps))
	for _, p := range ps {
		doomed[p] = true
	}
	var indices []int
	for i, p := range s.set.All() {
		if doomed[p] {
			indices = append(indices, i)
		}
	}
	s.set.RemoveIndices(indices)
}

// Snapshot returns the underlying set's contents, for feeding into a
// refine pass.
func (s *Store) Snapshot() *resultset.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := resultset.New()
	snap.Merge(s.set)
	return snap
}
