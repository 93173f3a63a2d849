// Deep matching (spec.md §4.7): an exhaustive backtracking search over
// every combination of candidate positions for a query's values,
// unlike Group's first-fit greedy approach. It exists for the case
// Group can get wrong: a query with duplicate values (e.g. two
// Dword(5) entries) where the first candidate position claimed for
// one value happens to be the only position that would have let the
// other value match too. Deep tries every assignment, up to a
// configurable cap, before giving up on a window.
//
// original_source references a Rust DFS implementation
// (search_region_group_deep / search_in_buffer_group_deep /
// refine_search_group_with_dfs in .../engine/manager.rs) but its
// source was not present in group_search.rs or anywhere else in the
// retrieved tree (confirmed by grep), so this is built from spec.md
// §4.7's prose and the duplicate-value scenarios its deep-search
// tests describe, in the same backtracking shape group.go already
// establishes.
package scan

import (
	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
)

// DeepOptions bounds the cost of an exhaustive deep search.
type DeepOptions struct {
	// MaxCombinations is the maximum number of assignment attempts
	// considered per window before deep search gives up on it and
	// moves to the next anchor candidate. Spec.md §9 leaves the
	// default unspecified; SPEC_FULL.md fixes it at 100000.
	MaxCombinations int
}

// DefaultMaxCombinations is the work cap applied when a caller doesn't
// configure one explicitly.
const DefaultMaxCombinations = 100000

// Deep returns a chunkreader.ScanFunc implementing exhaustive deep
// matching for q.
func Deep(q *query.Query, opts DeepOptions, results *resultset.Set) func(buf []byte, bufAddr region.Address, regionLo, regionHi region.Address, status *pagebitmap.Bitmap) {
	cap := opts.MaxCombinations
	if cap <= 0 {
		cap = DefaultMaxCombinations
	}
	first := q.Values[0]
	width0 := first.Type().Size()

	return func(buf []byte, bufAddr region.Address, regionLo, regionHi region.Address, status *pagebitmap.Bitmap) {
		var anchors []int
		if pattern, ok := first.AnchorBytes(); ok {
			anchors = anchorPositions(buf, pattern)
		} else {
			anchors = alignedPositions(len(buf), width0, q.MinValueSize())
		}

		for _, off0 := range anchors {
			addr0 := bufAddr.Add(int64(off0))
			if addr0 < regionLo || addr0.Add(int64(width0)) > regionHi {
				continue
			}
			if !aligned(addr0, width0) {
				continue
			}
			if !readable(status, addr0, width0) {
				continue
			}
			if !first.Matches(buf[off0 : off0+width0]) {
				continue
			}

			windowEnd := addr0.Add(int64(q.Window()))
			if windowEnd > regionHi {
				windowEnd = regionHi
			}
			// Unordered values may also lie up to Window() bytes before
			// the anchor, clipped to the buffer and the region.
			windowStart := addr0
			if q.Mode != query.Ordered {
				windowStart = bufAddr
				if off0 > int(q.Window()) {
					windowStart = addr0.Add(-int64(q.Window()))
				}
				if windowStart < regionLo {
					windowStart = regionLo
				}
			}

			candidates := make([][]int, len(q.Values))
			candidates[0] = []int{off0}
			ok := true
			for i := 1; i < len(q.Values); i++ {
				v := q.Values[i]
				w := v.Type().Size()
				var positions []int
				if pattern, ok2 := v.AnchorBytes(); ok2 {
					for _, p := range anchorPositions(buf, pattern) {
						addr := bufAddr.Add(int64(p))
						if addr < windowStart || addr.Add(int64(w)) > windowEnd {
							continue
						}
						if !aligned(addr, w) {
							continue
						}
						if readable(status, addr, w) && v.Matches(buf[p:p+w]) {
							positions = append(positions, p)
						}
					}
				} else {
					start := alignUpOffset(bufAddr, 0, w)
					for p := start; p+w <= len(buf); p += w {
						addr := bufAddr.Add(int64(p))
						if addr < windowStart || addr.Add(int64(w)) > windowEnd {
							continue
						}
						if readable(status, addr, w) && v.Matches(buf[p:p+w]) {
							positions = append(positions, p)
						}
					}
				}
				if len(positions) == 0 {
					ok = false
					break
				}
				candidates[i] = positions
			}
			if !ok {
				continue
			}

			assignment := make([]int, len(q.Values))
			assignment[0] = off0
			tried := 0
			var initOccupied []span
			if q.Mode != query.Ordered {
				initOccupied = []span{{off0, off0 + width0}}
			}
			emit := func(a []int) {
				pairs := make([]resultset.Pair, len(q.Values))
				for i, off := range a {
					pairs[i] = resultset.Pair{Addr: bufAddr.Add(int64(off)), Type: q.Values[i].Type()}
				}
				for _, p := range pairs {
					results.Insert(p)
				}
			}
			dfsAssign(q, candidates, assignment, 1, initOccupied, &tried, cap, emit)
		}
	}
}

// dfsAssign extends assignment (already filled for indices [0, idx))
// to cover the remaining values, backtracking over candidates[idx] at
// each step. idx may start at 0 (assignment entirely unfilled,
// occupied nil) when every value's candidates come from the same
// source, as Refine's restricted-candidate search does, or at 1 with
// assignment[0] pre-seeded by an anchor match, as Deep does. Unlike a
// first-fit search, it does not stop at the first complete assignment:
// spec.md §4.7 requires every valid combination to be emitted (e.g.
// memory [100,200,300,300] against query [100,200,300] must yield all
// four addresses, not three), so every branch that reaches idx ==
// len(q.Values) calls emit and the search backtracks to try the rest.
// For Ordered queries each chosen position must exceed the previous
// value's end offset; for Unordered it must merely not overlap any
// already-claimed span. tried counts attempts against cap across the
// whole recursion, so a pathological number of duplicate candidates
// can't make one window run unbounded.
func dfsAssign(q *query.Query, candidates [][]int, assignment []int, idx int, occupied []span, tried *int, cap int, emit func([]int)) {
	if idx == len(q.Values) {
		emit(assignment)
		return
	}
	v := q.Values[idx]
	w := v.Type().Size()

	var prevEnd int
	if q.Mode == query.Ordered && idx > 0 {
		prevWidth := q.Values[idx-1].Type().Size()
		prevEnd = assignment[idx-1] + prevWidth
	}

	for _, off := range candidates[idx] {
		*tried++
		if *tried > cap {
			return
		}
		if q.Mode == query.Ordered {
			if idx > 0 && off < prevEnd {
				continue
			}
		} else {
			s := span{off, off + w}
			conflict := false
			for _, o := range occupied {
				if overlaps(s, o) {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}
		}

		assignment[idx] = off
		var nextOccupied []span
		if q.Mode != query.Ordered {
			nextOccupied = append(append([]span{}, occupied...), span{off, off + w})
		}
		dfsAssign(q, candidates, assignment, idx+1, nextOccupied, tried, cap, emit)
	}
}
