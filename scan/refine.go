// Refine implements the narrowing pass spec.md §4.8 calls refine_search:
// given a previously-found result set and an updated query, re-read
// around each retained address and keep only the addresses that still
// satisfy the new query. This is the classic "next scan" step of a
// value search (first scan: find candidates broadly, then narrow by
// re-testing against a tighter condition).
//
// Grounded on original_source/.../search/engine/manager.rs's
// refine_search, which re-reads each previous match rather than
// re-scanning whole regions, and on reader.Reader as the only memory
// access primitive available to it.
package scan

import (
	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/reader"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/value"
)

// Refine re-evaluates prev against q without rescanning whole regions
// (spec.md §4.8). Single-value queries use a fast direct predicate
// against each retained address in isolation. Multi-value queries
// delegate to refineGroup, which runs the group matcher's DFS helper
// over each retained address's neighbourhood.
func Refine(rdr reader.Reader, prev *resultset.Set, q *query.Query) (*resultset.Set, error) {
	if q.IsSingle() {
		return refineSingle(rdr, prev, q.Values[0])
	}
	return refineGroup(rdr, prev, q)
}

func refineSingle(rdr reader.Reader, prev *resultset.Set, desc value.Descriptor) (*resultset.Set, error) {
	out := resultset.New()
	width := desc.Type().Size()
	for _, pair := range prev.All() {
		if pair.Type != desc.Type() {
			continue
		}
		buf := make([]byte, width)
		status := pagebitmap.New(width, pair.Addr)
		if err := rdr.Read(pair.Addr, buf, status); err != nil {
			continue
		}
		if !readable(status, pair.Addr, width) {
			continue
		}
		if desc.Matches(buf) {
			out.Insert(pair)
		}
	}
	return out, nil
}

// refineGroup re-reads max(size(values))+range bytes starting at each
// retained address and searches that window for a valid assignment of
// q's values, exactly as deep.go's Deep scanner does, except that the
// candidate positions for each value are restricted to the *other*
// retained addresses that fall inside the window rather than every
// aligned offset: refine is narrowing addresses the original scan
// already found, not discovering new ones, so the DFS helper
// (dfsAssign, shared with Deep) only ever has to consider neighbouring
// retained addresses as candidates.
func refineGroup(rdr reader.Reader, prev *resultset.Set, q *query.Query) (*resultset.Set, error) {
	out := resultset.New()
	all := prev.All()
	windowLen := maxValueSize(q) + int(q.Range)
	if windowLen <= 0 {
		return out, nil
	}

	for _, anchor := range all {
		buf := make([]byte, windowLen)
		status := pagebitmap.New(windowLen, anchor.Addr)
		if err := rdr.Read(anchor.Addr, buf, status); err != nil {
			continue
		}
		windowEnd := anchor.Addr.Add(int64(windowLen))

		candidates := make([][]int, len(q.Values))
		ok := true
		for i, v := range q.Values {
			w := v.Type().Size()
			var positions []int
			for _, n := range all {
				if n.Addr < anchor.Addr || n.Addr >= windowEnd {
					continue
				}
				if !aligned(n.Addr, w) {
					continue
				}
				off := int(n.Addr.Sub(anchor.Addr))
				if off+w > len(buf) {
					continue
				}
				if !readable(status, n.Addr, w) {
					continue
				}
				if v.Matches(buf[off : off+w]) {
					positions = append(positions, off)
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
		tried := 0
		emit := func(a []int) {
			for i, off := range a {
				out.Insert(resultset.Pair{Addr: anchor.Addr.Add(int64(off)), Type: q.Values[i].Type()})
			}
		}
		dfsAssign(q, candidates, assignment, 0, nil, &tried, DefaultMaxCombinations, emit)
	}
	return out, nil
}

func maxValueSize(q *query.Query) int {
	max := 0
	for _, v := range q.Values {
		if s := v.Type().Size(); s > max {
			max = s
		}
	}
	return max
}
