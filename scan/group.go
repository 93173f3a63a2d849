// Group matching (spec.md §4.6): a fast, non-exhaustive pass that
// finds the first value's anchor position and then greedily locates
// the remaining values within the query's window, either strictly
// increasing in address (Ordered) or anywhere unused in the window
// (Unordered). It trades completeness for speed: when two candidate
// queries could both satisfy a window but differ only in which
// duplicate value claims which position, group matching reports
// whichever it finds first. Deep (deep.go) exists for callers that
// need every combination.
//
// Grounded on original_source/.../search/engine/group_search.rs's
// try_match_ordered/try_match_unordered, which use the same
// first-fit strategy.
package scan

import (
	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/value"
)

type span struct{ start, end int }

func overlaps(a, b span) bool {
	return a.start < b.end && b.start < a.end
}

// Group returns a chunkreader.ScanFunc implementing a non-deep group
// match for q.
func Group(q *query.Query, results *resultset.Set) func(buf []byte, bufAddr region.Address, regionLo, regionHi region.Address, status *pagebitmap.Bitmap) {
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

			var pairs []resultset.Pair
			var ok bool
			if q.Mode == query.Ordered {
				pairs, ok = matchOrdered(q, buf, bufAddr, addr0, off0, width0, windowEnd, status)
			} else {
				// The unordered window reaches Window() bytes before the
				// anchor too, clipped to the buffer and the region.
				winStartOff := off0 - int(q.Window())
				if winStartOff < 0 {
					winStartOff = 0
				}
				if regionLo > bufAddr && winStartOff < int(regionLo.Sub(bufAddr)) {
					winStartOff = int(regionLo.Sub(bufAddr))
				}
				pairs, ok = matchUnordered(q, buf, bufAddr, off0, width0, winStartOff, windowEnd, status)
			}
			if ok {
				for _, p := range pairs {
					results.Insert(p)
				}
			}
		}
	}
}

func matchOrdered(q *query.Query, buf []byte, bufAddr, addr0 region.Address, off0, width0 int, windowEnd region.Address, status *pagebitmap.Bitmap) ([]resultset.Pair, bool) {
	pairs := []resultset.Pair{{Addr: addr0, Type: q.Values[0].Type()}}
	cursor := off0 + width0
	for _, v := range q.Values[1:] {
		w := v.Type().Size()
		pos := findFirstMatch(buf, bufAddr, v, cursor, windowEnd, w, status)
		if pos < 0 {
			return nil, false
		}
		pairs = append(pairs, resultset.Pair{Addr: bufAddr.Add(int64(pos)), Type: v.Type()})
		cursor = pos + w
	}
	return pairs, true
}

func matchUnordered(q *query.Query, buf []byte, bufAddr region.Address, off0, width0, winStartOff int, windowEnd region.Address, status *pagebitmap.Bitmap) ([]resultset.Pair, bool) {
	occupied := []span{{off0, off0 + width0}}
	pairs := []resultset.Pair{{Addr: bufAddr.Add(int64(off0)), Type: q.Values[0].Type()}}
	for _, v := range q.Values[1:] {
		w := v.Type().Size()
		pos := findFirstNonOverlapping(buf, bufAddr, v, winStartOff, windowEnd, w, status, occupied)
		if pos < 0 {
			return nil, false
		}
		occupied = append(occupied, span{pos, pos + w})
		pairs = append(pairs, resultset.Pair{Addr: bufAddr.Add(int64(pos)), Type: v.Type()})
	}
	return pairs, true
}

// findFirstMatch returns the lowest offset >= fromOff where desc
// matches, such that the full value fits before windowEnd, or -1.
func findFirstMatch(buf []byte, bufAddr region.Address, desc value.Descriptor, fromOff int, windowEnd region.Address, w int, status *pagebitmap.Bitmap) int {
	if pattern, ok := desc.AnchorBytes(); ok {
		if fromOff > len(buf) {
			return -1
		}
		for _, p := range anchorPositions(buf[fromOff:], pattern) {
			off := fromOff + p
			addr := bufAddr.Add(int64(off))
			if addr.Add(int64(w)) > windowEnd {
				break
			}
			if !aligned(addr, w) {
				continue
			}
			if readable(status, addr, w) && desc.Matches(buf[off:off+w]) {
				return off
			}
		}
		return -1
	}
	start := alignUpOffset(bufAddr, fromOff, w)
	for off := start; off+w <= len(buf); off += w {
		addr := bufAddr.Add(int64(off))
		if addr.Add(int64(w)) > windowEnd {
			break
		}
		if readable(status, addr, w) && desc.Matches(buf[off:off+w]) {
			return off
		}
	}
	return -1
}

// findFirstNonOverlapping is like findFirstMatch but searches from the
// window start and skips any offset overlapping an already-claimed span.
func findFirstNonOverlapping(buf []byte, bufAddr region.Address, desc value.Descriptor, fromOff int, windowEnd region.Address, w int, status *pagebitmap.Bitmap, occupied []span) int {
	try := func(off int) bool {
		s := span{off, off + w}
		for _, o := range occupied {
			if overlaps(s, o) {
				return false
			}
		}
		addr := bufAddr.Add(int64(off))
		return addr.Add(int64(w)) <= windowEnd && aligned(addr, w) && readable(status, addr, w) && desc.Matches(buf[off:off+w])
	}
	if pattern, ok := desc.AnchorBytes(); ok {
		for _, p := range anchorPositions(buf[fromOff:], pattern) {
			off := fromOff + p
			addr := bufAddr.Add(int64(off))
			if addr.Add(int64(w)) > windowEnd {
				break
			}
			if try(off) {
				return off
			}
		}
		return -1
	}
	start := alignUpOffset(bufAddr, fromOff, w)
	for off := start; off+w <= len(buf); off += w {
		addr := bufAddr.Add(int64(off))
		if addr.Add(int64(w)) > windowEnd {
			break
		}
		if try(off) {
			return off
		}
	}
	return -1
}
