// Package query implements the Query data model of spec.md §3: an
// ordered list of value.Descriptor, a match Mode, and a byte window
// (Range), plus the validation spec.md §7 requires before a scan runs
// (EmptyQuery, RangeTooSmall).
//
// Grounded on original_source/app/src/main/rust/src/search/types.rs's
// SearchQuery (visible through its call sites in
// .../engine/group_search.rs and .../engine/manager.rs: `query.values`,
// `query.mode`, `query.range`).
package query

import (
	"errors"
	"fmt"

	"github.com/fuqiuluo/memscan/value"
)

// Mode selects whether query values must appear in list order in
// memory (Ordered) or merely all be present somewhere in the window
// (Unordered).
type Mode uint8

const (
	Ordered Mode = iota
	Unordered
)

func (m Mode) String() string {
	if m == Ordered {
		return "Ordered"
	}
	return "Unordered"
}

// Query is a single typed value or an ordered/unordered group of
// values constrained to lie within Range bytes of each other.
type Query struct {
	Values []value.Descriptor
	Mode   Mode
	Range  uint32 // bytes
}

// ErrEmptyQuery is returned when a Query has zero values (spec.md §7).
var ErrEmptyQuery = errors.New("memscan: empty query")

// ErrRangeTooSmall is returned when a group query's Range is smaller
// than the sum of its values' sizes (spec.md §7).
var ErrRangeTooSmall = errors.New("memscan: range too small for query values")

// Validate refuses queries that cannot possibly match, per spec.md §7:
// EmptyQuery when there are no values, RangeTooSmall when a
// multi-value query's window can't fit all values. Single-value
// queries ignore Range (spec.md §3: "the implementation may
// specialise to a single-value scan that ignores range").
func (q *Query) Validate() error {
	if len(q.Values) == 0 {
		return ErrEmptyQuery
	}
	if len(q.Values) == 1 {
		return nil
	}
	if uint32(q.TotalSize()) > q.Range {
		return fmt.Errorf("%w: range=%d total_size=%d", ErrRangeTooSmall, q.Range, q.TotalSize())
	}
	return nil
}

// TotalSize returns the sum of the byte sizes of all values in order.
func (q *Query) TotalSize() int {
	total := 0
	for _, v := range q.Values {
		total += v.Type().Size()
	}
	return total
}

// MinValueSize returns the smallest value size among the query's
// values, used as the alignment stride for the fallback scanner.
func (q *Query) MinValueSize() int {
	min := q.Values[0].Type().Size()
	for _, v := range q.Values[1:] {
		if s := v.Type().Size(); s < min {
			min = s
		}
	}
	return min
}

// Window returns the byte span a single match must fit within: the
// larger of the query's declared Range and the sum of its value
// sizes (spec.md §4.4).
func (q *Query) Window() uint64 {
	total := uint64(q.TotalSize())
	if uint64(q.Range) > total {
		return uint64(q.Range)
	}
	return total
}

// IsSingle reports whether this is a single-value query, which may be
// specialised to ignore Range and Mode.
func (q *Query) IsSingle() bool {
	return len(q.Values) == 1
}
