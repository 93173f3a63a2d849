package scan_test

import (
	"testing"

	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/scan"
	"github.com/fuqiuluo/memscan/value"
)

func fullyReadableStatus(bufLen int, bufAddr region.Address) *pagebitmap.Bitmap {
	b := pagebitmap.New(bufLen, bufAddr)
	b.MarkAllSuccess()
	return b
}

func TestGroupOrderedFindsContiguousSequence(t *testing.T) {
	buf := make([]byte, 32)
	// byte 1 at offset 0, dword 99 at offset 4 (the next Dword-aligned
	// offset after the byte match, per spec.md §4.6's cursor stepping).
	buf[0] = 1
	buf[4], buf[5], buf[6], buf[7] = 99, 0, 0, 0

	q := &query.Query{
		Values: []value.Descriptor{
			value.NewFixedInt(1, value.Byte),
			value.NewFixedInt(99, value.Dword),
		},
		Mode:  query.Ordered,
		Range: 16,
	}
	results := resultset.New()
	status := fullyReadableStatus(len(buf), 0)
	scan.Group(q, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 2 {
		t.Fatalf("expected 2 pairs (one per value), got %d: %+v", results.Len(), results.All())
	}
	if results.At(0).Addr != 0 || results.At(1).Addr != 4 {
		t.Errorf("got %+v, want matches at offsets 0 and 4", results.All())
	}
}

// Both tests place a Word(7) before the Dword(99) that the query lists
// first among the trailing values, so ordered matching (which demands
// each value appear strictly after the previous one in list order)
// and unordered matching (which only demands non-overlapping
// positions) disagree on whether this window is a match. Word(7) and
// Dword(99) each sit at an offset aligned to their own size (spec.md
// §8 invariant 6).
func groupOrderQuery(mode query.Mode) (*query.Query, []byte) {
	buf := make([]byte, 32)
	buf[0] = 1                                   // anchor: Byte(1)
	buf[4], buf[5] = 7, 0                         // Word(7) at offset 4
	buf[8], buf[9], buf[10], buf[11] = 99, 0, 0, 0 // Dword(99) at offset 8

	return &query.Query{
		Values: []value.Descriptor{
			value.NewFixedInt(1, value.Byte),
			value.NewFixedInt(99, value.Dword),
			value.NewFixedInt(7, value.Word),
		},
		Mode:  mode,
		Range: 32,
	}, buf
}

func TestGroupOrderedRejectsOutOfOrder(t *testing.T) {
	q, buf := groupOrderQuery(query.Ordered)
	results := resultset.New()
	status := fullyReadableStatus(len(buf), 0)
	scan.Group(q, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 0 {
		t.Errorf("ordered query should not match when listed-order values are out of order in memory, got %+v", results.All())
	}
}

func TestGroupUnorderedAcceptsAnyOrder(t *testing.T) {
	q, buf := groupOrderQuery(query.Unordered)
	results := resultset.New()
	status := fullyReadableStatus(len(buf), 0)
	scan.Group(q, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 3 {
		t.Errorf("unordered query should match regardless of relative order, got %+v", results.All())
	}
}

func TestGroupRespectsUnreadablePages(t *testing.T) {
	pageSize := int(region.PageSize())
	buf := make([]byte, pageSize*2)
	buf[10] = 1
	buf[pageSize+10] = 2

	q := &query.Query{
		Values: []value.Descriptor{
			value.NewFixedInt(1, value.Byte),
			value.NewFixedInt(2, value.Byte),
		},
		Mode:  query.Unordered,
		Range: uint32(pageSize * 2),
	}
	status := pagebitmap.New(len(buf), 0)
	status.MarkSuccess(0) // page 1 left unmarked: unreadable
	results := resultset.New()
	scan.Group(q, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 0 {
		t.Errorf("match requiring an unreadable page should not be reported, got %+v", results.All())
	}
}
