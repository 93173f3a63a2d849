// Package pagebitmap implements PageStatusBitmap (spec.md §3, §4.1):
// per-page read-success tracking inside one chunk buffer.
//
// Grounded on core.Mapping/core.Perm's bitset-over-pages style
// (golang.org/x/debug/core/mapping.go uses a 4-level page table for
// mapping lookups); this is the much simpler flat bitmap a single
// chunk needs, and on original_source's PageStatusBitmap used
// throughout group_search.rs (mark_success/is_page_success/
// get_success_page_ranges).
package pagebitmap

import "github.com/fuqiuluo/memscan/region"

// Bitmap tracks, for one read of `length` bytes starting at baseAddr,
// which of the pages it spans were read successfully.
type Bitmap struct {
	baseAddr region.Address
	numPages int
	success  []bool
}

// New constructs a Bitmap covering the pages touched by a read of
// length bytes starting at baseAddr, indexed from the page containing
// baseAddr (index 0). The number of pages is
// ceil((baseAddr % PAGE + length) / PAGE), matching spec.md §4.1.
func New(length int, baseAddr region.Address) *Bitmap {
	pageSize := region.PageSize()
	offsetInPage := int64(uint64(baseAddr) % uint64(pageSize))
	numPages := int((offsetInPage + int64(length) + pageSize - 1) / pageSize)
	if numPages < 1 {
		numPages = 1
	}
	return &Bitmap{
		baseAddr: region.PageAlign(baseAddr),
		numPages: numPages,
		success:  make([]bool, numPages),
	}
}

// NumPages returns the number of pages tracked.
func (b *Bitmap) NumPages() int {
	return b.numPages
}

// BasePageAddr returns the address of the start of page 0.
func (b *Bitmap) BasePageAddr() region.Address {
	return b.baseAddr
}

// MarkSuccess marks page i as successfully read.
func (b *Bitmap) MarkSuccess(i int) {
	if i < 0 || i >= b.numPages {
		return
	}
	b.success[i] = true
}

// MarkAllSuccess marks every page successful, e.g. for a reader that
// doesn't distinguish per-page status but reports the whole read ok.
func (b *Bitmap) MarkAllSuccess() {
	for i := range b.success {
		b.success[i] = true
	}
}

// IsSuccess reports whether page i was read successfully.
func (b *Bitmap) IsSuccess(i int) bool {
	if i < 0 || i >= b.numPages {
		return false
	}
	return b.success[i]
}

// SuccessCount returns the number of pages marked successful.
func (b *Bitmap) SuccessCount() int {
	n := 0
	for _, ok := range b.success {
		if ok {
			n++
		}
	}
	return n
}

// PageRange is a coalesced half-open interval of page indices, all
// successful.
type PageRange struct {
	Start, End int // [Start, End) in page index units
}

// SuccessRanges returns the successful page indices coalesced into
// half-open intervals, in ascending order. Callers translate a range
// to an absolute byte range as
// BasePageAddr() + index*PageSize, for index in [Start, End).
func (b *Bitmap) SuccessRanges() []PageRange {
	var ranges []PageRange
	inRun := false
	var start int
	for i := 0; i < b.numPages; i++ {
		if b.success[i] {
			if !inRun {
				start = i
				inRun = true
			}
		} else if inRun {
			ranges = append(ranges, PageRange{Start: start, End: i})
			inRun = false
		}
	}
	if inRun {
		ranges = append(ranges, PageRange{Start: start, End: b.numPages})
	}
	return ranges
}

// Contains reports whether absolute address a falls within any
// successful page of this bitmap.
func (b *Bitmap) Contains(a region.Address) bool {
	pageSize := region.PageSize()
	for _, r := range b.SuccessRanges() {
		lo := b.baseAddr.Add(int64(r.Start) * pageSize)
		hi := b.baseAddr.Add(int64(r.End) * pageSize)
		if a >= lo && a < hi {
			return true
		}
	}
	return false
}
