// Package chunkreader implements the sliding chunk driver of spec.md
// §4.3 (scan_region): a double-buffered, page-fault-aware reader that
// walks a region chunk by chunk, carrying a `range`-byte overlap
// across chunk boundaries so no group match that straddles a chunk
// boundary is missed — and is never double-counted, because the
// result set the scanner feeds is keyed by absolute address.
//
// Grounded on golang.org/x/debug's internal/core read path for the
// "faithful copy of readable bytes, unspecified otherwise" contract
// (internal/core/process.go's Process.Readable/ReadableN), and on
// original_source/app/src/main/rust/src/search/engine/group_search.rs's
// search_region_group, which is the direct model for the double-buffer
// slide, the is_first_chunk/prev_chunk_valid state machine, and the
// overlap-view construction.
package chunkreader

import (
	"errors"
	"fmt"

	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/reader"
	"github.com/fuqiuluo/memscan/region"
)

// ErrOverlapExceedsChunk is returned when a group query's window
// (spec.md's `range`) is larger than the configured chunk size: the
// double buffer cannot carry that much overlap. Single-value scans
// have no overlap requirement and never hit this (spec.md §4.3).
var ErrOverlapExceedsChunk = errors.New("chunkreader: query range exceeds chunk size")

// ScanFunc is invoked once per scanned buffer: buf is the bytes to
// search, bufAddr is the absolute address buf[0] corresponds to, and
// status reports which pages within buf were actually read. regionLo
// and regionHi bound the region being scanned, so the scan function
// can discard matches that fall outside it even though their bytes
// were read (spec.md §4.3 edge conditions).
type ScanFunc func(buf []byte, bufAddr region.Address, regionLo, regionHi region.Address, status *pagebitmap.Bitmap)

// ScanRegion drives rdr over reg in chunkSize-byte pieces, calling
// scan for every chunk (or overlap view) that had at least one
// successfully-read page. overlap is the number of trailing bytes of
// each chunk that must be preserved for the next chunk's boundary
// check — callers pass 0 for single-value queries and the query's
// Window() for group queries.
func ScanRegion(rdr reader.Reader, reg region.Region, chunkSize int, overlap uint64, scan ScanFunc) error {
	if overlap > uint64(chunkSize) {
		return fmt.Errorf("%w: range=%d chunk_size=%d", ErrOverlapExceedsChunk, overlap, chunkSize)
	}

	start, end := reg.Start, reg.End
	if start >= end {
		return nil
	}

	buf := make([]byte, 2*chunkSize)
	current := region.PageAlign(start)

	isFirst := true
	prevValid := false
	var prevStatus *pagebitmap.Bitmap
	var prevChunkAddr region.Address

	for current < end {
		chunkEndI64 := current.Add(int64(chunkSize))
		chunkEnd := chunkEndI64
		if chunkEnd > end {
			chunkEnd = end
		}
		length := int(chunkEnd.Sub(current))

		status := pagebitmap.New(length, current)
		readErr := rdr.Read(current, buf[chunkSize:chunkSize+length], status)

		if readErr == nil && status.SuccessCount() > 0 {
			switch {
			case isFirst:
				scan(buf[chunkSize:chunkSize+length], current, start, end, status)
				isFirst = false
			case prevValid:
				scanOverlap(scan, buf, chunkSize, current, length, overlap, prevStatus, prevChunkAddr, status, start, end)
			default:
				scan(buf[chunkSize:chunkSize+length], current, start, end, status)
			}
			prevValid = true
		} else {
			prevValid = false
		}

		prevStatus = status
		prevChunkAddr = current

		if chunkEnd < end {
			copy(buf[0:length], buf[chunkSize:chunkSize+length])
		}
		current = chunkEnd
	}
	return nil
}

// scanOverlap builds the overlap view spec.md §4.3 describes: the
// trailing `overlap` bytes of the previous chunk (now sitting at the
// tail of the buffer's first half) plus the whole of the current
// chunk, with a synthetic page-status bitmap.
//
// Unlike a blanket "the overlap prefix is always successful" marking
// (which would be unsound if the previous chunk had an undetected
// fault near its very end — spec.md §9's third open question), this
// re-derives success for the overlap prefix from the previous chunk's
// own recorded page statuses, restricted to the bytes actually being
// carried forward.
func scanOverlap(
	scan ScanFunc,
	buf []byte,
	chunkSize int,
	current region.Address,
	length int,
	overlap uint64,
	prevStatus *pagebitmap.Bitmap,
	prevChunkAddr region.Address,
	status *pagebitmap.Bitmap,
	regionLo, regionHi region.Address,
) {
	overlapStartOffset := chunkSize - int(overlap)
	overlapStartAddr := current.Add(-int64(overlap))
	overlapLen := int(overlap) + length

	combined := pagebitmap.New(overlapLen, overlapStartAddr)
	pageSize := region.PageSize()

	// Carry forward only the bytes of the previous chunk that were
	// actually marked successful, restricted to [overlapStartAddr, current).
	if prevStatus != nil {
		for _, r := range prevStatus.SuccessRanges() {
			lo := prevStatus.BasePageAddr().Add(int64(r.Start) * pageSize)
			hi := prevStatus.BasePageAddr().Add(int64(r.End) * pageSize)
			if lo < overlapStartAddr {
				lo = overlapStartAddr
			}
			if hi > current {
				hi = current
			}
			if lo >= hi {
				continue
			}
			markRange(combined, lo, hi, pageSize)
		}
	}
	_ = prevChunkAddr

	// Map this chunk's own status onto the combined bitmap.
	for i := 0; i < status.NumPages(); i++ {
		if !status.IsSuccess(i) {
			continue
		}
		pageAddr := status.BasePageAddr().Add(int64(i) * pageSize)
		markRange(combined, pageAddr, pageAddr.Add(pageSize), pageSize)
	}

	scan(buf[overlapStartOffset:chunkSize+length], overlapStartAddr, regionLo, regionHi, combined)
}

// markRange marks every page of b touched by [lo, hi) as successful.
func markRange(b *pagebitmap.Bitmap, lo, hi region.Address, pageSize int64) {
	base := b.BasePageAddr()
	startPage := int(lo.Sub(base) / pageSize)
	endPage := int((hi.Sub(base) - 1) / pageSize)
	for p := startPage; p <= endPage; p++ {
		b.MarkSuccess(p)
	}
}
