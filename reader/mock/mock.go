// Package mock provides a deterministic in-process stand-in for the
// real memory reader (spec.md §2 item 15), used by the package's own
// tests and by anyone exercising the scanning core without a live
// target. It supports injecting faulty pages so the fault-tolerance
// paths (spec.md §8 scenario S6) are testable without a real process.
//
// Grounded on original_source's MockMemory helper, referenced
// throughout .../search/tests/group_search_tests.rs and
// deep_search_tests.rs via malloc/mem_write_u32/mem_read_with_status/
// set_faulty_pages; its own source wasn't retrieved, so this is
// rebuilt from those call sites in idiomatic Go.
package mock

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/reader"
	"github.com/fuqiuluo/memscan/region"
)

type allocation struct {
	base region.Address
	data []byte
}

// Memory is a flat, page-aware simulation of a target process's
// address space: a set of backing allocations plus a set of page
// indices (relative to an allocation's base) deliberately marked as
// unreadable.
type Memory struct {
	allocs      []*allocation
	faultyPages map[region.Address]map[int]bool // allocation base -> page index -> faulty
}

// New creates an empty mock address space.
func New() *Memory {
	return &Memory{
		faultyPages: make(map[region.Address]map[int]bool),
	}
}

// Malloc simulates allocating size bytes of zeroed, readable memory
// and returns the base address. hint is used verbatim as the base
// address (the mock never relocates), matching MockMemory::malloc's
// use as seen in the Rust tests (mem.malloc(0x7000000000, 64*1024)).
func (m *Memory) Malloc(hint uint64, size int) (region.Address, error) {
	if size <= 0 {
		return 0, fmt.Errorf("mock: malloc size must be positive, got %d", size)
	}
	base := region.Address(hint)
	m.allocs = append(m.allocs, &allocation{base: base, data: make([]byte, size)})
	return base, nil
}

func (m *Memory) findAlloc(addr region.Address, n int) (*allocation, int, error) {
	for _, a := range m.allocs {
		if addr >= a.base && int(addr.Sub(a.base))+n <= len(a.data) {
			return a, int(addr.Sub(a.base)), nil
		}
	}
	return nil, 0, fmt.Errorf("mock: address %s not mapped", addr)
}

// WriteU32 writes a little-endian uint32 at addr.
func (m *Memory) WriteU32(addr region.Address, v uint32) error {
	a, off, err := m.findAlloc(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.data[off:], v)
	return nil
}

// WriteU64 writes a little-endian uint64 at addr.
func (m *Memory) WriteU64(addr region.Address, v uint64) error {
	a, off, err := m.findAlloc(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.data[off:], v)
	return nil
}

// WriteBytes copies raw bytes into memory starting at addr.
func (m *Memory) WriteBytes(addr region.Address, b []byte) error {
	a, off, err := m.findAlloc(addr, len(b))
	if err != nil {
		return err
	}
	copy(a.data[off:], b)
	return nil
}

// WriteFloat32 writes a little-endian float32 at addr.
func (m *Memory) WriteFloat32(addr region.Address, v float32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	return m.WriteBytes(addr, buf[:])
}

// WriteFloat64 writes a little-endian float64 at addr.
func (m *Memory) WriteFloat64(addr region.Address, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return m.WriteBytes(addr, buf[:])
}

// SetFaultyPages marks the given page indices (relative to the
// allocation at allocBase, page 0 being the page containing allocBase)
// as unreadable for all future reads, matching
// MockMemory::set_faulty_pages used by the page-fault tests in
// group_search_tests.rs.
func (m *Memory) SetFaultyPages(allocBase region.Address, pages []int) error {
	set := m.faultyPages[allocBase]
	if set == nil {
		set = make(map[int]bool)
		m.faultyPages[allocBase] = set
	}
	for _, p := range pages {
		set[p] = true
	}
	return nil
}

// ClearFaultyPages removes all fault injection for allocBase.
func (m *Memory) ClearFaultyPages(allocBase region.Address) {
	delete(m.faultyPages, allocBase)
}

// Read implements reader.Reader. It copies every readable page within
// [addr, addr+len(out)) into out and marks each successfully-read page
// in status; bytes of unmapped or deliberately-faulted pages are left
// as whatever out already contained (per spec.md §4.2, "bytes
// belonging to failed pages are unspecified").
func (m *Memory) Read(addr region.Address, out []byte, status *pagebitmap.Bitmap) error {
	pageSize := region.PageSize()
	n := len(out)
	if n == 0 {
		return nil
	}

	startPage := int(uint64(addr) / uint64(pageSize))
	endPage := int((uint64(addr) + uint64(n) - 1) / uint64(pageSize))

	for page := startPage; page <= endPage; page++ {
		pageAddr := region.Address(uint64(page) * uint64(pageSize))
		pageEnd := pageAddr.Add(pageSize)

		lo := addr
		if pageAddr > lo {
			lo = pageAddr
		}
		hi := addr.Add(int64(n))
		if pageEnd < hi {
			hi = pageEnd
		}
		if lo >= hi {
			continue
		}

		a, off, err := m.findAlloc(lo, int(hi.Sub(lo)))
		if err != nil {
			continue
		}
		if m.isFaulty(a, lo) {
			continue
		}

		outOff := int(lo.Sub(addr))
		copy(out[outOff:outOff+int(hi.Sub(lo))], a.data[off:off+int(hi.Sub(lo))])

		bitmapPage := int((uint64(lo) - uint64(status.BasePageAddr())) / uint64(pageSize))
		status.MarkSuccess(bitmapPage)
	}
	return nil
}

func (m *Memory) isFaulty(a *allocation, addr region.Address) bool {
	set := m.faultyPages[a.base]
	if set == nil {
		return false
	}
	pageSize := region.PageSize()
	relPage := int(uint64(addr.Sub(a.base)) / uint64(pageSize))
	return set[relPage]
}

// Allocations returns the base/size pairs of every live allocation,
// sorted by base address, for building a []region.Region to scan.
func (m *Memory) Allocations() []region.Region {
	regions := make([]region.Region, 0, len(m.allocs))
	for _, a := range m.allocs {
		regions = append(regions, region.Region{Start: a.base, End: a.base.Add(int64(len(a.data)))})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	return regions
}

var _ reader.Reader = (*Memory)(nil)
