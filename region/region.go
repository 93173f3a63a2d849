// Package region defines the virtual-address primitives shared by the
// scanning core: Address arithmetic, half-open memory Regions, and the
// host page size used to align chunked reads.
//
// Grounded on golang.org/x/debug's core.Address/core.Mapping design
// (core/mapping.go): a small integer type with Add/Sub helpers rather
// than raw uintptr math scattered through the scanner.
package region

import (
	"fmt"
	"sync"
	"syscall"
)

// Address is a virtual address in the target process.
type Address uint64

// Add returns a+Address(n).
func (a Address) Add(n int64) Address {
	return a + Address(n)
}

// Sub returns int64(a-b).
func (a Address) Sub(b Address) int64 {
	return int64(a - b)
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Perm is the set of access permissions a mapped region was created
// with, adapted from golang.org/x/debug's core.Perm (core/mapping.go):
// there it describes a core-file mapping's permissions for display and
// reachability analysis; here it filters /proc/pid/maps entries down
// to the writable regions a value search cares about.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Exec
)

func (p Perm) String() string {
	var b [3]byte
	b[0] = '-'
	b[1] = '-'
	b[2] = '-'
	if p&Read != 0 {
		b[0] = 'r'
	}
	if p&Write != 0 {
		b[1] = 'w'
	}
	if p&Exec != 0 {
		b[2] = 'x'
	}
	return string(b[:])
}

// A Region is a half-open virtual-address interval [Start, End) to
// scan, optionally carrying the permissions it was discovered with.
type Region struct {
	Start Address
	End   Address
	Perm  Perm
}

// Size returns the number of bytes spanned by the region.
func (r Region) Size() int64 {
	return r.End.Sub(r.Start)
}

var (
	pageSizeOnce sync.Once
	pageSize     int64 = 4096
)

// defaultPageSize is the fallback used when the host page size cannot be
// queried, matching spec.md §6's "fallback to 4096".
const defaultPageSize = 4096

// PageSize returns the host OS page size, querying it once via
// syscall.Getpagesize (the same call internal/core/process.go uses
// when memory-mapping core file contents) and caching the result.
func PageSize() int64 {
	pageSizeOnce.Do(func() {
		if sz := syscall.Getpagesize(); sz > 0 {
			pageSize = int64(sz)
		} else {
			pageSize = defaultPageSize
		}
	})
	return pageSize
}

// PageMask returns !(PageSize-1), the mask used to round an address down
// to the start of its containing page.
func PageMask() uint64 {
	return ^(uint64(PageSize()) - 1)
}

// PageAlign rounds a down to the start of its containing page.
func PageAlign(a Address) Address {
	return Address(uint64(a) & PageMask())
}
