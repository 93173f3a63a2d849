// Package reader defines the contract between the scanning core and
// the external memory reader (spec.md §4.2, §6): out of scope to
// implement here except as a consumed interface, plus the stable
// MemoryAccessMode enum the host and core share.
//
// Grounded on golang.org/x/debug's own split between the core.Process
// abstraction (core/mapping.go, internal/core/process.go) and its
// concrete backends (a core file today; program/server/ptrace.go's
// live ptrace backend for a running process) — the scanner is written
// against the interface, never against a specific transport.
package reader

import (
	"errors"
	"fmt"

	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/region"
)

// AccessMode selects how the reader backend should fetch memory. The
// integer IDs are stable across the host boundary (spec.md §6).
type AccessMode int32

const (
	AccessNone AccessMode = iota
	AccessNonCacheable
	AccessWriteThrough
	AccessNormal
	AccessPageFault
)

func (m AccessMode) String() string {
	switch m {
	case AccessNone:
		return "None"
	case AccessNonCacheable:
		return "NonCacheable"
	case AccessWriteThrough:
		return "WriteThrough"
	case AccessNormal:
		return "Normal"
	case AccessPageFault:
		return "PageFault"
	default:
		return fmt.Sprintf("AccessMode(%d)", int32(m))
	}
}

// AccessModeFromID maps a stable wire ID to an AccessMode.
func AccessModeFromID(id int32) (AccessMode, bool) {
	if id < int32(AccessNone) || id > int32(AccessPageFault) {
		return 0, false
	}
	return AccessMode(id), true
}

// ErrTransport is the error kind for a reader failure that is not a
// per-page fault — e.g. the target process died, or the transport
// itself errored. Per-page faults are instead reported through the
// PageStatusBitmap passed to Read and are not errors at all
// (spec.md §7: "ReaderTransportError ... the affected chunk is
// skipped").
var ErrTransport = errors.New("memscan: reader transport error")

// Reader is the only operation the scanning core needs from the
// memory backend (spec.md §4.2, §6).
//
// Contract: on return, for every page p with status.IsSuccess(p), the
// bytes of that page inside out are a faithful copy of target memory
// at the time of the call. Bytes belonging to failed pages are
// unspecified and must never be matched against. A non-nil error
// indicates a transport failure distinct from per-page faults; the
// caller should treat the whole read as failed regardless of what
// status says.
type Reader interface {
	Read(addr region.Address, out []byte, status *pagebitmap.Bitmap) error
}
