//go:build linux

// Package ptrace is the reference reader.Reader backend: it reads a
// live Linux process's memory via PTRACE_PEEKTEXT. It is provided as
// a genuine, usable adapter — spec.md §1 scopes the driver *contract*
// into the core but the driver *implementation* out of it, and this
// is one concrete implementation of that contract, not a core
// component itself.
//
// Grounded directly on golang.org/x/debug's own ptrace backend
// (program/server/ptrace.go): all ptrace calls are funneled through a
// single OS thread locked with runtime.LockOSThread, since ptrace
// requires every call for a given tracee to come from the thread that
// attached to it. The per-byte peek/poke loop mirrors
// demo/ptrace-linux-amd64/main.go's peek/poke helpers, generalized
// to page-sized reads with per-page fault tracking.
package ptrace

import (
	"fmt"
	"runtime"
	"syscall"

	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/reader"
	"github.com/fuqiuluo/memscan/region"
)

// Reader reads the memory of a single ptrace-attached process. The
// caller is responsible for attaching (PTRACE_ATTACH/PTRACE_SEIZE) and
// waiting for the tracee to stop before constructing a Reader, and for
// detaching afterward — attach/detach lifecycle is not this package's
// concern (spec.md §1: "attaching or enumerating regions" is out of
// scope for the core; this adapter only implements the read contract).
type Reader struct {
	pid  int
	mode reader.AccessMode

	fc chan func() error
	ec chan error
}

// New starts the dedicated ptrace thread for an already-attached and
// stopped process pid. mode records the configured access mode for
// bookkeeping; this backend always reads target memory directly via
// PTRACE_PEEKTEXT regardless of mode (spec.md §4.2: "the core is
// access-mode-oblivious").
func New(pid int, mode reader.AccessMode) *Reader {
	r := &Reader{
		pid:  pid,
		mode: mode,
		fc:   make(chan func() error),
		ec:   make(chan error),
	}
	go r.run()
	return r
}

// run is the dedicated OS thread all ptrace syscalls for this pid are
// issued from, exactly as program/server/ptrace.go's ptraceRun does.
func (r *Reader) run() {
	runtime.LockOSThread()
	for f := range r.fc {
		r.ec <- f()
	}
}

// Close stops the dedicated thread. It does not detach from the
// tracee.
func (r *Reader) Close() {
	close(r.fc)
}

func (r *Reader) peek(addr uintptr, out []byte) error {
	r.fc <- func() error {
		n, err := syscall.PtracePeekText(r.pid, addr, out)
		if err != nil {
			return err
		}
		if n != len(out) {
			return fmt.Errorf("ptrace: peeked %d bytes, want %d", n, len(out))
		}
		return nil
	}
	return <-r.ec
}

// Read implements reader.Reader by peeking the target in page-sized
// pieces so a fault on one page doesn't lose data already read from
// its neighbors; per spec.md §4.2 the bytes of any page that fails
// are left unspecified and that page is simply not marked successful
// in status.
func (r *Reader) Read(addr region.Address, out []byte, status *pagebitmap.Bitmap) error {
	pageSize := region.PageSize()
	n := len(out)
	if n == 0 {
		return nil
	}

	startPage := int(uint64(addr) / uint64(pageSize))
	endPage := int((uint64(addr) + uint64(n) - 1) / uint64(pageSize))

	var transportErr error
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

		outOff := int(lo.Sub(addr))
		chunk := out[outOff:int(hi.Sub(addr))]
		if err := r.peek(uintptr(lo), chunk); err != nil {
			// A peek failure on this page is a per-page fault, not a
			// transport error, UNLESS it indicates the whole process
			// is gone (ESRCH), which no amount of per-page retry can
			// recover from.
			if err == syscall.ESRCH {
				transportErr = fmt.Errorf("%w: process %d: %v", reader.ErrTransport, r.pid, err)
				break
			}
			continue
		}

		bitmapPage := int((uint64(lo) - uint64(status.BasePageAddr())) / uint64(pageSize))
		status.MarkSuccess(bitmapPage)
	}
	return transportErr
}

var _ reader.Reader = (*Reader)(nil)
