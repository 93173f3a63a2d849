// Package progress implements the shared progress buffer of spec.md
// §4.11: a 20-byte little-endian layout a long-running search writes
// to from a dedicated updater goroutine so a host UI can poll it
// without synchronizing with the scan itself.
//
// Layout (all little-endian, no atomics: spec.md §4.11 "readers may
// observe a torn update; the buffer is advisory, not authoritative"):
//
//	[0:4)   uint32  percent complete, 0-100
//	[4:8)   uint32  regions completed
//	[8:16)  uint64  total matches found so far
//	[16:20) uint32  heartbeat, incremented once per update tick
//
// Grounded on original_source/.../jni_interface/app.rs's shared
// progress ByteBuffer handed to Java, and on golang.org/x/debug's
// program/server's use of a dedicated goroutine to own a resource and
// serialize access to it through channel sends rather than a mutex
// around a byte slice.
package progress

import (
	"encoding/binary"
	"sync/atomic"
	"time"
)

const (
	BufferSize = 20

	offPercent   = 0
	offRegions   = 4
	offFound     = 8
	offHeartbeat = 16
)

// Snapshot is one point-in-time read of the progress buffer.
type Snapshot struct {
	Percent    uint32
	Regions    uint32
	TotalFound uint64
	Heartbeat  uint32
}

// Buffer is the 20-byte shared progress buffer. Its zero value is
// ready to use.
type Buffer struct {
	data [BufferSize]byte
}

// Bytes returns the raw buffer, for callers that need to hand it to a
// host across a boundary that only understands []byte (mirroring the
// Rust side's direct ByteBuffer access). Concurrent reads while an
// Updater is writing the buffer are safe to issue but may observe a
// torn update, per spec.md §4.11.
func (b *Buffer) Bytes() []byte { return b.data[:] }

// Read decodes the current buffer contents. It does not synchronize
// with concurrent writes.
func (b *Buffer) Read() Snapshot {
	return Snapshot{
		Percent:    binary.LittleEndian.Uint32(b.data[offPercent:]),
		Regions:    binary.LittleEndian.Uint32(b.data[offRegions:]),
		TotalFound: binary.LittleEndian.Uint64(b.data[offFound:]),
		Heartbeat:  binary.LittleEndian.Uint32(b.data[offHeartbeat:]),
	}
}

func (b *Buffer) write(s Snapshot) {
	binary.LittleEndian.PutUint32(b.data[offPercent:], s.Percent)
	binary.LittleEndian.PutUint32(b.data[offRegions:], s.Regions)
	binary.LittleEndian.PutUint64(b.data[offFound:], s.TotalFound)
	binary.LittleEndian.PutUint32(b.data[offHeartbeat:], s.Heartbeat)
}

// Updater owns a Buffer and applies state reported by scan workers to
// it on a fixed heartbeat, exactly as the Rust original ticks its
// progress thread once per second (spec.md §4.11).
type Updater struct {
	buf *Buffer

	totalRegions int32
	doneRegions  int32
	totalFound   int64
	heartbeat    uint32

	stop chan struct{}
	done chan struct{}
}

// NewUpdater creates an Updater for totalRegions regions, backed by
// buf.
func NewUpdater(buf *Buffer, totalRegions int) *Updater {
	return &Updater{
		buf:          buf,
		totalRegions: int32(totalRegions),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// RegionDone records that one more region finished scanning.
func (u *Updater) RegionDone() {
	atomic.AddInt32(&u.doneRegions, 1)
}

// AddFound records additionally-found matches.
func (u *Updater) AddFound(n int) {
	atomic.AddInt64(&u.totalFound, int64(n))
}

// Run ticks every tick (once a second if tick is not positive) until
// Stop is called, writing the current
// state into the buffer each tick plus once immediately on entry and
// once on exit so a poller never reads a stale pre-scan buffer.
func (u *Updater) Run(tick time.Duration) {
	defer close(u.done)
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	u.flush()
	for {
		select {
		case <-ticker.C:
			u.flush()
		case <-u.stop:
			u.flush()
			return
		}
	}
}

func (u *Updater) flush() {
	done := atomic.LoadInt32(&u.doneRegions)
	total := atomic.LoadInt32(&u.totalRegions)
	var percent uint32
	if total > 0 {
		percent = uint32(done * 100 / total)
	}
	u.heartbeat++
	u.buf.write(Snapshot{
		Percent:    percent,
		Regions:    uint32(done),
		TotalFound: uint64(atomic.LoadInt64(&u.totalFound)),
		Heartbeat:  u.heartbeat,
	})
}

// Stop signals Run to perform one final flush and return, blocking
// until it has.
func (u *Updater) Stop() {
	close(u.stop)
	<-u.done
}
