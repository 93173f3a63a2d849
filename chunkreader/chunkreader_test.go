package chunkreader_test

import (
	"testing"

	"github.com/fuqiuluo/memscan/chunkreader"
	"github.com/fuqiuluo/memscan/pagebitmap"
	"github.com/fuqiuluo/memscan/reader/mock"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/scan"
	"github.com/fuqiuluo/memscan/value"
)

// A value placed exactly on a chunk boundary must still be found: the
// chunk driver's overlap carry-forward exists precisely for this case.
func TestScanRegionFindsValueStraddlingChunkBoundary(t *testing.T) {
	m := mock.New()
	// Not a multiple of 8: the boundary falls strictly inside an
	// 8-aligned Qword slot (248..256), so the straddling candidate is
	// itself properly aligned (spec.md §8 invariant 6) rather than
	// relying on the alignment check being skipped.
	const chunkSize = 252
	base, err := m.Malloc(0x7200000000, chunkSize*4)
	if err != nil {
		t.Fatal(err)
	}

	// Place a Qword (8 bytes) starting 4 bytes before the chunk
	// boundary at chunkSize, so it straddles chunk 0 and chunk 1.
	target := base.Add(chunkSize - 4)
	if err := m.WriteU64(target, 0x1122334455667788); err != nil {
		t.Fatal(err)
	}

	desc := value.NewFixedInt(0x1122334455667788, value.Qword)
	results := resultset.New()
	scanFn := scan.Single(desc, results)

	reg := region.Region{Start: base, End: base.Add(chunkSize * 4)}
	if err := chunkreader.ScanRegion(m, reg, chunkSize, 8, scanFn); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, p := range results.All() {
		if p.Addr == target && p.Type == value.Qword {
			found = true
		}
	}
	if !found {
		t.Errorf("expected to find boundary-straddling value at %s, got %+v", target, results.All())
	}
}

func TestScanRegionSkipsFaultyChunk(t *testing.T) {
	m := mock.New()
	const chunkSize = 4096
	base, err := m.Malloc(0x7300000000, chunkSize*3)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.WriteU32(base.Add(100), 42); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteU32(base.Add(chunkSize+100), 42); err != nil {
		t.Fatal(err)
	}
	// Fault out every page of the second chunk.
	pagesPerChunk := chunkSize / int(region.PageSize())
	var faulty []int
	for p := pagesPerChunk; p < 2*pagesPerChunk; p++ {
		faulty = append(faulty, p)
	}
	if err := m.SetFaultyPages(base, faulty); err != nil {
		t.Fatal(err)
	}

	desc := value.NewFixedInt(42, value.Dword)
	results := resultset.New()
	scanFn := scan.Single(desc, results)
	reg := region.Region{Start: base, End: base.Add(chunkSize * 3)}
	if err := chunkreader.ScanRegion(m, reg, chunkSize, 0, scanFn); err != nil {
		t.Fatal(err)
	}

	if results.Len() != 1 {
		t.Fatalf("expected exactly 1 match (chunk 1 faulted out), got %d: %+v", results.Len(), results.All())
	}
	if results.At(0).Addr != base.Add(100) {
		t.Errorf("unexpected surviving match at %s", results.At(0).Addr)
	}
}

func TestScanRegionOverlapExceedsChunk(t *testing.T) {
	m := mock.New()
	reg := region.Region{Start: 0x1000, End: 0x2000}
	err := chunkreader.ScanRegion(m, reg, 64, 128, func(buf []byte, bufAddr region.Address, regionLo, regionHi region.Address, status *pagebitmap.Bitmap) {})
	if err == nil {
		t.Fatal("expected an error when overlap exceeds chunk size")
	}
}
