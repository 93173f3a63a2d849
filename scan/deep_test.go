package scan_test

import (
	"testing"

	"github.com/fuqiuluo/memscan/query"
	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/scan"
	"github.com/fuqiuluo/memscan/value"
)

// This is the scenario deep matching exists for: Group's first-fit
// greedy pass commits Word(5)'s first candidate (offset 4) before
// ever considering Dword(5), whose only valid candidate is also
// offset 4 — so greedy fails a window that does have a valid
// assignment (Word(5) at offset 10, Dword(5) at offset 4).
func buildAmbiguousBuffer() []byte {
	buf := make([]byte, 32)
	buf[0] = 1          // anchor: Byte(1)
	buf[4], buf[5] = 5, 0
	buf[6], buf[7] = 0, 0 // together with buf[4:6], also reads as Dword(5) at offset 4
	buf[10], buf[11] = 5, 0
	buf[12] = 9 // breaks an accidental Dword(5) match at offset 10
	return buf
}

func ambiguousQuery(mode query.Mode) *query.Query {
	return &query.Query{
		Values: []value.Descriptor{
			value.NewFixedInt(1, value.Byte),
			value.NewFixedInt(5, value.Word),
			value.NewFixedInt(5, value.Dword),
		},
		Mode:  mode,
		Range: 32,
	}
}

func TestGroupGreedyFailsAmbiguousDuplicateWindow(t *testing.T) {
	buf := buildAmbiguousBuffer()
	q := ambiguousQuery(query.Unordered)
	results := resultset.New()
	status := fullyReadableStatus(len(buf), 0)
	scan.Group(q, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 0 {
		t.Fatalf("expected Group's greedy pass to fail this window, got %+v", results.All())
	}
}

func TestDeepFindsAssignmentGroupMisses(t *testing.T) {
	buf := buildAmbiguousBuffer()
	q := ambiguousQuery(query.Unordered)
	results := resultset.New()
	status := fullyReadableStatus(len(buf), 0)
	scan.Deep(q, scan.DeepOptions{}, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 3 {
		t.Fatalf("expected deep search to find the 3-value assignment, got %+v", results.All())
	}
	byType := map[value.Type]region.Address{}
	for _, p := range results.All() {
		byType[p.Type] = p.Addr
	}
	if byType[value.Word] != 10 {
		t.Errorf("expected Word(5) assigned to offset 10, got %d", byType[value.Word])
	}
	if byType[value.Dword] != 4 {
		t.Errorf("expected Dword(5) assigned to offset 4, got %d", byType[value.Dword])
	}
}

func TestDeepRespectsMaxCombinations(t *testing.T) {
	buf := buildAmbiguousBuffer()
	q := ambiguousQuery(query.Unordered)
	results := resultset.New()
	status := fullyReadableStatus(len(buf), 0)
	// A cap of 1 attempt is not enough to reach the Word(5)->10
	// branch, which is only tried after the first candidate fails.
	scan.Deep(q, scan.DeepOptions{MaxCombinations: 1}, results)(buf, 0, 0, region.Address(len(buf)), status)

	if results.Len() != 0 {
		t.Errorf("expected a cap of 1 to prevent finding the assignment, got %+v", results.All())
	}
}
