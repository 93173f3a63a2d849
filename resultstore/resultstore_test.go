package resultstore

import (
	"testing"

	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/resultset"
	"github.com/fuqiuluo/memscan/value"
)

func TestAddAndTotalCount(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{
		{Addr: 1, Type: value.Byte},
		{Addr: 2, Type: value.Dword},
	})
	if s.TotalCount() != 2 {
		t.Errorf("TotalCount() = %d, want 2", s.TotalCount())
	}
}

func TestFilterByType(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{
		{Addr: 1, Type: value.Byte},
		{Addr: 2, Type: value.Dword},
		{Addr: 3, Type: value.Dword},
	})
	s.SetFilter(Filter{HasType: true, Type: value.Dword})
	if got := s.TotalCount(); got != 2 {
		t.Errorf("TotalCount() with type filter = %d, want 2", got)
	}
	results := s.GetResults(0, 10)
	for _, p := range results {
		if p.Type != value.Dword {
			t.Errorf("filtered result %+v has wrong type", p)
		}
	}
}

func TestFilterByRange(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{
		{Addr: 10, Type: value.Byte},
		{Addr: 20, Type: value.Byte},
		{Addr: 30, Type: value.Byte},
	})
	s.SetFilter(Filter{HasRange: true, Lo: region.Address(15), Hi: region.Address(25)})
	if got := s.TotalCount(); got != 1 {
		t.Fatalf("TotalCount() with range filter = %d, want 1", got)
	}
	if s.GetResults(0, 10)[0].Addr != 20 {
		t.Errorf("expected only addr 20 to survive the range filter")
	}
}

func TestClearFilterRestoresFullCount(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{{Addr: 1, Type: value.Byte}, {Addr: 2, Type: value.Dword}})
	s.SetFilter(Filter{HasType: true, Type: value.Dword})
	s.ClearFilter()
	if s.TotalCount() != 2 {
		t.Errorf("TotalCount() after ClearFilter = %d, want 2", s.TotalCount())
	}
}

func TestRemoveResultAndBatch(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{
		{Addr: 1, Type: value.Byte},
		{Addr: 2, Type: value.Byte},
		{Addr: 3, Type: value.Byte},
	})
	s.RemoveResult(resultset.Pair{Addr: 2, Type: value.Byte})
	if s.TotalCount() != 2 {
		t.Fatalf("TotalCount() after RemoveResult = %d, want 2", s.TotalCount())
	}
	s.RemoveResultsBatch([]resultset.Pair{{Addr: 1, Type: value.Byte}, {Addr: 3, Type: value.Byte}})
	if s.TotalCount() != 0 {
		t.Errorf("TotalCount() after RemoveResultsBatch = %d, want 0", s.TotalCount())
	}
}

func TestGetAllExactIgnoresFilter(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{{Addr: 1, Type: value.Byte}, {Addr: 2, Type: value.Dword}})
	s.SetFilter(Filter{HasRange: true, Lo: 100, Hi: 200})
	all := s.GetAllExact(value.Byte, value.Dword)
	if len(all) != 2 {
		t.Errorf("GetAllExact should ignore the installed filter, got %d", len(all))
	}
}

func TestClearResetsFilterToo(t *testing.T) {
	s := New()
	s.AddResultsBatch([]resultset.Pair{{Addr: 1, Type: value.Byte}})
	s.SetFilter(Filter{HasType: true, Type: value.Byte})
	s.Clear()
	if s.TotalCount() != 0 {
		t.Errorf("TotalCount() after Clear = %d, want 0", s.TotalCount())
	}
	s.AddResultsBatch([]resultset.Pair{{Addr: 5, Type: value.Dword}})
	if s.TotalCount() != 1 {
		t.Errorf("filter should have been reset by Clear, TotalCount() = %d, want 1", s.TotalCount())
	}
}
