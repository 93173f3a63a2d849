package resultset

import (
	"testing"

	"github.com/fuqiuluo/memscan/region"
	"github.com/fuqiuluo/memscan/value"
)

func TestInsertOrdersByAddrThenType(t *testing.T) {
	s := New()
	s.Insert(Pair{Addr: 20, Type: value.Dword})
	s.Insert(Pair{Addr: 10, Type: value.Qword})
	s.Insert(Pair{Addr: 10, Type: value.Byte})

	got := s.All()
	want := []Pair{
		{Addr: 10, Type: value.Byte},
		{Addr: 10, Type: value.Qword},
		{Addr: 20, Type: value.Dword},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestInsertDedupes(t *testing.T) {
	s := New()
	if !s.Insert(Pair{Addr: 1, Type: value.Byte}) {
		t.Error("first insert should report change")
	}
	if s.Insert(Pair{Addr: 1, Type: value.Byte}) {
		t.Error("duplicate insert should report no change")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestDistinctTypesAtSameAddressBothKept(t *testing.T) {
	s := New()
	s.Insert(Pair{Addr: 100, Type: value.Byte})
	s.Insert(Pair{Addr: 100, Type: value.Dword})
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (addr,type) keying should keep both", s.Len())
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := New()
	a.Insert(Pair{Addr: 5, Type: value.Byte})
	a.Insert(Pair{Addr: 1, Type: value.Byte})

	b := New()
	b.Insert(Pair{Addr: 1, Type: value.Byte})
	b.Insert(Pair{Addr: 9, Type: value.Byte})

	merged1 := New()
	merged1.Merge(a)
	merged1.Merge(b)

	merged2 := New()
	merged2.Merge(b)
	merged2.Merge(a)

	if merged1.Len() != 3 || merged2.Len() != 3 {
		t.Fatalf("expected 3 distinct pairs in both merge orders, got %d and %d", merged1.Len(), merged2.Len())
	}
	for i, p := range merged1.All() {
		if p != merged2.All()[i] {
			t.Errorf("merge order affected result: %+v vs %+v", merged1.All(), merged2.All())
		}
	}
}

func TestSlicePaging(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Insert(Pair{Addr: region.Address(i), Type: value.Byte})
	}
	page := s.Slice(3, 4)
	if len(page) != 4 || page[0].Addr != 3 || page[3].Addr != 6 {
		t.Errorf("Slice(3,4) = %+v, want addrs 3..6", page)
	}
	if got := s.Slice(100, 5); got != nil {
		t.Errorf("out-of-range Slice should return nil, got %+v", got)
	}
}

func TestRemoveAtAndRemoveIndices(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Insert(Pair{Addr: region.Address(i), Type: value.Byte})
	}
	s.RemoveAt(0)
	if s.Len() != 4 || s.At(0).Addr != 1 {
		t.Errorf("RemoveAt(0) left %+v", s.All())
	}

	s.RemoveIndices([]int{0, 2, 99, -1})
	got := s.All()
	if len(got) != 2 {
		t.Fatalf("RemoveIndices left %d pairs, want 2: %+v", len(got), got)
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Insert(Pair{Addr: 1, Type: value.Byte})
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", s.Len())
	}
}
