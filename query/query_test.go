package query

import (
	"errors"
	"testing"

	"github.com/fuqiuluo/memscan/value"
)

func TestValidateEmptyQuery(t *testing.T) {
	q := &Query{}
	if err := q.Validate(); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Validate() = %v, want ErrEmptyQuery", err)
	}
}

func TestValidateSingleIgnoresRange(t *testing.T) {
	q := &Query{Values: []value.Descriptor{value.NewFixedInt(1, value.Dword)}, Range: 0}
	if err := q.Validate(); err != nil {
		t.Errorf("single-value query should ignore Range, got %v", err)
	}
}

func TestValidateRangeTooSmall(t *testing.T) {
	q := &Query{
		Values: []value.Descriptor{
			value.NewFixedInt(1, value.Dword),
			value.NewFixedInt(2, value.Dword),
		},
		Range: 4,
	}
	if err := q.Validate(); !errors.Is(err, ErrRangeTooSmall) {
		t.Errorf("Validate() = %v, want ErrRangeTooSmall", err)
	}
}

func TestWindowIsMaxOfRangeAndTotalSize(t *testing.T) {
	q := &Query{
		Values: []value.Descriptor{
			value.NewFixedInt(1, value.Dword),
			value.NewFixedInt(2, value.Dword),
		},
		Range: 64,
	}
	if got := q.Window(); got != 64 {
		t.Errorf("Window() = %d, want 64", got)
	}

	q.Range = 4
	if got := q.Window(); got != uint64(q.TotalSize()) {
		t.Errorf("Window() = %d, want TotalSize() = %d", got, q.TotalSize())
	}
}

func TestMinValueSize(t *testing.T) {
	q := &Query{Values: []value.Descriptor{
		value.NewFixedInt(1, value.Qword),
		value.NewFixedInt(2, value.Byte),
		value.NewFixedInt(3, value.Dword),
	}}
	if got := q.MinValueSize(); got != 1 {
		t.Errorf("MinValueSize() = %d, want 1", got)
	}
}
