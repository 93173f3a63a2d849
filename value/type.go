// Package value implements the typed-value data model of spec.md §3:
// ValueType, the ValueDescriptor variants (FixedInt, FixedFloat, Range,
// Wildcard) and their byte-level matches() predicate.
//
// Grounded on the Rust original (original_source/app/src/main/rust/src/search/types.rs
// is not in the retrieval pack, but its call sites in
// original_source/.../engine/group_search.rs show the shape: a
// tagged-union SearchValue with a value_type() accessor and a
// matched(bytes) -> Result<bool> method). Go has no tagged unions, so
// this is expressed the way the teacher expresses small closed sets of
// variants elsewhere in the codebase (core.Perm as a set of named
// constants with a String method, core/mapping.go) — here as an
// interface implemented by small structs, which is the idiomatic Go
// analogue of a Rust enum-with-data.
package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type is the width/kind of a scanned value. The integer IDs are
// stable across the host boundary (spec.md §6).
type Type uint8

const (
	Byte Type = iota
	Word
	Dword
	Qword
	Float
	Double
)

// Size returns the byte width of the type.
func (t Type) Size() int {
	switch t {
	case Byte:
		return 1
	case Word:
		return 2
	case Dword:
		return 4
	case Qword:
		return 8
	case Float:
		return 4
	case Double:
		return 8
	default:
		panic(fmt.Sprintf("value: unknown type %d", t))
	}
}

// IsFloat reports whether t is a floating-point type.
func (t Type) IsFloat() bool {
	return t == Float || t == Double
}

func (t Type) String() string {
	switch t {
	case Byte:
		return "Byte"
	case Word:
		return "Word"
	case Dword:
		return "Dword"
	case Qword:
		return "Qword"
	case Float:
		return "Float"
	case Double:
		return "Double"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// FromID maps a stable wire ID to a Type. ok is false for unknown IDs,
// mirroring core::memory_mode::MemoryAccessMode::from_id's pattern in
// original_source/app/src/main/rust/src/core/memory_mode.rs.
func FromID(id int32) (t Type, ok bool) {
	if id < 0 || id > int32(Double) {
		return 0, false
	}
	return Type(id), true
}

// ID returns the stable wire ID for t.
func (t Type) ID() int32 {
	return int32(t)
}

// Descriptor is a single query value: a typed match predicate over a
// fixed-width byte window. See spec.md §3 for the four variant shapes.
type Descriptor interface {
	// Type returns the width/kind this descriptor matches.
	Type() Type

	// Matches reports whether bytes (which must have length
	// Type().Size()) satisfy the descriptor. It panics if bytes has
	// the wrong length — a malformed-size call is a programmer error,
	// not a data error (spec.md §7: "incorrect sizes are programmer
	// errors and panic in debug").
	Matches(bytes []byte) bool

	// AnchorBytes returns the little-endian byte pattern to search for when
	// this descriptor is usable as a SIMD anchor, and whether it is
	// usable at all (only FixedInt/FixedFloat are).
	AnchorBytes() (b []byte, ok bool)
}

func checkLen(t Type, bytes []byte) {
	if len(bytes) != t.Size() {
		panic(fmt.Sprintf("value: Matches called with %d bytes, want %d for %s", len(bytes), t.Size(), t))
	}
}

// FixedInt is an exact integer match. Value holds up to 8 bytes of
// little-endian representation; only Value[:Typ.Size()] is significant.
type FixedInt struct {
	Value [8]byte
	Typ   Type
}

// NewFixedInt builds a FixedInt from a signed 64-bit value truncated to
// typ's width.
func NewFixedInt(v int64, typ Type) FixedInt {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	var fi FixedInt
	copy(fi.Value[:], buf[:typ.Size()])
	fi.Typ = typ
	return fi
}

func (f FixedInt) Type() Type { return f.Typ }

func (f FixedInt) Matches(bytes []byte) bool {
	checkLen(f.Typ, bytes)
	n := f.Typ.Size()
	for i := 0; i < n; i++ {
		if bytes[i] != f.Value[i] {
			return false
		}
	}
	return true
}

func (f FixedInt) AnchorBytes() ([]byte, bool) {
	n := f.Typ.Size()
	b := make([]byte, n)
	copy(b, f.Value[:n])
	return b, true
}

// FixedFloat is an exact floating-point match with a type-appropriate
// tolerance: float32 comparisons use float32's EPSILON, float64 uses
// float64's EPSILON (spec.md §9 "Float equality").
type FixedFloat struct {
	Value float64
	Typ   Type // Float or Double
}

const (
	float32Epsilon = 1.1920929e-07
	float64Epsilon = 2.220446049250313e-16
)

func (f FixedFloat) Type() Type { return f.Typ }

func (f FixedFloat) Matches(bytes []byte) bool {
	checkLen(f.Typ, bytes)
	switch f.Typ {
	case Float:
		got := math.Float32frombits(binary.LittleEndian.Uint32(bytes))
		want := float32(f.Value)
		return absFloat32(got-want) <= float32Epsilon
	case Double:
		got := math.Float64frombits(binary.LittleEndian.Uint64(bytes))
		return absFloat64(got-f.Value) <= float64Epsilon
	default:
		panic(fmt.Sprintf("value: FixedFloat with non-float type %s", f.Typ))
	}
}

func (f FixedFloat) AnchorBytes() ([]byte, bool) {
	switch f.Typ {
	case Float:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(f.Value)))
		return b, true
	case Double:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(f.Value))
		return b, true
	default:
		return nil, false
	}
}

func absFloat32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func absFloat64(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Range is an inclusive-interval match: Lo <= decoded <= Hi.
type Range struct {
	Lo, Hi int64 // interpreted per Signed
	Typ    Type
	Signed bool
}

func (r Range) Type() Type { return r.Typ }

func (r Range) Matches(bytes []byte) bool {
	checkLen(r.Typ, bytes)
	if r.Typ.IsFloat() {
		var got float64
		switch r.Typ {
		case Float:
			got = float64(math.Float32frombits(binary.LittleEndian.Uint32(bytes)))
		case Double:
			got = math.Float64frombits(binary.LittleEndian.Uint64(bytes))
		}
		return got >= float64(r.Lo) && got <= float64(r.Hi)
	}
	if r.Signed {
		got := decodeSignedInt(bytes)
		return got >= r.Lo && got <= r.Hi
	}
	got := decodeUnsignedInt(bytes)
	return got >= uint64(r.Lo) && got <= uint64(r.Hi)
}

func (r Range) AnchorBytes() ([]byte, bool) { return nil, false }

func decodeUnsignedInt(bytes []byte) uint64 {
	switch len(bytes) {
	case 1:
		return uint64(bytes[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(bytes))
	case 4:
		return uint64(binary.LittleEndian.Uint32(bytes))
	case 8:
		return binary.LittleEndian.Uint64(bytes)
	default:
		panic(fmt.Sprintf("value: unsupported integer width %d", len(bytes)))
	}
}

func decodeSignedInt(bytes []byte) int64 {
	switch len(bytes) {
	case 1:
		return int64(int8(bytes[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(bytes)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(bytes)))
	case 8:
		return int64(binary.LittleEndian.Uint64(bytes))
	default:
		panic(fmt.Sprintf("value: unsupported integer width %d", len(bytes)))
	}
}

// Wildcard matches any value of the given width.
type Wildcard struct {
	Typ Type
}

func (w Wildcard) Type() Type { return w.Typ }

func (w Wildcard) Matches(bytes []byte) bool {
	checkLen(w.Typ, bytes)
	return true
}

func (w Wildcard) AnchorBytes() ([]byte, bool) { return nil, false }
