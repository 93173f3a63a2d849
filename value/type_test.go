package value

import "testing"

func TestTypeSize(t *testing.T) {
	cases := []struct {
		typ  Type
		want int
	}{
		{Byte, 1}, {Word, 2}, {Dword, 4}, {Qword, 8}, {Float, 4}, {Double, 8},
	}
	for _, c := range cases {
		if got := c.typ.Size(); got != c.want {
			t.Errorf("%s.Size() = %d, want %d", c.typ, got, c.want)
		}
	}
}

func TestFromID(t *testing.T) {
	if typ, ok := FromID(2); !ok || typ != Dword {
		t.Errorf("FromID(2) = %s, %v, want Dword, true", typ, ok)
	}
	if _, ok := FromID(99); ok {
		t.Error("FromID(99) should fail")
	}
	if _, ok := FromID(-1); ok {
		t.Error("FromID(-1) should fail")
	}
}

func TestFixedIntMatches(t *testing.T) {
	fi := NewFixedInt(1234, Dword)
	buf := make([]byte, 4)
	buf[0], buf[1], buf[2], buf[3] = 0xD2, 0x04, 0, 0
	if !fi.Matches(buf) {
		t.Error("expected match")
	}
	buf[0] = 0xD3
	if fi.Matches(buf) {
		t.Error("expected no match")
	}
}

func TestFixedIntMatchesPanicsOnWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on wrong-size input")
		}
	}()
	fi := NewFixedInt(1, Dword)
	fi.Matches([]byte{1, 2})
}

func TestFixedIntAnchorBytes(t *testing.T) {
	fi := NewFixedInt(0x11223344, Dword)
	b, ok := fi.AnchorBytes()
	if !ok {
		t.Fatal("expected anchor bytes")
	}
	want := []byte{0x44, 0x33, 0x22, 0x11}
	if len(b) != len(want) {
		t.Fatalf("len = %d, want %d", len(b), len(want))
	}
	for i := range want {
		if b[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, b[i], want[i])
		}
	}
}

func TestFixedFloatEpsilon(t *testing.T) {
	f := FixedFloat{Value: 1.5, Typ: Float}
	buf, _ := f.AnchorBytes()
	if !f.Matches(buf) {
		t.Error("expected exact float match")
	}

	d := FixedFloat{Value: 3.14159, Typ: Double}
	dbuf, _ := d.AnchorBytes()
	if !d.Matches(dbuf) {
		t.Error("expected exact double match")
	}
}

func TestRangeSignedUnsigned(t *testing.T) {
	unsigned := Range{Lo: 10, Hi: 20, Typ: Byte, Signed: false}
	if !unsigned.Matches([]byte{15}) {
		t.Error("15 should be in [10,20]")
	}
	if unsigned.Matches([]byte{200}) {
		// 200 unsigned is out of [10,20].
		t.Error("200 should not be in [10,20]")
	}

	signed := Range{Lo: -10, Hi: -1, Typ: Byte, Signed: true}
	if !signed.Matches([]byte{0xF6}) { // -10
		t.Error("-10 should be in [-10,-1]")
	}
	if signed.Matches([]byte{5}) {
		t.Error("5 should not be in [-10,-1]")
	}
}

func TestRangeFloat(t *testing.T) {
	r := Range{Lo: 0, Hi: 100, Typ: Float}
	f := FixedFloat{Value: 42.0, Typ: Float}
	buf, _ := f.AnchorBytes()
	if !r.Matches(buf) {
		t.Error("42.0 should be in [0,100]")
	}
}

func TestWildcardAlwaysMatches(t *testing.T) {
	w := Wildcard{Typ: Qword}
	if !w.Matches(make([]byte, 8)) {
		t.Error("wildcard should always match")
	}
}

func TestRangeNoAnchor(t *testing.T) {
	r := Range{Lo: 0, Hi: 10, Typ: Byte}
	if _, ok := r.AnchorBytes(); ok {
		t.Error("Range should not be anchorable")
	}
	w := Wildcard{Typ: Byte}
	if _, ok := w.AnchorBytes(); ok {
		t.Error("Wildcard should not be anchorable")
	}
}
