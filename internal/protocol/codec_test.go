package protocol

import "testing"

func TestDecodeVersion(t *testing.T) {
	tests := []struct {
		in   uint32
		want string
	}{
		{0x20000017, "2.0.00.0017"},
		{0x11000004, "1.1.00.0004"},
		{0x00000000, "0.0.00.0000"},
		{0x1002a1b3, "1.0.02.a1b3"},
	}
	for _, tt := range tests {
		if got := DecodeVersion(tt.in); got != tt.want {
			t.Errorf("DecodeVersion(0x%08x) = %q, want %q", tt.in, got, tt.want)
		}
		back, err := EncodeVersion(tt.want)
		if err != nil {
			t.Errorf("EncodeVersion(%q) error = %v", tt.want, err)
			continue
		}
		if back != tt.in {
			t.Errorf("EncodeVersion(%q) = 0x%08x, want 0x%08x", tt.want, back, tt.in)
		}
	}
}

func TestEncodeVersionMalformed(t *testing.T) {
	for _, s := range []string{"", "2.0.0017", "2.0.00.017", "x.0.00.0017"} {
		if _, err := EncodeVersion(s); err == nil {
			t.Errorf("EncodeVersion(%q) should fail", s)
		}
	}
}

func TestCompareVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2.0.00.0017", "2.0.00.0017", 0},
		{"2.0.00.0016", "2.0.00.0017", -1},
		{"2.0.00.0018", "2.0.00.0017", 1},
		{"1.1.00.0004", "2.0.00.0000", -1},
		{"1.0.00.00a0", "1.0.00.0099", 1},
		{"1.0", "1.0.00.0000", 0},
	}
	for _, tt := range tests {
		if got := CompareVersion(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersion(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDecodeMAC(t *testing.T) {
	got := DecodeMAC([]byte{0x00, 0x16, 0x53, 0xa4, 0x0b, 0xff})
	if got != "00:16:53:a4:0b:ff" {
		t.Errorf("DecodeMAC() = %q", got)
	}
}

func TestDecodeString(t *testing.T) {
	if got := DecodeString([]byte("POWER\x00\x00")); got != "POWER" {
		t.Errorf("DecodeString() = %q, want %q", got, "POWER")
	}
}

func TestReadersOutOfRange(t *testing.T) {
	b := []byte{0xff, 0x7f}
	if got := Int16(b, 0); got != 0x7fff {
		t.Errorf("Int16() = %d, want %d", got, 0x7fff)
	}
	if got := Int32(b, 0); got != 0 {
		t.Errorf("Int32() on short slice = %d, want 0", got)
	}
	if got := Int8(b, 0); got != -1 {
		t.Errorf("Int8() = %d, want -1", got)
	}
	if got := Byte(b, 5); got != 0 {
		t.Errorf("Byte() out of range = %d, want 0", got)
	}
}

func TestBits(t *testing.T) {
	got := Bits(0x0005, 4)
	want := []bool{true, false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Bits()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFloat32(t *testing.T) {
	b := []byte{0x00, 0x00, 0xc8, 0x42} // 100.0
	if got := Float32(b, 0); got != 100 {
		t.Errorf("Float32() = %v, want 100", got)
	}
	if got := Float32(b, 2); got != 0 {
		t.Errorf("Float32() out of range = %v, want 0", got)
	}
}
