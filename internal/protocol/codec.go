package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeVersion renders a packed LPF2 version number as "M.m.bb.bbbb".
// The eight hex nibbles are split 1/1/2/4.
func DecodeVersion(v uint32) string {
	s := fmt.Sprintf("%08x", v)
	return s[0:1] + "." + s[1:2] + "." + s[2:4] + "." + s[4:]
}

// EncodeVersion is the inverse of DecodeVersion.
func EncodeVersion(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 || len(parts[0]) != 1 || len(parts[1]) != 1 || len(parts[2]) != 2 || len(parts[3]) != 4 {
		return 0, fmt.Errorf("protocol: malformed version %q", s)
	}
	v, err := strconv.ParseUint(strings.Join(parts, ""), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("protocol: malformed version %q: %w", s, err)
	}
	return uint32(v), nil
}

// CompareVersion compares two dotted version strings component by
// component. It returns -1, 0 or 1. Components are read as hex, matching
// how DecodeVersion renders them; missing components count as zero.
func CompareVersion(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		va := versionPart(pa, i)
		vb := versionPart(pb, i)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
	}
	return 0
}

func versionPart(parts []string, i int) uint64 {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 16, 64)
	if err != nil {
		return 0
	}
	return v
}

// DecodeMAC renders address bytes as colon-separated lowercase hex.
func DecodeMAC(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%02x", x)
	}
	return strings.Join(parts, ":")
}

// DecodeString returns b as text with NUL padding removed.
func DecodeString(b []byte) string {
	return strings.ReplaceAll(string(b), "\x00", "")
}

// Uint16 reads a little-endian uint16 at off, or 0 if out of range.
func Uint16(b []byte, off int) uint16 {
	if off < 0 || off+2 > len(b) {
		return 0
	}
	return binary.LittleEndian.Uint16(b[off:])
}

// Int16 reads a little-endian int16 at off, or 0 if out of range.
func Int16(b []byte, off int) int16 {
	return int16(Uint16(b, off))
}

// Uint32 reads a little-endian uint32 at off, or 0 if out of range.
func Uint32(b []byte, off int) uint32 {
	if off < 0 || off+4 > len(b) {
		return 0
	}
	return binary.LittleEndian.Uint32(b[off:])
}

// Int32 reads a little-endian int32 at off, or 0 if out of range.
func Int32(b []byte, off int) int32 {
	return int32(Uint32(b, off))
}

// Float32 reads a little-endian IEEE 754 float at off, or 0 if out of range.
func Float32(b []byte, off int) float32 {
	return math.Float32frombits(Uint32(b, off))
}

// Int8 reads a signed byte at off, or 0 if out of range.
func Int8(b []byte, off int) int8 {
	if off < 0 || off >= len(b) {
		return 0
	}
	return int8(b[off])
}

// Byte reads b[off], or 0 if out of range.
func Byte(b []byte, off int) byte {
	if off < 0 || off >= len(b) {
		return 0
	}
	return b[off]
}

// Bits expands the low n bits of mask into a slice, least significant first.
func Bits(mask uint16, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n && i < 16; i++ {
		out[i] = mask&(1<<uint(i)) != 0
	}
	return out
}
