// Package bitstream converts messages to bit vectors and back, and measures bit error rates.
// Bits are []uint8 holding 0 or 1, packed most significant bit first.
package bitstream

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FromText returns the UTF-8 bytes of s as bits.
func FromText(s string) []uint8 { return FromBytes([]byte(s)) }

// FromBytes unpacks every byte MSB first.
func FromBytes(b []byte) []uint8 {
	bits := make([]uint8, 0, 8*len(b))
	for _, by := range b {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (by>>uint(i))&1)
		}
	}
	return bits
}

// ToBytes zero-pads bits to a multiple of 8 and packs them MSB first.
func ToBytes(bits []uint8) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b&1 == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// ToText packs bits and decodes them as UTF-8, replacing non-printable runes with '?'.
// If the bytes are not valid UTF-8 at all, the result is one '?' per byte.
func ToText(bits []uint8) string {
	b := ToBytes(bits)
	if !utf8.Valid(b) {
		return strings.Repeat("?", len(b))
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return '?'
	}, string(b))
}

// Pad appends zeros until len(bits) is a multiple of multiple. The input is not modified.
func Pad(bits []uint8, multiple int) []uint8 {
	out := append([]uint8(nil), bits...)
	if multiple <= 1 {
		return out
	}
	if rem := len(out) % multiple; rem != 0 {
		out = append(out, make([]uint8, multiple-rem)...)
	}
	return out
}

// CountErrors counts mismatches over the common prefix of tx and rx.
func CountErrors(tx, rx []uint8) int {
	n := min(len(tx), len(rx))
	errs := 0
	for i := 0; i < n; i++ {
		if tx[i]&1 != rx[i]&1 {
			errs++
		}
	}
	return errs
}

// BER is the error fraction over the common prefix. An empty prefix means nothing was
// received and counts as total loss (1.0).
func BER(tx, rx []uint8) float64 {
	n := min(len(tx), len(rx))
	if n == 0 {
		return 1
	}
	return float64(CountErrors(tx, rx)) / float64(n)
}
