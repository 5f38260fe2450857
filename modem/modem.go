// Package modem maps bits to BPSK/QPSK symbols and back, with hard or soft (LLR) output.
//
// Both constellations use b -> 2b-1 per real dimension, so a positive component means bit 1.
// LLRs follow the decoder convention of package fec: positive favours bit 0.
package modem

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownModulation is returned by ParseModulation for unsupported names.
var ErrUnknownModulation = errors.New("modem: unknown modulation")

// Modulation is a symbol mapping.
type Modulation uint8

// Supported modulations.
const (
	BPSK Modulation = iota
	QPSK
)

func (m Modulation) String() string {
	switch m {
	case BPSK:
		return "BPSK"
	case QPSK:
		return "QPSK"
	}
	return fmt.Sprintf("Modulation(%d)", uint8(m))
}

// ParseModulation is case-insensitive; an empty string selects BPSK.
func ParseModulation(s string) (Modulation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BPSK":
		return BPSK, nil
	case "QPSK":
		return QPSK, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModulation, s)
}

func (m Modulation) BitsPerSymbol() int {
	if m == QPSK {
		return 2
	}
	return 1
}

// minNoiseVar keeps LLRs finite on a noiseless channel.
const minNoiseVar = 1e-9

// Modulate maps bits to unit-energy symbols. QPSK pads an odd-length input with one zero bit.
func Modulate(bits []uint8, m Modulation) []complex128 {
	if m != QPSK {
		sym := make([]complex128, len(bits))
		for i, b := range bits {
			sym[i] = complex(level(b), 0)
		}
		return sym
	}
	sym := make([]complex128, (len(bits)+1)/2)
	for k := range sym {
		var q uint8
		if 2*k+1 < len(bits) {
			q = bits[2*k+1]
		}
		sym[k] = complex(level(bits[2*k]), level(q)) / math.Sqrt2
	}
	return sym
}

func level(b uint8) float64 { return 2*float64(b&1) - 1 }

// DemodulateHard decides bit 1 iff the component is strictly positive. QPSK yields I then Q
// for every symbol.
func DemodulateHard(sym []complex128, m Modulation) []uint8 {
	bits := make([]uint8, 0, len(sym)*m.BitsPerSymbol())
	for _, s := range sym {
		bits = append(bits, positive(real(s)))
		if m == QPSK {
			bits = append(bits, positive(imag(s)))
		}
	}
	return bits
}

func positive(v float64) uint8 {
	if v > 0 {
		return 1
	}
	return 0
}

// DemodulateLLR returns per-bit LLRs -(2/noiseVar)·component, scaled by 1/√2 for QPSK
// (I at even, Q at odd indices). noiseVar is the complex noise variance N0.
func DemodulateLLR(sym []complex128, m Modulation, noiseVar float64) []float64 {
	scale := -2 / math.Max(noiseVar, minNoiseVar)
	if m == QPSK {
		scale /= math.Sqrt2
	}
	llr := make([]float64, 0, len(sym)*m.BitsPerSymbol())
	for _, s := range sym {
		llr = append(llr, scale*real(s))
		if m == QPSK {
			llr = append(llr, scale*imag(s))
		}
	}
	return llr
}
