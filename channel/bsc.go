package channel

import "math/rand/v2"

// BSC is a binary symmetric channel: every bit flips independently with probability P.
type BSC struct {
	p   float64
	rng *rand.Rand
}

// NewBSC returns a channel with flip probability p. A nil rng draws from the global generator.
func NewBSC(p float64, rng *rand.Rand) *BSC { return &BSC{p: p, rng: rng} }

// Flip reports whether the next bit is inverted.
func (b *BSC) Flip() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	if b.rng == nil {
		return rand.Float64() < b.p
	}
	return b.rng.Float64() < b.p
}

// Apply returns a copy of bits with the channel's errors applied.
func (b *BSC) Apply(bits []uint8) []uint8 {
	out := make([]uint8, len(bits))
	for i, v := range bits {
		if b.Flip() {
			v ^= 1
		}
		out[i] = v & 1
	}
	return out
}
