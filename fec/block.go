package fec

// Fixed linear block codes used alongside the polar codec.

// RepetitionEncode sends every bit three times.
func RepetitionEncode(bits []uint8) []uint8 {
	out := make([]uint8, 0, 3*len(bits))
	for _, b := range bits {
		b &= 1
		out = append(out, b, b, b)
	}
	return out
}

// RepetitionDecode majority-votes each complete triplet; a trailing partial triplet is dropped.
func RepetitionDecode(bits []uint8) []uint8 {
	n := len(bits) / 3
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		t := bits[3*i : 3*i+3]
		if (t[0]&1)+(t[1]&1)+(t[2]&1) >= 2 {
			out[i] = 1
		}
	}
	return out
}

// hammingG is the 7x4 generator: codeword = G·d mod 2. Data bits sit at positions 2, 4, 5, 6
// and parities at 0, 1, 3.
var hammingG = [7][4]uint8{
	{1, 1, 0, 1},
	{1, 0, 1, 1},
	{1, 0, 0, 0},
	{0, 1, 1, 1},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
	{0, 0, 0, 1},
}

// hammingBook lists the 16 codewords indexed by message value (MSB = first message bit).
var hammingBook = func() (book [16][7]uint8) {
	for m := 0; m < 16; m++ {
		d := [4]uint8{uint8(m>>3) & 1, uint8(m>>2) & 1, uint8(m>>1) & 1, uint8(m) & 1}
		book[m] = hammingBlock(d)
	}
	return book
}()

func hammingBlock(d [4]uint8) (cw [7]uint8) {
	for r := 0; r < 7; r++ {
		var acc uint8
		for c := 0; c < 4; c++ {
			acc ^= hammingG[r][c] & d[c]
		}
		cw[r] = acc
	}
	return cw
}

// HammingEncode zero-pads the input to a multiple of 4 and encodes each nibble into 7 bits.
func HammingEncode(bits []uint8) []uint8 {
	blocks := (len(bits) + 3) / 4
	out := make([]uint8, 0, 7*blocks)
	for b := 0; b < blocks; b++ {
		var d [4]uint8
		for j := 0; j < 4; j++ {
			if k := 4*b + j; k < len(bits) {
				d[j] = bits[k] & 1
			}
		}
		cw := hammingBlock(d)
		out = append(out, cw[:]...)
	}
	return out
}

// HammingDecode matches every complete 7-bit block against all codewords and returns the
// message of the nearest one (first minimum wins). Trailing partial blocks are dropped.
// One error per block is always corrected; two or more may be mis-corrected.
func HammingDecode(bits []uint8) []uint8 {
	blocks := len(bits) / 7
	out := make([]uint8, 0, 4*blocks)
	for b := 0; b < blocks; b++ {
		rx := bits[7*b : 7*b+7]
		best, bestDist := 0, 8
		for m, cw := range hammingBook {
			dist := 0
			for j := 0; j < 7; j++ {
				if rx[j]&1 != cw[j] {
					dist++
				}
			}
			if dist < bestDist {
				best, bestDist = m, dist
			}
		}
		out = append(out, uint8(best>>3)&1, uint8(best>>2)&1, uint8(best>>1)&1, uint8(best)&1)
	}
	return out
}
