package fec

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Errors returned by polar construction and coding.
var (
	ErrNotPowerOfTwo = errors.New("polar: N must be a power of two")
	ErrInvalidK      = errors.New("polar: K must be in [0, N]")
	ErrLength        = errors.New("polar: input length mismatch")
	ErrShortOrder    = errors.New("polar: reliability order has fewer than K usable indices")
	ErrUnknownMethod = errors.New("polar: unknown decode method")
)

// Method selects a polar decoder.
type Method uint8

// Polar decoders.
const (
	MethodSC Method = iota
	MethodSCL
	MethodBP
)

// String returns the decoder name accepted by ParseMethod.
func (m Method) String() string {
	switch m {
	case MethodSC:
		return "SC"
	case MethodSCL:
		return "SCL"
	case MethodBP:
		return "BP"
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// ParseMethod accepts SC, SCL and any name containing BP (e.g. "BP", "MinSumBP"), case-insensitively.
func ParseMethod(s string) (Method, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case u == "SC":
		return MethodSC, nil
	case u == "SCL":
		return MethodSCL, nil
	case strings.Contains(u, "BP"):
		return MethodBP, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Decoder defaults used when DecodeOptions leaves a field at zero.
const (
	DefaultListSize = 4
	DefaultMaxIter  = 20
)

// DecodeOptions carries per-call decoder parameters. Zero values select the defaults.
type DecodeOptions struct {
	ListSize int // SCL list size L
	MaxIter  int // BP iteration budget

	// GroundTruth, when it holds exactly K bits, makes SCL return the surviving path whose
	// information bits equal it (genie-aided selection). Evaluation hook only: a real receiver
	// has no such reference and would use a CRC instead.
	GroundTruth []uint8
}

func (o DecodeOptions) withDefaults() DecodeOptions {
	if o.ListSize <= 0 {
		o.ListSize = DefaultListSize
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	return o
}

// PolarCodec is the immutable construction for one (N, K) pair: the reliability order,
// the K information positions and the frozen mask. It is safe for concurrent use;
// every Encode/Decode call allocates its own scratch.
type PolarCodec struct {
	N, K int

	n      int    // log2 N
	order  []int  // all positions, most reliable first
	info   []int  // K information positions, ascending
	frozen []bool // true = frozen to 0
}

// NewPolarCodec builds the codec using the Bhattacharyya-parameter construction.
func NewPolarCodec(N, K int) (*PolarCodec, error) {
	z, err := Bhattacharyya(N)
	if err != nil {
		return nil, err
	}
	if K < 0 || K > N {
		return nil, fmt.Errorf("%w: N=%d K=%d", ErrInvalidK, N, K)
	}
	return newPolarCodec(N, K, reliabilityOrder(z)), nil
}

// NewPolarCodecFromOrder builds the codec from an external reliability sequence (most reliable
// first). Entries outside [0, N) and duplicates are skipped, so a universal sequence for a
// larger N can be reused.
func NewPolarCodecFromOrder(N, K int, order []int) (*PolarCodec, error) {
	if _, err := log2Exact(N); err != nil {
		return nil, err
	}
	if K < 0 || K > N {
		return nil, fmt.Errorf("%w: N=%d K=%d", ErrInvalidK, N, K)
	}
	seen := make([]bool, N)
	full := make([]int, 0, N)
	for _, idx := range order {
		if idx < 0 || idx >= N || seen[idx] {
			continue
		}
		seen[idx] = true
		full = append(full, idx)
	}
	if len(full) < K {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrShortOrder, len(full), K)
	}
	// positions the sequence never mentions rank last
	for i := 0; i < N; i++ {
		if !seen[i] {
			full = append(full, i)
		}
	}
	return newPolarCodec(N, K, full), nil
}

func newPolarCodec(N, K int, order []int) *PolarCodec {
	n, _ := log2Exact(N)
	info := append([]int(nil), order[:K]...)
	sort.Ints(info)
	frozen := make([]bool, N)
	for i := range frozen {
		frozen[i] = true
	}
	for _, pos := range info {
		frozen[pos] = false
	}
	return &PolarCodec{N: N, K: K, n: n, order: order, info: info, frozen: frozen}
}

// Bhattacharyya returns the per-position Bhattacharyya parameters for code length N,
// starting from z0 = 0.5 and applying z[:L] = concat(2p-p^2, p^2) for every doubling L.
// Lower is more reliable.
func Bhattacharyya(N int) ([]float64, error) {
	if _, err := log2Exact(N); err != nil {
		return nil, err
	}
	z := make([]float64, N)
	z[0] = 0.5
	prev := make([]float64, N/2+1)
	for L := 2; L <= N; L <<= 1 {
		half := L / 2
		copy(prev[:half], z[:half])
		for i := 0; i < half; i++ {
			p := prev[i]
			z[i] = 2*p - p*p
			z[half+i] = p * p
		}
	}
	return z, nil
}

// reliabilityOrder sorts positions ascending by z; equal parameters keep index order.
func reliabilityOrder(z []float64) []int {
	idx := make([]int, len(z))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return z[idx[a]] < z[idx[b]] })
	return idx
}

func log2Exact(N int) (int, error) {
	if N <= 0 || N&(N-1) != 0 {
		return 0, fmt.Errorf("%w: N=%d", ErrNotPowerOfTwo, N)
	}
	return bits.TrailingZeros(uint(N)), nil
}

// InfoIndices returns a copy of the K information positions, ascending.
func (c *PolarCodec) InfoIndices() []int { return append([]int(nil), c.info...) }

// FrozenMask returns a copy of the frozen mask (true = frozen).
func (c *PolarCodec) FrozenMask() []bool { return append([]bool(nil), c.frozen...) }

// ReliabilityOrder returns a copy of all N positions, most reliable first.
func (c *PolarCodec) ReliabilityOrder() []int { return append([]int(nil), c.order...) }

// Rate is K/N.
func (c *PolarCodec) Rate() float64 { return float64(c.K) / float64(c.N) }

// Encode scatters the K message bits onto the information positions, zeroes the frozen
// ones and applies the polarization transform.
func (c *PolarCodec) Encode(u []uint8) ([]uint8, error) {
	if len(u) != c.K {
		return nil, fmt.Errorf("%w: encode got %d bits, want K=%d", ErrLength, len(u), c.K)
	}
	x := make([]uint8, c.N)
	for i, pos := range c.info {
		x[pos] = u[i] & 1
	}
	polarTransform(x)
	return x, nil
}

// polarTransform applies F^{⊗n} in place: for every stage, the lower half of each block is
// XORed into its upper half. The transform is its own inverse.
func polarTransform(x []uint8) {
	N := len(x)
	for half := 1; half < N; half <<= 1 {
		block := half << 1
		for start := 0; start < N; start += block {
			for k := 0; k < half; k++ {
				x[start+k] ^= x[start+k+half]
			}
		}
	}
}

// Decode recovers the K information bits from N channel LLRs (positive = bit 0).
// A wrong answer under noise is a normal outcome, not an error.
func (c *PolarCodec) Decode(llr []float64, m Method, opts DecodeOptions) ([]uint8, error) {
	if len(llr) != c.N {
		return nil, fmt.Errorf("%w: decode got %d LLRs, want N=%d", ErrLength, len(llr), c.N)
	}
	opts = opts.withDefaults()
	switch m {
	case MethodSC:
		return c.decodeSC(llr), nil
	case MethodSCL:
		u, _ := c.decodeSCL(llr, opts.ListSize, opts.GroundTruth)
		return u, nil
	case MethodBP:
		return c.decodeBP(llr, opts.MaxIter), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, m)
}

// HardLLR is the confidence given to hard-decided bits when no soft information exists.
const HardLLR = 5.0

// DecodeHard decodes hard bit decisions by mapping 0 to +HardLLR and 1 to -HardLLR.
func (c *PolarCodec) DecodeHard(rx []uint8, m Method, opts DecodeOptions) ([]uint8, error) {
	return c.Decode(HardToLLR(rx), m, opts)
}

// HardToLLR maps bits to ±HardLLR.
func HardToLLR(rx []uint8) []float64 {
	llr := make([]float64, len(rx))
	for i, b := range rx {
		if b&1 == 0 {
			llr[i] = HardLLR
		} else {
			llr[i] = -HardLLR
		}
	}
	return llr
}

// gather extracts the information bits from a full u vector.
func (c *PolarCodec) gather(u []uint8) []uint8 {
	out := make([]uint8, c.K)
	for i, pos := range c.info {
		out[i] = u[pos]
	}
	return out
}

// minSum is the check-node update sign(a)·sign(b)·min(|a|,|b|).
func minSum(a, b float64) float64 {
	s := 1.0
	if a < 0 {
		s, a = -s, -a
	}
	if b < 0 {
		s, b = -s, -b
	}
	if b < a {
		a = b
	}
	return s * a
}

// combine is the variable-node update b + (1-2u)·a given the partial-sum bit u.
func combine(a, b float64, u uint8) float64 {
	if u == 0 {
		return b + a
	}
	return b - a
}
