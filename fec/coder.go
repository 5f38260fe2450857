package fec

import (
	"fmt"
	"sync"
)

// Auto-sized polar limits.
const (
	autoMinN = 16
	autoMaxN = 1024
)

// Received is what a demodulator hands to the decoder: hard decisions and, when available,
// soft LLRs (positive = bit 0) of the same length.
type Received struct {
	Hard []uint8
	LLR  []float64
}

func (r Received) hard() []uint8 {
	if r.Hard != nil || r.LLR == nil {
		return r.Hard
	}
	h := make([]uint8, len(r.LLR))
	for i, v := range r.LLR {
		if v < 0 {
			h[i] = 1
		}
	}
	return h
}

func (r Received) soft() []float64 {
	if r.LLR != nil {
		return r.LLR
	}
	return HardToLLR(r.Hard)
}

// Coder applies a Scheme to bitstreams of arbitrary length. Fixed-size polar input is padded
// to a multiple of K and coded block by block. The codec for a fixed scheme is built once in
// NewCoder; auto-sized codecs are built on first use and cached. Safe for concurrent use.
type Coder struct {
	scheme Scheme
	order  []int // external reliability sequence, nil for Bhattacharyya construction
	polar  *PolarCodec

	auto sync.Map // [2]int{N,K} -> *PolarCodec
}

// CoderOption configures a Coder.
type CoderOption func(*Coder)

// WithReliabilityOrder makes polar codecs take their information set from order (most
// reliable first, as written by SaveReliabilityOrder) instead of the Bhattacharyya
// construction. Entries outside [0, N) are skipped, so one sequence serves every auto size up
// to its length. Non-polar schemes ignore it.
func WithReliabilityOrder(order []int) CoderOption {
	return func(c *Coder) { c.order = order }
}

// NewCoder resolves s once. Fixed-size polar schemes build their codec here, so bad N or K
// fail now rather than on the first Encode.
func NewCoder(s Scheme, opts ...CoderOption) (*Coder, error) {
	c := &Coder{scheme: s}
	for _, o := range opts {
		o(c)
	}
	switch s.Kind {
	case SchemeNone, SchemeRepetition, SchemeHamming74:
	case SchemePolar:
		if s.Auto() {
			break
		}
		pc, err := c.newCodec(s.N, s.K)
		if err != nil {
			return nil, err
		}
		if s.K == 0 {
			return nil, fmt.Errorf("%w: %s carries no information", ErrInvalidK, s)
		}
		c.polar = pc
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrBadScheme, s.Kind)
	}
	return c, nil
}

func (c *Coder) Scheme() Scheme { return c.scheme }

// Encode channel-codes bits. Empty input yields empty output for every scheme.
func (c *Coder) Encode(bits []uint8) ([]uint8, error) {
	if len(bits) == 0 {
		return []uint8{}, nil
	}
	switch c.scheme.Kind {
	case SchemeRepetition:
		return RepetitionEncode(bits), nil
	case SchemeHamming74:
		return HammingEncode(bits), nil
	case SchemePolar:
		if c.scheme.Auto() {
			return c.encodeAuto(bits)
		}
		return c.encodeBlocks(c.polar, bits)
	}
	return append([]uint8(nil), bits...), nil
}

func (c *Coder) encodeBlocks(pc *PolarCodec, bits []uint8) ([]uint8, error) {
	K := pc.K
	blocks := (len(bits) + K - 1) / K
	padded := make([]uint8, blocks*K)
	copy(padded, bits)
	out := make([]uint8, 0, blocks*pc.N)
	for b := 0; b < blocks; b++ {
		cw, err := pc.Encode(padded[b*K : (b+1)*K])
		if err != nil {
			return nil, err
		}
		out = append(out, cw...)
	}
	return out, nil
}

// encodeAuto codes the whole message as one block with N the next power of two >= 2K,
// clamped to [16, 1024]. Messages longer than N/2 are truncated to N/2 bits.
func (c *Coder) encodeAuto(bits []uint8) ([]uint8, error) {
	K := len(bits)
	N := autoN(K)
	if K > N/2 {
		K = N / 2
	}
	pc, err := c.autoCodec(N, K)
	if err != nil {
		return nil, err
	}
	return pc.Encode(bits[:K])
}

func autoN(K int) int {
	N := 1
	for N < 2*K {
		N <<= 1
	}
	return min(max(N, autoMinN), autoMaxN)
}

func (c *Coder) newCodec(N, K int) (*PolarCodec, error) {
	if c.order != nil {
		return NewPolarCodecFromOrder(N, K, c.order)
	}
	return NewPolarCodec(N, K)
}

func (c *Coder) autoCodec(N, K int) (*PolarCodec, error) {
	key := [2]int{N, K}
	if v, ok := c.auto.Load(key); ok {
		return v.(*PolarCodec), nil
	}
	pc, err := c.newCodec(N, K)
	if err != nil {
		return nil, err
	}
	v, _ := c.auto.LoadOrStore(key, pc)
	return v.(*PolarCodec), nil
}

// Decode inverts Encode. msgLen is the original message length: output longer than msgLen
// (block padding) is truncated, and auto-sized polar uses it to recover K. Method and opts only
// affect polar schemes; opts.GroundTruth is sliced per block.
func (c *Coder) Decode(rx Received, msgLen int, m Method, opts DecodeOptions) ([]uint8, error) {
	var (
		out []uint8
		err error
	)
	switch c.scheme.Kind {
	case SchemeNone:
		out = append([]uint8(nil), rx.hard()...)
	case SchemeRepetition:
		out = RepetitionDecode(rx.hard())
	case SchemeHamming74:
		out = HammingDecode(rx.hard())
	case SchemePolar:
		if c.scheme.Auto() {
			out, err = c.decodeAuto(rx.soft(), msgLen, m, opts)
		} else {
			out, err = c.decodeBlocks(c.polar, rx.soft(), m, opts)
		}
		if err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []uint8{}
	}
	if msgLen > 0 && len(out) > msgLen {
		out = out[:msgLen]
	}
	return out, nil
}

// decodeBlocks decodes every complete N-LLR block; a trailing partial block is dropped.
func (c *Coder) decodeBlocks(pc *PolarCodec, llr []float64, m Method, opts DecodeOptions) ([]uint8, error) {
	N, K := pc.N, pc.K
	blocks := len(llr) / N
	truth := opts.GroundTruth
	out := make([]uint8, 0, blocks*K)
	for b := 0; b < blocks; b++ {
		o := opts
		o.GroundTruth = truthBlock(truth, b*K, K)
		u, err := pc.Decode(llr[b*N:(b+1)*N], m, o)
		if err != nil {
			return nil, err
		}
		out = append(out, u...)
	}
	return out, nil
}

// truthBlock returns truth[start:start+K] zero-padded to K, or nil when truth does not reach start.
func truthBlock(truth []uint8, start, K int) []uint8 {
	if truth == nil || start >= len(truth) {
		return nil
	}
	blk := make([]uint8, K)
	copy(blk, truth[start:min(start+K, len(truth))])
	return blk
}

func (c *Coder) decodeAuto(llr []float64, msgLen int, m Method, opts DecodeOptions) ([]uint8, error) {
	N := len(llr)
	if N == 0 {
		return []uint8{}, nil
	}
	if _, err := log2Exact(N); err != nil {
		return nil, err
	}
	K := msgLen
	if K <= 0 || K > N/2 {
		K = N / 2
	}
	pc, err := c.autoCodec(N, K)
	if err != nil {
		return nil, err
	}
	opts.GroundTruth = truthBlock(opts.GroundTruth, 0, K)
	return pc.Decode(llr, m, opts)
}
