// Package sim chains coded transmissions over noisy hops and runs Monte Carlo BER sweeps.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/observe-l/phylink/bitstream"
	"github.com/observe-l/phylink/channel"
	"github.com/observe-l/phylink/fec"
	"github.com/observe-l/phylink/internal/metrics"
	"github.com/observe-l/phylink/modem"
)

var ErrNoHops = errors.New("sim: link has no hops")

// BlockedSNR marks a hop whose path is obstructed. Such a hop is still simulated, but a
// transmission crossing it never passes.
const BlockedSNR = -900.0

// Hop describes one transmission leg.
type Hop struct {
	Name       string
	Scheme     fec.Scheme
	Modulation modem.Modulation
	SNRdB      float64
	Noiseless  bool    // skip the channel, symbols arrive unchanged
	FlipProb   float64 // > 0 replaces modulation and AWGN with a binary symmetric channel
	Method     fec.Method
	Options    fec.DecodeOptions
	Genie      bool  // hand the hop's input to SCL as list-selection reference
	Order      []int // polar reliability sequence, nil for the Bhattacharyya construction
}

func (h Hop) blocked() bool { return h.SNRdB <= BlockedSNR }

type HopResult struct {
	Name        string
	SNRdB       float64
	EncodedBits int
	BitErrors   int
	BER         float64
	Decode      time.Duration
}

// Result of one end-to-end transmission. BER compares the final output to the original message.
type Result struct {
	Hops      []HopResult
	Received  []uint8
	BitErrors int
	BER       float64
}

func (r Result) Blocked() bool {
	for _, h := range r.Hops {
		if h.SNRdB <= BlockedSNR {
			return true
		}
	}
	return false
}

// Passed reports whether the end-to-end BER meets threshold. A BER above 0.5 or a blocked hop
// always fails.
func (r Result) Passed(threshold float64) bool {
	if r.Blocked() || r.BER > 0.5 {
		return false
	}
	return r.BER <= threshold+1e-6
}

// Link is an immutable chain of hops with their coders resolved. Safe for concurrent use.
type Link struct {
	hops    []Hop
	coders  []*fec.Coder
	log     *zap.Logger
	metrics *metrics.Collectors
}

type Option func(*Link)

func WithLogger(l *zap.Logger) Option { return func(k *Link) { k.log = l } }

func WithMetrics(m *metrics.Collectors) Option { return func(k *Link) { k.metrics = m } }

func NewLink(hops []Hop, opts ...Option) (*Link, error) {
	if len(hops) == 0 {
		return nil, ErrNoHops
	}
	l := &Link{
		hops:   append([]Hop(nil), hops...),
		coders: make([]*fec.Coder, len(hops)),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	for i, h := range hops {
		c, err := fec.NewCoder(h.Scheme, fec.WithReliabilityOrder(h.Order))
		if err != nil {
			return nil, fmt.Errorf("hop %d (%s): %w", i, h.Name, err)
		}
		l.coders[i] = c
	}
	return l, nil
}

func (l *Link) Hops() []Hop { return append([]Hop(nil), l.hops...) }

// Transmit sends bits across every hop in order; each hop forwards what it decoded. src drives
// the channel noise and is used from this goroutine only. A nil src draws from the global
// generator.
func (l *Link) Transmit(ctx context.Context, bits []uint8, src rand.Source) (Result, error) {
	res := Result{Hops: make([]HopResult, 0, len(l.hops))}
	cur := bits
	for i := range l.hops {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		hr, out, err := l.hop(i, cur, src)
		if err != nil {
			return Result{}, err
		}
		res.Hops = append(res.Hops, hr)
		cur = out
	}
	res.Received = cur
	res.BitErrors = bitstream.CountErrors(bits, cur)
	res.BER = bitstream.BER(bits, cur)
	return res, nil
}

func (l *Link) hop(i int, in []uint8, src rand.Source) (HopResult, []uint8, error) {
	h, coder := l.hops[i], l.coders[i]
	enc, err := coder.Encode(in)
	if err != nil {
		return HopResult{}, nil, fmt.Errorf("hop %d encode: %w", i, err)
	}
	var (
		hard []uint8
		llr  []float64
	)
	if h.FlipProb > 0 {
		var rng *rand.Rand
		if src != nil {
			rng = rand.New(src)
		}
		hard = channel.NewBSC(h.FlipProb, rng).Apply(enc)
	} else {
		sym := modem.Modulate(enc, h.Modulation)
		var (
			rx []complex128
			n0 float64
		)
		if h.Noiseless {
			rx, n0 = sym, channel.NoiseVariance(sym, h.SNRdB)
		} else {
			rx, n0 = channel.AWGN{SNRdB: h.SNRdB, Src: src}.Apply(sym)
		}
		// QPSK may have padded one bit
		hard = modem.DemodulateHard(rx, h.Modulation)[:len(enc)]
		llr = modem.DemodulateLLR(rx, h.Modulation, n0)[:len(enc)]
	}

	opts := h.Options
	if h.Genie {
		opts.GroundTruth = in
	}
	start := time.Now()
	dec, err := coder.Decode(fec.Received{Hard: hard, LLR: llr}, len(in), h.Method, opts)
	elapsed := time.Since(start)
	if err != nil {
		return HopResult{}, nil, fmt.Errorf("hop %d decode: %w", i, err)
	}
	out := fit(dec, len(in))

	hr := HopResult{
		Name:        h.Name,
		SNRdB:       h.SNRdB,
		EncodedBits: len(enc),
		BitErrors:   bitstream.CountErrors(in, out),
		BER:         bitstream.BER(in, out),
		Decode:      elapsed,
	}
	l.metrics.ObserveHop(h.Scheme.String(), h.Method.String(), len(in), hr.BitErrors, elapsed)
	if ce := l.log.Check(zap.DebugLevel, "hop decoded"); ce != nil {
		ce.Write(
			zap.Int("hop", i),
			zap.String("name", h.Name),
			zap.Stringer("scheme", h.Scheme),
			zap.Stringer("modulation", h.Modulation),
			zap.Float64("snr_db", h.SNRdB),
			zap.Bool("blocked", h.blocked()),
			zap.Int("encoded_bits", len(enc)),
			zap.Int("bit_errors", hr.BitErrors),
			zap.Duration("decode", elapsed),
		)
	}
	return hr, out, nil
}

// fit truncates or zero-pads bits to n.
func fit(bits []uint8, n int) []uint8 {
	if len(bits) >= n {
		return bits[:n]
	}
	out := make([]uint8, n)
	copy(out, bits)
	return out
}
