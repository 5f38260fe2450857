package sim

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrBadSweep = errors.New("sim: invalid sweep configuration")

// SweepConfig runs Trials random messages of MessageBits bits through a single-hop link built
// from Hop at every SNR in SNRs.
type SweepConfig struct {
	Hop         Hop // SNRdB is replaced per point
	SNRs        []float64
	Trials      int
	MessageBits int
	Seed        uint64
	Workers     int // <= 0 means GOMAXPROCS
}

// Point aggregates one SNR value. A frame error is any trial with at least one bit error.
type Point struct {
	SNRdB       float64 `json:"snr_db"`
	Trials      int     `json:"trials"`
	Bits        int     `json:"bits"`
	BitErrors   int     `json:"bit_errors"`
	FrameErrors int     `json:"frame_errors"`
	BER         float64 `json:"ber"`
	FER         float64 `json:"fer"`
}

// Sweep evaluates every SNR point in parallel. Point i draws all of its randomness from
// PCG(Seed, i), so the output does not depend on scheduling. Points come back sorted by SNR.
func Sweep(ctx context.Context, cfg SweepConfig, opts ...Option) ([]Point, error) {
	if len(cfg.SNRs) == 0 || cfg.Trials <= 0 || cfg.MessageBits <= 0 {
		return nil, ErrBadSweep
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	links := make([]*Link, len(cfg.SNRs))
	for i, snr := range cfg.SNRs {
		h := cfg.Hop
		h.SNRdB = snr
		l, err := NewLink([]Hop{h}, opts...)
		if err != nil {
			return nil, err
		}
		links[i] = l
	}

	points := make([]Point, len(cfg.SNRs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range cfg.SNRs {
		g.Go(func() error {
			p, err := runPoint(ctx, links[i], cfg, uint64(i))
			if err != nil {
				return err
			}
			points[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(points, func(a, b Point) int {
		switch {
		case a.SNRdB < b.SNRdB:
			return -1
		case a.SNRdB > b.SNRdB:
			return 1
		}
		return 0
	})
	return points, nil
}

func runPoint(ctx context.Context, l *Link, cfg SweepConfig, idx uint64) (Point, error) {
	src := rand.NewPCG(cfg.Seed, idx)
	r := rand.New(src)
	h := l.hops[0]
	p := Point{SNRdB: h.SNRdB, Trials: cfg.Trials}
	msg := make([]uint8, cfg.MessageBits)
	for t := 0; t < cfg.Trials; t++ {
		if err := ctx.Err(); err != nil {
			return Point{}, err
		}
		for j := range msg {
			msg[j] = uint8(r.IntN(2))
		}
		res, err := l.Transmit(ctx, msg, src)
		if err != nil {
			return Point{}, err
		}
		p.Bits += len(msg)
		p.BitErrors += res.BitErrors
		if res.BitErrors > 0 {
			p.FrameErrors++
		}
	}
	p.BER = float64(p.BitErrors) / float64(p.Bits)
	p.FER = float64(p.FrameErrors) / float64(p.Trials)
	l.metrics.SetSweepBER(h.Scheme.String(), h.Method.String(), p.SNRdB, p.BER)
	l.log.Info("sweep point done",
		zap.Stringer("scheme", h.Scheme),
		zap.Stringer("method", h.Method),
		zap.Float64("snr_db", p.SNRdB),
		zap.Int("trials", p.Trials),
		zap.Float64("ber", p.BER),
		zap.Float64("fer", p.FER),
	)
	return p, nil
}
