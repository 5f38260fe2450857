// Package channel perturbs transmitted symbols or bits. Randomness is always supplied by the
// caller so runs are reproducible.
package channel

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseVariance returns N0 = Es / 10^(snrDB/10), where Es is the mean symbol energy.
// An all-zero or empty input is treated as Es = 1.
func NoiseVariance(sym []complex128, snrDB float64) float64 {
	es := 0.0
	if len(sym) > 0 {
		energy := make([]float64, len(sym))
		for i, s := range sym {
			a := cmplx.Abs(s)
			energy[i] = a * a
		}
		es = stat.Mean(energy, nil)
	}
	if es == 0 {
		es = 1
	}
	return es / math.Pow(10, snrDB/10)
}

// AWGN adds circular complex Gaussian noise CN(0, N0) at a fixed Es/N0.
type AWGN struct {
	SNRdB float64
	Src   rand.Source
}

// Apply returns noisy copies of sym and the noise variance N0 it used. Real and imaginary
// parts each get variance N0/2. A nil Src draws from the global generator.
func (c AWGN) Apply(sym []complex128) ([]complex128, float64) {
	n0 := NoiseVariance(sym, c.SNRdB)
	out := make([]complex128, len(sym))
	if len(sym) == 0 {
		return out, n0
	}
	noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(n0 / 2), Src: c.Src}
	for i, s := range sym {
		re := noise.Rand()
		im := noise.Rand()
		out[i] = s + complex(re, im)
	}
	return out, n0
}
