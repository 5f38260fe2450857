package fec

// bpFrozenPrior is the right-to-left prior injected at frozen positions ("this bit is 0").
const bpFrozenPrior = 1000.0

// decodeBP runs min-sum belief propagation on the (n+1)-stage butterfly graph for exactly
// maxIter iterations. Stage 0 is the channel side, stage n the u side. L carries messages
// left to right, R right to left; both are flat (n+1)*N arrays.
func (c *PolarCodec) decodeBP(llr []float64, maxIter int) []uint8 {
	N, n := c.N, c.n
	L := make([]float64, (n+1)*N)
	R := make([]float64, (n+1)*N)
	copy(L[:N], llr)
	prior := R[n*N:]
	for i, fz := range c.frozen {
		if fz {
			prior[i] = bpFrozenPrior
		}
	}
	stage := func(m []float64, s int) []float64 { return m[s*N : (s+1)*N] }

	for it := 0; it < maxIter; it++ {
		for s := 0; s < n; s++ {
			step := 1 << s
			ls, lNext, rNext := stage(L, s), stage(L, s+1), stage(R, s+1)
			for i := 0; i < N; i += 2 * step {
				for j := 0; j < step; j++ {
					up, lo := i+j, i+j+step
					lNext[up] = minSum(ls[up], ls[lo]+rNext[lo])
					lNext[lo] = ls[lo] + minSum(ls[up], rNext[up])
				}
			}
		}
		for s := n - 1; s >= 0; s-- {
			step := 1 << s
			ls, rs, rNext := stage(L, s), stage(R, s), stage(R, s+1)
			for i := 0; i < N; i += 2 * step {
				for j := 0; j < step; j++ {
					up, lo := i+j, i+j+step
					rs[up] = minSum(rNext[up], ls[lo]+rNext[lo])
					rs[lo] = rNext[lo] + minSum(rNext[up], ls[up])
				}
			}
		}
	}

	belief := stage(L, n)
	u := make([]uint8, N)
	for i := range u {
		if !c.frozen[i] && belief[i]+prior[i] < 0 {
			u[i] = 1
		}
	}
	return c.gather(u)
}
