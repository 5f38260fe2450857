package fec

// scScratch holds one LLR buffer and one partial-codeword buffer per tree depth.
// llr[d] and part[d] have 1<<d entries.
type scScratch struct {
	llr  [][]float64
	part [][]uint8
}

func newSCScratch(n int) *scScratch {
	s := &scScratch{llr: make([][]float64, n), part: make([][]uint8, n)}
	for d := 0; d < n; d++ {
		s.llr[d] = make([]float64, 1<<d)
		s.part[d] = make([]uint8, 1<<d)
	}
	return s
}

func (c *PolarCodec) decodeSC(llr []float64) []uint8 {
	u := make([]uint8, c.N)
	c.scNode(llr, 0, c.n, u, newSCScratch(c.n))
	return c.gather(u)
}

// scNode decodes the subtree of 1<<d leaves starting at offset, writing decisions into u.
func (c *PolarCodec) scNode(llr []float64, offset, d int, u []uint8, s *scScratch) {
	if d == 0 {
		if c.frozen[offset] || llr[0] >= 0 {
			u[offset] = 0
		} else {
			u[offset] = 1
		}
		return
	}
	half := 1 << (d - 1)
	upper, lower := llr[:half], llr[half:]
	child := s.llr[d-1]
	for i := 0; i < half; i++ {
		child[i] = minSum(upper[i], lower[i])
	}
	c.scNode(child, offset, d-1, u, s)

	// re-encode the left decisions to get the partial codeword seen by the right child
	part := s.part[d-1]
	copy(part, u[offset:offset+half])
	polarTransform(part)
	for i := 0; i < half; i++ {
		child[i] = combine(upper[i], lower[i], part[i])
	}
	c.scNode(child, offset+half, d-1, u, s)
}
