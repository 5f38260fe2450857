package fec

import "sort"

// sclPath is one arena slot. llr[d] holds the 1<<d LLRs of the active branch at depth d
// (llr[n] is the channel vector); bits[d] holds the partial sums at depth d over all N
// positions, bits[0] being the decided u vector.
type sclPath struct {
	llr    [][]float64
	bits   [][]uint8
	metric float64

	llrBuf []float64
	bitBuf []uint8
}

func newSCLPath(n, N int) sclPath {
	p := sclPath{
		llr:    make([][]float64, n+1),
		bits:   make([][]uint8, n+1),
		llrBuf: make([]float64, 2*N-1),
		bitBuf: make([]uint8, (n+1)*N),
	}
	off := 0
	for d := 0; d <= n; d++ {
		p.llr[d] = p.llrBuf[off : off+1<<d]
		off += 1 << d
		p.bits[d] = p.bitBuf[d*N : (d+1)*N]
	}
	return p
}

func (p *sclPath) copyFrom(q *sclPath) {
	copy(p.llrBuf, q.llrBuf)
	copy(p.bitBuf, q.bitBuf)
	p.metric = q.metric
}

// descend computes the LLRs needed to reach leaf i, top-down. At each depth a block is either
// entered on its left edge (f update) or on its midpoint (g update with the left partial sums).
func (p *sclPath) descend(i, n int) {
	for d := n; d >= 1; d-- {
		blk := 1 << d
		half := blk >> 1
		parent, child := p.llr[d], p.llr[d-1]
		switch i & (blk - 1) {
		case 0:
			for j := 0; j < half; j++ {
				child[j] = minSum(parent[j], parent[half+j])
			}
		case half:
			left := p.bits[d-1][i-half : i]
			for j := 0; j < half; j++ {
				child[j] = combine(parent[j], parent[half+j], left[j])
			}
		}
	}
}

// propagate folds the decision at leaf i into the partial sums of every block it completes.
func (p *sclPath) propagate(i, n int) {
	for d := 0; d < n; d++ {
		width := 1 << (d + 1)
		if (i+1)%width != 0 {
			return
		}
		start := i + 1 - width
		half := width >> 1
		src, dst := p.bits[d], p.bits[d+1]
		for j := 0; j < half; j++ {
			right := src[start+half+j]
			dst[start+j] = src[start+j] ^ right
			dst[start+half+j] = right
		}
	}
}

type sclCandidate struct {
	parent int
	bit    uint8
	metric float64
}

// sclArena is a fixed-capacity pool of path slots addressed by integer handle. Slots are
// allocated lazily up to the list size and recycled through the free list; forking a path
// copies its buffers into another slot, so no two live paths share memory.
type sclArena struct {
	n, N  int
	limit int
	slots []sclPath
	free  []int
	refs  []int  // surviving children per parent handle during one commit
	taken []bool // parent slot already handed to one of its children

	live, next []int
}

// sclPrealloc caps the up-front reservation; larger lists grow on demand.
const sclPrealloc = 64

func newSCLArena(n, N, capacity int) *sclArena {
	hint := min(capacity, sclPrealloc)
	return &sclArena{
		n:     n,
		N:     N,
		limit: capacity,
		slots: make([]sclPath, 0, hint),
		refs:  make([]int, 0, hint),
		taken: make([]bool, 0, hint),
		live:  make([]int, 0, hint),
		next:  make([]int, 0, hint),
	}
}

func (a *sclArena) acquire() int {
	if k := len(a.free); k > 0 {
		h := a.free[k-1]
		a.free = a.free[:k-1]
		return h
	}
	if len(a.slots) == a.limit {
		panic("scl: arena exhausted")
	}
	a.slots = append(a.slots, newSCLPath(a.n, a.N))
	a.refs = append(a.refs, 0)
	a.taken = append(a.taken, false)
	return len(a.slots) - 1
}

func (a *sclArena) release(h int) { a.free = append(a.free, h) }

// commit turns the pruned candidates into the next live list, in candidate order. Parents
// without a surviving child are released first so their slots can host forks.
func (a *sclArena) commit(cands []sclCandidate, i int) {
	for _, cd := range cands {
		a.refs[cd.parent]++
	}
	for _, h := range a.live {
		if a.refs[h] == 0 {
			a.release(h)
		}
	}
	a.next = a.next[:0]
	for _, cd := range cands {
		h := cd.parent
		if a.taken[h] {
			fork := a.acquire()
			a.slots[fork].copyFrom(&a.slots[h])
			h = fork
		} else {
			a.taken[h] = true
		}
		a.slots[h].bits[0][i] = cd.bit
		a.slots[h].metric = cd.metric
		a.next = append(a.next, h)
	}
	for _, h := range a.live {
		a.refs[h] = 0
		a.taken[h] = false
	}
	a.live, a.next = a.next, a.live
}

// decodeSCL runs successive cancellation list decoding and also reports the largest number
// of live paths seen after any pruning step.
func (c *PolarCodec) decodeSCL(llr []float64, listSize int, truth []uint8) ([]uint8, int) {
	// no more than 2^K distinct paths can exist
	listSize = min(listSize, 1<<min(c.K, 30))
	a := newSCLArena(c.n, c.N, listSize)
	root := a.acquire()
	copy(a.slots[root].llr[c.n], llr)
	a.live = append(a.live, root)

	peak := 1
	cands := make([]sclCandidate, 0, 2*min(listSize, sclPrealloc))
	for i := 0; i < c.N; i++ {
		cands = cands[:0]
		for _, h := range a.live {
			p := &a.slots[h]
			p.descend(i, c.n)
			leaf := p.llr[0][0]
			var pen0, pen1 float64
			if leaf < 0 {
				pen0 = -leaf
			} else {
				pen1 = leaf
			}
			cands = append(cands, sclCandidate{parent: h, bit: 0, metric: p.metric + pen0})
			if !c.frozen[i] {
				cands = append(cands, sclCandidate{parent: h, bit: 1, metric: p.metric + pen1})
			}
		}
		sort.SliceStable(cands, func(x, y int) bool { return cands[x].metric < cands[y].metric })
		if len(cands) > listSize {
			cands = cands[:listSize]
		}
		a.commit(cands, i)
		if len(a.live) > peak {
			peak = len(a.live)
		}
		for _, h := range a.live {
			a.slots[h].propagate(i, c.n)
		}
	}

	best := a.live[0]
	if len(truth) == c.K {
		for _, h := range a.live {
			if c.infoEquals(a.slots[h].bits[0], truth) {
				best = h
				break
			}
		}
	}
	return c.gather(a.slots[best].bits[0]), peak
}

func (c *PolarCodec) infoEquals(u, truth []uint8) bool {
	for k, pos := range c.info {
		if u[pos] != truth[k]&1 {
			return false
		}
	}
	return true
}
