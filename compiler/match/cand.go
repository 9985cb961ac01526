package match

import (
	"nikand.dev/go/heap"
	"tlog.app/go/loc"

	"github.com/slowlang/irdiff/compiler/ir"
)

type (
	// cands is the instruction-candidate queue. Pairs pop in handle order
	// so a run is deterministic.
	cands struct {
		heap.Heap[Pair]

		pending map[Pair]struct{}
	}
)

func makeCands() cands {
	return cands{
		Heap:    heap.Heap[Pair]{Less: candLess},
		pending: map[Pair]struct{}{},
	}
}

func candLess(d []Pair, i, j int) bool {
	if d[i].L != d[j].L {
		return d[i].L < d[j].L
	}

	return d[i].R < d[j].R
}

func (c *cands) push(p Pair) bool {
	if _, ok := c.pending[p]; ok {
		return false
	}

	c.pending[p] = struct{}{}
	c.Heap.Push(p)

	return true
}

// addCandidates proposes every consumer pair of a newly matched pair.
func (e *Engine) addCandidates(l, r ir.ValueID) {
	for _, lu := range e.L.Users(l) {
		if e.IsMatched(Left, lu) {
			continue
		}

		for _, ru := range e.R.Users(r) {
			if e.IsMatched(Right, ru) || e.mustDiffer(lu, ru) {
				continue
			}

			if e.cands.push(Pair{L: lu, R: ru}) {
				e.tr.V("cand").Printw("candidate", "pair", Pair{L: lu, R: ru}, "from", loc.Caller(1))
			}
		}
	}
}

// drain re-attempts pending candidates lying in the current block pair.
// Pairs resolved here expand further candidates that are drained in the
// same pass. Pairs outside the block pair stay queued.
func (e *Engine) drain(lb, rb ir.BlockID) (n int) {
	var keep []Pair

	for e.cands.Len() != 0 {
		p := e.cands.Pop()

		if e.IsMatched(Left, p.L) || e.IsMatched(Right, p.R) {
			delete(e.cands.pending, p)
			continue
		}

		keep = append(keep, p)

		if e.L.Inst(p.L).Block != lb || e.R.Inst(p.R).Block != rb {
			continue
		}

		if !e.judgeAsUser(p.L, p.R) {
			continue
		}

		e.Propose(p.L, p.R)
		e.addCandidates(p.L, p.R)

		e.tr.V("drain").Printw("candidate matched", "pair", p)

		n++
	}

	for _, p := range keep {
		e.cands.Heap.Push(p)
	}

	return n
}
