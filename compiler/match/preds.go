package match

import "github.com/slowlang/irdiff/compiler/ir"

type (
	// PredPairing proposes predecessor block pairs of a block pair under attempt.
	PredPairing interface {
		PairPreds(l, r *ir.Program, lb, rb ir.BlockID, propose func(l, r ir.BlockID))
	}

	// Positional pairs the i-th predecessors of both blocks. It does not
	// look at which edge a predecessor stands for.
	Positional struct{}
)

func (Positional) PairPreds(l, r *ir.Program, lb, rb ir.BlockID, propose func(l, r ir.BlockID)) {
	lp, rp := l.Blocks[lb].Preds, r.Blocks[rb].Preds

	for i := 0; i < len(lp) && i < len(rp); i++ {
		propose(lp[i], rp[i])
	}
}
