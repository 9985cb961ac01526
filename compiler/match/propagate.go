package match

import "github.com/slowlang/irdiff/compiler/ir"

// forward matches instructions by what they consume. The left cursor moves
// on success only; the right one always moves, which tolerates
// instructions inserted on the right.
func (e *Engine) forward(lb, rb ir.BlockID) (n int) {
	li, ri := e.L.Blocks[lb].Insts, e.R.Blocks[rb].Insts

	for i, j := 0, 0; i < len(li) && j < len(ri); {
		l, r := li[i], ri[j]

		if e.IsMatched(Left, l) {
			i++
			continue
		}

		if e.IsMatched(Right, r) || !e.judgeAsUser(l, r) {
			j++
			continue
		}

		e.Propose(l, r)
		e.addCandidates(l, r)

		e.tr.V("forward").Printw("matched as user", "l", l, "r", r, "op", e.L.Inst(l).Op)

		n++
		i++
		j++
	}

	return n
}

// backward matches instructions by who consumes them, walking both blocks
// from the tail in lockstep.
func (e *Engine) backward(lb, rb ir.BlockID) (n int) {
	li, ri := e.L.Blocks[lb].Insts, e.R.Blocks[rb].Insts

	for i, j := len(li)-1, len(ri)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		l, r := li[i], ri[j]

		if e.Matched(l, r) || !e.judgeAsUsee(l, r) {
			continue
		}

		e.Propose(l, r)
		e.addCandidates(l, r)

		e.tr.V("backward").Printw("matched as usee", "l", l, "r", r, "op", e.L.Inst(l).Op)

		n++
	}

	return n
}
