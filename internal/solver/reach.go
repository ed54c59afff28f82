package solver

import "github.com/lox/postflop-solver/internal/cards"

// ProjectReach maps a reach vector indexed by parentHands onto childHands,
// which is always a (board-filtered) subsequence of parentHands in the same
// canonical order. Hands absent from childHands are dropped.
func ProjectReach(parentHands []cards.Hand, parentReach []float64, childHands []cards.Hand) []float64 {
	if len(parentHands) == len(childHands) {
		same := true
		for i := range parentHands {
			if parentHands[i] != childHands[i] {
				same = false
				break
			}
		}
		if same {
			return parentReach
		}
	}
	out := make([]float64, len(childHands))
	pi := 0
	for ci, h := range childHands {
		for pi < len(parentHands) && parentHands[pi] != h {
			pi++
		}
		if pi < len(parentHands) {
			out[ci] = parentReach[pi]
			pi++
		}
	}
	return out
}

// ExpandToParent maps a values vector indexed by childHands back onto
// parentHands, filling hands absent from childHands with zero (their branch
// has zero probability mass under the board that produced childHands).
func ExpandToParent(childHands []cards.Hand, childValues []float64, parentHands []cards.Hand) []float64 {
	if len(parentHands) == len(childHands) {
		same := true
		for i := range parentHands {
			if parentHands[i] != childHands[i] {
				same = false
				break
			}
		}
		if same {
			return childValues
		}
	}
	out := make([]float64, len(parentHands))
	ci := 0
	for pi, h := range parentHands {
		if ci < len(childHands) && childHands[ci] == h {
			out[pi] = childValues[ci]
			ci++
		}
	}
	return out
}
