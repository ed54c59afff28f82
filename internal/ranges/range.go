// Package ranges implements the weighted starting-hand range type. Parsing
// the textual range mini-language happens elsewhere; this package only
// stores and filters already-resolved hand/weight pairs.
package ranges

import (
	"fmt"

	"github.com/lox/postflop-solver/internal/cards"
)

// Range is an immutable mapping from private hand to prior weight in [0,1].
type Range struct {
	weights map[cards.Hand]float64
}

// New builds a Range from a hand->weight map, rejecting out-of-bounds
// weights. The input map is copied so the caller's map may be mutated freely
// afterwards.
func New(weights map[cards.Hand]float64) (*Range, error) {
	copied := make(map[cards.Hand]float64, len(weights))
	for h, w := range weights {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("range: weight for %s out of [0,1]: %v", h, w)
		}
		if w == 0 {
			continue
		}
		copied[h] = w
	}
	if len(copied) == 0 {
		return nil, fmt.Errorf("range: no hands with positive weight")
	}
	return &Range{weights: copied}, nil
}

// Uniform builds a Range assigning weight 1 to every hand in hands.
func Uniform(hands []cards.Hand) (*Range, error) {
	weights := make(map[cards.Hand]float64, len(hands))
	for _, h := range hands {
		weights[h] = 1
	}
	return New(weights)
}

// Weight returns h's prior weight, or 0 if h is not in the range.
func (r *Range) Weight(h cards.Hand) float64 {
	return r.weights[h]
}

// Combo is a hand paired with its range weight.
type Combo struct {
	Hand   cards.Hand
	Weight float64
}

// Combos returns every hand in the range with positive weight, in canonical
// hand order, without conditioning on any board.
func (r *Range) Combos() []Combo {
	all := cards.AllHands()
	out := make([]Combo, 0, len(r.weights))
	for _, h := range all {
		if w, ok := r.weights[h]; ok {
			out = append(out, Combo{Hand: h, Weight: w})
		}
	}
	return out
}

// CombosOnBoard returns the hands in the range that do not share a card with
// board, in canonical order, preserving each surviving hand's original
// weight.
func (r *Range) CombosOnBoard(board []cards.Card) ([]Combo, error) {
	blocked := cards.MaskOf(board)
	combos := r.Combos()
	out := make([]Combo, 0, len(combos))
	for _, c := range combos {
		if c.Hand.Blocks(blocked) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("range: zero combinations remain after removing board-blocked hands")
	}
	return out, nil
}
