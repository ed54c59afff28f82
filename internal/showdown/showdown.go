// Package showdown implements the terminal-node counterfactual value
// evaluators: fold payoffs and showdown equity, both adjusted for card
// blockers between a hand and its opponent's range.
package showdown

import (
	"fmt"
	"sort"

	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/eval7"
)

// OpponentHand is one combo of the opponent's range reaching this terminal,
// carrying its reach probability (weight x strategy product up to here).
type OpponentHand struct {
	Hand  cards.Hand
	Reach float64
}

// Evaluator computes terminal counterfactual values on a fixed board.
type Evaluator struct {
	board []cards.Card
	table *eval7.Table
}

// New builds an Evaluator for a board with at least 3 cards. ShowdownValues
// additionally requires a complete 5-card board; FoldValues works at any
// street since it never ranks hands.
func New(board []cards.Card) (*Evaluator, error) {
	if len(board) < 3 {
		return nil, fmt.Errorf("showdown: board must have at least 3 cards, got %d", len(board))
	}
	return &Evaluator{board: board, table: eval7.Default()}, nil
}

// runningSums accumulates opponent reach alongside per-card and
// per-exact-hand totals, so the accumulated reach compatible with (not
// blocked by) any query hand comes back in O(1) by inclusion-exclusion
// instead of a rescan of everything absorbed so far.
type runningSums struct {
	total   float64
	perCard [52]float64
	perPair map[cards.Hand]float64
}

func newRunningSums(capacity int) *runningSums {
	return &runningSums{perPair: make(map[cards.Hand]float64, capacity)}
}

func (s *runningSums) add(h cards.Hand, reach float64) {
	s.total += reach
	s.perCard[h.Hi] += reach
	s.perCard[h.Lo] += reach
	s.perPair[h] += reach
}

// compatible returns the accumulated reach of hands sharing no card with h.
// Hands holding either of h's two cards are subtracted; the identical hand
// holds both and is subtracted twice, so it is added back once.
func (s *runningSums) compatible(h cards.Hand) float64 {
	return s.total - s.perCard[h.Hi] - s.perCard[h.Lo] + s.perPair[h]
}

// FoldValues computes, for each of ourHands, the counterfactual value when
// the opponent has just folded: potHalf times the opponent reach compatible
// with (not blocked by) that hand. Each hand's card-blocker contributions
// are subtracted from one sum precomputed over all opponent hands, so the
// whole vector costs O(ours + opponents).
func (e *Evaluator) FoldValues(potHalf float64, ourHands []cards.Hand, opponent []OpponentHand) ([]float64, error) {
	if err := e.checkBlockers(ourHands, opponent); err != nil {
		return nil, err
	}

	sums := newRunningSums(len(opponent))
	for _, oh := range opponent {
		sums.add(oh.Hand, oh.Reach)
	}

	out := make([]float64, len(ourHands))
	for i, h := range ourHands {
		out[i] = potHalf * sums.compatible(h)
	}
	return out, nil
}

// rankedOpponent pairs an opponent combo with its showdown strength.
type rankedOpponent struct {
	OpponentHand
	strength uint16
}

// rankedQuery pairs one of our hands with its strength and its position in
// the caller's hand order, so results land back at the right index after
// the strength sort.
type rankedQuery struct {
	index    int
	hand     cards.Hand
	strength uint16
}

// ShowdownValues computes, for each of ourHands, the counterfactual value at
// a showdown terminal: potHalf times (reach of strictly worse opponent
// combos minus reach of strictly better ones), restricted to combos
// compatible with the hand; exact ties contribute zero. potHalf is pot/2.
//
// Both hand lists are sorted by board strength once, then the sorted
// opponent list is swept twice — ascending for the strictly-weaker sums,
// descending for the strictly-stronger ones — while runningSums maintains
// cumulative reach totals per card. Each query hand then needs only the
// four per-card lookups of its two hole cards in the two directions, which
// keeps the whole evaluation linear in hand count per board.
func (e *Evaluator) ShowdownValues(potHalf float64, ourHands []cards.Hand, opponent []OpponentHand) ([]float64, error) {
	if len(e.board) != 5 {
		return nil, fmt.Errorf("showdown: showdown values require a complete 5-card board, got %d", len(e.board))
	}
	if err := e.checkBlockers(ourHands, opponent); err != nil {
		return nil, err
	}

	ranked := make([]rankedOpponent, len(opponent))
	for i, oh := range opponent {
		ranked[i] = rankedOpponent{OpponentHand: oh, strength: e.strength(oh.Hand)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].strength < ranked[j].strength })

	ours := make([]rankedQuery, len(ourHands))
	for i, h := range ourHands {
		ours[i] = rankedQuery{index: i, hand: h, strength: e.strength(h)}
	}
	sort.Slice(ours, func(i, j int) bool { return ours[i].strength < ours[j].strength })

	out := make([]float64, len(ourHands))

	// Ascending pass: absorb every opponent combo strictly weaker than the
	// query hand before reading off its compatible reach.
	weaker := newRunningSums(len(opponent))
	j := 0
	for _, q := range ours {
		for j < len(ranked) && ranked[j].strength < q.strength {
			weaker.add(ranked[j].Hand, ranked[j].Reach)
			j++
		}
		out[q.index] += potHalf * weaker.compatible(q.hand)
	}

	// Descending pass: the same sweep from the top for the strictly-stronger
	// reach, subtracted.
	stronger := newRunningSums(len(opponent))
	j = len(ranked) - 1
	for i := len(ours) - 1; i >= 0; i-- {
		q := ours[i]
		for j >= 0 && ranked[j].strength > q.strength {
			stronger.add(ranked[j].Hand, ranked[j].Reach)
			j--
		}
		out[q.index] -= potHalf * stronger.compatible(q.hand)
	}
	return out, nil
}

func (e *Evaluator) strength(h cards.Hand) uint16 {
	var seven [7]cards.Card
	copy(seven[:], e.board)
	seven[5], seven[6] = h.Hi, h.Lo
	return e.table.Rank7(seven)
}

func (e *Evaluator) checkBlockers(ourHands []cards.Hand, opponent []OpponentHand) error {
	boardMask := cards.MaskOf(e.board)
	for _, h := range ourHands {
		if h.Mask()&boardMask != 0 {
			return fmt.Errorf("showdown: hand %s overlaps the board", h)
		}
	}
	for _, oh := range opponent {
		if oh.Hand.Mask()&boardMask != 0 {
			return fmt.Errorf("showdown: opponent hand %s overlaps the board", oh.Hand)
		}
	}
	return nil
}
