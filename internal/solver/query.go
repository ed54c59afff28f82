package solver

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/game"
	"github.com/lox/postflop-solver/internal/tree"
)

// AverageStrategy recomputes n's converged strategy from its accumulated
// cumulative-strategy buffer: normalized from the average on demand, not
// stored pre-normalized.
func AverageStrategy(n *game.Node) ([]float64, error) {
	if n.Kind != tree.NodeDecision || n.Storage == nil {
		return nil, fmt.Errorf("solver: AverageStrategy requires a decision node with allocated storage")
	}
	numActions := len(n.Actions)
	numHands := len(n.HandsFor(n.Player))
	shadow := n.Storage.Strategy.Get().Expand()
	return averageStrategy(shadow, numActions, numHands), nil
}

// ExpectedValues computes player's per-hand value at n by one traversal of
// the subtree, assuming both players follow their converged average
// strategy from n onward. oopReach and ipReach are reach vectors in
// n.OOPHands/n.IPHands order.
func ExpectedValues(n *game.Node, player tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	switch n.Kind {
	case tree.NodeTerminal:
		return terminalValue(n, player, oopReach, ipReach)
	case tree.NodeDecision:
		avg, err := AverageStrategy(n)
		if err != nil {
			return nil, err
		}
		if n.Player == player {
			return avgOwnDecision(n, player, oopReach, ipReach, avg)
		}
		return avgOpponentDecision(n, player, oopReach, ipReach, avg)
	case tree.NodeChanceTurn, tree.NodeChanceRiver:
		return avgChanceNode(n, player, oopReach, ipReach)
	default:
		return nil, fmt.Errorf("solver: unsupported node kind %v", n.Kind)
	}
}

// avgOwnDecision mixes each child's value per hand by that hand's own
// average-strategy probability of taking the action leading there. Both
// reach vectors pass through unchanged: the player's own action does not
// rescale either side's reach for a counterfactual-value query.
func avgOwnDecision(n *game.Node, player tree.Player, oopReach, ipReach []float64, avg []float64) ([]float64, error) {
	hands := n.HandsFor(player)
	numActions := len(n.Actions)
	numHands := len(hands)

	childValues, err := dispatchExpectedValues(n, player, oopReach, ipReach, hands, false)
	if err != nil {
		return nil, err
	}

	combined := make([]float64, numHands)
	for a := 0; a < numActions; a++ {
		for h := 0; h < numHands; h++ {
			combined[h] += avg[a*numHands+h] * childValues[a][h]
		}
	}
	return combined, nil
}

// avgOpponentDecision scales the opponent's reach by their average strategy
// before recursing, then sums the resulting traverser-perspective values
// over actions. The opponent's per-hand mixing is folded into reach, not
// into a direct combine, since it changes which opponent combos reach each
// branch; the reach-propagation discipline of live CFR traversal applies
// equally to an average-strategy query.
func avgOpponentDecision(n *game.Node, player tree.Player, oopReach, ipReach []float64, avg []float64) ([]float64, error) {
	actingPlayer := n.Player
	hands := n.HandsFor(actingPlayer)
	numActions := len(n.Actions)
	numHands := len(hands)
	actingReach := reachFor(actingPlayer, oopReach, ipReach)
	traverserHands := n.HandsFor(player)

	results := make([][]float64, numActions)
	for a, child := range n.Children {
		scaledActing := make([]float64, numHands)
		for h := 0; h < numHands; h++ {
			scaledActing[h] = avg[a*numHands+h] * actingReach[h]
		}
		var childOOP, childIP []float64
		if actingPlayer == tree.OOP {
			childOOP = ProjectReach(n.OOPHands, scaledActing, child.OOPHands)
			childIP = ProjectReach(n.IPHands, ipReach, child.IPHands)
		} else {
			childOOP = ProjectReach(n.OOPHands, oopReach, child.OOPHands)
			childIP = ProjectReach(n.IPHands, scaledActing, child.IPHands)
		}
		v, err := ExpectedValues(child, player, childOOP, childIP)
		if err != nil {
			return nil, err
		}
		results[a] = ExpandToParent(child.HandsFor(player), v, traverserHands)
	}

	combined := make([]float64, len(traverserHands))
	for a := 0; a < numActions; a++ {
		for h := range combined {
			combined[h] += results[a][h]
		}
	}
	return combined, nil
}

func avgChanceNode(n *game.Node, player tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	hands := n.HandsFor(player)
	remaining := 52 - len(n.Board)
	if remaining <= 0 {
		return nil, fmt.Errorf("solver: chance node has no remaining deck (board len %d)", len(n.Board))
	}
	childValues, err := dispatchExpectedValues(n, player, oopReach, ipReach, hands, true)
	if err != nil {
		return nil, err
	}
	combined := make([]float64, len(hands))
	for a, child := range n.Children {
		weight := float64(child.Multiplicity) / float64(remaining)
		for h := range combined {
			combined[h] += weight * childValues[a][h]
		}
	}
	return combined, nil
}

// dispatchExpectedValues runs ExpectedValues on every child, projecting
// oopReach/ipReach onto each child's (possibly smaller) hand list
// unchanged: used by avgOwnDecision, where children branch purely on the
// traverser's own action and reach must not be rescaled, and by
// avgChanceNode, where reach is unaffected by which card is dealt. Only the
// chance-node caller sets concurrent: card fan-out is where parallelism
// pays, and results are combined in child-index order regardless.
func dispatchExpectedValues(n *game.Node, player tree.Player, oopReach, ipReach []float64, parentHands []cards.Hand, concurrent bool) ([][]float64, error) {
	results := make([][]float64, len(n.Children))
	run := func(i int, child *game.Node) error {
		childOOP := ProjectReach(n.OOPHands, oopReach, child.OOPHands)
		childIP := ProjectReach(n.IPHands, ipReach, child.IPHands)
		v, err := ExpectedValues(child, player, childOOP, childIP)
		if err != nil {
			return err
		}
		results[i] = ExpandToParent(child.HandsFor(player), v, parentHands)
		return nil
	}
	if !concurrent {
		for i, child := range n.Children {
			if err := run(i, child); err != nil {
				return nil, err
			}
		}
		return results, nil
	}
	var g errgroup.Group
	for i, child := range n.Children {
		i, child := i, child
		g.Go(func() error { return run(i, child) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Equity rescales ExpectedValues into a per-hand 0.5 + value/pot, with 0.5
// at a chip-neutral outcome: a pot-relative view of the same underlying
// traversal. The values are reach-weighted and not divided by the
// opponent's total reach, so results fall outside [0,1] when that reach
// exceeds one.
func Equity(n *game.Node, player tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	if n.Pot <= 0 {
		return nil, fmt.Errorf("solver: Equity requires a node with a positive pot")
	}
	values, err := ExpectedValues(n, player, oopReach, ipReach)
	if err != nil {
		return nil, err
	}
	equity := make([]float64, len(values))
	for i, v := range values {
		equity[i] = 0.5 + v/float64(n.Pot)
	}
	return equity, nil
}

// NormalizedWeights scales a reach vector to sum to one, the per-hand
// weighting ComputeAverage uses to collapse per-hand vectors into a single
// number.
func NormalizedWeights(reach []float64) []float64 {
	var sum float64
	for _, w := range reach {
		sum += w
	}
	out := make([]float64, len(reach))
	if sum <= 0 {
		return out
	}
	for i, w := range reach {
		out[i] = w / sum
	}
	return out
}

// ComputeAverage is a weights-weighted mean of a per-hand value vector: the
// dot product divided by the sum of the weights (0 when they sum to zero).
func ComputeAverage(values, weights []float64) float64 {
	var sum, sumW float64
	for i, w := range weights {
		sum += values[i] * w
		sumW += w
	}
	if sumW == 0 {
		return 0
	}
	return sum / sumW
}
