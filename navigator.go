// Package postflop is the root navigation and query API: walk a solved
// game tree, fetch the converged strategy, expected values, and equity at
// the cursor.
package postflop

import (
	"fmt"

	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/eval7"
	"github.com/lox/postflop-solver/internal/game"
	"github.com/lox/postflop-solver/internal/solver"
	"github.com/lox/postflop-solver/internal/tree"
)

// Actor identifies who acts at the cursor: one of the two players, or the
// deck itself at a chance node.
type Actor int

const (
	ActorOOP Actor = iota
	ActorIP
	ActorChance
	ActorTerminal
)

func (a Actor) String() string {
	switch a {
	case ActorOOP:
		return "OOP"
	case ActorIP:
		return "IP"
	case ActorChance:
		return "Chance"
	default:
		return "Terminal"
	}
}

// Navigator walks a solved (or still-solving) game tree. It is not safe for
// concurrent use: navigation and query calls mutate cursor-local state.
type Navigator struct {
	root   *game.Node
	cursor *game.Node

	oopReach, ipReach []float64

	normalized    [2][]float64
	normalizedSet [2]bool
}

// NewNavigator builds a Navigator rooted at root, an already-built
// game.Node tree (internal/game.Build). root must be a decision node with
// populated range weights.
func NewNavigator(root *game.Node) (*Navigator, error) {
	if root == nil {
		return nil, fmt.Errorf("postflop: root must not be nil")
	}
	if root.Kind != tree.NodeDecision {
		return nil, fmt.Errorf("postflop: root must be a decision node")
	}
	if root.OOPWeights == nil || root.IPWeights == nil {
		return nil, fmt.Errorf("postflop: root has no range weights")
	}
	n := &Navigator{root: root}
	n.BackToRoot()
	return n, nil
}

// BackToRoot resets the cursor to the root and clears the normalized-weight
// cache.
func (n *Navigator) BackToRoot() {
	n.cursor = n.root
	n.oopReach = n.root.OOPWeights
	n.ipReach = n.root.IPWeights
	n.normalizedSet = [2]bool{}
}

// AvailableActions lists the actions at the cursor (empty outside a
// decision node).
func (n *Navigator) AvailableActions() []tree.Action {
	return n.cursor.Actions
}

// CurrentPlayer reports who acts at the cursor.
func (n *Navigator) CurrentPlayer() Actor {
	switch n.cursor.Kind {
	case tree.NodeDecision:
		if n.cursor.Player == tree.OOP {
			return ActorOOP
		}
		return ActorIP
	case tree.NodeChanceTurn, tree.NodeChanceRiver:
		return ActorChance
	default:
		return ActorTerminal
	}
}

// Play descends into the child reached by the action at actionIndex,
// scaling the acting player's reach by their averaged strategy at the
// cursor before moving, so downstream queries see the converged play. The
// cursor must be a decision node.
func (n *Navigator) Play(actionIndex int) error {
	if n.cursor.Kind != tree.NodeDecision {
		return fmt.Errorf("postflop: Play requires a decision node at the cursor")
	}
	if actionIndex < 0 || actionIndex >= len(n.cursor.Children) {
		return fmt.Errorf("postflop: action index %d out of range [0,%d)", actionIndex, len(n.cursor.Children))
	}

	acting := n.cursor.Player
	strat, err := solver.AverageStrategy(n.cursor)
	if err != nil {
		return err
	}
	numActions := len(n.cursor.Actions)
	actingHands := n.cursor.HandsFor(acting)
	numHands := len(actingHands)

	actingReach := n.reachFor(acting)
	scaled := make([]float64, numHands)
	for h := 0; h < numHands; h++ {
		scaled[h] = strat[actionIndex*numHands+h] * actingReach[h]
	}

	child := n.cursor.Children[actionIndex]
	var childOOP, childIP []float64
	if acting == tree.OOP {
		childOOP = solver.ProjectReach(n.cursor.OOPHands, scaled, child.OOPHands)
		childIP = solver.ProjectReach(n.cursor.IPHands, n.ipReach, child.IPHands)
	} else {
		childOOP = solver.ProjectReach(n.cursor.OOPHands, n.oopReach, child.OOPHands)
		childIP = solver.ProjectReach(n.cursor.IPHands, scaled, child.IPHands)
	}

	n.cursor = child
	n.oopReach = childOOP
	n.ipReach = childIP
	n.normalizedSet = [2]bool{}
	return nil
}

// PlayChance descends a chance node along the child covering dealt. Reach
// vectors are carried over by projection only (a dealt card does not depend
// on either player's strategy, so no reach rescaling happens here).
func (n *Navigator) PlayChance(dealt cards.Card) error {
	if n.cursor.Kind != tree.NodeChanceTurn && n.cursor.Kind != tree.NodeChanceRiver {
		return fmt.Errorf("postflop: PlayChance requires a chance node at the cursor")
	}
	child, err := n.chanceChildFor(dealt)
	if err != nil {
		return err
	}
	n.oopReach = solver.ProjectReach(n.cursor.OOPHands, n.oopReach, child.OOPHands)
	n.ipReach = solver.ProjectReach(n.cursor.IPHands, n.ipReach, child.IPHands)
	n.cursor = child
	n.normalizedSet = [2]bool{}
	return nil
}

// chanceChildFor finds the child whose isomorphism class contains dealt:
// chance children are keyed by one canonical representative per
// suit-equivalence class, not by every concrete card.
func (n *Navigator) chanceChildFor(dealt cards.Card) (*game.Node, error) {
	sc := eval7.ComputeSuitClasses(n.cursor.Board)
	rep := sc.CanonicalCard(dealt)
	for _, child := range n.cursor.Children {
		if child.DealtCard == rep {
			return child, nil
		}
	}
	return nil, fmt.Errorf("postflop: %s is not a legal card at this chance node", dealt)
}

// Strategy recomputes the cursor's converged strategy from its accumulated
// cumulative-strategy buffer.
func (n *Navigator) Strategy() ([]float64, error) {
	return solver.AverageStrategy(n.cursor)
}

// ExpectedValues computes player's per-hand expected value at the cursor
// under both players' converged average strategy.
func (n *Navigator) ExpectedValues(player tree.Player) ([]float64, error) {
	return solver.ExpectedValues(n.cursor, player, n.oopReach, n.ipReach)
}

// Equity computes player's per-hand pot-relative equity at the cursor.
func (n *Navigator) Equity(player tree.Player) ([]float64, error) {
	return solver.Equity(n.cursor, player, n.oopReach, n.ipReach)
}

// CacheNormalizedWeights precomputes and caches both players' normalized
// reach at the cursor.
func (n *Navigator) CacheNormalizedWeights() {
	n.normalized[tree.OOP] = solver.NormalizedWeights(n.oopReach)
	n.normalized[tree.IP] = solver.NormalizedWeights(n.ipReach)
	n.normalizedSet = [2]bool{true, true}
}

// NormalizedWeights returns player's cached normalized reach at the cursor,
// computing and caching it on first use.
func (n *Navigator) NormalizedWeights(player tree.Player) []float64 {
	if !n.normalizedSet[player] {
		n.normalized[player] = solver.NormalizedWeights(n.reachFor(player))
		n.normalizedSet[player] = true
	}
	return n.normalized[player]
}

// ComputeAverage collapses a per-hand value vector into one number via a
// weights-weighted mean.
func (n *Navigator) ComputeAverage(values, weights []float64) float64 {
	return solver.ComputeAverage(values, weights)
}

func (n *Navigator) reachFor(p tree.Player) []float64 {
	if p == tree.OOP {
		return n.oopReach
	}
	return n.ipReach
}
