// Package solver implements the two-player Discounted CFR (DCFR)
// fixed-point iteration over a concrete game: vector-form regret matching,
// discounted regret/strategy accumulation, periodic strategy resets, and
// exploitability tracking via best response.
package solver

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/game"
	"github.com/lox/postflop-solver/internal/showdown"
	"github.com/lox/postflop-solver/internal/tree"
)

// DefaultDiscountGamma is the DCFR positive-regret discount exponent: old
// regrets are multiplied by t^gamma/(t^gamma+1) each iteration.
const DefaultDiscountGamma = 3.0

// Config controls one DCFR run.
type Config struct {
	MaxIterations int
	// DiscountGamma is the positive-regret/cumulative-strategy discount
	// exponent; zero selects DefaultDiscountGamma.
	DiscountGamma float64
	// DisableStrategyReset skips the power-of-4 cumulative-strategy reset,
	// useful for short runs and for tests that want a stable, non-resetting
	// accumulator.
	DisableStrategyReset bool
	// ExploitabilityEvery computes a best-response exploitability estimate
	// every K iterations when > 0.
	ExploitabilityEvery int
	// TargetExploitability stops Run once the measured exploitability (in
	// chips) falls at or below this value. Zero disables the threshold.
	TargetExploitability float64

	Logger *log.Logger
}

func (c Config) gamma() float64 {
	if c.DiscountGamma <= 0 {
		return DefaultDiscountGamma
	}
	return c.DiscountGamma
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}

// Progress is emitted from Run after each completed iteration.
type Progress struct {
	Iteration      int
	IterationTime  time.Duration
	Exploitability float64 // last measurement; 0 until the first is taken
}

// Solver drives DCFR iteration over a fixed concrete game.
type Solver struct {
	root *game.Node
	cfg  Config
	log  *log.Logger

	iteration atomic.Int64

	exploitMu   sync.Mutex
	lastExploit float64
}

// New builds a Solver over root using cfg.
func New(root *game.Node, cfg Config) (*Solver, error) {
	if root == nil {
		return nil, fmt.Errorf("solver: root must not be nil")
	}
	if root.Kind != tree.NodeDecision {
		return nil, fmt.Errorf("solver: root must be a decision node")
	}
	return &Solver{root: root, cfg: cfg, log: cfg.logger()}, nil
}

// Iteration returns the number of completed iterations.
func (s *Solver) Iteration() int64 { return s.iteration.Load() }

// LastExploitability returns the most recently measured exploitability, or
// 0 if none has been measured yet.
func (s *Solver) LastExploitability() float64 {
	s.exploitMu.Lock()
	defer s.exploitMu.Unlock()
	return s.lastExploit
}

func (s *Solver) setExploitability(v float64) {
	s.exploitMu.Lock()
	s.lastExploit = v
	s.exploitMu.Unlock()
}

// Run performs up to cfg.MaxIterations DCFR iterations, invoking progress
// (if non-nil) after every completed iteration. It stops early if ctx is
// cancelled or the measured exploitability reaches cfg.TargetExploitability.
func (s *Solver) Run(ctx context.Context, progress func(Progress)) error {
	maxIter := s.cfg.MaxIterations
	if maxIter <= 0 {
		return fmt.Errorf("solver: MaxIterations must be > 0")
	}
	oopReach := s.root.OOPWeights
	ipReach := s.root.IPWeights

	for t := int(s.iteration.Load()) + 1; t <= maxIter; t++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()

		// Restart strategy averaging on power-of-four iterations, before this
		// iteration accumulates: the averaged strategy then reflects only the
		// iterations since the most recent power of four.
		if !s.cfg.DisableStrategyReset && isPowerOfFour(t) {
			resetStrategies(s.root)
			s.log.Debug("reset cumulative strategy", "iteration", t)
		}

		for _, traverser := range [2]tree.Player{tree.OOP, tree.IP} {
			if _, err := s.traverse(s.root, traverser, oopReach, ipReach, t); err != nil {
				return fmt.Errorf("solver: iteration %d traverser %v: %w", t, traverser, err)
			}
		}

		s.iteration.Store(int64(t))

		if s.cfg.ExploitabilityEvery > 0 && t%s.cfg.ExploitabilityEvery == 0 {
			exp, err := s.Exploitability()
			if err != nil {
				return fmt.Errorf("solver: computing exploitability at iteration %d: %w", t, err)
			}
			s.setExploitability(exp)
			if s.cfg.TargetExploitability > 0 && exp <= s.cfg.TargetExploitability {
				if progress != nil {
					progress(Progress{Iteration: t, IterationTime: time.Since(start), Exploitability: exp})
				}
				return nil
			}
		}

		if progress != nil {
			progress(Progress{Iteration: t, IterationTime: time.Since(start), Exploitability: s.LastExploitability()})
		}
	}
	return nil
}

func isPowerOfFour(t int) bool {
	if t <= 0 || t&(t-1) != 0 {
		return false // not even a power of two
	}
	// Powers of four have their single set bit at an even position.
	for t > 1 {
		t >>= 2
	}
	return t == 1
}

func resetStrategies(n *game.Node) {
	if n == nil {
		return
	}
	if n.Kind == tree.NodeDecision && n.Storage != nil {
		shadow := n.Storage.Strategy.Get().Expand()
		for i := range shadow {
			shadow[i] = 0
		}
		n.Storage.Strategy.Get().Compress(shadow)
	}
	for _, c := range n.Children {
		resetStrategies(c)
	}
}

func reachFor(player tree.Player, oopReach, ipReach []float64) []float64 {
	if player == tree.OOP {
		return oopReach
	}
	return ipReach
}

func other(p tree.Player) tree.Player {
	if p == tree.OOP {
		return tree.IP
	}
	return tree.OOP
}

// traverse runs one DCFR pass below n for a single traverser, returning
// the traverser's counterfactual values indexed by their hands at n.
func (s *Solver) traverse(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, t int) ([]float64, error) {
	switch n.Kind {
	case tree.NodeTerminal:
		return terminalValue(n, traverser, oopReach, ipReach)
	case tree.NodeDecision:
		if n.Player == traverser {
			return s.traverserDecision(n, traverser, oopReach, ipReach, t)
		}
		return s.opponentDecision(n, traverser, oopReach, ipReach, t)
	case tree.NodeChanceTurn, tree.NodeChanceRiver:
		return s.chanceNode(n, traverser, oopReach, ipReach, t)
	default:
		return nil, fmt.Errorf("solver: unsupported node kind %v", n.Kind)
	}
}

func terminalValue(n *game.Node, traverser tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	opponent := other(traverser)
	ev, err := showdown.New(n.Board)
	if err != nil {
		return nil, err
	}

	traverserHands := n.HandsFor(traverser)
	opponentHands := n.HandsFor(opponent)
	opponentReach := reachFor(opponent, oopReach, ipReach)
	opp := make([]showdown.OpponentHand, len(opponentHands))
	for i, h := range opponentHands {
		opp[i] = showdown.OpponentHand{Hand: h, Reach: opponentReach[i]}
	}

	potHalf := float64(n.Contributed[traverser]) / 2

	switch n.Terminal {
	case tree.TerminalFold:
		values, err := ev.FoldValues(potHalf, traverserHands, opp)
		if err != nil {
			return nil, err
		}
		if n.FoldedPlayer == traverser {
			for i := range values {
				values[i] = -values[i]
			}
		}
		return values, nil
	case tree.TerminalShowdown:
		return ev.ShowdownValues(potHalf, traverserHands, opp)
	default:
		return nil, fmt.Errorf("solver: unknown terminal kind %v", n.Terminal)
	}
}

// traverserDecision computes the traverser's own regret-matched strategy,
// recurses into every action carrying the traverser's reach unchanged, and
// performs the discounted regret update.
func (s *Solver) traverserDecision(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, t int) ([]float64, error) {
	hands := n.HandsFor(traverser)
	numActions := len(n.Actions)
	numHands := len(hands)

	regretShadow := n.Storage.CumRegret.Get().Expand()
	strategy := regretMatch(regretShadow, numActions, numHands)

	childValues, err := s.dispatchChildren(n, traverser, oopReach, ipReach, t, hands, false)
	if err != nil {
		return nil, err
	}

	combined := make([]float64, numHands)
	for a := 0; a < numActions; a++ {
		for h := 0; h < numHands; h++ {
			combined[h] += strategy[a*numHands+h] * childValues[a][h]
		}
	}

	gammaTerm := math.Pow(float64(t), s.cfg.gamma())
	discount := gammaTerm / (gammaTerm + 1)
	for a := 0; a < numActions; a++ {
		for h := 0; h < numHands; h++ {
			idx := a*numHands + h
			updated := regretShadow[idx]*discount + (childValues[a][h] - combined[h])
			if updated < 0 {
				updated = 0
			}
			regretShadow[idx] = updated
		}
	}
	n.Storage.CumRegret.Get().Compress(regretShadow)

	return combined, nil
}

// opponentDecision scales the opponent's reach by their current strategy,
// accumulates discounted cumulative strategy, and sums the traverser's
// values across actions without updating regret.
func (s *Solver) opponentDecision(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, t int) ([]float64, error) {
	actingPlayer := n.Player
	hands := n.HandsFor(actingPlayer)
	numActions := len(n.Actions)
	numHands := len(hands)

	regretShadow := n.Storage.CumRegret.Get().Expand()
	strategy := regretMatch(regretShadow, numActions, numHands)

	actingReach := reachFor(actingPlayer, oopReach, ipReach)
	weight := math.Pow(float64(t), s.cfg.gamma())
	stratShadow := n.Storage.Strategy.Get().Expand()
	for a := 0; a < numActions; a++ {
		for h := 0; h < numHands; h++ {
			idx := a*numHands + h
			stratShadow[idx] += strategy[idx] * actingReach[h] * weight
		}
	}
	n.Storage.Strategy.Get().Compress(stratShadow)

	traverserHands := n.HandsFor(traverser)
	childValues, err := s.dispatchScaledChildren(n, traverser, oopReach, ipReach, strategy, numActions, numHands, t)
	if err != nil {
		return nil, err
	}

	combined := make([]float64, len(traverserHands))
	for a := 0; a < numActions; a++ {
		for h := range combined {
			combined[h] += childValues[a][h]
		}
	}
	return combined, nil
}

// chanceNode recurses into every isomorphism-class child, weighting by its
// probability mass (class size / remaining deck size).
func (s *Solver) chanceNode(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, t int) ([]float64, error) {
	hands := n.HandsFor(traverser)
	remaining := 52 - len(n.Board)
	if remaining <= 0 {
		return nil, fmt.Errorf("solver: chance node has no remaining deck (board len %d)", len(n.Board))
	}

	childValues, err := s.dispatchChildren(n, traverser, oopReach, ipReach, t, hands, true)
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

// dispatchChildren runs traverse on every child of n and expands each
// result back onto parentHands, the traverser's hand list at n. With
// concurrent set, children become errgroup tasks joined before returning:
// this is only worthwhile at chance nodes, whose fan-out (one child per
// card class) dwarfs the handful of actions at a decision node; each child
// subtree owns disjoint storage, so the tasks share nothing but the results
// slice, which they write at distinct indices. Results are combined in
// child-index order either way, keeping the summation deterministic.
func (s *Solver) dispatchChildren(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, t int, parentHands []cards.Hand, concurrent bool) ([][]float64, error) {
	results := make([][]float64, len(n.Children))
	run := func(i int, child *game.Node) error {
		childOOP := ProjectReach(n.OOPHands, oopReach, child.OOPHands)
		childIP := ProjectReach(n.IPHands, ipReach, child.IPHands)
		v, err := s.traverse(child, traverser, childOOP, childIP, t)
		if err != nil {
			return err
		}
		results[i] = ExpandToParent(child.HandsFor(traverser), v, parentHands)
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

// Exploitability measures how much each player gains by best-responding to
// the other's current average strategy, averaged over both players and
// weighted by each player's range prior. A value near zero indicates the
// iterate is close to a Nash equilibrium.
func (s *Solver) Exploitability() (float64, error) {
	oopReach := s.root.OOPWeights
	ipReach := s.root.IPWeights

	brOOP, err := s.bestResponse(s.root, tree.OOP, oopReach, ipReach)
	if err != nil {
		return 0, fmt.Errorf("solver: OOP best response: %w", err)
	}
	brIP, err := s.bestResponse(s.root, tree.IP, oopReach, ipReach)
	if err != nil {
		return 0, fmt.Errorf("solver: IP best response: %w", err)
	}

	oopEV := weightedMean(brOOP, oopReach)
	ipEV := weightedMean(brIP, ipReach)
	return (oopEV + ipEV) / 2, nil
}

func weightedMean(values, weights []float64) float64 {
	var sumV, sumW float64
	for i, w := range weights {
		sumV += values[i] * w
		sumW += w
	}
	if sumW == 0 {
		return 0
	}
	return sumV / sumW
}

// bestResponse computes traverser's value vector (indexed by traverser's
// hands at n) when traverser plays optimally (per-hand argmax, no mixing)
// against the opponent's average strategy. It never mutates storage.
func (s *Solver) bestResponse(n *game.Node, traverser tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	switch n.Kind {
	case tree.NodeTerminal:
		return terminalValue(n, traverser, oopReach, ipReach)
	case tree.NodeDecision:
		if n.Player == traverser {
			return s.bestResponseDecision(n, traverser, oopReach, ipReach)
		}
		return s.bestResponseOpponent(n, traverser, oopReach, ipReach)
	case tree.NodeChanceTurn, tree.NodeChanceRiver:
		return s.bestResponseChance(n, traverser, oopReach, ipReach)
	default:
		return nil, fmt.Errorf("solver: unsupported node kind %v", n.Kind)
	}
}

// bestResponseDecision picks, per traverser hand, the single best action
// rather than mixing per the current strategy.
func (s *Solver) bestResponseDecision(n *game.Node, traverser tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	hands := n.HandsFor(traverser)
	childValues, err := s.dispatchBestResponseChildren(n, traverser, oopReach, ipReach, hands, false)
	if err != nil {
		return nil, err
	}
	combined := make([]float64, len(hands))
	for h := range combined {
		best := childValues[0][h]
		for a := 1; a < len(childValues); a++ {
			if childValues[a][h] > best {
				best = childValues[a][h]
			}
		}
		combined[h] = best
	}
	return combined, nil
}

// bestResponseOpponent scales the opponent's reach by their average
// strategy (not the current regret-matched strategy) and sums over actions.
func (s *Solver) bestResponseOpponent(n *game.Node, traverser tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	actingPlayer := n.Player
	hands := n.HandsFor(actingPlayer)
	numActions := len(n.Actions)
	numHands := len(hands)

	stratShadow := n.Storage.Strategy.Get().Expand()
	avg := averageStrategy(stratShadow, numActions, numHands)

	actingReach := reachFor(actingPlayer, oopReach, ipReach)
	traverserHands := n.HandsFor(traverser)
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
		v, err := s.bestResponse(child, traverser, childOOP, childIP)
		if err != nil {
			return nil, err
		}
		results[a] = ExpandToParent(child.HandsFor(traverser), v, traverserHands)
	}

	combined := make([]float64, len(traverserHands))
	for a := 0; a < numActions; a++ {
		for h := range combined {
			combined[h] += results[a][h]
		}
	}
	return combined, nil
}

func (s *Solver) bestResponseChance(n *game.Node, traverser tree.Player, oopReach, ipReach []float64) ([]float64, error) {
	hands := n.HandsFor(traverser)
	remaining := 52 - len(n.Board)
	if remaining <= 0 {
		return nil, fmt.Errorf("solver: chance node has no remaining deck (board len %d)", len(n.Board))
	}
	childValues, err := s.dispatchBestResponseChildren(n, traverser, oopReach, ipReach, hands, true)
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

func (s *Solver) dispatchBestResponseChildren(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, parentHands []cards.Hand, concurrent bool) ([][]float64, error) {
	results := make([][]float64, len(n.Children))
	run := func(i int, child *game.Node) error {
		childOOP := ProjectReach(n.OOPHands, oopReach, child.OOPHands)
		childIP := ProjectReach(n.IPHands, ipReach, child.IPHands)
		v, err := s.bestResponse(child, traverser, childOOP, childIP)
		if err != nil {
			return err
		}
		results[i] = ExpandToParent(child.HandsFor(traverser), v, parentHands)
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

// dispatchScaledChildren is dispatchChildren specialized for an opponent
// decision node: the acting (opponent) player's reach is scaled by their
// per-action strategy before recursing, and results stay indexed by action
// but are expanded onto the traverser's hand list directly (the acting
// player's hand list belongs to n, not the traverser).
func (s *Solver) dispatchScaledChildren(n *game.Node, traverser tree.Player, oopReach, ipReach []float64, strategy []float64, numActions, numHands int, t int) ([][]float64, error) {
	actingPlayer := n.Player
	actingReach := reachFor(actingPlayer, oopReach, ipReach)
	traverserHands := n.HandsFor(traverser)
	results := make([][]float64, numActions)
	for a, child := range n.Children {
		scaledActing := make([]float64, numHands)
		for h := 0; h < numHands; h++ {
			scaledActing[h] = strategy[a*numHands+h] * actingReach[h]
		}
		var childOOP, childIP []float64
		if actingPlayer == tree.OOP {
			childOOP = ProjectReach(n.OOPHands, scaledActing, child.OOPHands)
			childIP = ProjectReach(n.IPHands, ipReach, child.IPHands)
		} else {
			childOOP = ProjectReach(n.OOPHands, oopReach, child.OOPHands)
			childIP = ProjectReach(n.IPHands, scaledActing, child.IPHands)
		}
		v, err := s.traverse(child, traverser, childOOP, childIP, t)
		if err != nil {
			return nil, err
		}
		results[a] = ExpandToParent(child.HandsFor(traverser), v, traverserHands)
	}
	return results, nil
}
