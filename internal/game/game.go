// Package game materializes the card-independent action tree (internal/tree)
// into a concrete game: every decision node gets hand-indexed storage, and
// chance nodes enumerate dealt cards, collapsing suit-isomorphic outcomes
// into one physical subtree with a multiplicity weight.
package game

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/eval7"
	"github.com/lox/postflop-solver/internal/ranges"
	"github.com/lox/postflop-solver/internal/storage"
	"github.com/lox/postflop-solver/internal/tree"
)

// Config bundles everything needed to turn an action-tree skeleton into a
// concrete game over actual cards and ranges.
type Config struct {
	Tree       tree.Config
	Board      []cards.Card // cards already dealt at Tree.InitialState (3 for a flop start)
	OOPRange   *ranges.Range
	IPRange    *ranges.Range
	Compressed bool // use Quantized16Buffer instead of Float32Buffer

	// Logger receives build diagnostics (node counts, collapsed chance
	// branches). A nil Logger discards output.
	Logger *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}

// Node is one node of the concrete game: a tree.Node enriched with the
// board state and surviving range combos at that point, plus allocated
// storage for decision nodes.
type Node struct {
	Kind     tree.NodeKind
	Pot      int // chips already in the middle at this node
	Player   tree.Player
	Actions  []tree.Action
	Terminal tree.TerminalKind

	FoldedPlayer tree.Player
	Contributed  [2]int

	Board    []cards.Card
	OOPHands []cards.Hand
	IPHands  []cards.Hand
	// OOPWeights/IPWeights are the originating range's prior weight for
	// each entry of OOPHands/IPHands, in the same order; a hand's initial
	// reach probability is its range weight, not uniform.
	OOPWeights []float64
	IPWeights  []float64

	// Storage holds this decision node's cum_regret/strategy buffers, sized
	// to the acting player's surviving hand count. Nil for non-decision
	// nodes.
	Storage *storage.NodeStorage

	// DealtCard is the community card dealt to reach this node from its
	// parent chance node (cards.NotDealt at the root and at non-chance
	// children).
	DealtCard cards.Card
	// Multiplicity is the number of isomorphic concrete cards this node's
	// single computed subtree stands in for (1 outside chance children).
	Multiplicity int

	Children []*Node
}

// HandsFor returns the acting player's surviving hands at a decision node.
func (n *Node) HandsFor(p tree.Player) []cards.Hand {
	if p == tree.OOP {
		return n.OOPHands
	}
	return n.IPHands
}

// WeightsFor returns p's range weights parallel to HandsFor(p).
func (n *Node) WeightsFor(p tree.Player) []float64 {
	if p == tree.OOP {
		return n.OOPWeights
	}
	return n.IPWeights
}

type builder struct {
	cfg Config
	log *log.Logger

	decisionNodes     int
	chanceBranches    int
	collapsedBranches int
}

// boardLenFor gives the number of community cards that must already be
// dealt when play starts on street.
func boardLenFor(street tree.Street) int {
	switch street {
	case tree.Flop:
		return 3
	case tree.Turn:
		return 4
	default:
		return 5
	}
}

// Build constructs the concrete game tree for cfg.
func Build(cfg Config) (*Node, error) {
	if cfg.OOPRange == nil || cfg.IPRange == nil {
		return nil, fmt.Errorf("game: OOPRange and IPRange are required")
	}
	if want := boardLenFor(cfg.Tree.InitialState); len(cfg.Board) != want {
		return nil, fmt.Errorf("game: %s start requires %d board cards, got %d", cfg.Tree.InitialState, want, len(cfg.Board))
	}
	seen := cards.Mask(0)
	for _, c := range cfg.Board {
		if !c.Valid() {
			return nil, fmt.Errorf("game: invalid board card %s", c)
		}
		if seen.Has(c) {
			return nil, fmt.Errorf("game: duplicate board card %s", c)
		}
		seen = seen.Add(c)
	}
	skeleton, err := tree.Build(cfg.Tree)
	if err != nil {
		return nil, fmt.Errorf("game: building action tree: %w", err)
	}
	b := &builder{cfg: cfg, log: cfg.logger()}
	root, err := b.materialize(skeleton, cfg.Board, cards.NotDealt, 1)
	if err != nil {
		return nil, err
	}
	b.log.Debug("game built", "decision_nodes", b.decisionNodes, "chance_branches", b.chanceBranches, "collapsed_branches", b.collapsedBranches)
	return root, nil
}

func (b *builder) materialize(sk *tree.Node, board []cards.Card, dealt cards.Card, multiplicity int) (*Node, error) {
	switch sk.Kind {
	case tree.NodeDecision:
		return b.materializeDecision(sk, board, dealt, multiplicity)
	case tree.NodeTerminal:
		return b.materializeTerminal(sk, board, dealt, multiplicity)
	case tree.NodeChanceTurn, tree.NodeChanceRiver:
		return b.materializeChance(sk, board, dealt, multiplicity)
	default:
		return nil, fmt.Errorf("game: unsupported node kind %v", sk.Kind)
	}
}

type handsAndWeights struct {
	oopHands, ipHands     []cards.Hand
	oopWeights, ipWeights []float64
}

func (b *builder) rangeHands(board []cards.Card) (handsAndWeights, error) {
	oopCombos, err := b.cfg.OOPRange.CombosOnBoard(board)
	if err != nil {
		return handsAndWeights{}, fmt.Errorf("game: OOP range: %w", err)
	}
	ipCombos, err := b.cfg.IPRange.CombosOnBoard(board)
	if err != nil {
		return handsAndWeights{}, fmt.Errorf("game: IP range: %w", err)
	}
	hw := handsAndWeights{
		oopHands:   make([]cards.Hand, len(oopCombos)),
		oopWeights: make([]float64, len(oopCombos)),
		ipHands:    make([]cards.Hand, len(ipCombos)),
		ipWeights:  make([]float64, len(ipCombos)),
	}
	for i, c := range oopCombos {
		hw.oopHands[i] = c.Hand
		hw.oopWeights[i] = c.Weight
	}
	for i, c := range ipCombos {
		hw.ipHands[i] = c.Hand
		hw.ipWeights[i] = c.Weight
	}
	return hw, nil
}

func (b *builder) materializeDecision(sk *tree.Node, board []cards.Card, dealt cards.Card, multiplicity int) (*Node, error) {
	hw, err := b.rangeHands(board)
	if err != nil {
		return nil, err
	}
	actingHands := hw.oopHands
	if sk.Player == tree.IP {
		actingHands = hw.ipHands
	}

	st, err := storage.Allocate(len(sk.Actions), len(actingHands), b.cfg.Compressed)
	if err != nil {
		return nil, fmt.Errorf("game: allocating storage: %w", err)
	}
	b.decisionNodes++

	node := &Node{
		Kind:         tree.NodeDecision,
		Pot:          sk.Pot,
		Player:       sk.Player,
		Actions:      sk.Actions,
		Board:        board,
		OOPHands:     hw.oopHands,
		IPHands:      hw.ipHands,
		OOPWeights:   hw.oopWeights,
		IPWeights:    hw.ipWeights,
		Storage:      st,
		DealtCard:    dealt,
		Multiplicity: multiplicity,
		Children:     make([]*Node, len(sk.Children)),
	}
	for i, child := range sk.Children {
		c, err := b.materialize(child, board, cards.NotDealt, 1)
		if err != nil {
			return nil, err
		}
		node.Children[i] = c
	}
	return node, nil
}

func (b *builder) materializeTerminal(sk *tree.Node, board []cards.Card, dealt cards.Card, multiplicity int) (*Node, error) {
	hw, err := b.rangeHands(board)
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:         tree.NodeTerminal,
		Pot:          sk.Pot,
		Terminal:     sk.Terminal,
		FoldedPlayer: sk.FoldedPlayer,
		Contributed:  sk.Contributed,
		Board:        board,
		OOPHands:     hw.oopHands,
		IPHands:      hw.ipHands,
		OOPWeights:   hw.oopWeights,
		IPWeights:    hw.ipWeights,
		DealtCard:    dealt,
		Multiplicity: multiplicity,
	}, nil
}

// materializeChance enumerates the undealt cards, collapses suit-isomorphic
// outcomes via eval7.ComputeSuitClasses, and recurses into sk's single
// structural child once per surviving equivalence class.
func (b *builder) materializeChance(sk *tree.Node, board []cards.Card, dealt cards.Card, multiplicity int) (*Node, error) {
	if len(sk.Children) != 1 {
		return nil, fmt.Errorf("game: chance node must have exactly one structural child, got %d", len(sk.Children))
	}
	template := sk.Children[0]

	sc := eval7.ComputeSuitClasses(board)
	dealtMask := cards.MaskOf(board)
	classSize := map[cards.Card]int{}
	var order []cards.Card
	for c := cards.Card(0); c < 52; c++ {
		if dealtMask.Has(c) {
			continue
		}
		rep := sc.CanonicalCard(c)
		if _, ok := classSize[rep]; !ok {
			order = append(order, rep)
		}
		classSize[rep]++
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	kind := tree.NodeChanceTurn
	if sk.Kind == tree.NodeChanceRiver {
		kind = tree.NodeChanceRiver
	}

	hw, err := b.rangeHands(board)
	if err != nil {
		return nil, err
	}
	node := &Node{
		Kind:         kind,
		Pot:          sk.Pot,
		Board:        board,
		OOPHands:     hw.oopHands,
		IPHands:      hw.ipHands,
		OOPWeights:   hw.oopWeights,
		IPWeights:    hw.ipWeights,
		DealtCard:    dealt,
		Multiplicity: multiplicity,
	}
	node.Children = make([]*Node, 0, len(order))
	for _, rep := range order {
		childBoard := make([]cards.Card, len(board)+1)
		copy(childBoard, board)
		childBoard[len(board)] = rep

		size := classSize[rep]
		b.chanceBranches++
		if size > 1 {
			b.collapsedBranches += size - 1
		}
		child, err := b.materialize(template, childBoard, rep, size)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
