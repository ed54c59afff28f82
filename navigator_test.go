package postflop

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/postflop-solver/internal/betsize"
	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/game"
	"github.com/lox/postflop-solver/internal/ranges"
	"github.com/lox/postflop-solver/internal/solver"
	"github.com/lox/postflop-solver/internal/tree"
)

func mustHand(t *testing.T, a, b string) cards.Hand {
	t.Helper()
	ca, err := cards.Parse(a)
	require.NoError(t, err)
	cb, err := cards.Parse(b)
	require.NoError(t, err)
	h, err := cards.NewHand(ca, cb)
	require.NoError(t, err)
	return h
}

func smallRange(t *testing.T, pairs [][2]string) *ranges.Range {
	t.Helper()
	hands := make([]cards.Hand, len(pairs))
	for i, p := range pairs {
		hands[i] = mustHand(t, p[0], p[1])
	}
	r, err := ranges.Uniform(hands)
	require.NoError(t, err)
	return r
}

// solvedRiverRoot builds the same tiny river-only game as
// internal/solver's own tests and runs a handful of DCFR iterations, giving
// a Navigator a non-trivial average strategy to query.
func solvedRiverRoot(t *testing.T) *game.Node {
	t.Helper()
	board, err := cards.ParseBoard("Td9d6h2c3s")
	require.NoError(t, err)

	oop := smallRange(t, [][2]string{{"As", "Ac"}, {"Ks", "Kc"}})
	ip := smallRange(t, [][2]string{{"Qs", "Qc"}, {"2h", "2d"}})

	cfg := game.Config{
		Board:    board,
		OOPRange: oop,
		IPRange:  ip,
		Tree: tree.Config{
			InitialState:   tree.River,
			StartingPot:    100,
			EffectiveStack: 400,
			RiverBetSizes: [2][]betsize.Spec{
				{{Kind: betsize.PotRelative, Frac: 1.0}},
				{{Kind: betsize.PotRelative, Frac: 1.0}},
			},
			Resolver: betsize.NewResolver(),
		},
	}
	root, err := game.Build(cfg)
	require.NoError(t, err)

	s, err := solver.New(root, solver.Config{MaxIterations: 50})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), nil))
	return root
}

func TestNewNavigatorRejectsBadRoot(t *testing.T) {
	_, err := NewNavigator(nil)
	assert.Error(t, err)

	root := solvedRiverRoot(t)
	var terminal *game.Node
	for _, c := range root.Children {
		if c.Kind == tree.NodeTerminal {
			terminal = c
			break
		}
	}
	require.NotNil(t, terminal)
	_, err = NewNavigator(terminal)
	assert.Error(t, err)
}

func TestNavigatorAvailableActionsAndCurrentPlayer(t *testing.T) {
	root := solvedRiverRoot(t)
	nav, err := NewNavigator(root)
	require.NoError(t, err)

	assert.Equal(t, ActorOOP, nav.CurrentPlayer())
	assert.Equal(t, root.Actions, nav.AvailableActions())
}

func TestNavigatorStrategySumsToOnePerHand(t *testing.T) {
	root := solvedRiverRoot(t)
	nav, err := NewNavigator(root)
	require.NoError(t, err)

	strat, err := nav.Strategy()
	require.NoError(t, err)

	numActions := len(root.Actions)
	numHands := len(root.OOPHands)
	for h := 0; h < numHands; h++ {
		var sum float64
		for a := 0; a < numActions; a++ {
			sum += strat[a*numHands+h]
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestNavigatorPlayThenBackToRoot(t *testing.T) {
	root := solvedRiverRoot(t)
	nav, err := NewNavigator(root)
	require.NoError(t, err)

	require.NoError(t, nav.Play(0))
	assert.NotEqual(t, root, nav.cursor)

	nav.BackToRoot()
	assert.Equal(t, root, nav.cursor)
	assert.Equal(t, root.OOPWeights, nav.oopReach)
	assert.Equal(t, root.IPWeights, nav.ipReach)
}

// TestNavigatorBackToRootFromAnyCursor: BackToRoot must return to the root
// regardless of how deep Play has descended, not just after a single step.
func TestNavigatorBackToRootFromAnyCursor(t *testing.T) {
	root := solvedRiverRoot(t)
	nav, err := NewNavigator(root)
	require.NoError(t, err)

	require.NoError(t, nav.Play(0))
	for nav.CurrentPlayer() != ActorTerminal {
		require.NoError(t, nav.Play(0))
	}
	assert.NotEqual(t, root, nav.cursor)

	nav.BackToRoot()
	assert.Equal(t, root, nav.cursor)
	assert.Equal(t, root.OOPWeights, nav.oopReach)
	assert.Equal(t, root.IPWeights, nav.ipReach)
	assert.Equal(t, ActorOOP, nav.CurrentPlayer())
}

// TestNavigatorPlayChance walks a check-only turn-start game down to the
// river chance node and deals a concrete card, which must land on the
// isomorphism-class child covering it.
func TestNavigatorPlayChance(t *testing.T) {
	board, err := cards.ParseBoard("Td9d6h2c")
	require.NoError(t, err)
	oop := smallRange(t, [][2]string{{"As", "Ac"}, {"Ks", "Kc"}})
	ip := smallRange(t, [][2]string{{"Qs", "Qc"}, {"2h", "2d"}})

	root, err := game.Build(game.Config{
		Board:    board,
		OOPRange: oop,
		IPRange:  ip,
		Tree: tree.Config{
			InitialState:   tree.Turn,
			StartingPot:    100,
			EffectiveStack: 0,
			Resolver:       betsize.NewResolver(),
		},
	})
	require.NoError(t, err)

	nav, err := NewNavigator(root)
	require.NoError(t, err)

	require.NoError(t, nav.Play(0)) // OOP checks
	require.NoError(t, nav.Play(0)) // IP checks
	require.Equal(t, ActorChance, nav.CurrentPlayer())

	river, err := cards.Parse("3s")
	require.NoError(t, err)
	require.NoError(t, nav.PlayChance(river))
	assert.Equal(t, ActorOOP, nav.CurrentPlayer())

	// A card already on the board is not dealable.
	nav.BackToRoot()
	require.NoError(t, nav.Play(0))
	require.NoError(t, nav.Play(0))
	dealtAlready, err := cards.Parse("Td")
	require.NoError(t, err)
	assert.Error(t, nav.PlayChance(dealtAlready))
}

func TestNavigatorPlayRejectsOutOfRangeAction(t *testing.T) {
	root := solvedRiverRoot(t)
	nav, err := NewNavigator(root)
	require.NoError(t, err)
	assert.Error(t, nav.Play(-1))
	assert.Error(t, nav.Play(len(root.Children)))
}

func TestNavigatorEquitiesAreComplementary(t *testing.T) {
	root := solvedRiverRoot(t)
	nav, err := NewNavigator(root)
	require.NoError(t, err)

	eqOOP, err := nav.Equity(tree.OOP)
	require.NoError(t, err)
	eqIP, err := nav.Equity(tree.IP)
	require.NoError(t, err)

	nav.CacheNormalizedWeights()
	avgOOP := nav.ComputeAverage(eqOOP, nav.NormalizedWeights(tree.OOP))
	avgIP := nav.ComputeAverage(eqIP, nav.NormalizedWeights(tree.IP))

	// Every chip an average-strategy OOP expects corresponds to a chip IP
	// expects to lose, so the weighted mean equities are complementary.
	assert.InDelta(t, 1.0, avgOOP+avgIP, 1e-6)
}

// ExampleNavigator walks a solved river game end to end: inspect the
// cursor, descend via Play, return to the root, then pull equities out
// through the cached-normalized-weights path.
func ExampleNavigator() {
	board, err := cards.ParseBoard("Td9d6h2c3s")
	if err != nil {
		panic(err)
	}
	oopHand, err := cards.NewHand(mustParse("As"), mustParse("Ac"))
	if err != nil {
		panic(err)
	}
	ipHand, err := cards.NewHand(mustParse("Qs"), mustParse("Qc"))
	if err != nil {
		panic(err)
	}
	oopRange, err := ranges.Uniform([]cards.Hand{oopHand})
	if err != nil {
		panic(err)
	}
	ipRange, err := ranges.Uniform([]cards.Hand{ipHand})
	if err != nil {
		panic(err)
	}

	root, err := game.Build(game.Config{
		Board:    board,
		OOPRange: oopRange,
		IPRange:  ipRange,
		Tree: tree.Config{
			InitialState:   tree.River,
			StartingPot:    100,
			EffectiveStack: 400,
			RiverBetSizes: [2][]betsize.Spec{
				{{Kind: betsize.PotRelative, Frac: 1.0}},
				{{Kind: betsize.PotRelative, Frac: 1.0}},
			},
			Resolver: betsize.NewResolver(),
		},
	})
	if err != nil {
		panic(err)
	}

	s, err := solver.New(root, solver.Config{MaxIterations: 50})
	if err != nil {
		panic(err)
	}
	if err := s.Run(context.Background(), nil); err != nil {
		panic(err)
	}

	nav, err := NewNavigator(root)
	if err != nil {
		panic(err)
	}

	fmt.Println(nav.CurrentPlayer())
	fmt.Println(len(nav.AvailableActions()))

	if err := nav.Play(0); err != nil {
		panic(err)
	}
	nav.BackToRoot()

	nav.CacheNormalizedWeights()
	equity, err := nav.Equity(tree.OOP)
	if err != nil {
		panic(err)
	}
	avg := nav.ComputeAverage(equity, nav.NormalizedWeights(tree.OOP))
	fmt.Println(avg >= 0 && avg <= 2)

	// Output:
	// OOP
	// 2
	// true
}

func mustParse(s string) cards.Card {
	c, err := cards.Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}
