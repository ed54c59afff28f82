package betsize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePotRelative(t *testing.T) {
	r := NewResolver()
	sizes, err := r.Resolve([]Spec{{Kind: PotRelative, Frac: 0.6}}, 200, 0, 900)
	require.NoError(t, err)
	require.NotEmpty(t, sizes)
	assert.Equal(t, 120, sizes[0])
}

func TestResolveInjectsAllinWhenClose(t *testing.T) {
	r := NewResolver()
	// 0.6 pot of 200 is 120; remaining stack after it is 80, well within
	// threshold*120 of it, so all-in should be appended.
	sizes, err := r.Resolve([]Spec{{Kind: PotRelative, Frac: 0.6}}, 200, 0, 200)
	require.NoError(t, err)
	assert.Equal(t, []int{120, 200}, sizes)
}

func TestResolveExplicitAllin(t *testing.T) {
	r := NewResolver()
	sizes, err := r.Resolve([]Spec{{Kind: PotRelative, Frac: 0.3}, {Kind: AllIn}}, 200, 0, 900)
	require.NoError(t, err)
	assert.Contains(t, sizes, 900)
}

func TestResolvePrevBetRelativeSkippedWithoutPriorBet(t *testing.T) {
	r := NewResolver()
	sizes, err := r.Resolve([]Spec{{Kind: PrevBetRelative, Mult: 2.5}}, 200, 0, 900)
	require.NoError(t, err)
	// No prior bet on this street: falls through to the implicit all-in
	// injection since the repertoire resolves empty otherwise.
	assert.Equal(t, []int{900}, sizes)
}

func TestResolvePrevBetRelative(t *testing.T) {
	r := NewResolver()
	sizes, err := r.Resolve([]Spec{{Kind: PrevBetRelative, Mult: 2.5}}, 500, 100, 900)
	require.NoError(t, err)
	assert.Contains(t, sizes, 250)
}

func TestResolveMergesCloseSizes(t *testing.T) {
	r := NewResolver()
	sizes, err := r.Resolve([]Spec{
		{Kind: PotRelative, Frac: 0.5},
		{Kind: PotRelative, Frac: 0.52},
	}, 1000, 0, 5000)
	require.NoError(t, err)
	assert.Len(t, sizes, 1, "sizes within merge threshold of pot collapse to one")
}

func TestResolveGeometric(t *testing.T) {
	r := NewResolver()
	// Two geometric steps from half-pot (50) up to the full 800 stack:
	// ratio is (800/50)^(1/2) = 4, giving 200 and 800.
	sizes, err := r.Resolve([]Spec{{Kind: Geometric, Steps: 2, Frac: 1.0}}, 100, 0, 800)
	require.NoError(t, err)
	assert.Equal(t, []int{200, 800}, sizes)
}

func TestResolveRejectsInvalidFraction(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve([]Spec{{Kind: PotRelative, Frac: 0}}, 200, 0, 900)
	assert.Error(t, err)
}

func TestResolveZeroStackReturnsNoSizes(t *testing.T) {
	r := NewResolver()
	sizes, err := r.Resolve([]Spec{{Kind: PotRelative, Frac: 0.5}}, 200, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, sizes)
}
