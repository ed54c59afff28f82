package simplerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/postflop-solver/internal/cards"
)

func TestParseHand(t *testing.T) {
	h, err := ParseHand("AsAc")
	require.NoError(t, err)

	as, err := cards.Parse("As")
	require.NoError(t, err)
	ac, err := cards.Parse("Ac")
	require.NoError(t, err)
	want, err := cards.NewHand(as, ac)
	require.NoError(t, err)
	assert.Equal(t, want, h)
}

func TestParseHandRejectsBadLiteral(t *testing.T) {
	_, err := ParseHand("AKs")
	assert.Error(t, err)

	_, err = ParseHand("ZzZz")
	assert.Error(t, err)
}

func TestParseBuildsWeightedRange(t *testing.T) {
	r, err := Parse([]Literal{
		{Combo: "AsAc", Weight: 1},
		{Combo: "KsKc"}, // defaults to weight 1
	})
	require.NoError(t, err)

	as, err := ParseHand("AsAc")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Weight(as))
}

func TestParseRejectsEmptyInput(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}
