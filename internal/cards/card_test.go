package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	cases := []struct {
		in   string
		rank Rank
		suit Suit
	}{
		{"As", Ace, Spades},
		{"Td", Ten, Diamonds},
		{"2c", Two, Clubs},
		{"kh", King, Hearts},
	}
	for _, tc := range cases {
		c, err := Parse(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.rank, c.Rank())
		assert.Equal(t, tc.suit, c.Suit())
		assert.True(t, c.Valid())
	}
}

func TestParseCardInvalid(t *testing.T) {
	_, err := Parse("Zz")
	assert.Error(t, err)
	_, err = Parse("A")
	assert.Error(t, err)
}

func TestParseBoard(t *testing.T) {
	board, err := ParseBoard("Td9d6h")
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "Td", board[0].String())
	assert.Equal(t, "9d", board[1].String())
	assert.Equal(t, "6h", board[2].String())
}

func TestParseBoardDuplicate(t *testing.T) {
	_, err := ParseBoard("TdTd6h")
	assert.Error(t, err)
}

func TestNewHandCanonicalizes(t *testing.T) {
	a, _ := Parse("As")
	k, _ := Parse("Ks")
	h1, err := NewHand(a, k)
	require.NoError(t, err)
	h2, err := NewHand(k, a)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, a, h1.Hi)
	assert.Equal(t, k, h1.Lo)
}

func TestNewHandRejectsDuplicateCard(t *testing.T) {
	a, _ := Parse("As")
	_, err := NewHand(a, a)
	assert.Error(t, err)
}

func TestHandBlocks(t *testing.T) {
	as, _ := Parse("As")
	ks, _ := Parse("Ks")
	h, _ := NewHand(as, ks)

	qd, _ := Parse("Qd")
	jc, _ := Parse("Jc")
	assert.False(t, h.Blocks(MaskOf([]Card{qd, jc})))
	assert.True(t, h.Blocks(MaskOf([]Card{as, qd})))
}

func TestAllHandsCount(t *testing.T) {
	hands := AllHands()
	assert.Len(t, hands, 1326)
	seen := map[Hand]bool{}
	for _, h := range hands {
		assert.False(t, seen[h], "duplicate hand %v", h)
		seen[h] = true
	}
}
