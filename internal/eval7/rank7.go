package eval7

import (
	"sort"
	"sync"

	"github.com/lox/postflop-solver/internal/cards"
)

// defaultTable is the package-level evaluator: a dense perfect-hash ordinal table
// built once and shared across all solver goroutines (it is read-only after
// construction, so no synchronization is needed on the hot path).
var defaultTable *Table
var defaultOnce sync.Once

// Default returns the shared 7-card evaluator table, building it on first use.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = build()
	})
	return defaultTable
}

// Table maps raw 5-card packed scores to a dense uint16 ordinal in which
// higher always means stronger, and equal ordinals mean a chopped pot.
type Table struct {
	index *denseIndex
}

// Rank7 returns the strength ordinal of the best 5-card hand within the
// given 7 cards. Higher is stronger; equal values chop.
func (t *Table) Rank7(hand [7]cards.Card) uint16 {
	best := uint32(0)
	forEachFiveOfSeven(hand, func(sub [5]cards.Card) {
		var subCounts [13]uint8
		var subSuits [4]uint16
		var subMask uint16
		for _, c := range sub {
			r := uint(c.Rank())
			s := c.Suit()
			subCounts[r]++
			subMask |= 1 << r
			subSuits[s] |= 1 << r
		}
		score := rawScore5(subMask, subSuits, subCounts)
		if score > best {
			best = score
		}
	})

	return t.index.lookup(best)
}

// forEachFiveOfSeven invokes fn once per 5-card sub-combination of hand's 7
// cards, by excluding each of the 21 distinct index pairs.
func forEachFiveOfSeven(hand [7]cards.Card, fn func([5]cards.Card)) {
	for i := 0; i < 7; i++ {
		for j := i + 1; j < 7; j++ {
			var sub [5]cards.Card
			k := 0
			for idx := 0; idx < 7; idx++ {
				if idx == i || idx == j {
					continue
				}
				sub[k] = hand[idx]
				k++
			}
			fn(sub)
		}
	}
}

// build enumerates every distinct 5-card value class reachable in a 52-card
// deck, assigns each a dense ordinal that preserves raw-score order, and
// wraps the (rawScore -> ordinal) map in a minimal perfect hash so the hot
// evaluation path pays O(1) with no collision chains.
func build() *Table {
	seen := make(map[uint32]struct{}, 8000)
	for a := cards.Card(0); a < 52; a++ {
		for b := a + 1; b < 52; b++ {
			for c := b + 1; c < 52; c++ {
				for d := c + 1; d < 52; d++ {
					for e := d + 1; e < 52; e++ {
						var rankCounts [13]uint8
						var suitMasks [4]uint16
						var rankMask uint16
						for _, card := range [5]cards.Card{a, b, c, d, e} {
							r := uint(card.Rank())
							s := card.Suit()
							rankCounts[r]++
							rankMask |= 1 << r
							suitMasks[s] |= 1 << r
						}
						seen[rawScore5(rankMask, suitMasks, rankCounts)] = struct{}{}
					}
				}
			}
		}
	}

	keys := make([]uint32, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	idx, err := buildDenseIndex(keys)
	if err != nil {
		panic("eval7: failed to build perfect hash table: " + err.Error())
	}
	return &Table{index: idx}
}
