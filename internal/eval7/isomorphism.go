package eval7

import "github.com/lox/postflop-solver/internal/cards"

// SuitClasses partitions the four suits into equivalence classes given the
// cards already on the board: each suit that appears on the board is its
// own singleton class (its relationship to the specific board cards is not
// interchangeable with any other suit), while every suit absent from the
// board shares one class, since a suit-symmetric range cannot distinguish
// between two suits neither of which has appeared yet.
type SuitClasses struct {
	// ClassOf maps a suit to its equivalence class id.
	ClassOf [4]int
	// Size gives, for each class id, how many suits belong to it.
	Size []int
}

// ComputeSuitClasses derives the suit equivalence classes for a partial
// board (3, 4, or 5 cards; NotDealt entries are ignored).
func ComputeSuitClasses(board []cards.Card) SuitClasses {
	var present [4]bool
	for _, c := range board {
		if c.Valid() {
			present[c.Suit()] = true
		}
	}

	var sc SuitClasses
	nextClass := 0
	for s := 0; s < 4; s++ {
		if present[s] {
			sc.ClassOf[s] = nextClass
			sc.Size = append(sc.Size, 1)
			nextClass++
		}
	}

	unused := 0
	for s := 0; s < 4; s++ {
		if !present[s] {
			unused++
		}
	}
	if unused > 0 {
		unusedClass := nextClass
		for s := 0; s < 4; s++ {
			if !present[s] {
				sc.ClassOf[s] = unusedClass
			}
		}
		sc.Size = append(sc.Size, unused)
	}
	return sc
}

// CanonicalCard maps a card to a representative of its suit equivalence
// class, keeping its rank unchanged. Two cards that map to the same
// canonical card are isomorphic given the current board.
func (sc SuitClasses) CanonicalCard(c cards.Card) cards.Card {
	class := sc.ClassOf[c.Suit()]
	for s := 0; s < 4; s++ {
		if sc.ClassOf[s] == class {
			return cards.New(c.Rank(), cards.Suit(s))
		}
	}
	return c
}

// ClassSize returns how many concrete suits collapse onto c's equivalence
// class, i.e. the multiplicity to apply when c is used as the one computed
// representative of an isomorphism-combined chance branch.
func (sc SuitClasses) ClassSize(c cards.Card) int {
	return sc.Size[sc.ClassOf[c.Suit()]]
}
