// Package simplerange parses four-character combo literals like "AsAc"
// into weighted ranges: just enough string handling to drive cmd/solve and
// the test scenarios. It is deliberately not a hold'em range mini-language
// parser (no "AKs", no wildcards, no ranks-only tokens).
package simplerange

import (
	"fmt"
	"strings"

	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/ranges"
)

// ParseHand parses a four-character combo literal such as "AsAc" into a
// Hand.
func ParseHand(s string) (cards.Hand, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return cards.Hand{}, fmt.Errorf("simplerange: combo literal must be 4 characters (e.g. %q), got %q", "AsAc", s)
	}
	a, err := cards.Parse(s[:2])
	if err != nil {
		return cards.Hand{}, fmt.Errorf("simplerange: %w", err)
	}
	b, err := cards.Parse(s[2:])
	if err != nil {
		return cards.Hand{}, fmt.Errorf("simplerange: %w", err)
	}
	return cards.NewHand(a, b)
}

// Literal pairs a combo literal with its range weight.
type Literal struct {
	Combo  string
	Weight float64
}

// Parse builds a Range from a list of combo literals. A zero Weight defaults
// to 1, so a caller building a uniform range can omit it.
func Parse(literals []Literal) (*ranges.Range, error) {
	if len(literals) == 0 {
		return nil, fmt.Errorf("simplerange: no combos given")
	}
	weights := make(map[cards.Hand]float64, len(literals))
	for _, lit := range literals {
		h, err := ParseHand(lit.Combo)
		if err != nil {
			return nil, err
		}
		w := lit.Weight
		if w == 0 {
			w = 1
		}
		weights[h] = w
	}
	return ranges.New(weights)
}
