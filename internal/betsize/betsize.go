// Package betsize turns bet-size specifications into concrete chip amounts
// given the current pot and stacks. Parsing the "60%,e,a" mini-language into
// Spec values happens elsewhere; this package only resolves already-parsed
// specs.
package betsize

import (
	"fmt"
	"math"
	"sort"
)

// Kind discriminates the variants of a bet-size specification.
type Kind int

const (
	// PotRelative sizes the bet as a fraction of the current pot.
	PotRelative Kind = iota
	// PrevBetRelative sizes the bet as a multiple of the previous bet/raise.
	PrevBetRelative
	// Fixed is a literal chip amount.
	Fixed
	// Geometric spreads N sizes geometrically from half the current pot
	// (exclusive) up to maxFrac of the effective stack, used for "e"
	// (even/geometric) sizing.
	Geometric
	// AllIn commits the remaining stack.
	AllIn
)

// Spec is one entry of a player's bet-size repertoire for a street.
type Spec struct {
	Kind   Kind
	Frac   float64 // PotRelative fraction, or Geometric's maxFrac
	Mult   float64 // PrevBetRelative multiplier
	Amount int     // Fixed chip amount
	Steps  int     // Geometric: number of sizes to generate
}

// DefaultMergeThreshold deduplicates candidate sizes within this fraction of
// pot of one another.
const DefaultMergeThreshold = 0.08

// DefaultAllinThreshold adds an all-in size after the largest candidate
// whenever the stack remaining after that candidate is at most this multiple
// of the candidate itself; the candidate itself is kept.
const DefaultAllinThreshold = 1.5

// Resolver turns a street's bet-size repertoire into concrete, deduplicated,
// stack-clamped chip amounts.
type Resolver struct {
	MergeThreshold float64
	AllinThreshold float64
}

// NewResolver returns a Resolver configured with the documented defaults.
func NewResolver() Resolver {
	return Resolver{MergeThreshold: DefaultMergeThreshold, AllinThreshold: DefaultAllinThreshold}
}

// Resolve returns the ordered, deduplicated list of legal bet amounts for
// specs given the current pot, the amount of the previous bet/raise on this
// street (0 if none), and the acting player's remaining stack.
func (r Resolver) Resolve(specs []Spec, pot, prevBet, stack int) ([]int, error) {
	if stack <= 0 {
		return nil, nil
	}
	if r.MergeThreshold <= 0 {
		r.MergeThreshold = DefaultMergeThreshold
	}
	if r.AllinThreshold <= 0 {
		r.AllinThreshold = DefaultAllinThreshold
	}

	var raw []int
	hasAllin := false
	for _, s := range specs {
		switch s.Kind {
		case PotRelative:
			if s.Frac <= 0 {
				return nil, fmt.Errorf("betsize: pot-relative fraction must be > 0, got %v", s.Frac)
			}
			raw = append(raw, clamp(int(math.Round(s.Frac*float64(pot))), stack))
		case PrevBetRelative:
			if prevBet <= 0 {
				continue // no previous bet to scale from on this street
			}
			if s.Mult <= 0 {
				return nil, fmt.Errorf("betsize: prior-bet multiplier must be > 0, got %v", s.Mult)
			}
			raw = append(raw, clamp(int(math.Round(s.Mult*float64(prevBet))), stack))
		case Fixed:
			if s.Amount <= 0 {
				return nil, fmt.Errorf("betsize: fixed amount must be > 0, got %d", s.Amount)
			}
			raw = append(raw, clamp(s.Amount, stack))
		case Geometric:
			raw = append(raw, geometricSizes(pot, stack, s)...)
		case AllIn:
			hasAllin = true
		default:
			return nil, fmt.Errorf("betsize: unknown spec kind %d", s.Kind)
		}
	}

	sort.Ints(raw)
	merged := mergeSizes(raw, pot, r.MergeThreshold)

	if hasAllin || shouldInjectAllin(merged, stack, pot, r.AllinThreshold) {
		merged = appendAllin(merged, stack)
	}
	return merged, nil
}

func clamp(amount, stack int) int {
	if amount > stack {
		return stack
	}
	if amount < 1 {
		return 1
	}
	return amount
}

// geometricSizes produces s.Steps bet sizes (default 1 if unset) spaced
// geometrically between the smallest meaningful pot-relative bet and
// s.Frac (default 1.0) of the effective stack, matching the "e" token's
// intent of spreading sizes evenly on a multiplicative scale.
func geometricSizes(pot, stack int, s Spec) []int {
	n := s.Steps
	if n <= 0 {
		n = 1
	}
	maxFrac := s.Frac
	if maxFrac <= 0 {
		maxFrac = 1.0
	}
	target := float64(stack) * maxFrac
	if target > float64(stack) {
		target = float64(stack)
	}
	start := float64(pot) * 0.5
	if start <= 0 {
		start = 1
	}
	if target <= start {
		return []int{clamp(int(math.Round(target)), stack)}
	}
	ratio := math.Pow(target/start, 1.0/float64(n))
	out := make([]int, 0, n)
	size := start
	for i := 0; i < n; i++ {
		size *= ratio
		out = append(out, clamp(int(math.Round(size)), stack))
	}
	return out
}

// mergeSizes deduplicates sizes that fall within threshold*pot of a
// previously kept size, walking ascending and always keeping the first (and
// therefore smallest) representative of each cluster.
func mergeSizes(sorted []int, pot int, threshold float64) []int {
	if len(sorted) == 0 {
		return nil
	}
	gap := int(math.Round(threshold * float64(pot)))
	out := []int{sorted[0]}
	for _, v := range sorted[1:] {
		if v-out[len(out)-1] <= gap {
			continue
		}
		out = append(out, v)
	}
	return out
}

// shouldInjectAllin reports whether the stack should be added as an implicit
// all-in size: either the repertoire is empty (checking/calling is the only
// other option, and all-in must remain reachable), or the largest resolved
// size leaves at most threshold times that size behind.
func shouldInjectAllin(sizes []int, stack, pot int, threshold float64) bool {
	if len(sizes) == 0 {
		return true
	}
	largest := sizes[len(sizes)-1]
	if largest >= stack {
		return false
	}
	remaining := stack - largest
	return float64(remaining) <= threshold*float64(largest)
}

func appendAllin(sizes []int, stack int) []int {
	if len(sizes) > 0 && sizes[len(sizes)-1] == stack {
		return sizes
	}
	return append(sizes, stack)
}
