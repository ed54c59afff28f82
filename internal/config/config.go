// Package config loads TreeConfig/CardConfig from HCL documents. It only
// carries numeric/string fields the resolver and range builders already
// accept; the bet-size and range mini-languages are parsed elsewhere.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/postflop-solver/internal/betsize"
	"github.com/lox/postflop-solver/internal/cards"
	"github.com/lox/postflop-solver/internal/game"
	"github.com/lox/postflop-solver/internal/ranges"
	"github.com/lox/postflop-solver/internal/simplerange"
	"github.com/lox/postflop-solver/internal/tree"
)

// BetSizingConfig is one player's pot-relative bet-size repertoire for a
// street. All-in is injected automatically by internal/betsize's resolver
// when warranted, so it is never listed here.
type BetSizingConfig struct {
	PotFracs []float64 `hcl:"pot_fracs,optional"`
}

func (c BetSizingConfig) specs() []betsize.Spec {
	out := make([]betsize.Spec, len(c.PotFracs))
	for i, f := range c.PotFracs {
		out[i] = betsize.Spec{Kind: betsize.PotRelative, Frac: f}
	}
	return out
}

// StreetBetSizing holds each player's repertoire for one street.
type StreetBetSizing struct {
	OOP BetSizingConfig `hcl:"oop,block"`
	IP  BetSizingConfig `hcl:"ip,block"`
}

// TreeConfig is the HCL document shape for tree.Config.
type TreeConfig struct {
	Street             string          `hcl:"street"`
	StartingPot        int             `hcl:"starting_pot"`
	EffectiveStack     int             `hcl:"effective_stack"`
	MaxRaisesPerStreet int             `hcl:"max_raises_per_street,optional"`
	DonkOption         bool            `hcl:"donk_option,optional"`
	MergeThreshold     float64         `hcl:"merge_threshold,optional"`
	AllinThreshold     float64         `hcl:"allin_threshold,optional"`
	Flop               StreetBetSizing `hcl:"flop,block"`
	Turn               StreetBetSizing `hcl:"turn,block"`
	River              StreetBetSizing `hcl:"river,block"`
}

// DefaultTreeConfig returns a conservative starting configuration suitable
// for smoke tests.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		Street:             "flop",
		StartingPot:        100,
		EffectiveStack:     1000,
		MaxRaisesPerStreet: 4,
		MergeThreshold:     betsize.DefaultMergeThreshold,
		AllinThreshold:     betsize.DefaultAllinThreshold,
		Flop: StreetBetSizing{
			OOP: BetSizingConfig{PotFracs: []float64{0.5, 1.0}},
			IP:  BetSizingConfig{PotFracs: []float64{0.5, 1.0}},
		},
		Turn: StreetBetSizing{
			OOP: BetSizingConfig{PotFracs: []float64{0.75}},
			IP:  BetSizingConfig{PotFracs: []float64{0.75}},
		},
		River: StreetBetSizing{
			OOP: BetSizingConfig{PotFracs: []float64{1.0}},
			IP:  BetSizingConfig{PotFracs: []float64{1.0}},
		},
	}
}

// LoadTreeConfig loads a TreeConfig from an HCL file, falling back to
// DefaultTreeConfig when filename does not exist.
func LoadTreeConfig(filename string) (TreeConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultTreeConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return TreeConfig{}, fmt.Errorf("config: parsing tree config: %s", diags.Error())
	}

	cfg := DefaultTreeConfig()
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return TreeConfig{}, fmt.Errorf("config: decoding tree config: %s", diags.Error())
	}
	return cfg, nil
}

func (c TreeConfig) street() (tree.Street, error) {
	switch c.Street {
	case "flop":
		return tree.Flop, nil
	case "turn":
		return tree.Turn, nil
	case "river":
		return tree.River, nil
	default:
		return 0, fmt.Errorf("config: unknown street %q", c.Street)
	}
}

// Validate checks that c describes a buildable tree, returning a
// descriptive error up front rather than panicking deep inside tree.Build.
func (c TreeConfig) Validate() error {
	if _, err := c.street(); err != nil {
		return err
	}
	if c.StartingPot <= 0 {
		return fmt.Errorf("config: starting_pot must be > 0")
	}
	if c.EffectiveStack <= 0 {
		return fmt.Errorf("config: effective_stack must be > 0")
	}
	return nil
}

// Resolve turns c into a tree.Config, ready for tree.Build or game.Build.
func (c TreeConfig) Resolve() (tree.Config, error) {
	if err := c.Validate(); err != nil {
		return tree.Config{}, err
	}
	street, _ := c.street()

	resolver := betsize.Resolver{MergeThreshold: c.MergeThreshold, AllinThreshold: c.AllinThreshold}
	if resolver.MergeThreshold <= 0 {
		resolver.MergeThreshold = betsize.DefaultMergeThreshold
	}
	if resolver.AllinThreshold <= 0 {
		resolver.AllinThreshold = betsize.DefaultAllinThreshold
	}

	return tree.Config{
		InitialState:       street,
		StartingPot:        c.StartingPot,
		EffectiveStack:     c.EffectiveStack,
		MaxRaisesPerStreet: c.MaxRaisesPerStreet,
		DonkOption:         c.DonkOption,
		FlopBetSizes:       [2][]betsize.Spec{c.Flop.OOP.specs(), c.Flop.IP.specs()},
		TurnBetSizes:       [2][]betsize.Spec{c.Turn.OOP.specs(), c.Turn.IP.specs()},
		RiverBetSizes:      [2][]betsize.Spec{c.River.OOP.specs(), c.River.IP.specs()},
		Resolver:           resolver,
	}, nil
}

// ComboConfig names one combo and its range weight. A zero Weight defaults
// to 1 at resolve time.
type ComboConfig struct {
	Hand   string  `hcl:"hand"`
	Weight float64 `hcl:"weight,optional"`
}

// CardConfig is the HCL document shape for the board and both ranges.
type CardConfig struct {
	Board      string        `hcl:"board"`
	Compressed bool          `hcl:"compressed,optional"`
	OOPCombo   []ComboConfig `hcl:"oop_combo,block"`
	IPCombo    []ComboConfig `hcl:"ip_combo,block"`
}

// DefaultCardConfig returns a tiny hand-vs-hand scenario, useful as a
// starting point for a hand-edited HCL file.
func DefaultCardConfig() CardConfig {
	return CardConfig{
		Board:    "Td9d6h",
		OOPCombo: []ComboConfig{{Hand: "AsAc", Weight: 1}},
		IPCombo:  []ComboConfig{{Hand: "QsQc", Weight: 1}},
	}
}

// LoadCardConfig loads a CardConfig from an HCL file, falling back to
// DefaultCardConfig when filename does not exist.
func LoadCardConfig(filename string) (CardConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultCardConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return CardConfig{}, fmt.Errorf("config: parsing card config: %s", diags.Error())
	}

	cfg := DefaultCardConfig()
	cfg.OOPCombo = nil
	cfg.IPCombo = nil
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return CardConfig{}, fmt.Errorf("config: decoding card config: %s", diags.Error())
	}
	return cfg, nil
}

// Validate checks that c names a parseable board and at least one combo per
// side.
func (c CardConfig) Validate() error {
	if _, err := cards.ParseBoard(c.Board); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.OOPCombo) == 0 {
		return fmt.Errorf("config: oop_combo requires at least one entry")
	}
	if len(c.IPCombo) == 0 {
		return fmt.Errorf("config: ip_combo requires at least one entry")
	}
	return nil
}

func toLiterals(combos []ComboConfig) []simplerange.Literal {
	out := make([]simplerange.Literal, len(combos))
	for i, c := range combos {
		out[i] = simplerange.Literal{Combo: c.Hand, Weight: c.Weight}
	}
	return out
}

// Board parses c.Board into cards.Card values.
func (c CardConfig) Board() ([]cards.Card, error) {
	return cards.ParseBoard(c.Board)
}

// Ranges builds the OOP and IP Range from c's combo lists.
func (c CardConfig) Ranges() (oop, ip *ranges.Range, err error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	oop, err = simplerange.Parse(toLiterals(c.OOPCombo))
	if err != nil {
		return nil, nil, fmt.Errorf("config: oop range: %w", err)
	}
	ip, err = simplerange.Parse(toLiterals(c.IPCombo))
	if err != nil {
		return nil, nil, fmt.Errorf("config: ip range: %w", err)
	}
	return oop, ip, nil
}

// GameConfig combines a TreeConfig and CardConfig into a game.Config, ready
// for game.Build.
func GameConfig(t TreeConfig, c CardConfig) (game.Config, error) {
	treeCfg, err := t.Resolve()
	if err != nil {
		return game.Config{}, err
	}
	board, err := c.Board()
	if err != nil {
		return game.Config{}, fmt.Errorf("config: %w", err)
	}
	oop, ip, err := c.Ranges()
	if err != nil {
		return game.Config{}, err
	}
	return game.Config{
		Tree:       treeCfg,
		Board:      board,
		OOPRange:   oop,
		IPRange:    ip,
		Compressed: c.Compressed,
	}, nil
}
