package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/postflop-solver/internal/tree"
)

func TestLoadTreeConfigMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadTreeConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTreeConfig(), cfg)
}

func TestDefaultTreeConfigResolves(t *testing.T) {
	resolved, err := DefaultTreeConfig().Resolve()
	require.NoError(t, err)
	assert.Equal(t, tree.Flop, resolved.InitialState)
	assert.Equal(t, 100, resolved.StartingPot)
	assert.Equal(t, 1000, resolved.EffectiveStack)
}

func TestTreeConfigValidateRejectsBadStreet(t *testing.T) {
	cfg := DefaultTreeConfig()
	cfg.Street = "preflop"
	assert.Error(t, cfg.Validate())
}

func TestTreeConfigValidateRejectsNonPositivePot(t *testing.T) {
	cfg := DefaultTreeConfig()
	cfg.StartingPot = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadTreeConfigFromHCL(t *testing.T) {
	const doc = `
street              = "river"
starting_pot        = 200
effective_stack     = 800
max_raises_per_street = 2

flop {
  oop { pot_fracs = [0.5] }
  ip  { pot_fracs = [0.5] }
}
turn {
  oop { pot_fracs = [0.75] }
  ip  { pot_fracs = [0.75] }
}
river {
  oop { pot_fracs = [1.0] }
  ip  { pot_fracs = [1.0] }
}
`
	path := filepath.Join(t.TempDir(), "tree.hcl")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadTreeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "river", cfg.Street)
	assert.Equal(t, 200, cfg.StartingPot)
	assert.Equal(t, 800, cfg.EffectiveStack)
	assert.Equal(t, 2, cfg.MaxRaisesPerStreet)
	assert.Equal(t, []float64{1.0}, cfg.River.OOP.PotFracs)

	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, tree.River, resolved.InitialState)
}

func TestDefaultCardConfigBuildsRanges(t *testing.T) {
	cfg := DefaultCardConfig()
	require.NoError(t, cfg.Validate())

	oop, ip, err := cfg.Ranges()
	require.NoError(t, err)
	assert.NotNil(t, oop)
	assert.NotNil(t, ip)

	board, err := cfg.Board()
	require.NoError(t, err)
	assert.Len(t, board, 3)
}

func TestCardConfigValidateRejectsEmptyCombos(t *testing.T) {
	cfg := DefaultCardConfig()
	cfg.OOPCombo = nil
	assert.Error(t, cfg.Validate())
}

func TestCardConfigValidateRejectsBadBoard(t *testing.T) {
	cfg := DefaultCardConfig()
	cfg.Board = "ZzZzZz"
	assert.Error(t, cfg.Validate())
}

func TestLoadCardConfigFromHCL(t *testing.T) {
	const doc = `
board = "Td9d6h2c3s"

oop_combo {
  hand   = "AsAc"
  weight = 1.0
}
oop_combo {
  hand   = "KsKc"
  weight = 0.5
}
ip_combo {
  hand = "QsQc"
}
`
	path := filepath.Join(t.TempDir(), "cards.hcl")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadCardConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.OOPCombo, 2)
	assert.Len(t, cfg.IPCombo, 1)

	oop, _, err := cfg.Ranges()
	require.NoError(t, err)
	assert.NotNil(t, oop)
}

func TestGameConfigCombinesTreeAndCards(t *testing.T) {
	gc, err := GameConfig(DefaultTreeConfig(), DefaultCardConfig())
	require.NoError(t, err)
	assert.NotNil(t, gc.OOPRange)
	assert.NotNil(t, gc.IPRange)
	assert.Len(t, gc.Board, 3)
}
