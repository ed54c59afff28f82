// Command solve is a thin CLI over the core solver packages: load a
// TreeConfig/CardConfig pair (HCL files or built-in defaults), run DCFR to a
// target exploitability or iteration cap, and print the converged root
// strategy. Mirrors cmd/solver/main.go's Train/Eval subcommand shape, with
// one Solve subcommand in place of Train/Eval since this core has no
// blueprint file format to train toward or evaluate against.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/postflop-solver"
	"github.com/lox/postflop-solver/internal/config"
	"github.com/lox/postflop-solver/internal/game"
	"github.com/lox/postflop-solver/internal/solver"
	"github.com/lox/postflop-solver/internal/tree"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Solve SolveCmd `cmd:"" help:"solve a spot and print the converged root strategy"`
}

// SolveCmd configures one solve run.
type SolveCmd struct {
	TreeConfig           string  `help:"path to a TreeConfig HCL file (built-in default if omitted)"`
	CardConfig           string  `help:"path to a CardConfig HCL file (built-in default if omitted)"`
	Iterations           int     `help:"maximum DCFR iterations" default:"1000"`
	TargetExploitability float64 `help:"stop once best-response exploitability falls at or below this many chips (0 disables)" default:"0"`
	ExploitabilityEvery  int     `help:"measure exploitability every N iterations" default:"10"`
	Compressed           bool    `help:"store regrets/strategy as quantized int16 buffers"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("solve"),
		kong.Description("postflop-solver CLI"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	switch ctx.Command() {
	case "solve":
		if err := cli.Solve.Run(context.Background(), cli.Debug); err != nil {
			log.Fatal().Err(err).Msg("solve failed")
		}
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

// Run loads config, builds the game, runs DCFR, and prints the root
// strategy.
func (cmd *SolveCmd) Run(ctx context.Context, debug bool) error {
	treeCfg, err := loadTreeConfig(cmd.TreeConfig)
	if err != nil {
		return fmt.Errorf("load tree config: %w", err)
	}
	cardCfg, err := loadCardConfig(cmd.CardConfig)
	if err != nil {
		return fmt.Errorf("load card config: %w", err)
	}

	gameCfg, err := config.GameConfig(treeCfg, cardCfg)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}
	gameCfg.Compressed = cmd.Compressed
	gameCfg.Logger = gameLogger(debug)

	log.Info().
		Str("street", treeCfg.Street).
		Int("starting_pot", treeCfg.StartingPot).
		Int("effective_stack", treeCfg.EffectiveStack).
		Str("board", cardCfg.Board).
		Msg("building game")

	root, err := game.Build(gameCfg)
	if err != nil {
		return fmt.Errorf("build game: %w", err)
	}

	s, err := solver.New(root, solver.Config{
		MaxIterations:        cmd.Iterations,
		ExploitabilityEvery:  cmd.ExploitabilityEvery,
		TargetExploitability: cmd.TargetExploitability,
		Logger:               gameLogger(debug),
	})
	if err != nil {
		return fmt.Errorf("build solver: %w", err)
	}

	start := time.Now()
	progress := func(p solver.Progress) {
		log.Info().
			Int("iteration", p.Iteration).
			Dur("iter_time", p.IterationTime).
			Float64("exploitability", p.Exploitability).
			Msg("progress")
	}
	if err := s.Run(ctx, progress); err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	duration := time.Since(start)

	exploit, err := s.Exploitability()
	if err != nil {
		return fmt.Errorf("measure exploitability: %w", err)
	}
	log.Info().
		Int64("iterations", s.Iteration()).
		Dur("duration", duration).
		Float64("exploitability", exploit).
		Msg("solve complete")

	return printRootStrategy(root)
}

func gameLogger(debug bool) *charmlog.Logger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	return charmlog.NewWithOptions(os.Stderr, charmlog.Options{Level: level, Prefix: "solver"})
}

func loadTreeConfig(path string) (config.TreeConfig, error) {
	if path == "" {
		return config.DefaultTreeConfig(), nil
	}
	return config.LoadTreeConfig(path)
}

func loadCardConfig(path string) (config.CardConfig, error) {
	if path == "" {
		return config.DefaultCardConfig(), nil
	}
	return config.LoadCardConfig(path)
}

// printRootStrategy prints the converged action probabilities at the root
// decision node for each hand of the player acting there.
func printRootStrategy(root *game.Node) error {
	nav, err := postflop.NewNavigator(root)
	if err != nil {
		return fmt.Errorf("build navigator: %w", err)
	}

	strat, err := nav.Strategy()
	if err != nil {
		return fmt.Errorf("root strategy: %w", err)
	}

	player := tree.OOP
	if nav.CurrentPlayer() == postflop.ActorIP {
		player = tree.IP
	}
	hands := root.HandsFor(player)
	actions := root.Actions
	numHands := len(hands)

	fmt.Printf("root strategy (%s to act):\n", nav.CurrentPlayer())
	for h, hand := range hands {
		fmt.Printf("  %-6s", hand.String())
		for a, act := range actions {
			fmt.Printf(" %s=%.3f", act.String(), strat[a*numHands+h])
		}
		fmt.Println()
	}
	return nil
}
