package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/phobologic/graphoracle/internal/graph"
	"github.com/phobologic/graphoracle/internal/synth"
	"github.com/phobologic/graphoracle/internal/topology"
	"github.com/phobologic/graphoracle/internal/toon"
)

// runGenerate implements `graphoracle generate`. Without -o the program is
// written to stdout; with -o it goes to the file and the gold graph is
// printed instead.
func runGenerate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("graphoracle generate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := synth.Default()
	var (
		mode     string
		outPath  string
		showGold bool
		cfg      = def
	)
	fs.IntVar(&cfg.Nodes, "n", def.Nodes, "number of nodes")
	fs.StringVar(&mode, "mode", string(def.Mode), "topology: chain, branch or random")
	fs.IntVar(&cfg.AvgLength, "length", def.AvgLength, "average body length in lines")
	fs.IntVar(&cfg.Branches, "branches", def.Branches, "inert branches per body")
	fs.IntVar(&cfg.Loops, "loops", def.Loops, "inert loops per body")
	fs.Float64Var(&cfg.Connectivity, "connectivity", def.Connectivity, "edge probability in random mode")
	fs.Int64Var(&cfg.Seed, "seed", defaultSeed(), "random seed")
	fs.BoolVar(&cfg.SemanticNames, "semantic", false, "name nodes after their graph position")
	fs.StringVar(&outPath, "o", "", "write the program to this file")
	fs.BoolVar(&showGold, "gold", false, "print the gold graph even when writing to stdout")
	level, format := logFlags(fs)

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("generate: unexpected argument %q", fs.Arg(0))
	}

	log, err := newLogger(stderr, *level, *format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	m, err := topology.ParseMode(mode)
	if err != nil {
		return err
	}
	cfg.Mode = m

	p, err := synth.Generate(cfg)
	if err != nil {
		return err
	}
	gold := graph.GoldEdges(p.Nodes, p.Parents)
	log.Info("generated program",
		zap.String("mode", string(cfg.Mode)),
		zap.Int("nodes", len(p.Nodes)),
		zap.Int("edges", len(gold)),
		zap.Int64("seed", cfg.Seed),
	)

	if outPath == "" {
		_, _ = io.WriteString(stdout, p.Source)
		if showGold {
			_, _ = fmt.Fprintln(stdout)
			_, _ = fmt.Fprintln(stdout, toon.EncodeProgram(p, gold))
		}
		return nil
	}

	if err := os.WriteFile(outPath, []byte(p.Source), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	_, _ = fmt.Fprintln(stdout, toon.EncodeProgram(p, gold))
	return nil
}
