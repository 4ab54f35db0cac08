package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/phobologic/graphoracle/internal/extract"
	"github.com/phobologic/graphoracle/internal/graph"
	"github.com/phobologic/graphoracle/internal/mutate"
	"github.com/phobologic/graphoracle/internal/toon"
)

// runMutate implements `graphoracle mutate -k K FILE`. The mutated program is
// written to stdout or to -o; with -check the re-extracted graph is printed
// after it (or alone, when -o is given).
func runMutate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("graphoracle mutate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		k       int
		seed    int64
		outPath string
		check   bool
	)
	fs.IntVar(&k, "k", 1, "maximum number of call sites to retarget")
	fs.Int64Var(&seed, "seed", defaultSeed(), "random seed")
	fs.StringVar(&outPath, "o", "", "write the mutated program to this file")
	fs.BoolVar(&check, "check", false, "re-extract the mutated program and print its graph")
	level, format := logFlags(fs)

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("mutate: want exactly one program, got %d", fs.NArg())
	}

	log, err := newLogger(stderr, *level, *format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := fs.Arg(0)
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ctx := context.Background()
	m := mutate.New(rand.New(rand.NewSource(seed)))

	var graphText string
	var res *mutate.Result
	if check {
		r, g, err := mutate.AndExtract(ctx, m, extract.New(), source, k)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		g.Path = path
		graph.Rank(g)
		res, graphText = r, toon.Encode(g)
	} else {
		res, err = m.Mutate(ctx, source, k)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, rw := range res.Rewrites {
		log.Info("retargeted call",
			zap.Int("line", rw.Line),
			zap.String("from", rw.From),
			zap.String("to", rw.To),
		)
	}
	log.Info("mutation done", zap.Int("requested", k), zap.Int("applied", res.Applied))

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(res.Source), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
	} else {
		_, _ = io.WriteString(stdout, res.Source)
	}
	if graphText != "" {
		if outPath == "" {
			_, _ = fmt.Fprintln(stdout)
		}
		_, _ = fmt.Fprintln(stdout, graphText)
	}
	return nil
}
