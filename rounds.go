package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/phobologic/graphoracle/internal/config"
	"github.com/phobologic/graphoracle/internal/rounds"
	"github.com/phobologic/graphoracle/internal/toon"
)

// runRounds implements `graphoracle rounds`: every cell of the configured
// grid is generated, extracted, mutated and re-extracted.
func runRounds(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("graphoracle rounds", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath   string
		jsonlPath string
		workers   int
		seed      int64
	)
	fs.StringVar(&cfgPath, "config", "", "YAML config file (default "+config.DefaultPath+" when present)")
	fs.StringVar(&jsonlPath, "jsonl", "", "append one JSON line per round to this file")
	fs.IntVar(&workers, "workers", 0, "override the configured worker count")
	fs.Int64Var(&seed, "seed", 0, "override the configured base seed")
	level, format := logFlags(fs)

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Seed = seed
		}
	})
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *format != "console" {
		cfg.LogFormat = *format
	}

	log, err := newLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	mem := &rounds.Memory{}
	var sink rounds.Sink = mem
	if jsonlPath != "" {
		f, err := os.OpenFile(jsonlPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening %s: %w", jsonlPath, err)
		}
		defer f.Close()
		sink = rounds.Multi(mem, rounds.NewJSONL(f))
	}

	runner, err := rounds.New(cfg, log)
	if err != nil {
		return err
	}
	if err := runner.Run(context.Background(), sink); err != nil {
		return err
	}

	results := mem.Results()
	held := 0
	for _, r := range results {
		if r.RoundTrip {
			held++
		}
	}
	log.Info("rounds done", zap.Int("rounds", len(results)), zap.Int("round_trips", held))

	_, _ = fmt.Fprintln(stdout, toon.EncodeRounds(results))
	return nil
}
