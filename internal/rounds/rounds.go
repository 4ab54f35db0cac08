// Package rounds runs grids of generate, extract and mutate rounds in
// parallel.
package rounds

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/graphoracle/internal/config"
	"github.com/phobologic/graphoracle/internal/extract"
	"github.com/phobologic/graphoracle/internal/graph"
	"github.com/phobologic/graphoracle/internal/model"
	"github.com/phobologic/graphoracle/internal/mutate"
	"github.com/phobologic/graphoracle/internal/synth"
	"github.com/phobologic/graphoracle/internal/topology"
)

// Cell is one point of the grid.
type Cell struct {
	Mode      topology.Mode
	Nodes     int
	AvgLength int
	Changes   int
}

// Cells expands the grid in mode, nodes, length, changes order.
func Cells(g config.Grid) ([]Cell, error) {
	var cells []Cell
	for _, name := range g.Modes {
		mode, err := topology.ParseMode(name)
		if err != nil {
			return nil, err
		}
		for _, n := range g.Nodes {
			for _, l := range g.AvgLengths {
				for _, k := range g.Changes {
					cells = append(cells, Cell{Mode: mode, Nodes: n, AvgLength: l, Changes: k})
				}
			}
		}
	}
	return cells, nil
}

// Seed derives the seed of round index from the base seed. Nearby indices
// give unrelated streams.
func Seed(base int64, index int) int64 {
	z := uint64(base) + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// Runner executes rounds. Rounds share no mutable state; each builds its own
// random source from its seed.
type Runner struct {
	cfg       config.Config
	log       *zap.Logger
	extractor *extract.Cache
}

// New returns a Runner for cfg. A nil logger discards output. The
// extraction cache holds cfg.CacheSize graphs; unmutated sources are
// extracted twice per round, so a few entries per worker are enough.
func New(cfg config.Config, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := extract.NewCache(extract.New(), cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("rounds: %w", err)
	}
	return &Runner{cfg: cfg, log: log, extractor: cache}, nil
}

// Run executes every grid cell with at most cfg.Workers rounds in flight and
// hands each result to sink. The first error cancels the remaining rounds.
func (r *Runner) Run(ctx context.Context, sink Sink) error {
	cells, err := Cells(r.cfg.Grid)
	if err != nil {
		return err
	}
	r.log.Info("starting rounds",
		zap.Int("rounds", len(cells)),
		zap.Int("workers", r.cfg.Workers),
		zap.Int64("seed", r.cfg.Seed),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Workers))

	for i, c := range cells {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.Round(ctx, i, c)
			if err != nil {
				return fmt.Errorf("round %d (%s n=%d): %w", i, c.Mode, c.Nodes, err)
			}
			return sink.Append(res)
		})
	}
	err = g.Wait()
	hits, misses := r.extractor.Stats()
	r.log.Debug("extraction cache", zap.Int64("hits", hits), zap.Int64("misses", misses))
	return err
}

// Round generates a program, checks that extraction reproduces its gold
// graph, then mutates it and re-extracts.
func (r *Runner) Round(ctx context.Context, index int, c Cell) (model.RoundResult, error) {
	seed := Seed(r.cfg.Seed, index)
	res := model.RoundResult{
		Index:     index,
		Mode:      string(c.Mode),
		Nodes:     c.Nodes,
		AvgLength: c.AvgLength,
		Seed:      seed,
		Changes:   c.Changes,
	}

	p, err := synth.Generate(synth.Config{
		Nodes:         c.Nodes,
		AvgLength:     c.AvgLength,
		Branches:      r.cfg.Grid.Branches,
		Loops:         r.cfg.Grid.Loops,
		Connectivity:  r.cfg.Grid.Connectivity,
		Mode:          c.Mode,
		SemanticNames: r.cfg.Grid.SemanticNames,
		Seed:          seed,
	})
	if err != nil {
		return res, err
	}
	res.SourceBytes = len(p.Source)
	res.GoldEdges = p.Parents.EdgeCount()

	extracted, err := r.extractor.Extract(ctx, []byte(p.Source))
	if err != nil {
		return res, fmt.Errorf("extracting: %w", err)
	}
	res.ExtractedEdges = len(extracted.Edges)

	ok, delta := graph.RoundTrip(p, extracted)
	res.RoundTrip = ok
	log := r.log.With(zap.Int("round", index), zap.Int64("seed", seed))
	if !ok {
		log.Warn("extracted graph differs from gold graph",
			zap.Any("missing", delta.Missing),
			zap.Any("extra", delta.Extra),
		)
	}

	m := mutate.New(rand.New(rand.NewSource(seed)))
	mutated, mg, err := mutate.AndExtract(ctx, m, r.extractor, []byte(p.Source), c.Changes)
	if err != nil {
		return res, err
	}
	res.Applied = mutated.Applied
	res.MutatedEdges = len(mg.Edges)

	log.Debug("round done",
		zap.Bool("round_trip", ok),
		zap.Int("applied", res.Applied),
		zap.Int("mutated_edges", res.MutatedEdges),
	)
	return res, nil
}
