package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/graphoracle/internal/discover"
	"github.com/phobologic/graphoracle/internal/extract"
	"github.com/phobologic/graphoracle/internal/filter"
	"github.com/phobologic/graphoracle/internal/graph"
	"github.com/phobologic/graphoracle/internal/lang"
	"github.com/phobologic/graphoracle/internal/model"
	"github.com/phobologic/graphoracle/internal/toon"
)

const defaultMaxFileSize = 1_000_000 // 1 MB

// runExtract implements `graphoracle extract PATH...`. Each PATH is a program
// or a directory of programs; one TOON graph is printed per program.
func runExtract(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("graphoracle extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		nodeFilter  string
		pathFilter  string
		top         int
		driver      string
		entry       string
		exclude     string
		cachePath   string
		maxFileSize int
	)
	fs.StringVar(&nodeFilter, "node", "", "keep nodes whose name contains this substring, plus their neighbours")
	fs.StringVar(&pathFilter, "file", "", "keep programs whose path contains this substring")
	fs.IntVar(&top, "top", 0, "keep only the N highest-ranked nodes per program")
	fs.StringVar(&driver, "driver", lang.DriverName, "driver function whose calls are not edges (empty disables)")
	fs.StringVar(&entry, "entry", lang.EntryMethod, "entry-method name of classes")
	fs.StringVar(&exclude, "exclude", "", "comma-separated gitignore patterns to skip in directories")
	fs.StringVar(&cachePath, "cache", "", "cache file path")
	fs.IntVar(&maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	level, format := logFlags(fs)

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}

	log, err := newLogger(stderr, *level, *format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var patterns []string
	for _, p := range strings.Split(exclude, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}

	ctx := context.Background()
	files, err := collectFiles(ctx, paths, discover.Options{Exclude: patterns})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no programs found")
	}

	filtered := nodeFilter != "" || pathFilter != "" || top > 0

	// Filtered output is never cached.
	stamp := cacheStamp(driver, entry, patterns)
	if cachePath != "" && !filtered && cacheIsFresh(cachePath, files) {
		if data, ok := readCache(cachePath, stamp); ok {
			_, _ = stdout.Write(data)
			return nil
		}
	}

	files = filterBySize(files, maxFileSize, log)
	if len(files) == 0 {
		return fmt.Errorf("no programs found (all exceeded size limit)")
	}

	// Generated corpora often hold identical programs; each is parsed once.
	x, err := extract.NewCache(
		extract.New(extract.WithDriver(driver), extract.WithEntryMethod(entry)),
		len(files),
	)
	if err != nil {
		return err
	}
	graphs := extractConcurrent(ctx, x, files, log)
	hits, misses := x.Stats()
	log.Debug("extracted programs", zap.Int("files", len(files)), zap.Int64("parsed", misses), zap.Int64("reused", hits))
	if len(graphs) == 0 {
		return fmt.Errorf("no programs could be parsed")
	}

	if pathFilter != "" {
		graphs = filter.ByPath(graphs, pathFilter)
	}

	parts := make([]string, 0, len(graphs))
	for _, g := range graphs {
		graph.Rank(g)
		if nodeFilter != "" {
			g = filter.ByNode(g, nodeFilter)
		}
		if top > 0 {
			g = filter.Top(g, top)
		}
		parts = append(parts, toon.Encode(g))
	}
	output := strings.Join(parts, "\n\n")

	if cachePath != "" && !filtered {
		_ = os.WriteFile(cachePath, []byte(stamp+"\n"+output+"\n"), 0o644)
	}

	_, _ = fmt.Fprintln(stdout, output)
	return nil
}

// sourceFile is a program on disk. Display is the path shown in output.
type sourceFile struct {
	Abs     string
	Display string
}

// collectFiles expands directories through discover and keeps explicit files
// as given.
func collectFiles(ctx context.Context, paths []string, opts discover.Options) ([]sourceFile, error) {
	var files []sourceFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, sourceFile{Abs: p, Display: p})
			continue
		}
		root, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving root: %w", err)
		}
		entries, err := discover.Files(ctx, root, opts)
		if err != nil {
			return nil, fmt.Errorf("discovering files: %w", err)
		}
		for _, e := range entries {
			files = append(files, sourceFile{
				Abs:     filepath.Join(root, e.Path),
				Display: filepath.ToSlash(filepath.Join(p, e.Path)),
			})
		}
	}
	return files, nil
}

// cacheStamp records the settings that shape extract output. A cache file
// written under other settings is not reused.
func cacheStamp(driver, entry string, exclude []string) string {
	return fmt.Sprintf("# graphoracle extract driver=%q entry=%q exclude=%q", driver, entry, strings.Join(exclude, ","))
}

// readCache returns the cached output when its first line equals stamp.
func readCache(cachePath, stamp string) ([]byte, bool) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}
	first, rest, ok := strings.Cut(string(data), "\n")
	if !ok || first != stamp {
		return nil, false
	}
	return []byte(rest), true
}

func cacheIsFresh(cachePath string, files []sourceFile) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(f.Abs)
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

func filterBySize(files []sourceFile, maxSize int, log *zap.Logger) []sourceFile {
	var kept []sourceFile
	for _, f := range files {
		fi, err := os.Stat(f.Abs)
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			log.Warn("skipped oversized program", zap.String("path", f.Display), zap.Int("max_bytes", maxSize))
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// extractConcurrent extracts every file on a bounded pool of goroutines and
// returns the graphs in input order. Files that cannot be read or parsed are
// logged and skipped.
func extractConcurrent(ctx context.Context, x *extract.Cache, files []sourceFile, log *zap.Logger) []*model.CallGraph {
	indexed := make([]*model.CallGraph, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			source, err := os.ReadFile(f.Abs)
			if err != nil {
				log.Warn("failed to read program", zap.String("path", f.Display), zap.Error(err))
				return nil
			}
			cg, err := x.Extract(ctx, source)
			if err != nil {
				log.Warn("failed to parse program", zap.String("path", f.Display), zap.Error(err))
				return nil
			}
			cg.Path = f.Display
			indexed[i] = cg
			return nil
		})
	}
	_ = g.Wait()

	var graphs []*model.CallGraph
	for _, cg := range indexed {
		if cg != nil {
			graphs = append(graphs, cg)
		}
	}
	return graphs
}
