// Package mutate retargets call sites of toy-language programs.
package mutate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/graphoracle/internal/extract"
	"github.com/phobologic/graphoracle/internal/lang"
	"github.com/phobologic/graphoracle/internal/model"
)

// ErrNegativeChanges indicates a negative requested change count.
var ErrNegativeChanges = errors.New("mutate: negative change count")

// ErrNeedRand indicates a rewrite was needed but the Mutator has no
// random source.
var ErrNeedRand = errors.New("mutate: nil random source")

// Rewrite is one retargeted call site.
type Rewrite struct {
	Line int
	From string
	To   string
}

// Result is the outcome of a mutation. Applied always equals len(Rewrites).
type Result struct {
	Source   string
	Applied  int
	Rewrites []Rewrite
}

// Mutator rewrites bare-name calls between module-level functions.
type Mutator struct {
	lang   *lang.Language
	rng    *rand.Rand
	driver string
	entry  string
}

// New returns a Mutator drawing replacements from rng.
func New(rng *rand.Rand) *Mutator {
	return &Mutator{
		lang:   lang.Default(),
		rng:    rng,
		driver: lang.DriverName,
		entry:  lang.EntryMethod,
	}
}

// Mutate is shorthand for New(rng).Mutate with a background context.
func Mutate(source string, k int, rng *rand.Rand) (*Result, error) {
	return New(rng).Mutate(context.Background(), []byte(source), k)
}

// Mutate retargets at most k bare-name call sites, in source order. The
// candidate pool holds the module-level function names other than the entry
// method and the driver. Each rewritten call names a different pool member
// chosen uniformly. With fewer than two candidates, or k == 0, the source is
// returned unchanged with zero changes.
func (m *Mutator) Mutate(ctx context.Context, source []byte, k int) (*Result, error) {
	if k < 0 {
		return nil, fmt.Errorf("k=%d: %w", k, ErrNegativeChanges)
	}
	unchanged := &Result{Source: string(source)}

	tree, err := m.lang.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	pool := m.candidates(tree.RootNode(), source)
	if len(pool) < 2 || k == 0 {
		return unchanged, nil
	}
	if m.rng == nil {
		return nil, fmt.Errorf("k=%d: %w", k, ErrNeedRand)
	}

	q, err := m.lang.GetCallQuery()
	if err != nil {
		return nil, err
	}

	inPool := make(map[string]struct{}, len(pool))
	for _, name := range pool {
		inPool[name] = struct{}{}
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	type site struct {
		start, end uint32
		line       int
		name       string
	}
	var sites []site
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			if q.CaptureNameForId(c.Index) != "name" {
				continue
			}
			name := lang.NodeText(c.Node, source)
			if _, ok := inPool[name]; !ok {
				continue
			}
			sites = append(sites, site{
				start: c.Node.StartByte(),
				end:   c.Node.EndByte(),
				line:  lang.Line(c.Node),
				name:  name,
			})
		}
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].start < sites[j].start })
	if len(sites) > k {
		sites = sites[:k]
	}

	var b bytes.Buffer
	res := &Result{}
	var last uint32
	for _, st := range sites {
		rw := Rewrite{Line: st.line, From: st.name, To: m.pick(pool, st.name)}
		b.Write(source[last:st.start])
		b.WriteString(rw.To)
		last = st.end
		res.Rewrites = append(res.Rewrites, rw)
	}
	b.Write(source[last:])

	res.Source = b.String()
	res.Applied = len(res.Rewrites)
	return res, nil
}

func (m *Mutator) candidates(root *sitter.Node, source []byte) []string {
	var pool []string
	seen := make(map[string]struct{})
	for _, name := range lang.TopLevelFunctions(root, source) {
		if name == m.entry || name == m.driver {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		pool = append(pool, name)
	}
	return pool
}

// pick returns a pool member other than old.
func (m *Mutator) pick(pool []string, old string) string {
	choices := make([]string, 0, len(pool)-1)
	for _, name := range pool {
		if name != old {
			choices = append(choices, name)
		}
	}
	return choices[m.rng.Intn(len(choices))]
}

// Extractor recovers a call graph from source. *extract.Extractor and
// *extract.Cache both satisfy it.
type Extractor interface {
	Extract(ctx context.Context, source []byte) (*model.CallGraph, error)
}

var (
	_ Extractor = (*extract.Extractor)(nil)
	_ Extractor = (*extract.Cache)(nil)
)

// AndExtract mutates source and re-extracts the mutated program, giving the
// graph the mutated text actually encodes.
func AndExtract(ctx context.Context, m *Mutator, x Extractor, source []byte, k int) (*Result, *model.CallGraph, error) {
	res, err := m.Mutate(ctx, source, k)
	if err != nil {
		return nil, nil, err
	}
	g, err := x.Extract(ctx, []byte(res.Source))
	if err != nil {
		return nil, nil, fmt.Errorf("re-extracting: %w", err)
	}
	return res, g, nil
}
