// Package graph compares gold and recovered dependency graphs and ranks nodes.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/graphoracle/internal/model"
)

// GoldEdges collapses a parents-of adjacency into edge pairs: for every child
// c and parent p the edge is {From: name(p), To: name(c)}, the same direction
// the extractor records for a call to p inside c.
func GoldEdges(nodes []model.Node, parents model.Adjacency) []model.Edge {
	var edges []model.Edge
	for child, ps := range parents {
		for _, p := range ps {
			edges = append(edges, model.Edge{From: nodes[p].Name, To: nodes[child].Name})
		}
	}
	return edges
}

// WithoutNode returns the edges that do not touch name.
func WithoutNode(edges []model.Edge, name string) []model.Edge {
	var kept []model.Edge
	for _, e := range edges {
		if e.From != name && e.To != name {
			kept = append(kept, e)
		}
	}
	return kept
}

// Normalize deduplicates edges and sorts them by (From, To).
func Normalize(edges []model.Edge) []model.Edge {
	seen := make(map[model.Edge]struct{}, len(edges))
	out := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Delta is the set difference between an expected and an observed edge set.
type Delta struct {
	Missing []model.Edge // expected but not observed
	Extra   []model.Edge // observed but not expected
}

// Equal reports whether both sets matched.
func (d Delta) Equal() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0
}

// Diff compares two edge collections as sets.
func Diff(want, got []model.Edge) Delta {
	want, got = Normalize(want), Normalize(got)
	wantSet := make(map[model.Edge]struct{}, len(want))
	for _, e := range want {
		wantSet[e] = struct{}{}
	}
	gotSet := make(map[model.Edge]struct{}, len(got))
	for _, e := range got {
		gotSet[e] = struct{}{}
	}

	var d Delta
	for _, e := range want {
		if _, ok := gotSet[e]; !ok {
			d.Missing = append(d.Missing, e)
		}
	}
	for _, e := range got {
		if _, ok := wantSet[e]; !ok {
			d.Extra = append(d.Extra, e)
		}
	}
	return d
}

// SameNodes reports whether two name lists hold the same set of names.
func SameNodes(want, got []string) bool {
	a := toSet(want)
	b := toSet(got)
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if _, ok := b[name]; !ok {
			return false
		}
	}
	return true
}

// RoundTrip reports whether an extracted graph reproduces a generated program:
// the same node set and the same edge set.
func RoundTrip(p *model.Program, g *model.CallGraph) (bool, Delta) {
	d := Diff(GoldEdges(p.Nodes, p.Parents), g.Edges)
	return SameNodes(p.Names(), g.Names()) && d.Equal(), d
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Rank applies PageRank to the nodes of g and sorts them by rank descending,
// ties broken by definition line. Rank flows from a caller to its callees, so
// widely depended-on nodes rank highest.
func Rank(g *model.CallGraph) {
	if len(g.Nodes) == 0 {
		return
	}

	if len(g.Edges) == 0 {
		uniform := 1.0 / float64(len(g.Nodes))
		for i := range g.Nodes {
			g.Nodes[i].Rank = uniform
		}
		return
	}

	outEdges := make(map[string][]string) // caller → callees
	outDegree := make(map[string]int)
	nodes := make(map[string]struct{})

	for i := range g.Nodes {
		nodes[g.Nodes[i].Name] = struct{}{}
	}

	for _, e := range g.Edges {
		if e.From == e.To {
			continue
		}
		outEdges[e.To] = append(outEdges[e.To], e.From)
		outDegree[e.To]++
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)

	for i := range g.Nodes {
		g.Nodes[i].Rank = ranks[g.Nodes[i].Name]
	}

	sort.SliceStable(g.Nodes, func(i, j int) bool {
		if g.Nodes[i].Rank != g.Nodes[j].Rank {
			return g.Nodes[i].Rank > g.Nodes[j].Rank
		}
		return g.Nodes[i].Line < g.Nodes[j].Line
	})
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
