// Package filter narrows extracted call graphs for display.
package filter

import (
	"strings"

	"github.com/phobologic/graphoracle/internal/model"
)

// Top returns a new CallGraph with only the first n nodes, which after
// graph.Rank are the highest-ranked ones. Edges and call sites are kept when
// both ends survive. If n is <= 0 or >= len(nodes), g is returned.
func Top(g *model.CallGraph, n int) *model.CallGraph {
	if n <= 0 || n >= len(g.Nodes) {
		return g
	}

	selected := g.Nodes[:n]
	keep := make(map[string]struct{}, n)
	for i := range selected {
		keep[selected[i].Name] = struct{}{}
	}
	return restrict(g, selected, keep, true)
}

// ByNode returns a new CallGraph containing the nodes whose name contains
// substr (case-insensitive), their direct callers and callees, and the edges
// and call sites touching a matched node.
func ByNode(g *model.CallGraph, substr string) *model.CallGraph {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	for i := range g.Nodes {
		if strings.Contains(strings.ToLower(g.Nodes[i].Name), lower) {
			matched[g.Nodes[i].Name] = struct{}{}
		}
	}

	// Expand to direct neighbours so the matched nodes keep their context.
	related := make(map[string]struct{}, len(matched))
	for name := range matched {
		related[name] = struct{}{}
	}
	for i := range g.Edges {
		e := &g.Edges[i]
		if _, ok := matched[e.From]; ok {
			related[e.To] = struct{}{}
		}
		if _, ok := matched[e.To]; ok {
			related[e.From] = struct{}{}
		}
	}

	var nodes []model.Symbol
	for i := range g.Nodes {
		if _, ok := related[g.Nodes[i].Name]; ok {
			nodes = append(nodes, g.Nodes[i])
		}
	}
	return restrict(g, nodes, matched, false)
}

// ByPath returns the graphs whose path contains substr (case-insensitive).
func ByPath(graphs []*model.CallGraph, substr string) []*model.CallGraph {
	lower := strings.ToLower(substr)

	var out []*model.CallGraph
	for _, g := range graphs {
		if strings.Contains(strings.ToLower(g.Path), lower) {
			out = append(out, g)
		}
	}
	return out
}

// restrict copies g with the given nodes. With both set, an edge survives
// only when both ends are in keep; otherwise one end suffices.
func restrict(g *model.CallGraph, nodes []model.Symbol, keep map[string]struct{}, both bool) *model.CallGraph {
	in := func(from, to string) bool {
		_, a := keep[from]
		_, b := keep[to]
		if both {
			return a && b
		}
		return a || b
	}

	var edges []model.Edge
	for i := range g.Edges {
		if in(g.Edges[i].From, g.Edges[i].To) {
			edges = append(edges, g.Edges[i])
		}
	}

	var sites []model.CallSite
	for i := range g.CallSites {
		cs := &g.CallSites[i]
		if in(cs.Callee, cs.Caller) {
			sites = append(sites, *cs)
		}
	}

	return &model.CallGraph{
		Path:      g.Path,
		Nodes:     nodes,
		Edges:     edges,
		CallSites: sites,
	}
}
