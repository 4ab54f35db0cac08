// Package typeflow assigns input and output types to nodes so that every
// surviving edge carries a single, agreed type.
package typeflow

import (
	"math/rand"

	"github.com/phobologic/graphoracle/internal/catalog"
	"github.com/phobologic/graphoracle/internal/model"
	"github.com/phobologic/graphoracle/internal/topology"
)

// Propagate walks the nodes in topological order. A root takes a random input
// type. A node whose parents disagree adopts the output type of one parent
// chosen uniformly, and the edges from every parent with a different output
// type are dropped. Each node then takes a random output type.
//
// The inputs are left untouched: fresh node records and a fresh adjacency are
// returned. Afterwards, for every edge (p, c), nodes[p].Output == nodes[c].Input.
func Propagate(nodes []model.Node, parents model.Adjacency, rng *rand.Rand) ([]model.Node, model.Adjacency) {
	out := make([]model.Node, len(nodes))
	copy(out, nodes)
	adj := parents.Clone()

	for _, idx := range topology.Order(adj) {
		ps := adj[idx]
		var input model.TypeTag
		if len(ps) == 0 {
			input = catalog.Random(rng)
		} else {
			input = out[ps[rng.Intn(len(ps))]].Output
			if !agree(out, ps) {
				adj[idx] = keepMatching(out, ps, input)
			}
		}
		out[idx].Input = input
		out[idx].Output = catalog.Random(rng)
	}
	return out, adj
}

func agree(nodes []model.Node, parents []int) bool {
	for _, p := range parents[1:] {
		if nodes[p].Output != nodes[parents[0]].Output {
			return false
		}
	}
	return true
}

func keepMatching(nodes []model.Node, parents []int, t model.TypeTag) []int {
	kept := make([]int, 0, len(parents))
	for _, p := range parents {
		if nodes[p].Output == t {
			kept = append(kept, p)
		}
	}
	return kept
}

// Consistent reports whether every edge links equal types.
func Consistent(nodes []model.Node, parents model.Adjacency) bool {
	for child, ps := range parents {
		for _, p := range ps {
			if nodes[p].Output != nodes[child].Input {
				return false
			}
		}
	}
	return true
}
