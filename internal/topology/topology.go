// Package topology builds parents-of adjacency relations and orders them.
package topology

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/phobologic/graphoracle/internal/model"
)

// Mode selects the shape of a generated dependency graph.
type Mode string

const (
	Chain  Mode = "chain"
	Branch Mode = "branch"
	Random Mode = "random"
)

// Modes lists every supported mode.
var Modes = []Mode{Chain, Branch, Random}

// ParseMode converts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Chain, Branch, Random:
		return m, nil
	}
	return "", fmt.Errorf("mode %q: %w", s, ErrUnknownMode)
}

// Build returns a parents-of adjacency over n nodes. Connectivity p is only
// consulted in random mode but is validated for every mode. Chain mode never
// draws from rng; the other modes require it.
func Build(n int, mode Mode, p float64, rng *rand.Rand) (model.Adjacency, error) {
	if n < 1 {
		return nil, fmt.Errorf("build: n=%d: %w", n, ErrTooFewNodes)
	}
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("build: connectivity=%g: %w", p, ErrInvalidConnectivity)
	}

	switch mode {
	case Chain:
		return chain(n), nil
	case Branch:
		if rng == nil {
			return nil, fmt.Errorf("build %s: %w", mode, ErrNeedRand)
		}
		return branch(n, rng), nil
	case Random:
		if rng == nil {
			return nil, fmt.Errorf("build %s: %w", mode, ErrNeedRand)
		}
		return randomDAG(n, p, rng), nil
	}
	return nil, fmt.Errorf("build: mode %q: %w", mode, ErrUnknownMode)
}

func chain(n int) model.Adjacency {
	adj := model.NewAdjacency(n)
	for i := 1; i < n; i++ {
		adj[i] = append(adj[i], i-1)
	}
	return adj
}

// branch fans out from node 0 to nodes 1 and 2 and merges everything into the
// final node, which ends up depending on every other node.
func branch(n int, rng *rand.Rand) model.Adjacency {
	if n < 4 {
		return chain(n)
	}
	adj := model.NewAdjacency(n)
	adj[1] = append(adj[1], 0)
	adj[2] = append(adj[2], 0)

	last := n - 1
	adj[last] = append(adj[last], 1, 2)

	for i := 3; i < last; i++ {
		adj[i] = append(adj[i], rng.Intn(i))
	}

	for i := 0; i < last; i++ {
		if !adj.HasParent(last, i) {
			adj[last] = append(adj[last], i)
		}
	}
	return adj
}

// randomDAG places nodes on a random permutation and adds every forward pair
// independently with probability p.
func randomDAG(n int, p float64, rng *rand.Rand) model.Adjacency {
	perm := rng.Perm(n)
	position := make([]int, n)
	for pos, node := range perm {
		position[node] = pos
	}

	adj := model.NewAdjacency(n)
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if u == v || position[u] >= position[v] {
				continue
			}
			if rng.Float64() < p {
				adj[v] = append(adj[v], u)
			}
		}
	}
	return adj
}
