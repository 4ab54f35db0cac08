package topology

import "github.com/phobologic/graphoracle/internal/model"

// Order returns a topological order of every node using Kahn's algorithm.
// Nodes that never reach in-degree zero sit on a cycle: they are stripped of
// all parent edges, in place, and appended in ascending index order. The
// result always covers each node exactly once.
func Order(parents model.Adjacency) []int {
	n := len(parents)
	children := make([][]int, n)
	inDegree := make([]int, n)
	for child, ps := range parents {
		for _, p := range ps {
			children[p] = append(children[p], child)
		}
		inDegree[child] = len(ps)
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	placed := make([]bool, n)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		placed[node] = true
		for _, c := range children[node] {
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}

	for i := 0; i < n; i++ {
		if !placed[i] {
			parents[i] = parents[i][:0]
			order = append(order, i)
		}
	}
	return order
}

// IsOrder reports whether order is a permutation of the nodes in which every
// parent precedes its children.
func IsOrder(parents model.Adjacency, order []int) bool {
	if len(order) != len(parents) {
		return false
	}
	pos := make([]int, len(parents))
	seen := make([]bool, len(parents))
	for i, node := range order {
		if node < 0 || node >= len(parents) || seen[node] {
			return false
		}
		seen[node] = true
		pos[node] = i
	}
	for child, ps := range parents {
		for _, p := range ps {
			if pos[p] >= pos[child] {
				return false
			}
		}
	}
	return true
}
