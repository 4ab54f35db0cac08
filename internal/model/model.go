// Package model defines core data structures for graphoracle.
package model

// NodeKind indicates whether a node is rendered as a function or a class.
type NodeKind string

const (
	Function NodeKind = "function"
	Class    NodeKind = "class"
)

// TypeTag is one member of the closed set of value kinds a node can consume
// or produce. The string value is the toy language's builtin type name.
type TypeTag string

const (
	Bool    TypeTag = "bool"
	Int     TypeTag = "int"
	Float   TypeTag = "float"
	Str     TypeTag = "str"
	List    TypeTag = "list"
	Dict    TypeTag = "dict"
	Tuple   TypeTag = "tuple"
	Set     TypeTag = "set"
	Complex TypeTag = "complex"
)

// Node is one synthesized unit. Its identity is its index in the node list.
// Input and Output are empty until type propagation assigns them.
type Node struct {
	Name   string
	Kind   NodeKind
	Input  TypeTag
	Output TypeTag
}

// Typed reports whether both types have been assigned.
func (n Node) Typed() bool {
	return n.Input != "" && n.Output != ""
}

// Adjacency is the parents-of form: Adjacency[i] lists the indices of the
// nodes whose output feeds node i.
type Adjacency [][]int

// NewAdjacency returns an adjacency with n empty parent lists.
func NewAdjacency(n int) Adjacency {
	adj := make(Adjacency, n)
	for i := range adj {
		adj[i] = []int{}
	}
	return adj
}

// Clone returns a deep copy.
func (a Adjacency) Clone() Adjacency {
	out := make(Adjacency, len(a))
	for i, parents := range a {
		out[i] = append([]int{}, parents...)
	}
	return out
}

// HasParent reports whether p is listed as a parent of child.
func (a Adjacency) HasParent(child, p int) bool {
	for _, q := range a[child] {
		if q == p {
			return true
		}
	}
	return false
}

// EdgeCount returns the total number of parent links.
func (a Adjacency) EdgeCount() int {
	n := 0
	for _, parents := range a {
		n += len(parents)
	}
	return n
}

// Edge is a dependency between two named nodes: From is a dependency of To.
// For extracted graphs From is the callee and To is the caller.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CallSite is a single resolved call occurrence.
type CallSite struct {
	Caller string
	Callee string
	Line   int
}

// Symbol is a node recovered from source text.
type Symbol struct {
	Name string
	Kind NodeKind
	Line int
	Rank float64
}

// CallGraph is the graph recovered from source text by the extractor.
type CallGraph struct {
	Path      string
	Nodes     []Symbol
	Edges     []Edge
	CallSites []CallSite
}

// Names returns the node names in insertion order.
func (g *CallGraph) Names() []string {
	names := make([]string, len(g.Nodes))
	for i := range g.Nodes {
		names[i] = g.Nodes[i].Name
	}
	return names
}

// Program is the output of a generation run.
type Program struct {
	Source  string
	Nodes   []Node
	Parents Adjacency
	Order   []int
	Seed    int64
}

// Names returns the node names in index order.
func (p *Program) Names() []string {
	names := make([]string, len(p.Nodes))
	for i := range p.Nodes {
		names[i] = p.Nodes[i].Name
	}
	return names
}

// RoundResult records one generate, extract, mutate, re-extract round.
type RoundResult struct {
	Index     int    `json:"index"`
	Mode      string `json:"mode"`
	Nodes     int    `json:"nodes"`
	AvgLength int    `json:"avg_length"`
	Seed      int64  `json:"seed"`

	SourceBytes    int  `json:"source_bytes"`
	GoldEdges      int  `json:"gold_edges"`
	ExtractedEdges int  `json:"extracted_edges"`
	RoundTrip      bool `json:"round_trip"`

	Changes      int `json:"changes"`
	Applied      int `json:"applied"`
	MutatedEdges int `json:"mutated_edges"`
}

// Clone returns a deep copy of g.
func (g *CallGraph) Clone() *CallGraph {
	return &CallGraph{
		Path:      g.Path,
		Nodes:     append([]Symbol{}, g.Nodes...),
		Edges:     append([]Edge{}, g.Edges...),
		CallSites: append([]CallSite(nil), g.CallSites...),
	}
}
