// Package synth renders a typed dependency graph as a toy-language program.
package synth

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/phobologic/graphoracle/internal/catalog"
	"github.com/phobologic/graphoracle/internal/lang"
	"github.com/phobologic/graphoracle/internal/model"
	"github.com/phobologic/graphoracle/internal/topology"
	"github.com/phobologic/graphoracle/internal/typeflow"
)

const indent = "    "

// Generate builds a program whose dependency graph is known by construction.
// The returned adjacency is the one left after type unification, which is
// exactly what the source text encodes.
func Generate(cfg Config) (*model.Program, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	parents, err := topology.Build(cfg.Nodes, cfg.Mode, cfg.Connectivity, rng)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	topology.Order(parents)

	nodes := make([]model.Node, cfg.Nodes)
	for i := range nodes {
		kind := model.Function
		if rng.Intn(2) == 1 {
			kind = model.Class
		}
		nodes[i] = model.Node{Kind: kind}
	}
	nameNodes(nodes, parents, cfg.SemanticNames)

	nodes, parents = typeflow.Propagate(nodes, parents, rng)
	order := topology.Order(parents)

	r := &renderer{cfg: cfg, rng: rng, nodes: nodes, parents: parents}
	return &model.Program{
		Source:  r.program(order),
		Nodes:   nodes,
		Parents: parents,
		Order:   order,
		Seed:    cfg.Seed,
	}, nil
}

func nameNodes(nodes []model.Node, parents model.Adjacency, semantic bool) {
	used := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		var name string
		if semantic {
			name = semanticName(nodes[i].Kind, parents[i])
		} else {
			kind := string(nodes[i].Kind)
			name = strings.ToUpper(kind[:1]) + kind[1:] + "_" + strconv.Itoa(i)
		}
		if _, dup := used[name]; dup {
			name += "_n" + strconv.Itoa(i)
		}
		used[name] = struct{}{}
		nodes[i].Name = name
	}
}

func semanticName(kind model.NodeKind, ps []int) string {
	switch len(ps) {
	case 0:
		return string(kind) + "_start"
	case 1:
		return fmt.Sprintf("%s_from_%d", kind, ps[0])
	}
	sorted := append([]int{}, ps...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("%s_merge_%s", kind, strings.Join(parts, "_"))
}

type renderer struct {
	cfg     Config
	rng     *rand.Rand
	nodes   []model.Node
	parents model.Adjacency
	b       strings.Builder
}

func (r *renderer) line(depth int, text string) {
	if text != "" {
		r.b.WriteString(strings.Repeat(indent, depth))
		r.b.WriteString(text)
	}
	r.b.WriteByte('\n')
}

func (r *renderer) lines(depth int, texts []string) {
	for _, t := range texts {
		r.line(depth, t)
	}
}

// program emits the definitions in topological order, so that every
// dependency is defined before the first call to it, then the driver.
func (r *renderer) program(order []int) string {
	r.line(0, "import math")
	r.line(0, "import random")
	r.line(0, "")

	for _, idx := range order {
		r.line(0, "")
		if r.nodes[idx].Kind == model.Class {
			r.class(idx)
		} else {
			r.function(idx)
		}
	}

	r.line(0, "")
	r.driver(order)
	return r.b.String()
}

func (r *renderer) estimatedLines() int {
	avg := float64(r.cfg.AvgLength)
	return max(1, int(r.rng.NormFloat64()*avg*0.2+avg))
}

func (r *renderer) filler(budget int) int {
	return max(0, budget-r.cfg.Branches-r.cfg.Loops)
}

func (r *renderer) function(idx int) {
	n := r.nodes[idx]
	est := r.estimatedLines()
	r.line(0, fmt.Sprintf("def %s(parameter):", n.Name))
	r.lines(1, r.body(n.Input, n.Output, r.filler(est), r.parents[idx]))
}

func (r *renderer) class(idx int) {
	n := r.nodes[idx]
	est := r.estimatedLines()

	r.line(0, fmt.Sprintf("class %s:", n.Name))
	r.line(1, "def __init__(self):")
	r.line(2, "pass")

	r.line(0, "")
	r.line(1, fmt.Sprintf("def %s(self, parameter):", lang.EntryMethod))
	r.lines(2, r.body(n.Input, n.Output, r.filler(est/2), r.parents[idx]))

	extras := r.rng.Intn(3) + 1
	for i := range extras {
		in, out := catalog.Random(r.rng), catalog.Random(r.rng)
		r.line(0, "")
		r.line(1, fmt.Sprintf("def method_%d(self, parameter):", i))
		r.lines(2, r.body(in, out, r.filler(est/3), nil))
	}
}

// body returns unindented statements: filler, inert branches and loops, one
// call per dependency, then the conversion of parameter into result.
func (r *renderer) body(in, out model.TypeTag, filler int, deps []int) []string {
	var lines []string
	lines = append(lines, catalog.FillerLines(r.rng, filler)...)
	lines = append(lines, catalog.Branches(r.rng, r.cfg.Branches)...)
	lines = append(lines, catalog.Loops(r.rng, r.cfg.Loops)...)

	for _, d := range deps {
		dep := r.nodes[d]
		arg := "parameter"
		if dep.Input != in {
			arg = catalog.Literal(r.rng, dep.Input)
		}
		if dep.Kind == model.Function {
			lines = append(lines, fmt.Sprintf("%s(%s)", dep.Name, arg))
			continue
		}
		inst := catalog.Identifier(r.rng)
		lines = append(lines,
			fmt.Sprintf("%s = %s()", inst, dep.Name),
			fmt.Sprintf("%s.%s(%s)", inst, lang.EntryMethod, arg),
		)
	}

	lines = append(lines, catalog.Transform(r.rng, in, out), "return result")
	return lines
}

// driver runs every node in topological order, feeding roots a literal and
// every other node the recorded result of its first parent.
func (r *renderer) driver(order []int) {
	r.line(0, fmt.Sprintf("def %s():", lang.DriverName))
	r.line(1, "results = {}")
	for _, idx := range order {
		n := r.nodes[idx]
		if ps := r.parents[idx]; len(ps) > 0 {
			r.line(1, fmt.Sprintf("parameter_value = results[%d]", ps[0]))
		} else {
			r.line(1, fmt.Sprintf("parameter_value = %s", catalog.Literal(r.rng, n.Input)))
		}
		if n.Kind == model.Function {
			r.line(1, fmt.Sprintf("output_value = %s(parameter_value)", n.Name))
		} else {
			inst := fmt.Sprintf("instance_%d", idx)
			r.line(1, fmt.Sprintf("%s = %s()", inst, n.Name))
			r.line(1, fmt.Sprintf("output_value = %s.%s(parameter_value)", inst, lang.EntryMethod))
		}
		r.line(1, fmt.Sprintf("results[%d] = output_value", idx))
		r.line(0, "")
	}
	r.line(1, "print('Execution complete. Results:')")
	r.line(1, "for key, value in results.items():")
	r.line(2, "print(f'Object {key} output = {value}')")
	r.line(0, "")
	r.line(0, "")
	r.line(0, `if __name__ == "__main__":`)
	r.line(1, fmt.Sprintf("%s()", lang.DriverName))
}
