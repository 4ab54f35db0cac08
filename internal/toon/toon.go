// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/graphoracle/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts an extracted CallGraph into TOON format.
func Encode(g *model.CallGraph) string {
	var parts []string

	if g.Path != "" {
		parts = append(parts, fmt.Sprintf("path: %s", encodeValue(g.Path)))
	}

	var nodeRows [][]string
	for i := range g.Nodes {
		n := &g.Nodes[i]
		nodeRows = append(nodeRows, []string{
			n.Name,
			string(n.Kind),
			strconv.Itoa(n.Line),
			fmt.Sprintf("%.4f", n.Rank),
		})
	}
	parts = append(parts, formatTabular("nodes", []string{"name", "kind", "line", "rank"}, nodeRows))
	parts = append(parts, formatEdges(g.Edges))

	if len(g.CallSites) > 0 {
		var siteRows [][]string
		for i := range g.CallSites {
			cs := &g.CallSites[i]
			siteRows = append(siteRows, []string{cs.Caller, cs.Callee, strconv.Itoa(cs.Line)})
		}
		parts = append(parts, formatTabular("callsites", []string{"caller", "callee", "line"}, siteRows))
	}

	return strings.Join(parts, "\n")
}

// EncodeProgram converts the gold graph of a generated program into TOON
// format. Parents are listed as space-separated indices.
func EncodeProgram(p *model.Program, gold []model.Edge) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("seed: %d", p.Seed))
	parts = append(parts, fmt.Sprintf("order: %s", encodeValue(joinInts(p.Order))))

	var nodeRows [][]string
	for i := range p.Nodes {
		n := &p.Nodes[i]
		var ps []int
		if i < len(p.Parents) {
			ps = p.Parents[i]
		}
		nodeRows = append(nodeRows, []string{
			strconv.Itoa(i),
			n.Name,
			string(n.Kind),
			string(n.Input),
			string(n.Output),
			joinInts(ps),
		})
	}
	parts = append(parts, formatTabular("nodes",
		[]string{"index", "name", "kind", "input", "output", "parents"}, nodeRows))
	parts = append(parts, formatEdges(gold))

	return strings.Join(parts, "\n")
}

// EncodeRounds converts batch round results into a single TOON table.
func EncodeRounds(results []model.RoundResult) string {
	rows := make([][]string, 0, len(results))
	for i := range results {
		r := &results[i]
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			r.Mode,
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.AvgLength),
			strconv.FormatInt(r.Seed, 10),
			strconv.Itoa(r.GoldEdges),
			strconv.Itoa(r.ExtractedEdges),
			strconv.FormatBool(r.RoundTrip),
			strconv.Itoa(r.Changes),
			strconv.Itoa(r.Applied),
			strconv.Itoa(r.MutatedEdges),
		})
	}
	return formatTabular("rounds", []string{
		"index", "mode", "nodes", "avg_length", "seed",
		"gold", "extracted", "round_trip", "changes", "applied", "mutated",
	}, rows)
}

func formatEdges(edges []model.Edge) string {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{e.From, e.To})
	}
	return formatTabular("edges", []string{"from", "to"}, rows)
}

func joinInts(xs []int) string {
	s := make([]string, len(xs))
	for i, x := range xs {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, " ")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
