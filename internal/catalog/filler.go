package catalog

import (
	"fmt"
	"math/rand"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// reserved holds names a random identifier must never take: keywords of the
// toy language, builtins used by snippets, and the fixed variable names.
var reserved = map[string]struct{}{
	"and": {}, "as": {}, "assert": {}, "async": {}, "await": {}, "break": {},
	"class": {}, "continue": {}, "def": {}, "del": {}, "elif": {}, "else": {},
	"except": {}, "finally": {}, "for": {}, "from": {}, "global": {}, "if": {},
	"import": {}, "in": {}, "is": {}, "lambda": {}, "nonlocal": {}, "not": {},
	"or": {}, "pass": {}, "raise": {}, "return": {}, "try": {}, "while": {},
	"with": {}, "yield": {}, "match": {}, "case": {},
	"abs": {}, "all": {}, "bool": {}, "bytes": {}, "complex": {}, "dict": {},
	"enumerate": {}, "float": {}, "input": {}, "int": {}, "isinstance": {},
	"iter": {}, "len": {}, "list": {}, "print": {}, "range": {}, "round": {},
	"set": {}, "slice": {}, "sorted": {}, "str": {}, "sum": {}, "super": {},
	"tuple": {}, "type": {}, "zip": {},
	"math": {}, "random": {}, "self": {}, "parameter": {}, "result": {},
}

func letters(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// Identifier returns a random five-letter lowercase name that is not
// reserved.
func Identifier(rng *rand.Rand) string {
	for {
		name := letters(rng, 5)
		if _, bad := reserved[name]; !bad {
			return name
		}
	}
}

// Reserved reports whether name is a keyword, a snippet builtin, or one of
// the fixed variable names.
func Reserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// FillerLines returns count assignments that do not affect the result.
func FillerLines(rng *rand.Rand, count int) []string {
	lines := make([]string, 0, count)
	for range count {
		lines = append(lines, fmt.Sprintf("%s = %d", Identifier(rng), rng.Intn(100)+1))
	}
	return lines
}

// Branches returns count if/else blocks. Both arms assign a throwaway string,
// so the taken arm never changes the result.
func Branches(rng *rand.Rand, count int) []string {
	var lines []string
	for range count {
		name := Identifier(rng)
		lines = append(lines,
			fmt.Sprintf("if %d > 5:", rng.Intn(11)),
			fmt.Sprintf("    %s = '%s'", name, letters(rng, 5)),
			"else:",
			fmt.Sprintf("    %s = '%s'", name, letters(rng, 5)),
		)
	}
	return lines
}

// Loops returns count for-loops with empty bodies.
func Loops(rng *rand.Rand, count int) []string {
	var lines []string
	for range count {
		lines = append(lines,
			fmt.Sprintf("for %s in range(%d):", Identifier(rng), rng.Intn(5)+1),
			"    pass",
		)
	}
	return lines
}
