// Package catalog holds the closed set of value kinds, the conversion
// snippets between them, and literal synthesis for the toy language.
//
// Every snippet reads a variable named parameter and assigns a variable named
// result. Snippets may reference the math and random modules, which the
// synthesizer imports at the top of every program.
package catalog

import (
	"fmt"
	"math/rand"

	"github.com/phobologic/graphoracle/internal/model"
)

// All lists every supported TypeTag in a fixed order. Random choices index
// into this slice so that a seed fully determines the outcome.
var All = []model.TypeTag{
	model.Int, model.Float, model.List, model.Dict, model.Tuple,
	model.Set, model.Str, model.Complex, model.Bool,
}

type pair struct{ in, out model.TypeTag }

var transforms = map[pair][]string{
	{model.Bool, model.Int}: {
		"result = 1 if parameter else 0",
		"result = int(parameter)",
	},
	{model.Bool, model.Float}: {"result = 1.0 if parameter else 0.0"},
	{model.Bool, model.Str}:   {"result = 'True' if parameter else 'False'"},
	{model.Bool, model.Bool}:  {"result = not parameter"},

	{model.Int, model.Int}: {
		"result = parameter + random.randint(1, 10)",
		"result = parameter * 2",
		"result = abs(parameter)",
	},
	{model.Int, model.Float}: {
		"result = float(parameter) / (random.randint(1, 5))",
		"result = math.sqrt(abs(parameter))",
	},
	{model.Int, model.Str}:     {"result = str(parameter) + '_converted'"},
	{model.Int, model.Complex}: {"result = complex(parameter, parameter + 1)"},

	{model.Float, model.Float}: {
		"result = math.sin(parameter)",
		"result = abs(parameter) ** 1.5",
	},
	{model.Float, model.Int}:     {"result = int(round(parameter))"},
	{model.Float, model.Complex}: {"result = complex(parameter, parameter / 2.0)"},

	{model.List, model.Int}: {
		"result = len(parameter)",
		"result = sum(parameter) if all(isinstance(x, (int, float)) for x in parameter) else len(parameter)",
	},
	{model.List, model.Float}: {"result = sum(parameter) / len(parameter) if len(parameter) > 0 else 0.0"},
	{model.List, model.List}:  {"result = parameter[::-1]"},
	{model.List, model.Str}:   {"result = ','.join(str(x) for x in parameter)"},
	{model.List, model.Set}:   {"result = set(parameter)"},

	{model.Dict, model.List}: {"result = list(parameter.keys())"},
	{model.Dict, model.Int}:  {"result = len(parameter)"},
	{model.Dict, model.Str}:  {"result = f'DictKeys: {list(parameter.keys())}'"},

	{model.Tuple, model.List}: {"result = list(parameter)"},
	{model.Tuple, model.Int}:  {"result = len(parameter)"},

	{model.Set, model.Int}: {"result = len(parameter)"},
	{model.Set, model.Str}: {"result = ','.join(str(x) for x in sorted(parameter))"},

	{model.Str, model.List}:  {"result = list(parameter)"},
	{model.Str, model.Int}:   {"result = len(parameter)"},
	{model.Str, model.Set}:   {"result = set(parameter)"},
	{model.Str, model.Float}: {"result = float(len(parameter))"},
	{model.Str, model.Str}:   {"result = parameter.upper()"},

	{model.Complex, model.Float}: {"result = abs(parameter)"},
	{model.Complex, model.Int}:   {"result = int(abs(parameter))"},
}

// Valid reports whether t is a member of the closed TypeTag set.
func Valid(t model.TypeTag) bool {
	for _, v := range All {
		if v == t {
			return true
		}
	}
	return false
}

// Random returns a TypeTag chosen uniformly from All.
func Random(rng *rand.Rand) model.TypeTag {
	return All[rng.Intn(len(All))]
}

// Templates returns the registered snippets for a pair, or nil when the pair
// is only reachable through Coerce.
func Templates(in, out model.TypeTag) []string {
	return transforms[pair{in, out}]
}

// Transform returns a snippet converting parameter of kind in into result of
// kind out. Pairs without a registered template fall back to Coerce.
func Transform(rng *rand.Rand, in, out model.TypeTag) string {
	if choices := transforms[pair{in, out}]; len(choices) > 0 {
		return choices[rng.Intn(len(choices))]
	}
	return Coerce(in, out)
}

// Coerce is the generic conversion used when no template exists for a pair.
// It always returns a snippet.
func Coerce(in, out model.TypeTag) string {
	sized := in == model.Str || in == model.List || in == model.Dict ||
		in == model.Tuple || in == model.Set

	switch out {
	case model.Bool:
		return "result = bool(parameter)"
	case model.Str:
		return "result = str(parameter)"
	case model.Int, model.Float, model.Complex:
		if sized {
			return fmt.Sprintf("result = %s(len(parameter))", out)
		}
		if in == model.Complex {
			return fmt.Sprintf("result = %s(abs(parameter))", out)
		}
		return fmt.Sprintf("result = %s(parameter)", out)
	case model.Dict:
		switch in {
		case model.Dict:
			return "result = dict(parameter)"
		case model.Str:
			return "result = {parameter: len(parameter)}"
		case model.Set:
			return "result = {x: True for x in parameter}"
		case model.List, model.Tuple:
			return "result = {i: v for i, v in enumerate(parameter)}"
		case model.Bool:
			return "result = {'was_true': parameter}"
		}
		return "result = {'value': parameter}"
	case model.List, model.Tuple, model.Set:
		if in == model.Dict {
			return fmt.Sprintf("result = %s(parameter.keys())", out)
		}
		if sized {
			return fmt.Sprintf("result = %s(parameter)", out)
		}
		return fmt.Sprintf("result = %s([parameter])", out)
	}
	return "result = parameter"
}

// Literal returns a small literal of the requested kind.
func Literal(rng *rand.Rand, t model.TypeTag) string {
	switch t {
	case model.Int:
		return fmt.Sprintf("%d", rng.Intn(20)+1)
	case model.Float:
		return fmt.Sprintf("%.2f", rng.Float64()*10)
	case model.List:
		return "[1, 2, 3]"
	case model.Dict:
		return "{'key': 42}"
	case model.Tuple:
		return "(10, 20)"
	case model.Set:
		return "{1, 2, 3}"
	case model.Str:
		return "'" + letters(rng, 5) + "'"
	case model.Complex:
		return "complex(3, 4)"
	case model.Bool:
		if rng.Float64() < 0.5 {
			return "True"
		}
		return "False"
	}
	return "None"
}
