package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Toy is the registry key of the toy language. Its grammar is a strict
// subset of Python, so the Python grammar parses it.
const Toy = "python"

func init() {
	Languages[Toy] = &Language{
		Name:       Toy,
		Extensions: []string{".py"},
		lang:       python.GetLanguage(),
	}
}

// Default returns the toy language configuration.
func Default() *Language {
	return Languages[Toy]
}

// DefinitionName returns the name of a class_definition or
// function_definition node, or "" if it has none.
func DefinitionName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return NodeText(name, source)
	}
	return ""
}

// Unwrap returns the definition inside a decorated_definition, or node itself.
func Unwrap(node *sitter.Node) *sitter.Node {
	if node.Type() == "decorated_definition" {
		if def := node.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return node
}

// TopLevelFunctions returns the names of functions defined directly at module
// level, in source order. Methods and nested functions are excluded.
func TopLevelFunctions(root *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		def := Unwrap(root.NamedChild(i))
		if def.Type() != "function_definition" {
			continue
		}
		if name := DefinitionName(def, source); name != "" {
			names = append(names, name)
		}
	}
	return names
}
