// Package lang provides the language registry mapping file extensions to
// tree-sitter languages and their embedded query files.
package lang

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

//go:embed queries/*.scm
var queryFS embed.FS

// ErrUnparseable marks source text that does not parse as the toy language.
// It is distinct from valid text that happens to define nothing.
var ErrUnparseable = errors.New("unparseable input")

// Reserved names of the toy language's conventions.
const (
	EntryMethod = "run"
	DriverName  = "main"
)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
	queryOnce  sync.Once
	query      *sitter.Query
	queryErr   error
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// GetCallQuery returns the compiled call-site query (safe to share across goroutines).
func (l *Language) GetCallQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", l.Name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// Parse parses source with a fresh parser and rejects trees containing
// syntax errors. The caller must Close the returned tree.
func (l *Language) Parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	tree, err := l.NewParser().ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		bad := firstError(root)
		tree.Close()
		if bad != nil {
			return nil, fmt.Errorf("line %d: %w", bad.StartPoint().Row+1, ErrUnparseable)
		}
		return nil, ErrUnparseable
	}
	// The grammar recovers from some inputs Python rejects without marking
	// an error: a missing indent leaves an empty block, and Python 2 print
	// and exec statements have their own node types.
	if bad := firstInvalid(root); bad != nil {
		tree.Close()
		return nil, fmt.Errorf("line %d: %s: %w", bad.StartPoint().Row+1, bad.Type(), ErrUnparseable)
	}
	return tree, nil
}

// firstInvalid returns the first node that parsed cleanly but is not valid
// Python 3.
func firstInvalid(node *sitter.Node) *sitter.Node {
	switch node.Type() {
	case "block":
		if node.NamedChildCount() == 0 {
			return node
		}
	case "exec_statement":
		return node
	case "print_statement":
		// print ("a") and print ("a", "b") are calls with a space.
		if node.NamedChildCount() != 1 {
			return node
		}
		switch node.NamedChild(0).Type() {
		case "parenthesized_expression", "tuple":
		default:
			return node
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if bad := firstInvalid(node.NamedChild(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if bad := firstError(node.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// Line returns the 1-based line of a node.
func Line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
