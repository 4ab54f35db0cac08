// Package extract recovers the dependency graph of a toy-language program
// from its source text alone.
package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/graphoracle/internal/lang"
	"github.com/phobologic/graphoracle/internal/model"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithDriver sets the name of the driver function. Its body is not a node:
// calls made from it are not edges. An empty name disables the rule.
func WithDriver(name string) Option {
	return func(e *Extractor) { e.driver = name }
}

// WithEntryMethod sets the conventional entry-method name of classes.
func WithEntryMethod(name string) Option {
	return func(e *Extractor) { e.entry = name }
}

// Extractor is safe for concurrent use; every call parses with its own parser.
type Extractor struct {
	lang   *lang.Language
	driver string
	entry  string
}

// New returns an Extractor for the toy language.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		lang:   lang.Default(),
		driver: lang.DriverName,
		entry:  lang.EntryMethod,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract is shorthand for New().Extract with a background context.
func Extract(source string) (*model.CallGraph, error) {
	return New().Extract(context.Background(), []byte(source))
}

// Extract parses source and returns its nodes in definition order, the
// deduplicated edges in first-seen order, and every resolved call site.
// Text that does not parse yields an error wrapping lang.ErrUnparseable.
func (e *Extractor) Extract(ctx context.Context, source []byte) (*model.CallGraph, error) {
	tree, err := e.lang.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	s := &state{
		source: source,
		driver: e.driver,
		entry:  e.entry,
		kinds:  make(map[string]model.NodeKind),
		index:  make(map[string]int),
		seen:   make(map[model.Edge]struct{}),
		graph:  &model.CallGraph{Nodes: []model.Symbol{}, Edges: []model.Edge{}},
	}
	s.walk(tree.RootNode())
	return s.graph, nil
}

// state is the traversal state threaded through the walk.
type state struct {
	source []byte
	driver string
	entry  string

	kinds map[string]model.NodeKind
	index map[string]int
	seen  map[model.Edge]struct{}
	graph *model.CallGraph

	// current is the node the walk is inside; "" at module level and in the
	// driver body.
	current string
	// bindings maps local variables of the current node to the class they
	// were instantiated from.
	bindings map[string]string
	// classes is the stack of enclosing class names, innermost last.
	classes []string
}

func (s *state) walk(n *sitter.Node) {
	switch n.Type() {
	case "class_definition":
		s.visitClass(n)
		return
	case "function_definition":
		s.visitFunction(n)
		return
	case "assignment":
		s.bind(n)
	case "call":
		s.visitCall(n)
	}
	s.walkChildren(n)
}

func (s *state) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		s.walk(n.NamedChild(i))
	}
}

func (s *state) visitClass(n *sitter.Node) {
	name := lang.DefinitionName(n, s.source)
	if name == "" {
		s.walkChildren(n)
		return
	}
	s.register(name, model.Class, lang.Line(n))
	s.classes = append(s.classes, name)
	s.within(name, func() { s.walkChildren(n) })
	s.classes = s.classes[:len(s.classes)-1]
}

func (s *state) visitFunction(n *sitter.Node) {
	// Methods stay attributed to their class.
	if len(s.classes) > 0 {
		s.walkChildren(n)
		return
	}
	name := lang.DefinitionName(n, s.source)
	if name == "" {
		s.walkChildren(n)
		return
	}
	if name == s.driver {
		s.within("", func() { s.walkChildren(n) })
		return
	}
	s.register(name, model.Function, lang.Line(n))
	s.within(name, func() { s.walkChildren(n) })
}

// within runs fn with name as the current node and a fresh binding scope,
// restoring the enclosing context afterwards.
func (s *state) within(name string, fn func()) {
	prevCurrent, prevBindings := s.current, s.bindings
	s.current = name
	s.bindings = make(map[string]string)
	fn()
	s.current, s.bindings = prevCurrent, prevBindings
}

func (s *state) register(name string, kind model.NodeKind, line int) {
	if i, ok := s.index[name]; ok {
		s.kinds[name] = kind
		s.graph.Nodes[i].Kind = kind
		return
	}
	s.kinds[name] = kind
	s.index[name] = len(s.graph.Nodes)
	s.graph.Nodes = append(s.graph.Nodes, model.Symbol{Name: name, Kind: kind, Line: line})
}

// bind records `x = C()` when C is a known class.
func (s *state) bind(n *sitter.Node) {
	if s.current == "" {
		return
	}
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" || right.Type() != "call" {
		return
	}
	fn := right.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return
	}
	cls := lang.NodeText(fn, s.source)
	if s.kinds[cls] == model.Class {
		s.bindings[lang.NodeText(left, s.source)] = cls
	}
}

func (s *state) visitCall(n *sitter.Node) {
	if s.current == "" {
		return
	}
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	switch fn.Type() {
	case "identifier":
		callee := lang.NodeText(fn, s.source)
		if callee == s.entry && len(s.classes) > 0 {
			callee = s.innermostClass()
		}
		if _, ok := s.kinds[callee]; ok {
			s.addEdge(callee, lang.Line(n))
		}

	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		if attr == nil || lang.NodeText(attr, s.source) != s.entry {
			return
		}
		if cls := s.resolveReceiver(fn.ChildByFieldName("object")); cls != "" {
			s.addEdge(cls, lang.Line(n))
		}
	}
}

// resolveReceiver binds the receiver of an entry-method call to a class: the
// local binding first, then the innermost enclosing class. It returns "" when
// neither applies or the class is unknown.
func (s *state) resolveReceiver(obj *sitter.Node) string {
	var cls string
	if obj != nil && obj.Type() == "identifier" {
		cls = s.bindings[lang.NodeText(obj, s.source)]
	}
	if cls == "" {
		cls = s.innermostClass()
	}
	if _, ok := s.kinds[cls]; !ok {
		return ""
	}
	return cls
}

func (s *state) innermostClass() string {
	if len(s.classes) == 0 {
		return ""
	}
	return s.classes[len(s.classes)-1]
}

func (s *state) addEdge(callee string, line int) {
	s.graph.CallSites = append(s.graph.CallSites, model.CallSite{
		Caller: s.current,
		Callee: callee,
		Line:   line,
	})
	e := model.Edge{From: callee, To: s.current}
	if _, dup := s.seen[e]; dup {
		return
	}
	s.seen[e] = struct{}{}
	s.graph.Edges = append(s.graph.Edges, e)
}
