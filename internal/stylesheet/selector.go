package stylesheet

import (
	"errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrSelector indicates a selector tree-sitter could not parse cleanly
var ErrSelector = errors.New("invalid selector")

// Class is a class name in a selector. Start and End are the byte offsets of
// the name, without its dot.
type Class struct {
	Name       string
	Start, End int
	// Global is set for classes inside :global(...)
	Global bool
}

// Wrapper is a :global(...) or :local(...) pseudo class of a CSS module
// selector. Start and End span the whole pseudo class, ArgStart and ArgEnd
// its argument between the parentheses.
type Wrapper struct {
	Name             string
	Start, End       int
	ArgStart, ArgEnd int
}

// Selector is the module-relevant structure of a selector list
type Selector struct {
	Classes  []Class
	Wrappers []Wrapper
}

// ParseSelector parses a selector list with a pooled parser
func ParseSelector(selector string) (*Selector, error) {
	p := AcquireParser()
	defer ReleaseParser(p)
	return p.ParseSelector(selector)
}

// ParseSelector finds the class names and module wrappers of a selector
// list. Pseudo class names, attribute values and strings are never classes.
func (p *Parser) ParseSelector(selector string) (*Selector, error) {
	src := []byte(selector + " {}")
	tree := p.parser.Parse(src, nil)
	if tree == nil {
		return nil, ErrParse
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSelector
	}

	w := selectorWalker{source: src, sel: &Selector{}}
	w.walk(root, false)
	return w.sel, nil
}

type selectorWalker struct {
	source []byte
	sel    *Selector
}

func (w *selectorWalker) text(n *sitter.Node) string {
	return string(w.source[n.StartByte():n.EndByte()])
}

func (w *selectorWalker) walk(n *sitter.Node, global bool) {
	switch n.Kind() {
	case "block":
		return
	case "class_selector":
		w.class(n, global)
	case "pseudo_class_selector":
		if w.wrapper(n, global) {
			return
		}
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		w.walk(n.Child(i), global)
	}
}

// class records the name a class selector adds; nested selectors are
// visited by walk
func (w *selectorWalker) class(n *sitter.Node, global bool) {
	for i := n.ChildCount(); i > 0; i-- {
		child := n.Child(i - 1)
		if child.Kind() == "class_name" {
			w.sel.Classes = append(w.sel.Classes, Class{
				Name:   w.text(child),
				Start:  int(child.StartByte()),
				End:    int(child.EndByte()),
				Global: global,
			})
			return
		}
	}
}

// wrapper records a :global(...) or :local(...) pseudo class and walks its
// parts. It reports false for any other pseudo class.
func (w *selectorWalker) wrapper(n *sitter.Node, global bool) bool {
	var colon, name, args *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case ":":
			colon = child
		case "class_name":
			name = child
		case "arguments":
			args = child
		}
	}
	if colon == nil || name == nil || args == nil {
		return false
	}
	kind := w.text(name)
	if kind != "global" && kind != "local" {
		return false
	}

	w.sel.Wrappers = append(w.sel.Wrappers, Wrapper{
		Name:     kind,
		Start:    int(colon.StartByte()),
		End:      int(n.EndByte()),
		ArgStart: int(args.StartByte()) + 1,
		ArgEnd:   int(args.EndByte()) - 1,
	})
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == "arguments" {
			w.walk(child, kind == "global")
			continue
		}
		w.walk(child, global)
	}
	return true
}
