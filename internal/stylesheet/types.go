// Package stylesheet parses compiled CSS into a small mutable tree that can be
// filtered and printed back out.
package stylesheet

import "iter"

// Node is a top level or nested stylesheet item: a *Rule, *AtRule or *Comment
type Node interface {
	node()
}

// Stylesheet is a parsed CSS document
type Stylesheet struct {
	Nodes []Node
}

// Rule is a qualified rule such as `.btn { color: red; }`. Keyframe blocks
// (`from`, `50%`) are rules too.
type Rule struct {
	Selector     string
	Declarations []*Declaration
}

// AtRule is any `@`-prefixed statement. Statements without a block, such as
// `@import "x.css";`, have Block set to false.
type AtRule struct {
	// Name is the keyword without the marker, e.g. "media" or "keyframes"
	Name string
	// Prelude is everything before the block or semicolon, including the keyword
	Prelude      string
	Block        bool
	Nodes        []Node
	Declarations []*Declaration
}

// Declaration is a single `property: value` pair
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Comment is a /* */ comment
type Comment struct {
	Text string
}

func (*Rule) node()    {}
func (*AtRule) node()  {}
func (*Comment) node() {}

// Rules yields every rule in the stylesheet, descending into at-rules
func (s *Stylesheet) Rules() iter.Seq[*Rule] {
	return func(yield func(*Rule) bool) {
		walkRules(s.Nodes, yield)
	}
}

func walkRules(nodes []Node, yield func(*Rule) bool) bool {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Rule:
			if !yield(n) {
				return false
			}
		case *AtRule:
			if !walkRules(n.Nodes, yield) {
				return false
			}
		}
	}
	return true
}

// Declarations yields every declaration in the stylesheet, including those
// directly inside at-rules such as @font-face
func (s *Stylesheet) Declarations() iter.Seq[*Declaration] {
	return func(yield func(*Declaration) bool) {
		walkDeclarations(s.Nodes, yield)
	}
}

func walkDeclarations(nodes []Node, yield func(*Declaration) bool) bool {
	for _, n := range nodes {
		var decls []*Declaration
		switch n := n.(type) {
		case *Rule:
			decls = n.Declarations
		case *AtRule:
			decls = n.Declarations
			if !walkDeclarations(n.Nodes, yield) {
				return false
			}
		}
		for _, d := range decls {
			if !yield(d) {
				return false
			}
		}
	}
	return true
}
