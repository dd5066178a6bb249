package stylesheet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"bennypowers.dev/lesstheme/internal/log"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
)

// ErrParse indicates tree-sitter produced no tree at all
var ErrParse = errors.New("failed to parse CSS")

// Parser turns CSS text into a Stylesheet
type Parser struct {
	parser *sitter.Parser
}

var cssLang = sitter.NewLanguage(tree_sitter_css.Language())

// parserPool is a pool of reusable CSS parsers
var parserPool = sync.Pool{
	New: func() any {
		parser := sitter.NewParser()
		if err := parser.SetLanguage(cssLang); err != nil {
			panic(fmt.Sprintf("failed to set CSS language: %v", err))
		}
		return &Parser{parser: parser}
	},
}

// AcquireParser gets a parser from the pool
func AcquireParser() *Parser {
	p := parserPool.Get().(*Parser)
	p.parser.Reset()
	return p
}

// ReleaseParser returns a parser to the pool
func ReleaseParser(p *Parser) {
	if p != nil {
		parserPool.Put(p)
	}
}

// Close closes the parser and releases its resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// Parse parses CSS with a pooled parser
func Parse(source string) (*Stylesheet, error) {
	p := AcquireParser()
	defer ReleaseParser(p)
	return p.Parse(source)
}

// Parse parses CSS source. Fragments tree-sitter cannot make sense of are
// dropped from the result.
func (p *Parser) Parse(source string) (*Stylesheet, error) {
	src := []byte(source)
	tree := p.parser.Parse(src, nil)
	if tree == nil {
		return nil, ErrParse
	}
	defer tree.Close()

	b := builder{source: src}
	return &Stylesheet{Nodes: b.items(tree.RootNode())}, nil
}

type builder struct {
	source []byte
}

func (b *builder) text(n *sitter.Node) string {
	return string(b.source[n.StartByte():n.EndByte()])
}

// items converts the children of a stylesheet or block node
func (b *builder) items(parent *sitter.Node) []Node {
	var nodes []Node
	for i := uint(0); i < parent.ChildCount(); i++ {
		if n := b.item(parent.Child(i)); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (b *builder) item(n *sitter.Node) Node {
	if n == nil || n.IsMissing() {
		return nil
	}
	switch kind := n.Kind(); kind {
	case "comment", "js_comment":
		return &Comment{Text: b.text(n)}
	case "rule_set":
		return b.rule(n)
	case "keyframe_block":
		return b.keyframe(n)
	case "ERROR":
		log.Debug("Dropping unparseable CSS fragment at byte %d", n.StartByte())
		return nil
	case "{", "}", ";", "declaration":
		return nil
	default:
		if strings.HasSuffix(kind, "_statement") || kind == "at_rule" {
			return b.atRule(n)
		}
		return nil
	}
}

func (b *builder) rule(n *sitter.Node) Node {
	r := &Rule{}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "selectors":
			r.Selector = normalizeSelector(b.text(child))
		case "block":
			r.Declarations = b.declarations(child)
		}
	}
	if r.Selector == "" {
		return nil
	}
	return r
}

func (b *builder) keyframe(n *sitter.Node) Node {
	r := &Rule{}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == "block" {
			r.Declarations = b.declarations(child)
			break
		}
		r.Selector = strings.TrimSpace(b.text(child))
	}
	return r
}

func (b *builder) atRule(n *sitter.Node) Node {
	a := &AtRule{}
	prelude := b.text(n)
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "block", "keyframe_block_list":
			a.Block = true
			prelude = string(b.source[n.StartByte():child.StartByte()])
			a.Nodes = b.items(child)
			if child.Kind() == "block" {
				a.Declarations = b.declarations(child)
			}
		}
	}
	a.Prelude = collapseSpace(strings.TrimSuffix(strings.TrimSpace(prelude), ";"))
	a.Name = atName(a.Prelude)
	return a
}

// declarations collects the declaration children of a block
func (b *builder) declarations(block *sitter.Node) []*Declaration {
	var decls []*Declaration
	for i := uint(0); i < block.ChildCount(); i++ {
		child := block.Child(i)
		if child.Kind() != "declaration" {
			continue
		}
		if d := b.declaration(child); d != nil {
			decls = append(decls, d)
		}
	}
	return decls
}

func (b *builder) declaration(n *sitter.Node) *Declaration {
	d := &Declaration{}
	valueStart, valueEnd := n.EndByte(), n.EndByte()
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "property_name":
			d.Property = b.text(child)
		case ":":
			valueStart = child.EndByte()
		case "important":
			d.Important = true
			valueEnd = min(valueEnd, child.StartByte())
		case ";":
			valueEnd = min(valueEnd, child.StartByte())
		}
	}
	if d.Property == "" || valueStart > valueEnd {
		return nil
	}
	d.Value = collapseSpace(string(b.source[valueStart:valueEnd]))
	return d
}

var atKeyword = regexp.MustCompile(`^@([-\w]+)`)

func atName(prelude string) string {
	if m := atKeyword.FindStringSubmatch(prelude); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

var spaces = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

// normalizeSelector keeps one selector per line the way lessc prints lists
func normalizeSelector(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = collapseSpace(line)
	}
	return strings.Join(lines, "\n")
}
