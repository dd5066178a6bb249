package stylesheet

import (
	"strings"
)

const indentUnit = "  "

// String prints the stylesheet with two space indentation
func (s *Stylesheet) String() string {
	var b strings.Builder
	writeNodes(&b, s.Nodes, 0)
	return b.String()
}

func writeNodes(b *strings.Builder, nodes []Node, depth int) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Rule:
			writeRule(b, n, depth)
		case *AtRule:
			writeAtRule(b, n, depth)
		case *Comment:
			b.WriteString(strings.Repeat(indentUnit, depth))
			b.WriteString(n.Text)
			b.WriteByte('\n')
		}
	}
}

func writeRule(b *strings.Builder, r *Rule, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for i, line := range strings.Split(r.Selector, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString(line)
	}
	b.WriteString(" {\n")
	writeDeclarations(b, r.Declarations, depth+1)
	b.WriteString(indent)
	b.WriteString("}\n")
}

func writeAtRule(b *strings.Builder, a *AtRule, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	b.WriteString(indent)
	b.WriteString(a.Prelude)
	if !a.Block {
		b.WriteString(";\n")
		return
	}
	b.WriteString(" {\n")
	writeDeclarations(b, a.Declarations, depth+1)
	writeNodes(b, a.Nodes, depth+1)
	b.WriteString(indent)
	b.WriteString("}\n")
}

func writeDeclarations(b *strings.Builder, decls []*Declaration, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, d := range decls {
		b.WriteString(indent)
		b.WriteString(d.String())
		b.WriteString(";\n")
	}
}

// String prints the declaration without the trailing semicolon
func (d *Declaration) String() string {
	s := d.Property + ": " + d.Value
	if d.Important {
		s += " !important"
	}
	return s
}
