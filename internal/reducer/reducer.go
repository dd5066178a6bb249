// Package reducer strips everything but color from a compiled stylesheet.
package reducer

import (
	"slices"
	"strings"

	"bennypowers.dev/lesstheme/internal/color"
	"bennypowers.dev/lesstheme/internal/stylesheet"
)

// PreviewSelectorPrefix marks the palette preview rules of the component
// library, which are always removed
const PreviewSelectorPrefix = ".main-color .palatte-"

// relaxedProperties are the property substrings kept in relaxed mode
var relaxedProperties = []string{"color", "background", "border", "box-shadow"}

// Options select how declarations are judged
type Options struct {
	// Strict keeps only declarations holding a hex color from Colors
	Strict bool
	Colors *color.Set
}

// Reducer removes non-color declarations, emptied rules and comments
type Reducer struct {
	opts Options
}

// New creates a reducer for one compilation pass
func New(opts Options) *Reducer {
	return &Reducer{opts: opts}
}

// Reduce filters sheet in place and returns it
func (r *Reducer) Reduce(sheet *stylesheet.Stylesheet) *stylesheet.Stylesheet {
	sheet.Nodes = r.reduceNodes(sheet.Nodes)
	return sheet
}

// ReduceCSS parses css, reduces it and prints the result
func (r *Reducer) ReduceCSS(css string) (string, error) {
	sheet, err := stylesheet.Parse(css)
	if err != nil {
		return "", err
	}
	return r.Reduce(sheet).String(), nil
}

func (r *Reducer) reduceNodes(nodes []stylesheet.Node) []stylesheet.Node {
	kept := nodes[:0]
	for _, n := range nodes {
		switch n := n.(type) {
		case *stylesheet.Comment:
			continue
		case *stylesheet.Rule:
			if r.reduceRule(n) {
				kept = append(kept, n)
			}
		case *stylesheet.AtRule:
			kept = append(kept, r.reduceAtRule(n))
		}
	}
	return slices.Clip(kept)
}

// reduceRule filters the declarations of rule and reports whether it survives
func (r *Reducer) reduceRule(rule *stylesheet.Rule) bool {
	if strings.HasPrefix(rule.Selector, PreviewSelectorPrefix) {
		return false
	}
	rule.Declarations = slices.DeleteFunc(rule.Declarations, func(d *stylesheet.Declaration) bool {
		return !r.Keep(d)
	})
	return len(rule.Declarations) > 0
}

// reduceAtRule keeps the at-rule itself. Rules nested in conditional groups
// are reduced; keyframes and declaration blocks such as @font-face are kept
// as written apart from comments.
func (r *Reducer) reduceAtRule(at *stylesheet.AtRule) *stylesheet.AtRule {
	if at.Name == "keyframes" || strings.HasSuffix(at.Name, "-keyframes") || len(at.Declarations) > 0 {
		at.Nodes = stripComments(at.Nodes)
		return at
	}
	at.Nodes = r.reduceNodes(at.Nodes)
	return at
}

// Keep reports whether a declaration carries color
func (r *Reducer) Keep(d *stylesheet.Declaration) bool {
	if r.opts.Strict {
		return r.keepStrict(d)
	}
	return keepRelaxed(d)
}

func (r *Reducer) keepStrict(d *stylesheet.Declaration) bool {
	hex, ok := color.FindHex(d.Value)
	if !ok {
		return strings.Contains(d.Property, "background-size")
	}
	return r.opts.Colors.Has(hex)
}

func keepRelaxed(d *stylesheet.Declaration) bool {
	if strings.Contains(d.Property, "background") && !strings.Contains(d.Value, "#") {
		return false
	}
	for _, p := range relaxedProperties {
		if strings.Contains(d.Property, p) {
			return true
		}
	}
	return false
}

func stripComments(nodes []stylesheet.Node) []stylesheet.Node {
	return slices.DeleteFunc(nodes, func(n stylesheet.Node) bool {
		_, ok := n.(*stylesheet.Comment)
		return ok
	})
}
