package theme

import (
	"bennypowers.dev/lesstheme/internal/color"
)

// TokenKind says whether a table entry came from a variable or a generated shade
type TokenKind int

const (
	KindVariable TokenKind = iota
	KindShade
)

// ColorEntry maps one symbolic token to the color the compiler produced for it
type ColorEntry struct {
	// Token is the variable or shade name, e.g. "@primary-color" or "@primary-3"
	Token string
	Kind  TokenKind
	// Literal is the compiled color
	Literal string
	// Symbol replaces Literal in the output: the variable itself, or the
	// colorPalette expression of a shade
	Symbol string
}

// ColorTable maps compiled colors back to symbols. When several tokens
// compile to the same color the first one added wins, so variables must be
// added before shades.
type ColorTable struct {
	entries    []ColorEntry
	exact      map[string]int
	normalized map[string]int
	colors     *color.Set
}

// NewColorTable creates an empty table
func NewColorTable() *ColorTable {
	return &ColorTable{
		exact:      make(map[string]int),
		normalized: make(map[string]int),
		colors:     color.NewSet(),
	}
}

// Add appends an entry
func (t *ColorTable) Add(e ColorEntry) {
	i := len(t.entries)
	t.entries = append(t.entries, e)
	t.colors.Add(e.Literal)
	if _, ok := t.exact[e.Literal]; !ok {
		t.exact[e.Literal] = i
	}
	if n, ok := color.Normalize(e.Literal); ok {
		if _, seen := t.normalized[n]; !seen {
			t.normalized[n] = i
		}
	}
}

// Lookup finds the entry for a literal color, by exact text first and by
// normalized color second
func (t *ColorTable) Lookup(literal string) (ColorEntry, bool) {
	if i, ok := t.exact[literal]; ok {
		return t.entries[i], true
	}
	if n, ok := color.Normalize(literal); ok {
		if i, ok := t.normalized[n]; ok {
			return t.entries[i], true
		}
	}
	return ColorEntry{}, false
}

// Entries returns the entries in insertion order
func (t *ColorTable) Entries() []ColorEntry {
	return append([]ColorEntry(nil), t.entries...)
}

// Len returns the number of entries
func (t *ColorTable) Len() int {
	return len(t.entries)
}

// Colors returns the set of compiled colors
func (t *ColorTable) Colors() *color.Set {
	return t.colors
}

// Rewrite replaces every whole color literal in value that the table knows
func (t *ColorTable) Rewrite(value string) string {
	literals := color.Literals(value)
	if len(literals) == 0 {
		return value
	}
	out := make([]byte, 0, len(value))
	last := 0
	for _, lit := range literals {
		e, ok := t.Lookup(lit.Text)
		if !ok {
			continue
		}
		out = append(out, value[last:lit.Start]...)
		out = append(out, e.Symbol...)
		last = lit.End
	}
	out = append(out, value[last:]...)
	return string(out)
}
