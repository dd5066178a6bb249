// Package variables turns LESS variable definitions into a flat mapping of
// variable name to color.
package variables

import (
	"strings"
)

// Marker starts every LESS variable name
const Marker = "@"

// Definition is a single `@name: value;` line as written in the source
type Definition struct {
	Name  string
	Value string
	// Line is the 1-based source line
	Line int
}

// Parse scans text for variable definitions. Only lines that begin with the
// variable marker and contain a colon are considered; lines that do not
// scan cleanly are skipped.
func Parse(text string) []Definition {
	var defs []Definition
	for i, line := range strings.Split(text, "\n") {
		def, ok := ParseLine(line)
		if !ok {
			continue
		}
		def.Line = i + 1
		defs = append(defs, def)
	}
	return defs
}

// ParseLine scans a single line. It reports false for lines that are not a
// variable definition.
func ParseLine(line string) (Definition, bool) {
	if !strings.HasPrefix(line, Marker) || !strings.Contains(line, ":") {
		return Definition{}, false
	}
	return scanLine(strings.TrimRight(line, "\r"))
}

// scanLine extracts name and value from a definition line. The value runs
// from the first colon to the first semicolon, so trailing comments are dropped.
func scanLine(line string) (Definition, bool) {
	end := 1
	for end < len(line) && isNameByte(line[end]) {
		end++
	}
	name := strings.ReplaceAll(line[:end], "'", "")
	if len(name) <= len(Marker) {
		return Definition{}, false
	}

	rest, ok := strings.CutPrefix(strings.TrimLeft(line[end:], " \t"), ":")
	if !ok {
		return Definition{}, false
	}

	semi := strings.IndexByte(rest, ';')
	if semi < 0 {
		return Definition{}, false
	}
	value := strings.TrimSpace(rest[:semi])
	if value == "" {
		return Definition{}, false
	}
	return Definition{Name: name, Value: value}, true
}

func isNameByte(b byte) bool {
	return b == '-' || b == '_' || b == '\'' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
