package theme

import (
	"strings"
)

// Declaration is a canonical `<name>: <value>;` line at the top of a document
type Declaration struct {
	Name  string
	Value string
}

func (d Declaration) String() string {
	return d.Name + ": " + d.Value + ";"
}

// Document is a generated color theme. It is immutable once built.
//
// The text is laid out as the declarations of the working variables in
// variable file order, then the flattened variable file without the bare
// definitions of those variables, then the color-only rules.
type Document struct {
	hash         string
	declarations []Declaration
	preamble     string
	body         string
	text         string
	inputs       []string
}

func newDocument(hash string, decls []Declaration, preamble, body string, inputs []string) *Document {
	var b strings.Builder
	for _, d := range decls {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	if p := strings.Trim(preamble, "\n"); p != "" {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	b.WriteString(strings.TrimLeft(body, "\n"))
	text := strings.TrimRight(b.String(), "\n") + "\n"

	return &Document{
		hash:         hash,
		declarations: append([]Declaration(nil), decls...),
		preamble:     preamble,
		body:         body,
		text:         text,
		inputs:       append([]string(nil), inputs...),
	}
}

// Hash is the fingerprint of the inputs the document was built from
func (d *Document) Hash() string {
	return d.hash
}

// Declarations returns the working variable declarations
func (d *Document) Declarations() []Declaration {
	return append([]Declaration(nil), d.declarations...)
}

// Inputs lists the variable file and every file it imports
func (d *Document) Inputs() []string {
	return append([]string(nil), d.inputs...)
}

// Preamble is the flattened variable file minus the working declarations
func (d *Document) Preamble() string {
	return d.preamble
}

// Body is the color-only CSS with colors rewritten to symbols
func (d *Document) Body() string {
	return d.body
}

// String returns the full document text
func (d *Document) String() string {
	return d.text
}

// Len returns the size of the document text in bytes
func (d *Document) Len() int {
	return len(d.text)
}
