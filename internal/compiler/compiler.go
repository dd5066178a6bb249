// Package compiler compiles LESS source to CSS.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCompile indicates the LESS compiler rejected its input
var ErrCompile = errors.New("less compilation failed")

// Plugin is a compiler plugin and its option string
type Plugin struct {
	Name string
	Args string
}

// NpmImport resolves `~`-prefixed imports from node_modules
var NpmImport = Plugin{Name: "npm-import", Args: "prefix=~"}

// Options configure a single compilation
type Options struct {
	// Paths are searched for imports
	Paths []string
	// Filename is the logical file name of the source, used to resolve
	// relative imports and in error messages
	Filename          string
	JavascriptEnabled bool
	Plugins           []Plugin
}

// Compiler turns LESS source into CSS
type Compiler interface {
	Compile(ctx context.Context, source string, opts Options) (string, error)
}

// Func adapts a function to the Compiler interface
type Func func(ctx context.Context, source string, opts Options) (string, error)

// Compile calls f
func (f Func) Compile(ctx context.Context, source string, opts Options) (string, error) {
	return f(ctx, source, opts)
}

// CompileError carries the compiler's diagnostic output
type CompileError struct {
	Filename string
	Message  string
	Err      error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCompile.Error())
	if e.Filename != "" {
		fmt.Fprintf(&b, " for %s", e.Filename)
	}
	if msg := firstLine(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both ErrCompile and the underlying cause
func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompile}
	}
	return []error{ErrCompile, e.Err}
}

// NewCompileError creates a new compile error
func NewCompileError(filename, message string, err error) error {
	return &CompileError{Filename: filename, Message: message, Err: err}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
