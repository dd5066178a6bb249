// Package testutil provides an in-process stand-in for the LESS compiler.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"bennypowers.dev/lesstheme/internal/bundle"
	"bennypowers.dev/lesstheme/internal/compiler"
	"github.com/mazznoer/csscolorparser"
)

// stdinName stands in for the source text when resolving imports
const stdinName = "<stdin>.less"

// FakeLess compiles the subset of LESS used by theme fixtures: variable
// definitions, @import, flat rules and @media blocks, @var references,
// @{var} interpolation, colorPalette and fade.
type FakeLess struct {
	// FailOn rejects sources for which it returns true
	FailOn func(source string, opts compiler.Options) bool

	// Calls counts Compile invocations
	Calls atomic.Int64

	mu      sync.Mutex
	sources []string
}

// NewFakeLess creates a fake compiler
func NewFakeLess() *FakeLess {
	return &FakeLess{}
}

// Sources returns the sources compiled so far
func (f *FakeLess) Sources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

// Compile implements compiler.Compiler
func (f *FakeLess) Compile(ctx context.Context, source string, opts compiler.Options) (string, error) {
	f.Calls.Add(1)
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.FailOn != nil && f.FailOn(source, opts) {
		return "", compiler.NewCompileError(opts.Filename, "ParseError: rejected by test", errors.New("exit status 1"))
	}

	text, err := flatten(source, opts)
	if err != nil {
		return "", compiler.NewCompileError(opts.Filename, err.Error(), err)
	}
	css, err := evaluate(text)
	if err != nil {
		return "", compiler.NewCompileError(opts.Filename, err.Error(), err)
	}
	return css, nil
}

func flatten(source string, opts compiler.Options) (string, error) {
	dir := "."
	if opts.Filename != "" {
		dir = filepath.Dir(opts.Filename)
	}
	entry := filepath.Join(dir, stdinName)
	b := &bundle.Bundler{
		Read: func(name string) ([]byte, error) {
			if name == entry {
				return []byte(source), nil
			}
			return os.ReadFile(name)
		},
		Paths: opts.Paths,
	}
	text, _, err := b.Bundle(entry)
	return text, err
}

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`(?m)(^|[^:])//.*$`)
)

type sheet struct {
	vars map[string]string
	out  strings.Builder
}

func evaluate(text string) (string, error) {
	text = blockComment.ReplaceAllString(text, "")
	text = lineComment.ReplaceAllString(text, "$1")

	items, err := split(text)
	if err != nil {
		return "", err
	}

	s := &sheet{vars: make(map[string]string)}
	for _, it := range items {
		if it.body == nil && strings.HasPrefix(it.head, "@") {
			if name, value, ok := strings.Cut(it.head, ":"); ok {
				s.vars[strings.TrimSpace(name)] = strings.TrimSpace(value)
			}
		}
	}
	if err := s.emit(items, ""); err != nil {
		return "", err
	}
	return s.out.String(), nil
}

func (s *sheet) emit(items []item, indent string) error {
	for _, it := range items {
		switch {
		case it.body == nil && strings.HasPrefix(it.head, "@import"):
			fmt.Fprintf(&s.out, "%s%s;\n", indent, it.head)
		case it.body == nil:
			continue
		case strings.HasPrefix(it.head, "@media") || strings.HasPrefix(it.head, "@supports"):
			children, err := split(*it.body)
			if err != nil {
				return err
			}
			fmt.Fprintf(&s.out, "%s%s {\n", indent, it.head)
			if err := s.emit(children, indent+"  "); err != nil {
				return err
			}
			fmt.Fprintf(&s.out, "%s}\n", indent)
		default:
			if err := s.rule(it.head, *it.body, indent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *sheet) rule(selector, body, indent string) error {
	decls, err := split(body)
	if err != nil {
		return err
	}
	fmt.Fprintf(&s.out, "%s%s {\n", indent, selector)
	for _, d := range decls {
		if d.body != nil {
			return fmt.Errorf("nested rule %q is not supported", d.head)
		}
		prop, value, ok := strings.Cut(d.head, ":")
		if !ok {
			return fmt.Errorf("ParseError: unrecognised input %q", d.head)
		}
		v, err := s.eval(strings.TrimSpace(value), 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(&s.out, "%s  %s: %s;\n", indent, strings.TrimSpace(prop), v)
	}
	fmt.Fprintf(&s.out, "%s}\n", indent)
	return nil
}

var (
	interpolation = regexp.MustCompile(`@\{([\w-]+)\}`)
	reference     = regexp.MustCompile(`@[\w-]+`)
	palette       = regexp.MustCompile("color\\(~`colorPalette\\([\"']([^\"']+)[\"'],\\s*'?\\s*(\\d+)\\s*'?\\s*\\)\\s*`\\)")
	fade          = regexp.MustCompile(`fade\(\s*([^,()]+(?:\([^()]*\))?)\s*,\s*([\d.]+)%\s*\)`)
)

const maxDepth = 32

func (s *sheet) eval(value string, depth int) (string, error) {
	if depth > maxDepth {
		return "", errors.New("NameError: recursive variable definition")
	}

	var err error
	lookup := func(name string) string {
		raw, ok := s.vars[name]
		if !ok {
			if err == nil {
				err = fmt.Errorf("NameError: variable %s is undefined", name)
			}
			return name
		}
		v, e := s.eval(raw, depth+1)
		if e != nil && err == nil {
			err = e
		}
		return v
	}

	value = interpolation.ReplaceAllStringFunc(value, func(m string) string {
		return lookup("@" + m[2:len(m)-1])
	})
	value = reference.ReplaceAllStringFunc(value, lookup)
	if err != nil {
		return "", err
	}

	value = palette.ReplaceAllStringFunc(value, func(m string) string {
		sub := palette.FindStringSubmatch(m)
		index, _ := strconv.Atoi(sub[2])
		shaded, e := Shade(sub[1], index)
		if e != nil && err == nil {
			err = e
		}
		return shaded
	})
	value = fade.ReplaceAllStringFunc(value, func(m string) string {
		sub := fade.FindStringSubmatch(m)
		c, e := csscolorparser.Parse(strings.TrimSpace(sub[1]))
		if e != nil {
			if err == nil {
				err = e
			}
			return m
		}
		alpha, _ := strconv.ParseFloat(sub[2], 64)
		r, g, b, _ := c.RGBA255()
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha/100, 'f', -1, 64))
	})
	return value, err
}

// Shade mixes base toward white for indices below 6 and toward black above
func Shade(base string, index int) (string, error) {
	c, err := csscolorparser.Parse(base)
	if err != nil {
		return "", fmt.Errorf("colorPalette: %w", err)
	}
	target := csscolorparser.Color{R: 1, G: 1, B: 1, A: 1}
	weight := float64(6-index) * 0.15
	if index > 6 {
		target = csscolorparser.Color{A: 1}
		weight = float64(index-6) * 0.15
	}
	weight = math.Min(math.Max(weight, 0), 1)
	mixed := csscolorparser.Color{
		R: c.R + (target.R-c.R)*weight,
		G: c.G + (target.G-c.G)*weight,
		B: c.B + (target.B-c.B)*weight,
		A: c.A,
	}
	return mixed.HexString(), nil
}

// item is a top level statement: a `head;` statement or a `head { body }` block
type item struct {
	head string
	body *string
}

// split breaks text into statements and blocks, honouring nesting, quotes
// and backtick JavaScript escapes
func split(text string) ([]item, error) {
	var items []item
	depth, start, headEnd := 0, 0, -1
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
		case '{':
			if depth == 0 {
				headEnd = i
			}
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, errors.New("ParseError: unmatched }")
			}
			if depth == 0 {
				body := text[headEnd+1 : i]
				items = append(items, item{head: strings.TrimSpace(text[start:headEnd]), body: &body})
				start = i + 1
			}
		case ';':
			if depth == 0 {
				if head := strings.TrimSpace(text[start:i]); head != "" {
					items = append(items, item{head: head})
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.New("ParseError: missing closing }")
	}
	if quote != 0 {
		return nil, errors.New("ParseError: unterminated string")
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		items = append(items, item{head: tail})
	}
	return items, nil
}
