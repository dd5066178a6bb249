// Package tokens turns DTCG design token files into LESS variable overrides
// for the theme variable file.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	asimonimParser "bennypowers.dev/asimonim/parser"
	"bennypowers.dev/asimonim/resolver"
	"bennypowers.dev/asimonim/schema"
	"bennypowers.dev/asimonim/token"
	"bennypowers.dev/lesstheme/internal/color"
	"bennypowers.dev/lesstheme/internal/log"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Override is one color token rendered as a LESS variable
type Override struct {
	// Name is the LESS variable name, e.g. "@primary-color"
	Name   string
	Value  string
	Source string
}

// String renders the override as a variable definition line
func (o Override) String() string {
	return fmt.Sprintf("%s: %s;", o.Name, o.Value)
}

// Options configure how token names map to variable names
type Options struct {
	// Prefix is prepended to every variable name, joined with a hyphen
	Prefix       string
	GroupMarkers []string
}

// LoadFile reads a .json, .jsonc, .yaml or .yml token file
func LoadFile(path string, opts Options) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file %s: %w", path, err)
	}
	overrides, err := Parse(data, filepath.Ext(path), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", path, err)
	}
	for i := range overrides {
		overrides[i].Source = path
	}
	return overrides, nil
}

// Parse converts token data to overrides. Only color tokens whose resolved
// value is a valid color are kept.
func Parse(data []byte, ext string, opts Options) ([]Override, error) {
	data, err := toJSON(data, ext)
	if err != nil {
		return nil, err
	}

	parser := asimonimParser.NewJSONParser()
	toks, err := parser.Parse(data, asimonimParser.Options{
		GroupMarkers: opts.GroupMarkers,
	})
	if err != nil {
		return nil, err
	}
	if err := resolver.ResolveAliases(toks, versionOf(toks)); err != nil {
		return nil, err
	}

	var overrides []Override
	for _, tok := range toks {
		if tok.Type != "color" {
			continue
		}
		value, ok := tokenColor(tok)
		if !ok || !color.IsValid(value) {
			log.Debug("Skipping token %s: no usable color", tok.Name)
			continue
		}
		overrides = append(overrides, Override{
			Name:  variableName(opts.Prefix, tok.Name),
			Value: value,
		})
	}
	return overrides, nil
}

// Render writes overrides as variable definition lines
func Render(overrides []Override) string {
	var b strings.Builder
	for _, o := range overrides {
		b.WriteString(o.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func toJSON(data []byte, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return json.Marshal(raw)
	default:
		return jsonc.ToJSON(data), nil
	}
}

func versionOf(toks []*token.Token) schema.Version {
	for _, t := range toks {
		if t.SchemaVersion != schema.Unknown {
			return t.SchemaVersion
		}
	}
	return schema.Draft
}

func variableName(prefix, name string) string {
	name = strings.ReplaceAll(name, ".", "-")
	if prefix != "" {
		name = strings.TrimSuffix(prefix, "-") + "-" + name
	}
	return "@" + name
}

// tokenColor extracts a LESS color literal from a resolved token
func tokenColor(tok *token.Token) (string, bool) {
	switch tok.ResolvedValue.(type) {
	case string, map[string]any:
		return ColorValue(tok.ResolvedValue)
	}
	if tok.Value != "" && !strings.Contains(tok.Value, "{") {
		return tok.Value, true
	}
	return "", false
}

// ColorValue converts a resolved color token value to a LESS color literal.
// Structured 2025.10 colors are converted to sRGB.
func ColorValue(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, v != ""
	case map[string]any:
		obj, ok := color.ObjectFromMap(v)
		if !ok {
			return "", false
		}
		value, ok := color.ToLess(obj)
		if !ok {
			log.Warn("Color %s has no sRGB form, skipping", color.ToCSS(obj))
		}
		return value, ok
	}
	return "", false
}
