// Package bundle flattens a LESS file and everything it imports into one text.
package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"bennypowers.dev/lesstheme/internal/collections"
	"bennypowers.dev/lesstheme/internal/log"
)

// importLine matches `@import "x";`, `@import (reference) 'x';` and friends
var importLine = regexp.MustCompile(`^\s*@import\s+(?:\([^)]*\)\s*)?(["'])([^"']+)(["'])\s*;\s*$`)

// Bundler inlines @import statements recursively. Each file is inlined once;
// repeated or cyclic imports are dropped. Imports that cannot be found, CSS
// imports and url() imports are left for the compiler.
type Bundler struct {
	// Read loads a file. It defaults to os.ReadFile.
	Read func(name string) ([]byte, error)
	// Paths are searched when an import is not found next to its importer
	Paths []string
}

// Bundle flattens the file at path using os.ReadFile
func Bundle(path string, paths ...string) (string, error) {
	b := &Bundler{Paths: paths}
	text, _, err := b.Bundle(path)
	return text, err
}

// Bundle returns the flattened text and the files that went into it, in the
// order they were inlined.
func (b *Bundler) Bundle(path string) (string, []string, error) {
	s := &session{
		Bundler: b,
		seen:    collections.NewOrdered[string](),
		files:   make(map[string][]byte),
	}
	var out strings.Builder
	if err := s.inline(&out, filepath.Clean(path)); err != nil {
		return "", s.seen.Members(), err
	}
	return out.String(), s.seen.Members(), nil
}

type session struct {
	*Bundler
	seen  *collections.Ordered[string]
	files map[string][]byte
}

func (s *session) read(name string) ([]byte, error) {
	if data, ok := s.files[name]; ok {
		return data, nil
	}
	read := s.Read
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(name)
	if err != nil {
		return nil, err
	}
	s.files[name] = data
	return data, nil
}

func (s *session) inline(out *strings.Builder, path string) error {
	s.seen.Add(path)
	data, err := s.read(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, line := range lines {
		if target, ok := s.importTarget(path, line); ok {
			if s.seen.Has(target) {
				log.Debug("Skipping repeated import of %s in %s", target, path)
				continue
			}
			if err := s.inline(out, target); err != nil {
				return err
			}
			continue
		}
		out.WriteString(line)
		if i < len(lines)-1 {
			out.WriteByte('\n')
		}
	}
	if !strings.HasSuffix(out.String(), "\n") {
		out.WriteByte('\n')
	}
	return nil
}

// importTarget resolves the file an import line refers to
func (s *session) importTarget(importer, line string) (string, bool) {
	m := importLine.FindStringSubmatch(line)
	if m == nil || m[1] != m[3] {
		return "", false
	}
	ref := m[2]
	if strings.HasSuffix(ref, ".css") || strings.Contains(ref, "://") {
		return "", false
	}
	if filepath.Ext(ref) == "" {
		ref += ".less"
	}
	ref = strings.TrimPrefix(ref, "~")

	candidates := []string{ref}
	if !filepath.IsAbs(ref) {
		candidates = []string{filepath.Join(filepath.Dir(importer), ref)}
		for _, p := range s.Paths {
			candidates = append(candidates, filepath.Join(p, ref))
		}
	}
	for _, c := range candidates {
		if _, err := s.read(c); err == nil {
			return filepath.Clean(c), true
		} else if !errors.Is(err, fs.ErrNotExist) {
			log.Debug("Cannot read import candidate %s: %v", c, err)
		}
	}
	log.Debug("Leaving unresolved import %q in %s", m[2], importer)
	return "", false
}
