// Package discovery lists the stylesheet files that make up a theme build.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Finder lists the files under root matching a glob pattern
type Finder interface {
	Find(root, pattern string) ([]string, error)
}

// Glob is a Finder backed by doublestar, so patterns may use `**`
type Glob struct{}

// Find returns the regular files under root matching pattern, sorted, as
// paths joined onto root. A missing root yields no files.
func (Glob) Find(root, pattern string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s in %s: %w", pattern, root, err)
	}
	slices.Sort(matches)
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return paths, nil
}

// Match matches a glob pattern against a path using doublestar
func Match(pattern, path string) (bool, error) {
	// doublestar.Match expects forward slashes, but Windows paths use backslashes
	return doublestar.Match(pattern, filepath.ToSlash(path))
}

const (
	// EntryStylesheet is the library entry point, relative to the library dir
	EntryStylesheet = "style/index.less"
	// ComponentPattern finds one index stylesheet per library component
	ComponentPattern = "*/style/index.less"
	// SecondaryPattern finds every stylesheet of the secondary library
	SecondaryPattern = "**/style/*.less"
	// OwnStylesPattern finds the project's own stylesheets
	OwnStylesPattern = "**/*.less"
	// DefaultVariableFile is the theme variable file, relative to the library dir
	DefaultVariableFile = "style/themes/default.less"
)

// Sources lists the component stylesheets of the library followed by those
// of the optional secondary library
func Sources(f Finder, libraryDir, secondaryDir string) ([]string, error) {
	styles, err := f.Find(libraryDir, ComponentPattern)
	if err != nil {
		return nil, err
	}
	if secondaryDir == "" {
		return styles, nil
	}
	secondary, err := f.Find(secondaryDir, SecondaryPattern)
	if err != nil {
		return nil, err
	}
	return append(styles, secondary...), nil
}
