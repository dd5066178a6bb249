// Package config holds the options of a theme build.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bennypowers.dev/lesstheme/internal/discovery"
)

var (
	// ErrMissingOption indicates a required option is empty
	ErrMissingOption = errors.New("missing required option")

	// ErrNotDirectory indicates a directory option points at something else
	ErrNotDirectory = errors.New("not a directory")
)

const (
	DefaultSourceAliasPrefix = "@"
	DefaultSourceResolveBase = "src/"
	DefaultScopedNamePattern = "[local]"
	DefaultLessBinary        = "lessc"
	DefaultPrimaryFamily     = "@primary"
	DefaultPrimaryVariable   = "@primary-color"
)

// Config configures a theme build. Relative paths are taken relative to the
// working directory.
type Config struct {
	// LibrarySourceDir is the component library root, e.g. node_modules/antd/lib
	LibrarySourceDir string `json:"librarySourceDir" yaml:"librarySourceDir" mapstructure:"librarySourceDir"`
	// SecondarySourceDir is an optional second component library
	SecondarySourceDir string `json:"secondarySourceDir,omitempty" yaml:"secondarySourceDir,omitempty" mapstructure:"secondarySourceDir"`
	// OwnStylesDir holds the project's own stylesheets
	OwnStylesDir string `json:"ownStylesDir" yaml:"ownStylesDir" mapstructure:"ownStylesDir"`
	// VariableFile defaults to the library's style/themes/default.less
	VariableFile string `json:"variableFile,omitempty" yaml:"variableFile,omitempty" mapstructure:"variableFile"`
	OutputPath   string `json:"outputPath,omitempty" yaml:"outputPath,omitempty" mapstructure:"outputPath"`

	// SourceAliasPrefix and SourceResolveBase rewrite `@import "~@/x"` in
	// own stylesheets to `@import "<cwd>/src/x"`
	SourceAliasPrefix string `json:"sourceAliasPrefix,omitempty" yaml:"sourceAliasPrefix,omitempty" mapstructure:"sourceAliasPrefix"`
	SourceResolveBase string `json:"sourceResolveBase,omitempty" yaml:"sourceResolveBase,omitempty" mapstructure:"sourceResolveBase"`

	// ScopedNamePattern names CSS module classes; [local], [name] and [hash]
	// are replaced
	ScopedNamePattern string `json:"scopedNamePattern,omitempty" yaml:"scopedNamePattern,omitempty" mapstructure:"scopedNamePattern"`

	// StrictColorOnlyMode keeps only declarations holding a known theme color
	StrictColorOnlyMode bool `json:"strictColorOnlyMode,omitempty" yaml:"strictColorOnlyMode,omitempty" mapstructure:"strictColorOnlyMode"`

	// TokenFiles are design token files appended to the variable file
	TokenFiles  []string `json:"tokenFiles,omitempty" yaml:"tokenFiles,omitempty" mapstructure:"tokenFiles"`
	TokenPrefix string   `json:"tokenPrefix,omitempty" yaml:"tokenPrefix,omitempty" mapstructure:"tokenPrefix"`

	LessBinary string `json:"lessBinary,omitempty" yaml:"lessBinary,omitempty" mapstructure:"lessBinary"`

	// PrimaryFamilies are shade prefixes that derive from PrimaryVariable
	PrimaryFamilies []string `json:"primaryFamilies,omitempty" yaml:"primaryFamilies,omitempty" mapstructure:"primaryFamilies"`
	PrimaryVariable string   `json:"primaryVariable,omitempty" yaml:"primaryVariable,omitempty" mapstructure:"primaryVariable"`
}

// Default returns a config with every optional field at its default
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills empty optional fields
func (c *Config) ApplyDefaults() {
	if c.SourceAliasPrefix == "" {
		c.SourceAliasPrefix = DefaultSourceAliasPrefix
	}
	if c.SourceResolveBase == "" {
		c.SourceResolveBase = DefaultSourceResolveBase
	}
	if c.ScopedNamePattern == "" {
		c.ScopedNamePattern = DefaultScopedNamePattern
	}
	if c.LessBinary == "" {
		c.LessBinary = DefaultLessBinary
	}
	if len(c.PrimaryFamilies) == 0 {
		c.PrimaryFamilies = []string{DefaultPrimaryFamily}
	}
	if c.PrimaryVariable == "" {
		c.PrimaryVariable = DefaultPrimaryVariable
	}
}

// Validate reports missing required options and directories that do not exist
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name  string
		value string
	}{
		{"librarySourceDir", c.LibrarySourceDir},
		{"ownStylesDir", c.OwnStylesDir},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingOption, r.name))
			continue
		}
		if err := checkDir(r.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	if c.SecondarySourceDir != "" {
		if err := checkDir(c.SecondarySourceDir); err != nil {
			errs = append(errs, fmt.Errorf("secondarySourceDir: %w", err))
		}
	}
	return errors.Join(errs...)
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}

// EntryPath is the library's entry stylesheet
func (c *Config) EntryPath() string {
	return filepath.Join(c.LibrarySourceDir, filepath.FromSlash(discovery.EntryStylesheet))
}

// VariablePath is the theme variable file
func (c *Config) VariablePath() string {
	if c.VariableFile != "" {
		return c.VariableFile
	}
	return filepath.Join(c.LibrarySourceDir, filepath.FromSlash(discovery.DefaultVariableFile))
}

// IncludePaths are the import search paths for theme compilations
func (c *Config) IncludePaths() []string {
	paths := []string{filepath.Join(c.LibrarySourceDir, "style")}
	if c.OwnStylesDir != "" {
		paths = append(paths, c.OwnStylesDir)
	}
	if c.SecondarySourceDir != "" {
		paths = append(paths, filepath.Join(c.SecondarySourceDir, "style"))
	}
	return paths
}
