// Package theme builds a color-only LESS theme from a component library.
//
// A build compiles a probe stylesheet to learn the concrete color behind
// every theme variable and palette shade, compiles the full library,
// reduces the result to color declarations and rewrites the concrete colors
// back to the symbols they came from.
package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bennypowers.dev/lesstheme/internal/cache"
	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/config"
	"bennypowers.dev/lesstheme/internal/discovery"
	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/modules"
	"bennypowers.dev/lesstheme/internal/palette"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"
)

// Outcome labels how a Generate call ended
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeCached    Outcome = "cached"
	OutcomeFailed    Outcome = "failed"
)

// Observer receives build telemetry
type Observer interface {
	ObserveStage(stage Stage, elapsed time.Duration)
	ObserveBuild(outcome Outcome, doc *Document, elapsed time.Duration)
}

var shared = cache.NewSlot[*Document]()

// SharedCache is the process-wide cache used when Options.Cache is nil
func SharedCache() *cache.Slot[*Document] {
	return shared
}

// Options supply the collaborators of a Generator. Every field is optional.
type Options struct {
	// Compiler defaults to lessc
	Compiler compiler.Compiler
	// Finder defaults to doublestar globbing
	Finder discovery.Finder
	// Cache defaults to SharedCache
	Cache *cache.Slot[*Document]
	// ScopedName overrides the config's scopedNamePattern
	ScopedName modules.ScopedNameFunc
	Observer   Observer
	// Cwd is the base of rewritten alias imports; defaults to the working directory
	Cwd string
}

// Generator builds theme documents for one configuration
type Generator struct {
	cfg      config.Config
	compiler compiler.Compiler
	finder   discovery.Finder
	cache    *cache.Slot[*Document]
	palette  *palette.Builder
	styles   *modules.Renderer
	observer Observer
	flight   singleflight.Group
}

// New creates a Generator. Defaults are applied to a copy of cfg.
func New(cfg *config.Config, opts Options) *Generator {
	c := *cfg
	c.ApplyDefaults()

	g := &Generator{
		cfg:      c,
		compiler: opts.Compiler,
		finder:   opts.Finder,
		cache:    opts.Cache,
		observer: opts.Observer,
		palette: &palette.Builder{
			PrimaryFamilies: c.PrimaryFamilies,
			PrimaryVariable: c.PrimaryVariable,
		},
	}
	if g.compiler == nil {
		g.compiler = compiler.NewLessc(c.LessBinary)
	}
	if g.finder == nil {
		g.finder = discovery.Glob{}
	}
	if g.cache == nil {
		g.cache = shared
	}

	scoped := opts.ScopedName
	if scoped == nil {
		scoped = modules.Pattern(c.ScopedNamePattern)
	}
	g.styles = &modules.Renderer{
		Compiler:    g.compiler,
		Finder:      g.finder,
		Dir:         c.OwnStylesDir,
		LibraryDir:  c.LibrarySourceDir,
		AliasPrefix: c.SourceAliasPrefix,
		ResolveBase: c.SourceResolveBase,
		Cwd:         opts.Cwd,
		ScopedName:  scoped,
	}
	return g
}

// Config returns the effective configuration
func (g *Generator) Config() config.Config {
	return g.cfg
}

// Generate builds the theme document. When the inputs are unchanged since
// the last successful build the cached document is returned without
// compiling. Concurrent calls for identical inputs share one build, which
// keeps running when a caller gives up; each caller stops waiting when its
// own ctx is done.
func (g *Generator) Generate(ctx context.Context) (*Document, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, g.fail(err, start)
	}
	observed := g.cache.Load()
	p := newPass()

	if err := g.stage(StageBuildingSource, func() error { return g.buildSource(p) }); err != nil {
		return nil, g.fail(err, start)
	}

	if doc, ok := g.cache.Lookup(p.hash); ok {
		log.Info("Theme sources unchanged, using cached theme")
		g.observeBuild(OutcomeCached, doc, start)
		return doc, nil
	}

	results := g.flight.DoChan(p.hash, func() (any, error) {
		return g.build(context.WithoutCancel(ctx), p, observed)
	})
	select {
	case <-ctx.Done():
		return nil, g.fail(fmt.Errorf("stopped waiting for theme build: %w", ctx.Err()), start)
	case res := <-results:
		if res.Err != nil {
			return nil, g.fail(res.Err, start)
		}
		if res.Shared {
			log.Debug("Shared a theme build for %s", p.hash[:12])
		}
		doc := res.Val.(*Document)
		g.observeBuild(OutcomeGenerated, doc, start)
		return doc, nil
	}
}

// build runs every stage after BuildingSource
func (g *Generator) build(ctx context.Context, p *pass, observed *cache.Entry[*Document]) (*Document, error) {
	if err := g.run(ctx, p); err != nil {
		return nil, err
	}

	doc := newDocument(p.hash, p.declarations, p.preamble, p.body, p.varFiles)

	entry := &cache.Entry[*Document]{Hash: p.hash, Value: doc}
	if !g.cache.CompareAndSwap(observed, entry) {
		log.Debug("A newer theme was cached while building %s; leaving output untouched", p.hash[:12])
		return doc, nil
	}

	size := humanize.Bytes(uint64(doc.Len()))
	if g.cfg.OutputPath == "" {
		log.Info("Theme generated successfully (%s)", size)
		return doc, nil
	}
	if err := writeFile(g.cfg.OutputPath, doc.String()); err != nil {
		g.cache.CompareAndSwap(entry, observed)
		return nil, &StageError{Stage: StageDone, Err: err}
	}
	log.Info("Theme generated successfully. Output: %s (%s)", g.cfg.OutputPath, size)
	return doc, nil
}

// RenderLess compiles arbitrary LESS with the theme's include paths and plugins
func (g *Generator) RenderLess(ctx context.Context, source string) (string, error) {
	return g.compiler.Compile(ctx, source, compiler.Options{
		Paths:             g.includePaths(),
		JavascriptEnabled: true,
		Plugins:           []compiler.Plugin{compiler.NpmImport},
	})
}

func (g *Generator) stage(s Stage, fn func() error) error {
	log.Debug("Theme build stage: %s", s)
	start := time.Now()
	err := fn()
	if g.observer != nil {
		g.observer.ObserveStage(s, time.Since(start))
	}
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return err
		}
		return &StageError{Stage: s, Err: err}
	}
	return nil
}

// fail reports a build that ended in StageFailed
func (g *Generator) fail(err error, start time.Time) error {
	log.Error("%v", err)
	if g.observer != nil {
		elapsed := time.Since(start)
		g.observer.ObserveStage(StageFailed, elapsed)
		g.observer.ObserveBuild(OutcomeFailed, nil, elapsed)
	}
	return err
}

func (g *Generator) observeBuild(outcome Outcome, doc *Document, start time.Time) {
	if g.observer != nil {
		g.observer.ObserveBuild(outcome, doc, time.Since(start))
	}
}

func (g *Generator) includePaths() []string {
	return absAll(g.cfg.IncludePaths())
}

func absAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = absPath(p)
	}
	return out
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// writeFile replaces path atomically so readers never see a partial theme
func writeFile(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".less-theme-*")
	if err != nil {
		return fmt.Errorf("failed to write theme: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write theme: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write theme: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write theme: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write theme: %w", err)
	}
	return nil
}
