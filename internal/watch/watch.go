// Package watch regenerates the theme when its sources change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"bennypowers.dev/lesstheme/internal/config"
	"bennypowers.dev/lesstheme/internal/discovery"
	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/theme"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a rebuild
const DefaultDebounce = 200 * time.Millisecond

// Generator is the part of theme.Generator the watcher needs
type Generator interface {
	Generate(ctx context.Context) (*theme.Document, error)
}

// Options configure a Watcher
type Options struct {
	Debounce time.Duration
	// OnBuild is called after every build, including the initial one
	OnBuild func(doc *theme.Document, err error)
}

// Watcher rebuilds the theme whenever the variable file, a file it imports, a
// token file or an own stylesheet changes
type Watcher struct {
	cfg      config.Config
	gen      Generator
	debounce time.Duration
	onBuild  func(*theme.Document, error)

	ownDir  string
	files   []string
	watched map[string]bool
}

// New creates a Watcher for cfg
func New(cfg config.Config, gen Generator, opts Options) *Watcher {
	w := &Watcher{
		cfg:      cfg,
		gen:      gen,
		debounce: opts.Debounce,
		onBuild:  opts.OnBuild,
		watched:  make(map[string]bool),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if cfg.OwnStylesDir != "" {
		w.ownDir = clean(cfg.OwnStylesDir)
	}
	w.files = append(w.files, clean(cfg.VariablePath()), clean(cfg.EntryPath()))
	for _, f := range cfg.TokenFiles {
		w.files = append(w.files, clean(f))
	}
	return w
}

// Relevant reports whether a change to path should trigger a rebuild
func (w *Watcher) Relevant(path string) bool {
	path = clean(path)
	if slices.Contains(w.files, path) {
		return true
	}
	if w.ownDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.ownDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	ok, err := discovery.Match(discovery.OwnStylesPattern, rel)
	return err == nil && ok
}

// Run builds once, then rebuilds after changes until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, f := range w.files {
		w.add(fsw, filepath.Dir(f))
	}
	if w.ownDir != "" {
		w.addTree(fsw, w.ownDir)
	}

	w.build(ctx, fsw)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && w.isOwnDir(event.Name) {
				w.addTree(fsw, event.Name)
			}
			if !w.Relevant(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("Theme source changed: %s", event.Name)
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher error: %v", err)
		case <-timer.C:
			w.build(ctx, fsw)
		}
	}
}

func (w *Watcher) build(ctx context.Context, fsw *fsnotify.Watcher) {
	doc, err := w.gen.Generate(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Theme rebuild failed: %v", err)
	}
	if doc != nil {
		w.track(fsw, doc.Inputs())
	}
	if w.onBuild != nil {
		w.onBuild(doc, err)
	}
}

// track watches files the variable file imports
func (w *Watcher) track(fsw *fsnotify.Watcher, files []string) {
	for _, f := range files {
		f = clean(f)
		if slices.Contains(w.files, f) {
			continue
		}
		log.Debug("Watching imported variables in %s", f)
		w.files = append(w.files, f)
		w.add(fsw, filepath.Dir(f))
	}
}

// isOwnDir reports whether path is a directory inside the own styles dir
func (w *Watcher) isOwnDir(path string) bool {
	if w.ownDir == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	rel, err := filepath.Rel(w.ownDir, clean(path))
	return err == nil && !strings.HasPrefix(rel, "..")
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			w.add(fsw, path)
		}
		return nil
	})
	if err != nil {
		log.Warn("Cannot watch %s: %v", root, err)
	}
}

func (w *Watcher) add(fsw *fsnotify.Watcher, dir string) {
	dir = clean(dir)
	if w.watched[dir] {
		return
	}
	if err := fsw.Add(dir); err != nil {
		log.Warn("Cannot watch %s: %v", dir, err)
		return
	}
	w.watched[dir] = true
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
