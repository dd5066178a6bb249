// Package modules renders a project's own stylesheets as CSS modules so
// they can be included in the theme.
package modules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/discovery"
	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/stylesheet"
	"golang.org/x/sync/errgroup"
)

// Renderer compiles every stylesheet under Dir and scopes its class names
type Renderer struct {
	Compiler compiler.Compiler
	Finder   discovery.Finder

	// Dir holds the stylesheets; LibraryDir is searched for their imports
	Dir        string
	LibraryDir string

	// AliasPrefix and ResolveBase rewrite `@import "~<prefix>/x"` to
	// `@import "<Cwd>/<ResolveBase>x"`
	AliasPrefix string
	ResolveBase string
	Cwd         string

	ScopedName ScopedNameFunc
}

// Sources lists the stylesheets Render compiles
func (r *Renderer) Sources() ([]string, error) {
	if r.Dir == "" {
		return nil, nil
	}
	finder := r.Finder
	if finder == nil {
		finder = discovery.Glob{}
	}
	return finder.Find(r.Dir, discovery.OwnStylesPattern)
}

// Render returns the scoped CSS of all stylesheets joined by newlines, in
// source order. A stylesheet that fails to read or compile contributes an
// empty fragment and a warning.
func (r *Renderer) Render(ctx context.Context) (string, error) {
	if r.Dir == "" {
		return "", nil
	}
	files, err := r.Sources()
	if err != nil {
		return "", err
	}

	fragments := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			css, err := r.renderFile(ctx, file)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("Skipping own stylesheet %s: %v", file, err)
				css = "\n"
			}
			fragments[i] = css
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(fragments, "\n"), nil
}

func (r *Renderer) renderFile(ctx context.Context, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	source := RewriteAliasImports(string(data), r.aliasPrefix(), r.cwd(), r.ResolveBase)

	filename, err := filepath.Abs(file)
	if err != nil {
		filename = file
	}
	css, err := r.Compiler.Compile(ctx, source, compiler.Options{
		Paths:             []string{r.Dir, r.LibraryDir},
		Filename:          filename,
		JavascriptEnabled: true,
		Plugins:           []compiler.Plugin{compiler.NpmImport},
	})
	if err != nil {
		return "", err
	}

	sheet, err := stylesheet.Parse(css)
	if err != nil {
		return "", err
	}
	Scope(sheet, r.ScopedName, filename)
	return sheet.String(), nil
}

func (r *Renderer) aliasPrefix() string {
	if r.AliasPrefix == "" {
		return "@"
	}
	return r.AliasPrefix
}

func (r *Renderer) cwd() string {
	if r.Cwd != "" {
		return r.Cwd
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// RewriteAliasImports points `@import "~<prefix>/..."` statements at
// cwd/base
func RewriteAliasImports(source, prefix, cwd, base string) string {
	re := regexp.MustCompile(fmt.Sprintf(`@import +("|')~(%s)/`, regexp.QuoteMeta(prefix)))
	target := strings.ReplaceAll(filepath.ToSlash(cwd), "$", "$$") + "/" + strings.ReplaceAll(base, "$", "$$")
	return re.ReplaceAllString(source, "@import ${1}"+target)
}
