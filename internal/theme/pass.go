package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"bennypowers.dev/lesstheme/internal/bundle"
	"bennypowers.dev/lesstheme/internal/cache"
	"bennypowers.dev/lesstheme/internal/collections"
	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/discovery"
	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/reducer"
	"bennypowers.dev/lesstheme/internal/stylesheet"
	"bennypowers.dev/lesstheme/internal/tokens"
	"bennypowers.dev/lesstheme/internal/variables"
	"golang.org/x/sync/errgroup"
)

// pass carries the state of one build from stage to stage
type pass struct {
	hash string

	// content is the library entry plus one import per component stylesheet
	content string
	// rawVars is the variable file as written
	rawVars string
	// flatVars is the variable file with its imports inlined
	flatVars string
	// varFiles are the files flatVars was built from
	varFiles []string
	// varText is the flattened variable file plus token overrides
	varText   string
	overrides []tokens.Override

	mapping variables.Mapping
	working []string

	probes     []probe
	probeIndex map[string]int
	table      *ColorTable

	fullCSS string
	ownCSS  string
	reduced *stylesheet.Stylesheet

	declarations []Declaration
	preamble     string
	body         string
}

// probe is one throwaway rule in the probe stylesheet
type probe struct {
	class  string
	token  string
	value  string
	kind   TokenKind
	symbol string
}

func newPass() *pass {
	return &pass{
		probeIndex: make(map[string]int),
	}
}

// run executes the stages after BuildingSource. The project's own styles
// are rendered alongside the palette and compile stages.
func (g *Generator) run(ctx context.Context, p *pass) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		css, err := g.styles.Render(gctx)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Warn("Own styles skipped: %v", err)
			css = ""
		}
		p.ownCSS = css
		return nil
	})

	group.Go(func() error {
		if err := g.stage(StageResolvingPalette, func() error { return g.resolvePalette(p) }); err != nil {
			return err
		}
		var probeCSS string
		if err := g.stage(StageCompilingProbe, func() (err error) {
			probeCSS, err = g.compileProbe(gctx, p)
			return err
		}); err != nil {
			return err
		}
		if err := g.stage(StageExtractingColorTable, func() error { return g.extractColorTable(p, probeCSS) }); err != nil {
			return err
		}
		return g.stage(StageCompilingFull, func() (err error) {
			p.fullCSS, err = g.compileFull(gctx, p)
			return err
		})
	})

	if err := group.Wait(); err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			err = &StageError{Stage: StageCompilingFull, Err: err}
		}
		return err
	}

	if err := g.stage(StageReducing, func() error { return g.reduce(p) }); err != nil {
		return err
	}
	return g.stage(StageRewriting, func() error { return g.rewrite(p) })
}

// buildSource assembles the combined library source, flattens the variable
// file and fingerprints the inputs of the build
func (g *Generator) buildSource(p *pass) error {
	entry := g.cfg.EntryPath()
	data, err := os.ReadFile(entry)
	if err != nil {
		return fmt.Errorf("failed to read library entry: %w", err)
	}
	styles, err := discovery.Sources(g.finder, g.cfg.LibrarySourceDir, g.cfg.SecondarySourceDir)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.Write(data)
	b.WriteByte('\n')
	for _, s := range styles {
		fmt.Fprintf(&b, "@import \"%s\";\n", filepath.ToSlash(absPath(s)))
	}
	p.content = b.String()

	raw, err := os.ReadFile(g.cfg.VariablePath())
	if err != nil {
		return fmt.Errorf("failed to read variable file: %w", err)
	}
	p.rawVars = string(raw)

	bundler := &bundle.Bundler{Paths: g.includePaths()}
	p.flatVars, p.varFiles, err = bundler.Bundle(absPath(g.cfg.VariablePath()))
	if err != nil {
		return err
	}

	parts := []string{
		p.content,
		p.flatVars,
		strings.Join(p.varFiles, "\n"),
		strconv.FormatBool(g.cfg.StrictColorOnlyMode),
		strings.Join(g.cfg.PrimaryFamilies, ","),
		g.cfg.PrimaryVariable,
		g.cfg.ScopedNamePattern,
		g.cfg.TokenPrefix,
	}
	for _, path := range g.cfg.TokenFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		parts = append(parts, path, string(data))
	}
	own, err := g.styles.Sources()
	if err != nil {
		log.Warn("Cannot list own styles: %v", err)
	}
	for _, path := range own {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		parts = append(parts, path, string(data))
	}
	p.hash = cache.Fingerprint(parts...)
	return nil
}

// resolvePalette appends token overrides to the flattened variable file and
// resolves every variable to a color
func (g *Generator) resolvePalette(p *pass) error {
	for _, path := range g.cfg.TokenFiles {
		overrides, err := tokens.LoadFile(path, tokens.Options{Prefix: g.cfg.TokenPrefix})
		if err != nil {
			return err
		}
		p.overrides = append(p.overrides, overrides...)
	}
	p.varText = strings.TrimRight(p.flatVars, "\n") + "\n" + tokens.Render(p.overrides)

	mapping, err := variables.Resolve(p.varText)
	if err != nil {
		return err
	}
	p.mapping = mapping

	declared := collections.NewOrdered(variables.Declared(p.rawVars)...)
	for _, o := range p.overrides {
		declared.Add(o.Name)
	}
	p.working = declared.Filter(func(name string) bool {
		_, ok := mapping[name]
		return ok
	}).Members()
	log.Debug("Resolved %d theme variables, %d in the working set", len(mapping), len(p.working))
	return nil
}

// compileProbe compiles one rule per working variable and per palette shade
func (g *Generator) compileProbe(ctx context.Context, p *pass) (string, error) {
	for _, name := range p.working {
		p.addProbe(probe{token: name, value: name, kind: KindVariable, symbol: name})
	}
	for _, name := range p.working {
		for _, i := range g.palette.Indices(name) {
			shade := g.palette.ShadeName(name, i)
			expr, err := g.palette.Expression(shade)
			if err != nil {
				continue
			}
			p.addProbe(probe{token: shade, value: expr, kind: KindShade, symbol: expr})
		}
	}

	var b strings.Builder
	b.WriteString(p.varText)
	for _, pr := range p.probes {
		fmt.Fprintf(&b, ".%s { color: %s; }\n", pr.class, pr.value)
	}

	return g.compiler.Compile(ctx, b.String(), compiler.Options{
		Paths:             g.includePaths(),
		Filename:          absPath(g.cfg.VariablePath()),
		JavascriptEnabled: true,
		Plugins:           []compiler.Plugin{compiler.NpmImport},
	})
}

// addProbe registers a probe unless its class is taken, so a shade that is
// also a declared variable is probed once
func (p *pass) addProbe(pr probe) {
	pr.class = strings.TrimPrefix(pr.token, variables.Marker)
	if _, ok := p.probeIndex[pr.class]; ok {
		return
	}
	p.probeIndex[pr.class] = len(p.probes)
	p.probes = append(p.probes, pr)
}

var functionalColor = regexp.MustCompile(`(?i)^(rgb|hsl|hsv)a?\(`)

func looksLikeColor(value string) bool {
	return strings.HasPrefix(value, "#") || functionalColor.MatchString(value)
}

// extractColorTable reads the compiled color of every probe rule
func (g *Generator) extractColorTable(p *pass, css string) error {
	sheet, err := stylesheet.Parse(css)
	if err != nil {
		return err
	}

	compiled := make(map[string]string)
	for rule := range sheet.Rules() {
		class, ok := strings.CutPrefix(rule.Selector, ".")
		if !ok {
			continue
		}
		if _, ok := p.probeIndex[class]; !ok {
			continue
		}
		for _, d := range rule.Declarations {
			if d.Property == "color" && looksLikeColor(d.Value) {
				compiled[class] = d.Value
			}
		}
	}

	p.table = NewColorTable()
	for _, pr := range p.probes {
		literal, ok := compiled[pr.class]
		if !ok {
			continue
		}
		p.table.Add(ColorEntry{Token: pr.token, Kind: pr.kind, Literal: literal, Symbol: pr.symbol})
	}
	log.Debug("Color table has %d entries", p.table.Len())
	return nil
}

// compileFull compiles the whole library against the flattened variables
func (g *Generator) compileFull(ctx context.Context, p *pass) (string, error) {
	return g.compiler.Compile(ctx, p.content+"\n"+p.varText, compiler.Options{
		Paths:             g.includePaths(),
		Filename:          absPath(g.cfg.EntryPath()),
		JavascriptEnabled: true,
		Plugins:           []compiler.Plugin{compiler.NpmImport},
	})
}

// reduce strips the combined CSS down to color declarations
func (g *Generator) reduce(p *pass) error {
	sheet, err := stylesheet.Parse(p.ownCSS + "\n" + p.fullCSS)
	if err != nil {
		return err
	}
	r := reducer.New(reducer.Options{
		Strict: g.cfg.StrictColorOnlyMode,
		Colors: p.table.Colors(),
	})
	p.reduced = r.Reduce(sheet)
	return nil
}

// rewrite swaps compiled colors for their symbols and lays out the document
func (g *Generator) rewrite(p *pass) error {
	for d := range p.reduced.Declarations() {
		d.Value = p.table.Rewrite(d.Value)
	}
	p.body = p.reduced.String()

	working := collections.NewSet(p.working...)
	for _, name := range p.working {
		p.declarations = append(p.declarations, Declaration{Name: name, Value: p.mapping[name]})
	}
	p.preamble = stripDefinitions(p.varText, working)
	return nil
}

// stripDefinitions removes the definition lines of the given variables
func stripDefinitions(text string, names collections.Set[string]) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if def, ok := variables.ParseLine(line); ok && names.Has(def.Name) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
