package theme_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"bennypowers.dev/lesstheme/internal/cache"
	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/config"
	"bennypowers.dev/lesstheme/internal/modules"
	"bennypowers.dev/lesstheme/internal/testutil"
	"bennypowers.dev/lesstheme/internal/theme"
	"bennypowers.dev/lesstheme/internal/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultVariables = `// theme variables
@primary-color: #1890ff;
@link-color: @primary-color;
@black: #000;
@text-color: fade(@black, 85%);
@body-background: #fff;
@font-size-base: 14px;
`

// fixture lays out a component library, an own styles dir and returns a
// config pointing at them
func fixture(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	base := map[string]string{
		"lib/style/index.less":          "@import \"./themes/default.less\";\nbody { color: @text-color; margin: 0; }\n",
		"lib/style/themes/default.less": defaultVariables,
		"lib/button/style/index.less":   ".btn { color: @primary-color; padding: 4px; background: @body-background; }\n.btn:hover { color: @link-color; margin: 0; }\n.btn-text { font-size: @font-size-base; }\n",
	}
	for name, content := range files {
		base[name] = content
	}
	for name, content := range base {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	return &config.Config{
		LibrarySourceDir: filepath.Join(root, "lib"),
		OwnStylesDir:     filepath.Join(root, "src"),
		OutputPath:       filepath.Join(root, "public", "color.less"),
	}
}

func newGenerator(cfg *config.Config, fake *testutil.FakeLess) (*theme.Generator, *cache.Slot[*theme.Document]) {
	slot := cache.NewSlot[*theme.Document]()
	g := theme.New(cfg, theme.Options{
		Compiler:   fake,
		Cache:      slot,
		ScopedName: modules.Identity,
		Cwd:        filepath.Dir(cfg.LibrarySourceDir),
	})
	return g, slot
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	cfg := fixture(t, nil)
	fake := testutil.NewFakeLess()
	g, slot := newGenerator(cfg, fake)

	doc, err := g.Generate(ctx)
	require.NoError(t, err)

	t.Run("declarations list working variables in file order", func(t *testing.T) {
		assert.Equal(t, []theme.Declaration{
			{Name: "@primary-color", Value: "#1890ff"},
			{Name: "@link-color", Value: "#1890ff"},
			{Name: "@black", Value: "#000"},
			{Name: "@text-color", Value: "fade(@black, 85%)"},
			{Name: "@body-background", Value: "#fff"},
		}, doc.Declarations())
	})

	t.Run("preamble keeps non color definitions only", func(t *testing.T) {
		assert.Contains(t, doc.Preamble(), "@font-size-base: 14px;")
		assert.Contains(t, doc.Preamble(), "// theme variables")
		assert.NotContains(t, doc.Preamble(), "@primary-color:")
	})

	t.Run("body is color only and symbolic", func(t *testing.T) {
		assert.Equal(t, "body {\n  color: @text-color;\n}\n"+
			".btn {\n  color: @primary-color;\n  background: @body-background;\n}\n"+
			".btn:hover {\n  color: @primary-color;\n}\n", doc.Body())
		assert.NotContains(t, doc.Body(), "padding")
		assert.NotContains(t, doc.Body(), ".btn-text")
	})

	t.Run("document text starts with the declarations", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(doc.String(), "@primary-color: #1890ff;\n@link-color: #1890ff;\n"))
		assert.True(t, strings.HasSuffix(doc.String(), "}\n"))
		assert.Equal(t, len(doc.String()), doc.Len())
	})

	t.Run("output file is written", func(t *testing.T) {
		data, err := os.ReadFile(cfg.OutputPath)
		require.NoError(t, err)
		assert.Equal(t, doc.String(), string(data))
	})

	t.Run("document is cached", func(t *testing.T) {
		entry := slot.Load()
		require.NotNil(t, entry)
		assert.Equal(t, doc.Hash(), entry.Hash)
		assert.Same(t, doc, entry.Value)
	})

	t.Run("compiling the document reproduces the reduced colors", func(t *testing.T) {
		css, err := fake.Compile(ctx, doc.String(), compiler.Options{
			Filename: filepath.Join(cfg.LibrarySourceDir, "style", "theme.less"),
		})
		require.NoError(t, err)
		assert.Equal(t, "body {\n  color: rgba(0, 0, 0, 0.85);\n}\n"+
			".btn {\n  color: #1890ff;\n  background: #fff;\n}\n"+
			".btn:hover {\n  color: #1890ff;\n}\n", css)
	})
}

func TestGenerateCache(t *testing.T) {
	ctx := context.Background()
	cfg := fixture(t, nil)
	fake := testutil.NewFakeLess()
	g, _ := newGenerator(cfg, fake)

	first, err := g.Generate(ctx)
	require.NoError(t, err)
	calls := fake.Calls.Load()
	require.Positive(t, calls)

	t.Run("unchanged inputs skip compilation", func(t *testing.T) {
		second, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, calls, fake.Calls.Load())
	})

	t.Run("changed variables rebuild", func(t *testing.T) {
		path := cfg.VariablePath()
		require.NoError(t, os.WriteFile(path, []byte(strings.Replace(defaultVariables, "#1890ff", "#722ed1", 1)), 0o644))

		third, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, first.Hash(), third.Hash())
		assert.Contains(t, third.String(), "@primary-color: #722ed1;")
		assert.Greater(t, fake.Calls.Load(), calls)
	})

	t.Run("changed imported variables rebuild", func(t *testing.T) {
		cfg := fixture(t, map[string]string{
			"lib/style/color/colors.less":   "@blue-6: #1890ff;\n",
			"lib/style/themes/default.less": "@import \"../color/colors\";\n" + strings.Replace(defaultVariables, "#1890ff", "@blue-6", 1),
		})
		g, _ := newGenerator(cfg, testutil.NewFakeLess())

		before, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.Contains(t, before.Declarations(), theme.Declaration{Name: "@primary-color", Value: "#1890ff"})
		colors := filepath.Join(cfg.LibrarySourceDir, "style", "color", "colors.less")
		assert.Contains(t, before.Inputs(), colors)
		assert.Contains(t, before.Inputs(), cfg.VariablePath())

		require.NoError(t, os.WriteFile(colors, []byte("@blue-6: #722ed1;\n"), 0o644))

		after, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.NotSame(t, before, after)
		assert.NotEqual(t, before.Hash(), after.Hash())
		assert.Contains(t, after.Declarations(), theme.Declaration{Name: "@primary-color", Value: "#722ed1"})
	})

	t.Run("same inputs give the same text", func(t *testing.T) {
		other, _ := newGenerator(cfg, testutil.NewFakeLess())
		a, err := other.Generate(ctx)
		require.NoError(t, err)
		b, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.Equal(t, a.String(), b.String())
		assert.Equal(t, a.Hash(), b.Hash())
	})
}

func TestGenerateShades(t *testing.T) {
	ctx := context.Background()
	shade, err := testutil.Shade("#1890ff", 1)
	require.NoError(t, err)

	cfg := fixture(t, map[string]string{
		"lib/ghost/style/index.less": ".btn-ghost { border-color: " + shade + "; }\n",
	})
	fake := testutil.NewFakeLess()
	g, _ := newGenerator(cfg, fake)

	doc, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.Contains(t, doc.Body(), ".btn-ghost {\n  border-color: color(~`colorPalette(\"@{primary-color}\", 1)`);\n}\n")

	css, err := fake.Compile(ctx, doc.String(), compiler.Options{})
	require.NoError(t, err)
	assert.Contains(t, css, "border-color: "+shade+";")
}

func TestGenerateStrict(t *testing.T) {
	cfg := fixture(t, nil)
	cfg.StrictColorOnlyMode = true
	g, _ := newGenerator(cfg, testutil.NewFakeLess())

	doc, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, doc.Body(), "body {")
	assert.Contains(t, doc.Body(), ".btn {\n  color: @primary-color;\n  background: @body-background;\n}\n")
}

func TestGenerateOwnStyles(t *testing.T) {
	cfg := fixture(t, map[string]string{
		"src/header.less": "@import \"style/themes/default.less\";\n.header { color: @primary-color; height: 64px; }\n",
	})
	g, _ := newGenerator(cfg, testutil.NewFakeLess())

	doc, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Body(), ".header {\n  color: @primary-color;\n}\n"), doc.Body())

	t.Run("broken own stylesheets are skipped", func(t *testing.T) {
		cfg := fixture(t, map[string]string{
			"src/broken.less": ".broken { color: @missing; }\n",
		})
		g, _ := newGenerator(cfg, testutil.NewFakeLess())
		doc, err := g.Generate(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, doc.Body(), ".broken")
		assert.Contains(t, doc.Body(), ".btn {")
	})
}

func TestGenerateTokenOverlay(t *testing.T) {
	cfg := fixture(t, map[string]string{
		"tokens/brand.json": `{
  "brand": {
    "accent": { "$value": "#eb2f96", "$type": "color" }
  }
}`,
	})
	cfg.TokenFiles = []string{filepath.Join(filepath.Dir(cfg.LibrarySourceDir), "tokens", "brand.json")}

	g, _ := newGenerator(cfg, testutil.NewFakeLess())
	doc, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, doc.Declarations(), theme.Declaration{Name: "@brand-accent", Value: "#eb2f96"})
}

func TestGenerateFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("compile failure", func(t *testing.T) {
		cfg := fixture(t, nil)
		fake := testutil.NewFakeLess()
		fake.FailOn = func(source string, opts compiler.Options) bool {
			return strings.HasSuffix(opts.Filename, filepath.Join("style", "index.less"))
		}
		g, slot := newGenerator(cfg, fake)

		_, err := g.Generate(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, compiler.ErrCompile)

		var se *theme.StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, theme.StageCompilingFull, se.Stage)

		assert.Nil(t, slot.Load())
		_, statErr := os.Stat(cfg.OutputPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("circular aliases", func(t *testing.T) {
		cfg := fixture(t, map[string]string{
			"lib/style/themes/default.less": "@a: @b;\n@b: @a;\n@primary-color: #1890ff;\n",
		})
		g, _ := newGenerator(cfg, testutil.NewFakeLess())

		_, err := g.Generate(ctx)
		assert.ErrorIs(t, err, variables.ErrCircularAlias)
		var se *theme.StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, theme.StageResolvingPalette, se.Stage)
	})

	t.Run("missing library entry", func(t *testing.T) {
		cfg := fixture(t, nil)
		require.NoError(t, os.Remove(cfg.EntryPath()))
		g, _ := newGenerator(cfg, testutil.NewFakeLess())

		_, err := g.Generate(ctx)
		var se *theme.StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, theme.StageBuildingSource, se.Stage)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cfg := fixture(t, nil)
		g, _ := newGenerator(cfg, testutil.NewFakeLess())
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := g.Generate(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGenerateOutputFailure(t *testing.T) {
	cfg := fixture(t, nil)
	blocker := filepath.Join(filepath.Dir(cfg.LibrarySourceDir), "public")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))
	g, slot := newGenerator(cfg, testutil.NewFakeLess())

	_, err := g.Generate(context.Background())
	require.Error(t, err)

	var se *theme.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, theme.StageDone, se.Stage)
	assert.True(t, strings.HasPrefix(err.Error(), "theme built but not written: "), err.Error())
	assert.Nil(t, slot.Load(), "a theme that could not be written is not cached")
}

// gatedLess holds every compile until release is closed
type gatedLess struct {
	*testutil.FakeLess
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedLess() *gatedLess {
	return &gatedLess{
		FakeLess: testutil.NewFakeLess(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (c *gatedLess) Compile(ctx context.Context, source string, opts compiler.Options) (string, error) {
	c.once.Do(func() { close(c.entered) })
	select {
	case <-c.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return c.FakeLess.Compile(ctx, source, opts)
}

func TestGenerateSharedBuildOutlivesCaller(t *testing.T) {
	cfg := fixture(t, nil)
	gated := newGatedLess()
	slot := cache.NewSlot[*theme.Document]()
	g := theme.New(cfg, theme.Options{
		Compiler:   gated,
		Cache:      slot,
		ScopedName: modules.Identity,
	})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := g.Generate(firstCtx)
		firstErr <- err
	}()

	select {
	case <-gated.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("build never reached the compiler")
	}

	type result struct {
		doc *theme.Document
		err error
	}
	second := make(chan result, 1)
	go func() {
		doc, err := g.Generate(context.Background())
		second <- result{doc, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	// let the second caller join the running build before it finishes
	time.Sleep(50 * time.Millisecond)
	close(gated.release)

	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Contains(t, res.doc.Declarations(), theme.Declaration{Name: "@primary-color", Value: "#1890ff"})
		assert.Same(t, res.doc, slot.Load().Value)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never got a theme")
	}
	assert.Equal(t, int64(2), gated.Calls.Load(), "one probe and one full compile")
}

func TestGenerateConcurrent(t *testing.T) {
	cfg := fixture(t, nil)
	g, _ := newGenerator(cfg, testutil.NewFakeLess())

	var wg sync.WaitGroup
	docs := make([]*theme.Document, 8)
	errs := make([]error, len(docs))
	for i := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs[i], errs[i] = g.Generate(context.Background())
		}()
	}
	wg.Wait()

	for i := range docs {
		require.NoError(t, errs[i])
		assert.Equal(t, docs[0].String(), docs[i].String())
	}
}

type recorder struct {
	mu       sync.Mutex
	stages   []theme.Stage
	outcomes []theme.Outcome
}

func (r *recorder) ObserveStage(stage theme.Stage, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recorder) ObserveBuild(outcome theme.Outcome, _ *theme.Document, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestObserver(t *testing.T) {
	cfg := fixture(t, nil)
	rec := &recorder{}
	g := theme.New(cfg, theme.Options{
		Compiler: testutil.NewFakeLess(),
		Cache:    cache.NewSlot[*theme.Document](),
		Observer: rec,
	})

	_, err := g.Generate(context.Background())
	require.NoError(t, err)
	_, err = g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []theme.Stage{
		theme.StageBuildingSource,
		theme.StageResolvingPalette,
		theme.StageCompilingProbe,
		theme.StageExtractingColorTable,
		theme.StageCompilingFull,
		theme.StageReducing,
		theme.StageRewriting,
		theme.StageBuildingSource,
	}, rec.stages)
	assert.Equal(t, []theme.Outcome{theme.OutcomeGenerated, theme.OutcomeCached}, rec.outcomes)
}

func TestObserverFailure(t *testing.T) {
	cfg := fixture(t, nil)
	fake := testutil.NewFakeLess()
	fake.FailOn = func(string, compiler.Options) bool { return true }
	rec := &recorder{}
	g := theme.New(cfg, theme.Options{
		Compiler: fake,
		Cache:    cache.NewSlot[*theme.Document](),
		Observer: rec,
	})

	_, err := g.Generate(context.Background())
	require.Error(t, err)

	require.NotEmpty(t, rec.stages)
	assert.Equal(t, theme.StageFailed, rec.stages[len(rec.stages)-1])
	assert.NotContains(t, rec.stages[:len(rec.stages)-1], theme.StageFailed)
	assert.Equal(t, []theme.Outcome{theme.OutcomeFailed}, rec.outcomes)
}

func TestRenderLess(t *testing.T) {
	cfg := fixture(t, nil)
	g, _ := newGenerator(cfg, testutil.NewFakeLess())

	css, err := g.RenderLess(context.Background(), "@import \"themes/default.less\";\n.x { color: @primary-color; }\n")
	require.NoError(t, err)
	assert.Equal(t, ".x {\n  color: #1890ff;\n}\n", css)
}
