package modules_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteAliasImports(t *testing.T) {
	source := `@import "~@/styles/vars";
@import '~@/mixins.less';
@import "~antd/lib/style/themes/default";`

	got := modules.RewriteAliasImports(source, "@", "/work/app", "src/")
	assert.Equal(t, `@import "/work/app/src/styles/vars";
@import '/work/app/src/mixins.less';
@import "~antd/lib/style/themes/default";`, got)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("a/card.less", ".card { color: #1890ff; }")
	write("b/broken.less", "BROKEN")
	write("c/list.less", ".list { color: #52c41a; }")

	var (
		mu   sync.Mutex
		seen []compiler.Options
	)
	fake := compiler.Func(func(_ context.Context, source string, opts compiler.Options) (string, error) {
		if strings.Contains(source, "BROKEN") {
			return "", compiler.NewCompileError(opts.Filename, "ParseError", errors.New("exit status 1"))
		}
		mu.Lock()
		seen = append(seen, opts)
		mu.Unlock()
		return source, nil
	})

	r := &modules.Renderer{
		Compiler:   fake,
		Dir:        dir,
		LibraryDir: "lib",
		ScopedName: modules.Pattern("app-[local]"),
	}
	css, err := r.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ".app-card {\n  color: #1890ff;\n}\n\n\n\n.app-list {\n  color: #52c41a;\n}\n", css)
	require.NotEmpty(t, seen)
	assert.Equal(t, []string{dir, "lib"}, seen[0].Paths)
	assert.True(t, seen[0].JavascriptEnabled)
	assert.Equal(t, []compiler.Plugin{compiler.NpmImport}, seen[0].Plugins)
}

func TestRenderWithoutDir(t *testing.T) {
	css, err := (&modules.Renderer{}).Render(context.Background())
	require.NoError(t, err)
	assert.Empty(t, css)
}

func TestRenderCancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.less"), []byte(".a{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &modules.Renderer{
		Dir: dir,
		Compiler: compiler.Func(func(ctx context.Context, _ string, _ compiler.Options) (string, error) {
			return "", ctx.Err()
		}),
	}
	_, err := r.Render(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
