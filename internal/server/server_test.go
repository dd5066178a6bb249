package server_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bennypowers.dev/lesstheme/internal/cache"
	"bennypowers.dev/lesstheme/internal/compiler"
	"bennypowers.dev/lesstheme/internal/config"
	"bennypowers.dev/lesstheme/internal/metrics"
	"bennypowers.dev/lesstheme/internal/server"
	"bennypowers.dev/lesstheme/internal/testutil"
	"bennypowers.dev/lesstheme/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTheme(t *testing.T, fake *testutil.FakeLess, obs theme.Observer) *theme.Generator {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"lib/style/index.less":          "@import \"./themes/default.less\";\n",
		"lib/style/themes/default.less": "@primary-color: #1890ff;\n",
		"lib/button/style/index.less":   ".btn { color: @primary-color; padding: 4px; }\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return theme.New(&config.Config{LibrarySourceDir: filepath.Join(root, "lib")}, theme.Options{
		Compiler: fake,
		Cache:    cache.NewSlot[*theme.Document](),
		Observer: obs,
	})
}

func get(t *testing.T, h http.Handler, path string, header http.Header) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestTheme(t *testing.T) {
	rec := metrics.New(false)
	h := server.New(newTheme(t, testutil.NewFakeLess(), rec), server.Options{Metrics: rec.Handler()}).Handler()

	resp, body := get(t, h, "/color.less", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/less; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "@primary-color: #1890ff;")
	assert.Contains(t, body, ".btn {\n  color: @primary-color;\n}\n")

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	t.Run("matching ETag is not modified", func(t *testing.T) {
		resp, body := get(t, h, "/color.less", http.Header{"If-None-Match": {etag}})
		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		assert.Empty(t, body)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, body := get(t, h, "/metrics", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `less_theme_builds_total{outcome="generated"} 1`)
		assert.Contains(t, body, `less_theme_builds_total{outcome="cached"} 1`)
	})
}

func TestThemeFailure(t *testing.T) {
	fake := testutil.NewFakeLess()
	fake.FailOn = func(string, compiler.Options) bool { return true }
	h := server.New(newTheme(t, fake, nil), server.Options{}).Handler()

	resp, body := get(t, h, "/color.less", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "theme build failed")

	t.Run("no metrics handler without metrics", func(t *testing.T) {
		resp, _ := get(t, h, "/metrics", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRender(t *testing.T) {
	h := server.New(newTheme(t, testutil.NewFakeLess(), nil), server.Options{}).Handler()

	t.Run("compiles with the theme include paths", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader("@import \"themes/default\";\n.a { color: @primary-color; }\n"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ".a {\n  color: #1890ff;\n}\n", rec.Body.String())
	})

	t.Run("compile errors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(".a { color: @nope; }"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(strings.Repeat("a", server.MaxRenderBytes+1)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, _ := get(t, h, "/render", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestHealth(t *testing.T) {
	h := server.New(nil, server.Options{}).Handler()
	resp, body := get(t, h, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestListenAndServe(t *testing.T) {
	s := server.New(nil, server.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.ListenAndServe(ctx, "127.0.0.1:0")
	assert.False(t, errors.Is(err, http.ErrServerClosed))
	assert.NoError(t, err)
}
