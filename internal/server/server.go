// Package server serves generated themes over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/theme"
)

// MaxRenderBytes bounds the body of a render request
const MaxRenderBytes = 1 << 20

// Theme is the part of theme.Generator the server needs
type Theme interface {
	Generate(ctx context.Context) (*theme.Document, error)
	RenderLess(ctx context.Context, source string) (string, error)
}

// Options configure a Server
type Options struct {
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
	// Timeout bounds each build; zero means no limit
	Timeout time.Duration
}

// Server exposes the theme document, a LESS render endpoint and health
type Server struct {
	theme   Theme
	metrics http.Handler
	timeout time.Duration
}

// New creates a Server
func New(t Theme, opts Options) *Server {
	return &Server{
		theme:   t,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
	}
}

// Register mounts the handlers on mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /color.less", s.handleTheme)
	mux.HandleFunc("POST /render", s.handleRender)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns a mux with every handler registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Serving theme on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) buildContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.buildContext(r)
	defer cancel()

	doc, err := s.theme.Generate(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	etag := `"` + doc.Hash() + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/less; charset=utf-8")
	_, _ = io.WriteString(w, doc.String())
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRenderBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.buildContext(r)
	defer cancel()

	css, err := s.theme.RenderLess(ctx, string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = io.WriteString(w, css)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response: %v", err)
	}
}
