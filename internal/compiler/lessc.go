package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"bennypowers.dev/lesstheme/internal/log"
)

// DefaultBinary is the lessc executable looked up on PATH
const DefaultBinary = "lessc"

// Lessc compiles by running the lessc command line compiler with the source
// on stdin
type Lessc struct {
	Binary string
	// Env is appended to the current environment
	Env []string
}

// NewLessc creates a Lessc compiler. An empty binary means DefaultBinary.
func NewLessc(binary string) *Lessc {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Lessc{Binary: binary}
}

// Args returns the command line arguments for opts
func (l *Lessc) Args(opts Options) []string {
	args := []string{"--no-color"}
	if opts.JavascriptEnabled {
		args = append(args, "--js")
	}
	if len(opts.Paths) > 0 {
		args = append(args, "--include-path="+strings.Join(opts.Paths, string(os.PathListSeparator)))
	}
	for _, p := range opts.Plugins {
		if p.Args == "" {
			args = append(args, "--"+p.Name)
			continue
		}
		args = append(args, fmt.Sprintf("--%s=%s", p.Name, p.Args))
	}
	return append(args, "-")
}

// Compile runs lessc. A context cancellation kills the process.
func (l *Lessc) Compile(ctx context.Context, source string, opts Options) (string, error) {
	binary := l.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, binary, l.Args(opts)...)
	cmd.Stdin = strings.NewReader(source)
	if opts.Filename != "" {
		cmd.Dir = filepath.Dir(opts.Filename)
	}
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running %s %s", binary, strings.Join(cmd.Args[1:], " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("lessc interrupted: %w", ctxErr)
		}
		return "", NewCompileError(opts.Filename, stderr.String(), err)
	}
	return stdout.String(), nil
}
