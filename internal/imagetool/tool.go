// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagetool locates and runs the external ImageMagick converter.
// Binaries are addressed by absolute path only and are never resolved
// through PATH; arguments are passed as a vector without a shell.
package imagetool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPaths are the converter locations tried when none are configured.
// ImageMagick 7 ships "magick"; ImageMagick 6 ships "convert".
var DefaultPaths = []string{
	"/usr/bin/magick",
	"/usr/local/bin/magick",
	"/usr/bin/convert",
	"/usr/local/bin/convert",
}

const (
	// maxStderr caps the diagnostic output kept from one run.
	maxStderr = 64 << 10

	probeTimeout = 10 * time.Second
	waitDelay    = 2 * time.Second
)

// baseEnv is the whole environment of a conversion. Ghostscript is found
// through the ImageMagick delegate configuration, which consults PATH.
var baseEnv = []string{"PATH=/usr/local/bin:/usr/bin:/bin"}

// Tool runs one converter binary.
type Tool interface {
	// Name returns the binary name ("magick" or "convert").
	Name() string

	// Path returns the absolute path of the binary.
	Path() string

	// Available reports whether the binary exists, is executable, and
	// answers -version.
	Available() bool

	// Run executes the binary with args and extra environment entries.
	// A failed run returns a *RunError carrying the captured stderr.
	Run(ctx context.Context, args []string, env ...string) error
}

// RunError describes a converter run that did not exit cleanly.
type RunError struct {
	Path     string
	ExitCode int // -1 when the process did not exit normally
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", filepath.Base(e.Path), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// executor abstracts file checks and process execution for testing.
type executor interface {
	Stat(path string) (os.FileInfo, error)
	Run(ctx context.Context, name string, args, env []string, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (osExecutor) Run(ctx context.Context, name string, args, env []string, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	return cmd.Run()
}

type tool struct {
	path string
	exec executor
}

func (t *tool) Name() string { return filepath.Base(t.path) }

func (t *tool) Path() string { return t.path }

func (t *tool) Available() bool {
	info, err := t.exec.Stat(t.path)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return t.exec.Run(ctx, t.path, []string{"-version"}, baseEnv, io.Discard) == nil
}

func (t *tool) Run(ctx context.Context, args []string, env ...string) error {
	fullEnv := make([]string, 0, len(baseEnv)+len(env))
	fullEnv = append(fullEnv, baseEnv...)
	fullEnv = append(fullEnv, env...)

	stderr := &cappedBuffer{limit: maxStderr}
	err := t.exec.Run(ctx, t.path, args, fullEnv, stderr)
	if err == nil {
		return nil
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &RunError{
		Path:     t.path,
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}
}

func newTool(path string, exec executor) (*tool, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("converter path %q must be absolute", path)
	}
	return &tool{path: filepath.Clean(path), exec: exec}, nil
}

// New returns the converter at path without probing it.
func New(path string) (Tool, error) {
	return newTool(path, defaultExec)
}

var defaultExec executor = osExecutor{}

// Detect returns the first available converter among paths, or among
// DefaultPaths when paths is empty.
func Detect(paths ...string) (Tool, error) {
	return detect(defaultExec, paths)
}

func detect(exec executor, paths []string) (Tool, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}

	for _, p := range paths {
		t, err := newTool(p, exec)
		if err != nil {
			return nil, err
		}
		if t.Available() {
			return t, nil
		}
	}

	return nil, fmt.Errorf(
		"no image converter available: tried %s",
		strings.Join(paths, ", "),
	)
}

// cappedBuffer keeps the first limit bytes written and discards the rest
// without reporting a short write.
type cappedBuffer struct {
	buf       strings.Builder
	limit     int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + "\n[truncated]"
	}
	return c.buf.String()
}
