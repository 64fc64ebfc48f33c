// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manual

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manual-preview/internal/imagetool"
	"github.com/pdiddy/manual-preview/pkg/types"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0}

// fakeTool implements imagetool.Tool. By default it writes jpegMagic plus the
// input argument to the output path, which is always the last argument.
type fakeTool struct {
	calls   atomic.Int32
	mu      sync.Mutex
	outs    []string
	lastArg []string
	runFunc func(ctx context.Context, args []string) error
}

func (f *fakeTool) Name() string    { return "convert" }
func (f *fakeTool) Path() string    { return "/usr/bin/convert" }
func (f *fakeTool) Available() bool { return true }

func (f *fakeTool) Run(ctx context.Context, args []string, env ...string) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.outs = append(f.outs, args[len(args)-1])
	f.lastArg = args
	f.mu.Unlock()

	if f.runFunc != nil {
		return f.runFunc(ctx, args)
	}
	return writeFakeJPEG(args)
}

func writeFakeJPEG(args []string) error {
	in, out := args[len(args)-2], args[len(args)-1]
	return os.WriteFile(out, append(append([]byte{}, jpegMagic...), in...), 0o600)
}

func testRenderer(t *testing.T, tool imagetool.Tool, rcfg types.RenderConfig) (*Renderer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "manuals")
	require.NoError(t, os.Mkdir(dir, 0o755))

	r, err := NewRenderer(types.ManualConfig{Dir: dir}, rcfg, tool, zerolog.Nop())
	require.NoError(t, err)
	return r, dir
}

func assertScratchEmpty(t *testing.T, r *Renderer) {
	t.Helper()
	entries, err := os.ReadDir(r.ScratchDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory should be empty")
}

func TestNewRenderer(t *testing.T) {
	dir := t.TempDir()
	tool := &fakeTool{}

	r, err := NewRenderer(types.ManualConfig{Dir: dir}, types.RenderConfig{}, tool, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".scratch"), r.ScratchDir())
	assert.Equal(t, defaultTimeout, r.timeout)
	info, err := os.Stat(r.ScratchDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	tests := []struct {
		name    string
		cfg     types.ManualConfig
		rcfg    types.RenderConfig
		tool    imagetool.Tool
		wantErr string
	}{
		{name: "no tool", cfg: types.ManualConfig{Dir: dir}, wantErr: "no image converter"},
		{name: "no dir", cfg: types.ManualConfig{}, tool: tool, wantErr: "not configured"},
		{name: "missing dir", cfg: types.ManualConfig{Dir: filepath.Join(dir, "nope")}, tool: tool, wantErr: "does not exist"},
		{name: "scratch outside", cfg: types.ManualConfig{Dir: dir, ScratchDir: os.TempDir()}, tool: tool, wantErr: "must be inside"},
		{name: "scratch escapes", cfg: types.ManualConfig{Dir: dir, ScratchDir: "../tmp"}, tool: tool, wantErr: "must be inside"},
		{name: "scratch is the manual dir", cfg: types.ManualConfig{Dir: dir, ScratchDir: "."}, tool: tool, wantErr: "must be inside"},
		{name: "negative page", cfg: types.ManualConfig{Dir: dir}, rcfg: types.RenderConfig{Page: -1}, tool: tool, wantErr: "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRenderer(tt.cfg, tt.rcfg, tt.tool, zerolog.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRenderValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "empty filename", raw: `{"manual_filename": ""}`, wantErr: ErrMissingManual},
		{name: "missing key", raw: `{"manual_render_params": "-trim"}`, wantErr: ErrMalformedMetadata},
		{name: "not json", raw: `report.pdf`, wantErr: ErrMalformedMetadata},
		{name: "path traversal", raw: `{"manual_filename": "../../etc/passwd"}`, wantErr: ErrManualNotFound},
		{name: "unknown manual", raw: `{"manual_filename": "missing.pdf"}`, wantErr: ErrManualNotFound},
		{name: "unknown parameter", raw: `{"manual_filename": "report.pdf", "manual_render_params": "-delete-all"}`, wantErr: ErrUnrecognizedRenderParameter},
		{name: "bad parameter value", raw: `{"manual_filename": "report.pdf", "manual_render_params": "-density ;reboot"}`, wantErr: ErrUnrecognizedRenderParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := &fakeTool{}
			r, dir := testRenderer(t, tool, types.RenderConfig{})
			writeManual(t, dir, "report.pdf")

			data, err := r.Render(context.Background(), []byte(tt.raw))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, data)
			assert.Zero(t, tool.calls.Load(), "converter must not run")
			assertScratchEmpty(t, r)
		})
	}
}

func TestRenderTraversalWithExistingTarget(t *testing.T) {
	tool := &fakeTool{}
	r, dir := testRenderer(t, tool, types.RenderConfig{})
	writeManual(t, filepath.Dir(dir), "outside.pdf")

	_, err := r.Render(context.Background(), []byte(`{"manual_filename": "../outside.pdf"}`))
	require.ErrorIs(t, err, ErrManualNotFound)
	assert.Zero(t, tool.calls.Load())
}

func TestRenderSuccess(t *testing.T) {
	tool := &fakeTool{}
	r, dir := testRenderer(t, tool, types.RenderConfig{Page: 2})
	pdfPath := writeManual(t, dir, "report.pdf")

	data, err := r.Render(context.Background(),
		[]byte(`{"manual_filename": "report.pdf", "manual_render_params": "-density 150 -flatten"}`))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, jpegMagic))
	assert.Equal(t, int32(1), tool.calls.Load())

	args := tool.lastArg
	require.Len(t, args, 5)
	assert.Equal(t, []string{"-density", "150", "-flatten", pdfPath + "[2]"}, args[:4])
	assert.Equal(t, r.ScratchDir(), filepath.Dir(args[4]))

	_, err = os.Stat(args[4])
	assert.True(t, os.IsNotExist(err), "output file should be removed")
	assertScratchEmpty(t, r)
}

func TestRenderConverterFailure(t *testing.T) {
	tool := &fakeTool{runFunc: func(_ context.Context, args []string) error {
		// Leave partial output behind to prove cleanup runs on failure.
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o600)
		return &imagetool.RunError{
			Path:     "/usr/bin/convert",
			ExitCode: 1,
			Stderr:   "convert: no images defined",
			Err:      errors.New("exit status 1"),
		}
	}}
	r, dir := testRenderer(t, tool, types.RenderConfig{})
	writeManual(t, dir, "report.pdf")

	_, err := r.Render(context.Background(), []byte(`{"manual_filename": "report.pdf"}`))
	require.ErrorIs(t, err, ErrRenderFailed)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 1, renderErr.ExitCode)
	assert.Equal(t, "report.pdf", renderErr.Filename)
	assert.False(t, renderErr.TimedOut)
	assert.Contains(t, err.Error(), "no images defined")
	assertScratchEmpty(t, r)
}

func TestRenderMissingOutput(t *testing.T) {
	tests := []struct {
		name    string
		runFunc func(context.Context, []string) error
	}{
		{
			name:    "no output file",
			runFunc: func(context.Context, []string) error { return nil },
		},
		{
			name: "empty output file",
			runFunc: func(_ context.Context, args []string) error {
				return os.WriteFile(args[len(args)-1], nil, 0o600)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := &fakeTool{runFunc: tt.runFunc}
			r, dir := testRenderer(t, tool, types.RenderConfig{})
			writeManual(t, dir, "report.pdf")

			data, err := r.Render(context.Background(), []byte(`{"manual_filename": "report.pdf"}`))
			require.ErrorIs(t, err, ErrRenderFailed)
			assert.Nil(t, data)
			assertScratchEmpty(t, r)
		})
	}
}

func TestRenderTimeout(t *testing.T) {
	tool := &fakeTool{runFunc: func(ctx context.Context, _ []string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	r, dir := testRenderer(t, tool, types.RenderConfig{Timeout: 20 * time.Millisecond})
	writeManual(t, dir, "report.pdf")

	start := time.Now()
	_, err := r.Render(context.Background(), []byte(`{"manual_filename": "report.pdf"}`))
	require.ErrorIs(t, err, ErrRenderFailed)
	assert.Less(t, time.Since(start), 5*time.Second)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.True(t, renderErr.TimedOut)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRenderSeesManualsAddedLater(t *testing.T) {
	tool := &fakeTool{}
	r, dir := testRenderer(t, tool, types.RenderConfig{})
	raw := []byte(`{"manual_filename": "new.pdf"}`)

	_, err := r.Render(context.Background(), raw)
	require.ErrorIs(t, err, ErrManualNotFound)

	writeManual(t, dir, "new.pdf")
	_, err = r.Render(context.Background(), raw)
	require.NoError(t, err)
}

func TestRenderConcurrent(t *testing.T) {
	tool := &fakeTool{runFunc: func(_ context.Context, args []string) error {
		// Widen the window in which colliding output paths would clash.
		time.Sleep(5 * time.Millisecond)
		return writeFakeJPEG(args)
	}}
	r, dir := testRenderer(t, tool, types.RenderConfig{})

	const n = 16
	for i := 0; i < n; i++ {
		writeManual(t, dir, fmt.Sprintf("manual-%02d.pdf", i))
	}

	var wg sync.WaitGroup
	results := make([][]byte, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw := fmt.Sprintf(`{"manual_filename": "manual-%02d.pdf"}`, i)
			results[i], errs[i] = r.Render(context.Background(), []byte(raw))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		want := fmt.Sprintf("manual-%02d.pdf[0]", i)
		assert.True(t, strings.HasSuffix(string(results[i]), want), "render %d got output of another call: %q", i, results[i])
	}

	seen := map[string]bool{}
	for _, out := range tool.outs {
		assert.False(t, seen[out], "output path %s reused", out)
		seen[out] = true
	}
	assertScratchEmpty(t, r)
}

// TestRenderWithScriptConverter runs the real os/exec path against a shell
// script standing in for ImageMagick.
func TestRenderWithScriptConverter(t *testing.T) {
	script := filepath.Join(t.TempDir(), "convert")
	body := "#!/bin/sh\nfor last; do :; done\nprintf 'JPEGDATA' > \"$last\"\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	tool, err := imagetool.New(script)
	require.NoError(t, err)
	r, dir := testRenderer(t, tool, types.RenderConfig{Timeout: 10 * time.Second})
	writeManual(t, dir, "report.pdf")

	data, err := r.Render(context.Background(), []byte(`{"manual_filename": "report.pdf", "manual_render_params": "-quality 80"}`))
	require.NoError(t, err)
	assert.Equal(t, "JPEGDATA", string(data))
	assertScratchEmpty(t, r)
}

func TestRenderWithFailingScriptConverter(t *testing.T) {
	script := filepath.Join(t.TempDir(), "convert")
	body := "#!/bin/sh\necho 'convert: unable to open image' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	tool, err := imagetool.New(script)
	require.NoError(t, err)
	r, dir := testRenderer(t, tool, types.RenderConfig{Timeout: 10 * time.Second})
	writeManual(t, dir, "report.pdf")

	_, err = r.Render(context.Background(), []byte(`{"manual_filename": "report.pdf"}`))
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 1, renderErr.ExitCode)
	assert.Equal(t, "convert: unable to open image", renderErr.Stderr)
}
