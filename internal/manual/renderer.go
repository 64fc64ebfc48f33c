// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manual turns a product's manual metadata into a JPEG preview of
// the referenced PDF. Rendering runs in four steps: parse the metadata,
// validate the file name and render parameters, run the external
// converter, and collect its output.
package manual

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/manual-preview/internal/imagetool"
	"github.com/pdiddy/manual-preview/pkg/types"
)

const (
	defaultScratchDir = ".scratch"
	defaultTimeout    = 30 * time.Second
)

// Renderer renders manuals from one Library. It is safe for concurrent use:
// each call works on its own uniquely named scratch file.
type Renderer struct {
	library *Library
	scratch string
	tool    imagetool.Tool
	timeout time.Duration
	page    int
	log     zerolog.Logger
}

// NewRenderer creates a renderer for the manuals in cfg.Dir. The scratch
// directory must be inside cfg.Dir and is created if missing.
func NewRenderer(cfg types.ManualConfig, rcfg types.RenderConfig, tool imagetool.Tool, log zerolog.Logger) (*Renderer, error) {
	if tool == nil {
		return nil, errors.New("no image converter configured")
	}
	if rcfg.Page < 0 {
		return nil, fmt.Errorf("render page must not be negative, got %d", rcfg.Page)
	}

	lib, err := NewLibrary(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(lib.Dir()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("manual directory %s does not exist", lib.Dir())
	}

	scratch, err := scratchDir(lib.Dir(), cfg.ScratchDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(scratch, 0o750); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	timeout := rcfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Renderer{
		library: lib,
		scratch: scratch,
		tool:    tool,
		timeout: timeout,
		page:    rcfg.Page,
		log:     log.With().Str("component", "renderer").Logger(),
	}, nil
}

// scratchDir resolves the scratch directory and checks it lies strictly
// inside the manual directory.
func scratchDir(manualDir, configured string) (string, error) {
	if configured == "" {
		configured = defaultScratchDir
	}
	if !filepath.IsAbs(configured) {
		configured = filepath.Join(manualDir, configured)
	}
	scratch := filepath.Clean(configured)

	rel, err := filepath.Rel(manualDir, scratch)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("scratch directory %s must be inside manual directory %s", scratch, manualDir)
	}
	return scratch, nil
}

// Library returns the manual library the renderer reads from.
func (r *Renderer) Library() *Library { return r.library }

// ScratchDir returns the directory holding in-flight render output.
func (r *Renderer) ScratchDir() string { return r.scratch }

// Render converts the manual described by raw into JPEG bytes. Failures
// match one of ErrMalformedMetadata, ErrMissingManual, ErrManualNotFound,
// ErrUnrecognizedRenderParameter, or ErrRenderFailed. No subprocess is
// started unless the metadata fully validates, and no scratch file
// outlives the call.
func (r *Renderer) Render(ctx context.Context, raw []byte) ([]byte, error) {
	meta, err := ParseMetadata(raw)
	if err != nil {
		return nil, err
	}

	pdfPath, params, err := r.validate(meta)
	if err != nil {
		return nil, err
	}

	return r.convert(ctx, meta.Filename, pdfPath, params)
}

func (r *Renderer) validate(meta types.ManualMetadata) (string, []string, error) {
	if meta.Filename == "" {
		return "", nil, ErrMissingManual
	}

	pdfPath, err := r.library.Resolve(meta.Filename)
	if err != nil {
		return "", nil, err
	}

	params, err := ParseParams(meta.RenderParams)
	if err != nil {
		return "", nil, err
	}
	return pdfPath, params, nil
}

func (r *Renderer) convert(ctx context.Context, filename, pdfPath string, params []string) ([]byte, error) {
	id := uuid.NewString()
	outPath := filepath.Join(r.scratch, id+".jpg")
	defer r.cleanup(id)

	args := make([]string, 0, len(params)+2)
	args = append(args, params...)
	args = append(args, pdfPath+"["+strconv.Itoa(r.page)+"]", outPath)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.log.With().Str("render_id", id).Str("manual", filename).Logger()
	log.Debug().Strs("args", args).Msg("starting converter")
	start := time.Now()

	if err := r.tool.Run(ctx, args, "MAGICK_TMPDIR="+r.scratch); err != nil {
		renderErr := &RenderError{Filename: filename, ExitCode: -1, Err: err}
		var runErr *imagetool.RunError
		if errors.As(err, &runErr) {
			renderErr.ExitCode = runErr.ExitCode
			renderErr.Stderr = runErr.Stderr
			renderErr.Err = runErr.Err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			renderErr.TimedOut = true
		}
		log.Warn().Err(err).Bool("timed_out", renderErr.TimedOut).Msg("converter failed")
		return nil, renderErr
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &RenderError{Filename: filename, ExitCode: 0, Err: fmt.Errorf("reading converter output: %w", err)}
	}
	if len(data) == 0 {
		return nil, &RenderError{Filename: filename, ExitCode: 0, Err: errors.New("converter produced empty output")}
	}

	log.Info().Int("bytes", len(data)).Dur("elapsed", time.Since(start)).Msg("manual rendered")
	return data, nil
}

// cleanup removes the scratch output for render id, including the numbered
// siblings ImageMagick writes when it emits more than one frame.
func (r *Renderer) cleanup(id string) {
	paths, _ := filepath.Glob(filepath.Join(r.scratch, id+"*.jpg"))
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("path", p).Msg("removing scratch file")
		}
	}
}
