// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preview composes the product catalog and the manual renderer:
// look products up, pick one record, render its manual.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/manual-preview/pkg/types"
)

// ErrProductNotFound is returned when the catalog has no row for a product.
var ErrProductNotFound = errors.New("product not found")

// Catalog fetches product records. The result includes sponsored products.
type Catalog interface {
	FetchProducts(ctx context.Context, ids []types.ProductID) ([]types.ProductRecord, error)
}

// Renderer turns a manual metadata blob into JPEG bytes.
type Renderer interface {
	Render(ctx context.Context, raw []byte) ([]byte, error)
}

// Service renders manual previews for products.
type Service struct {
	catalog  Catalog
	renderer Renderer
	log      zerolog.Logger
}

// NewService wires a catalog to a renderer.
func NewService(c Catalog, r Renderer, log zerolog.Logger) *Service {
	return &Service{
		catalog:  c,
		renderer: r,
		log:      log.With().Str("component", "preview").Logger(),
	}
}

// Products returns the records for ids plus the sponsored products.
func (s *Service) Products(ctx context.Context, ids []types.ProductID) ([]types.ProductRecord, error) {
	return s.catalog.FetchProducts(ctx, ids)
}

// Preview renders the manual of product id.
func (s *Service) Preview(ctx context.Context, id types.ProductID) ([]byte, error) {
	records, err := s.catalog.FetchProducts(ctx, []types.ProductID{id})
	if err != nil {
		return nil, err
	}

	rec, ok := findRecord(records, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	data, err := s.renderer.Render(ctx, rec.ManualData)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return data, nil
}

func findRecord(records []types.ProductRecord, id types.ProductID) (types.ProductRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return types.ProductRecord{}, false
}

// Status is the outcome of rendering one product in a batch.
type Status string

const (
	StatusRendered Status = "rendered"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// BatchResult holds the outcome of a batch render.
type BatchResult struct {
	Rendered int
	Skipped  int
	Failed   int
}

// Total returns the number of products processed.
func (r BatchResult) Total() int {
	return r.Rendered + r.Skipped + r.Failed
}

// HasFailures reports whether any product failed to render.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// RenderTo renders product id into outDir/<id>.jpg. An existing preview is
// kept and reported as skipped. The status line goes to w.
func (s *Service) RenderTo(ctx context.Context, id types.ProductID, outDir string, w io.Writer) Status {
	name := FileName(id)
	outPath := filepath.Join(outDir, name)

	if _, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(w, "skipped:  %s (already exists)\n", id)
		return StatusSkipped
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:   %s (%v)\n", id, err)
		return StatusFailed
	}

	data, err := s.Preview(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("product_id", string(id)).Msg("preview failed")
		fmt.Fprintf(w, "failed:   %s (%v)\n", id, err)
		return StatusFailed
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(w, "failed:   %s (%v)\n", id, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "rendered: %s -> %s\n", id, outPath)
	return StatusRendered
}

// Batch renders every product in ids into outDir, printing per-product
// status to w and returning a summary. It stops early only when ctx is done.
// onDone, when non-nil, is called after each product.
func (s *Service) Batch(ctx context.Context, ids []types.ProductID, outDir string, w io.Writer, onDone func()) BatchResult {
	var result BatchResult
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		switch s.RenderTo(ctx, id, outDir, w) {
		case StatusRendered:
			result.Rendered++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
		if onDone != nil {
			onDone()
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d rendered, %d skipped, %d failed (total: %d)\n",
		result.Rendered, result.Skipped, result.Failed, result.Total())
	return result
}

// FileName maps a product id onto a preview file name that is unique per
// id. Bytes outside [A-Za-z0-9._-] and a leading '.' are written as %XX, so
// the name never contains a path separator and never starts with a dot. The
// empty id maps to "%.jpg", which no other id can produce.
func FileName(id types.ProductID) string {
	if id == "" {
		return "%.jpg"
	}

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		if isFileNameByte(c) && (i > 0 || c != '.') {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String() + ".jpg"
}

func isFileNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.':
		return true
	}
	return false
}
