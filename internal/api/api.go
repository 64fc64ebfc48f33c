// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes manual previews over HTTP and maps the catalog and
// renderer errors onto status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pdiddy/manual-preview/internal/catalog"
	"github.com/pdiddy/manual-preview/internal/manual"
	"github.com/pdiddy/manual-preview/internal/preview"
	"github.com/pdiddy/manual-preview/pkg/types"
)

// Previewer is the subset of preview.Service the handlers use.
type Previewer interface {
	Products(ctx context.Context, ids []types.ProductID) ([]types.ProductRecord, error)
	Preview(ctx context.Context, id types.ProductID) ([]byte, error)
}

// ReadyFunc reports whether backing services are reachable.
type ReadyFunc func(ctx context.Context) error

// Handler serves the preview endpoints.
type Handler struct {
	svc   Previewer
	ready ReadyFunc
	log   zerolog.Logger
}

// NewHandler creates a handler. ready may be nil.
func NewHandler(svc Previewer, ready ReadyFunc, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, ready: ready, log: log}
}

// NewRouter returns the HTTP router with all routes configured.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog(h.log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productId}/manual.jpg", h.Manual)
	})

	return r
}

// productDTO is one catalog row in API responses. Manual carries the
// stored metadata verbatim when it is valid JSON, as a string otherwise.
type productDTO struct {
	ID     string          `json:"id"`
	Manual json.RawMessage `json:"manual"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ListProducts handles GET /products?id=a&id=b.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ids := types.ProductIDs(r.URL.Query()["id"])

	records, err := h.svc.Products(r.Context(), ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]productDTO, 0, len(records))
	for _, rec := range records {
		resp = append(resp, productDTO{ID: string(rec.ID), Manual: manualJSON(rec.ManualData)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Manual handles GET /products/{productId}/manual.jpg.
func (h *Handler) Manual(w http.ResponseWriter, r *http.Request) {
	id := types.ProductID(chi.URLParam(r, "productId"))

	data, err := h.svc.Preview(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	ev := h.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")

	// Client errors describe the input; server errors stay generic.
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}

// StatusFor maps an error from the preview pipeline onto an HTTP status.
func StatusFor(err error) int {
	var renderErr *manual.RenderError
	switch {
	case errors.Is(err, preview.ErrProductNotFound),
		errors.Is(err, manual.ErrManualNotFound):
		return http.StatusNotFound
	case errors.Is(err, manual.ErrMissingManual),
		errors.Is(err, manual.ErrMalformedMetadata),
		errors.Is(err, manual.ErrUnrecognizedRenderParameter):
		return http.StatusUnprocessableEntity
	case errors.As(err, &renderErr) && renderErr.TimedOut:
		return http.StatusGatewayTimeout
	case errors.Is(err, manual.ErrRenderFailed):
		return http.StatusBadGateway
	case errors.Is(err, catalog.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func manualJSON(data []byte) json.RawMessage {
	if len(data) > 0 && json.Valid(data) {
		return json.RawMessage(data)
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// accessLog logs one line per request through zerolog.
func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
