// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/pdiddy/manual-preview/internal/catalog"
	"github.com/pdiddy/manual-preview/internal/imagetool"
	"github.com/pdiddy/manual-preview/internal/manual"
	"github.com/pdiddy/manual-preview/internal/preview"
)

// openCatalog opens the configured product catalog.
func openCatalog() (*catalog.Store, error) {
	return catalog.NewStore(appConfig.Database, sponsoredIDs, logger)
}

// newRenderer detects the converter and builds a renderer over the
// configured manual directory.
func newRenderer() (*manual.Renderer, error) {
	tool, err := imagetool.Detect(appConfig.Render.ToolPaths...)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("converter", tool.Path()).Msg("using image converter")
	return manual.NewRenderer(appConfig.Manuals, appConfig.Render, tool, logger)
}

// newService wires catalog and renderer together. The caller closes the
// returned store.
func newService() (*preview.Service, *catalog.Store, error) {
	store, err := openCatalog()
	if err != nil {
		return nil, nil, err
	}
	renderer, err := newRenderer()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return preview.NewService(store, renderer, logger), store, nil
}
