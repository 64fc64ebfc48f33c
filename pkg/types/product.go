// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared by the catalog, the manual
// renderer, and the command-line surface.
package types

// ProductID identifies one row in the product table. Numeric identifiers are
// carried as their decimal text.
type ProductID string

// ProductRecord is one row returned by a catalog lookup. ManualData is the
// undecoded manual metadata blob exactly as stored.
type ProductRecord struct {
	ID         ProductID `json:"id" yaml:"id"`
	ManualData []byte    `json:"manual_data" yaml:"manual_data"`
}

// ManualMetadata is the decoded form of ProductRecord.ManualData.
type ManualMetadata struct {
	// Filename names a PDF in the manual directory (e.g. "report.pdf").
	Filename string `json:"manual_filename" yaml:"manual_filename"`

	// RenderParams holds optional converter flags such as "-density 150".
	RenderParams string `json:"manual_render_params,omitempty" yaml:"manual_render_params,omitempty"`
}

// ProductIDs converts plain strings into ProductIDs.
func ProductIDs(ss []string) []ProductID {
	ids := make([]ProductID, 0, len(ss))
	for _, s := range ss {
		ids = append(ids, ProductID(s))
	}
	return ids
}
