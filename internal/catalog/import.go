// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/manual-preview/pkg/types"
)

// catalogFile is the YAML layout accepted by Import:
//
//	products:
//	  - id: "42"
//	    manual_filename: report.pdf
//	    manual_render_params: "-density 150"
//	  - id: "43"
//	    manual_data: '{"manual_filename": "legacy.pdf"}'
type catalogFile struct {
	Products []catalogEntry `yaml:"products"`
}

type catalogEntry struct {
	ID                   string `yaml:"id"`
	types.ManualMetadata `yaml:",inline"`

	// ManualData, when set, is stored verbatim instead of encoding the
	// inline metadata fields.
	ManualData string `yaml:"manual_data"`
}

func (e catalogEntry) blob() (string, error) {
	if e.ManualData != "" {
		return e.ManualData, nil
	}
	data, err := json.Marshal(e.ManualMetadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportSummary holds counts from a catalog import.
type ImportSummary struct {
	Imported int
	Skipped  int
}

// Total returns the number of entries read.
func (s ImportSummary) Total() int {
	return s.Imported + s.Skipped
}

// Import reads a YAML catalog from r and upserts every product in a single
// transaction. Entries without an id are skipped. Per-product status lines
// go to w. Any database failure rolls back the whole import.
func (s *Store) Import(ctx context.Context, r io.Reader, w io.Writer) (ImportSummary, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return ImportSummary{}, fmt.Errorf("parsing catalog: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: beginning transaction: %w", ErrStorage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO product (product_id, product_manual_data) VALUES (?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET product_manual_data = excluded.product_manual_data`))
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: preparing upsert: %w", ErrStorage, err)
	}
	defer stmt.Close()

	var summary ImportSummary
	for i, entry := range file.Products {
		if entry.ID == "" {
			fmt.Fprintf(w, "skipped  entry %d (no id)\n", i+1)
			summary.Skipped++
			continue
		}

		data, err := entry.blob()
		if err != nil {
			return ImportSummary{}, fmt.Errorf("encoding manual for product %s: %w", entry.ID, err)
		}

		if _, err := stmt.ExecContext(ctx, entry.ID, data); err != nil {
			return ImportSummary{}, fmt.Errorf("%w: upserting product %s: %w", ErrStorage, entry.ID, err)
		}
		fmt.Fprintf(w, "imported %s\n", entry.ID)
		summary.Imported++
	}

	if err := tx.Commit(); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: committing import: %w", ErrStorage, err)
	}

	fmt.Fprintf(w, "\nImport summary: %d imported, %d skipped (total: %d)\n",
		summary.Imported, summary.Skipped, summary.Total())
	s.log.Info().Int("imported", summary.Imported).Int("skipped", summary.Skipped).Msg("catalog import finished")
	return summary, nil
}
