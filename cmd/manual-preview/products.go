// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manual-preview/internal/manual"
	"github.com/pdiddy/manual-preview/pkg/types"
)

var productsCmd = &cobra.Command{
	Use:   "products [ids...]",
	Short: "Look up products and their manual metadata",
	Long: `Products fetches the given products from the catalog together with all
sponsored products and prints their manual metadata. With no ids only the
sponsored products are listed.`,
	RunE: runProducts,
}

func init() {
	productsCmd.Flags().Bool("json", false, "output records as JSON")

	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.FetchProducts(cmd.Context(), types.ProductIDs(args))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatProducts(cmd.OutOrStdout(), records, jsonOutput)
}

// productRow is the JSON shape of one looked-up product.
type productRow struct {
	ID           types.ProductID `json:"id"`
	Manual       string          `json:"manual_filename,omitempty"`
	RenderParams string          `json:"manual_render_params,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func toRow(rec types.ProductRecord) productRow {
	row := productRow{ID: rec.ID}
	meta, err := manual.ParseMetadata(rec.ManualData)
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.Manual = meta.Filename
	row.RenderParams = meta.RenderParams
	return row
}

func formatProducts(w io.Writer, records []types.ProductRecord, jsonOutput bool) error {
	rows := make([]productRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toRow(rec))
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No products found.")
		return nil
	}

	fmt.Fprintf(w, "%-20s  %-30s  %s\n", "Product", "Manual", "Render params")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, r := range rows {
		manualCol := r.Manual
		switch {
		case r.Error != "":
			manualCol = "(invalid metadata)"
		case manualCol == "":
			manualCol = "(none)"
		}
		fmt.Fprintf(w, "%-20s  %-30s  %s\n", r.ID, manualCol, r.RenderParams)
	}
	return nil
}
