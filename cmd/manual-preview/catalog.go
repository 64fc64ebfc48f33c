// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the product catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load products and their manual metadata from a YAML file",
	Long: `Import reads a YAML product list and upserts every product into the
catalog in a single transaction. Each entry names a product id and either
structured manual fields or a verbatim manual_data blob:

  products:
    - id: "1001"
      manual_filename: report.pdf
      manual_render_params: -density 150 -quality 85
    - id: "1002"
      manual_data: '{"manual_filename": ""}'`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Import(cmd.Context(), f, cmd.OutOrStdout())
	return err
}
