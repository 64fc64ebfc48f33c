// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pdiddy/manual-preview/internal/preview"
	"github.com/pdiddy/manual-preview/pkg/types"
)

var renderCmd = &cobra.Command{
	Use:   "render <id> | --batch <ids...>",
	Short: "Render product manuals to JPEG previews",
	Long: `Render looks up a product, validates its manual metadata, and converts
the referenced PDF manual into a JPEG preview.

With --batch every id is rendered into --out-dir as <id>.jpg. Existing
previews are skipped.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringP("out", "o", "", `output file for a single render, "-" for stdout (default <id>.jpg)`)
	renderCmd.Flags().Bool("batch", false, "render every id into --out-dir")
	renderCmd.Flags().String("out-dir", "previews", "output directory for --batch")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more product ids")
	}

	batch, _ := cmd.Flags().GetBool("batch")
	if !batch && len(args) > 1 {
		return fmt.Errorf("render takes one product id; use --batch for several")
	}

	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer store.Close()

	if batch {
		outDir, _ := cmd.Flags().GetString("out-dir")
		return renderBatch(cmd, svc, types.ProductIDs(args), outDir)
	}

	out, _ := cmd.Flags().GetString("out")
	return renderOne(cmd, svc, types.ProductID(args[0]), out)
}

func renderOne(cmd *cobra.Command, svc *preview.Service, id types.ProductID, out string) error {
	data, err := svc.Preview(cmd.Context(), id)
	if err != nil {
		return err
	}

	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if out == "" {
		out = preview.FileName(id)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "rendered: %s -> %s (%d bytes)\n", id, out, len(data))
	return nil
}

func renderBatch(cmd *cobra.Command, svc *preview.Service, ids []types.ProductID, outDir string) error {
	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)

	result := svc.Batch(cmd.Context(), ids, outDir, cmd.OutOrStdout(), func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if result.HasFailures() {
		return fmt.Errorf("%d product(s) failed to render", result.Failed)
	}
	return nil
}
